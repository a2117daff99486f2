// SPDX-License-Identifier: MPL-2.0

// Package issue provides ActionableError, the error type wxpipe uses for
// failures the user can fix: an unreadable config file, a missing source
// directory, an unsafe clean target.
package issue
