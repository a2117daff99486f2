// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Helpers cover project trees (WriteTree, MustWriteFile, MustReadFile),
// directories (MustMkdirAll) and image fixtures (PNG).
package testutil
