// SPDX-License-Identifier: MPL-2.0

// Package stylesheet compiles LESS and SCSS sources into plain CSS.
//
// LESS is compiled by an external command line (lessc by default) executed
// through the embedded mvdan/sh interpreter, so the command can be overridden
// from configuration without depending on a system shell. SCSS is compiled
// in-process with libsass.
package stylesheet
