// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the wxpipe command tree.
//
// Every asset category has a one-shot command named after it and a
// "<name>:watch" command that re-runs it on change. "build" runs every
// category once and waits for all of them, "dev" runs every category and
// keeps watching, and "clean" removes the output directory.
package cmd
