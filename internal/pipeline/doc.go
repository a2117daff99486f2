// SPDX-License-Identifier: MPL-2.0

// Package pipeline routes source files to their category, runs each
// category's transformation and writes the mirrored output tree.
//
// A Runner executes one-shot passes (Run), incremental passes for a set of
// changed paths (RunFiles), every category behind a completion barrier
// (RunAll), per-category watch loops (Watch) and the combined development
// session (Dev). Passes for the same category never overlap.
package pipeline
