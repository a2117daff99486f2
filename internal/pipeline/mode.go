// SPDX-License-Identifier: MPL-2.0

package pipeline

// ModeBuild is a production pass: failures make RunAll return BuildError.
// ModeDev is a development pass: bundles carry inline source maps.
const (
	ModeBuild Mode = iota
	ModeDev
)

// Mode is the context a pass runs in. It is passed explicitly to every pass.
type Mode int

// String returns "build" or "dev".
func (m Mode) String() string {
	if m == ModeDev {
		return "dev"
	}
	return "build"
}
