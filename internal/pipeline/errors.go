// SPDX-License-Identifier: MPL-2.0

package pipeline

import (
	"errors"
	"fmt"
)

// ErrUnsafeClean is wrapped by Clean when the output directory is the project
// root or contains it or the sources.
var ErrUnsafeClean = errors.New("output directory overlaps the project or its sources")

type (
	// TransformError reports a file whose transformation failed. It never
	// aborts a pass; the output for Path is simply not written.
	TransformError struct {
		Category Name
		Path     string
		Err      error
	}

	// BuildError is returned by RunAll when any pass reported transformation
	// failures.
	BuildError struct {
		Failures int
	}
)

// Error implements the error interface.
func (e *TransformError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Category, e.Path, e.Err)
}

// Unwrap returns the transformer's error.
func (e *TransformError) Unwrap() error { return e.Err }

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Failures == 1 {
		return "build finished with 1 failed file"
	}
	return fmt.Sprintf("build finished with %d failed files", e.Failures)
}
