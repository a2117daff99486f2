// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
)

// ActionableError is a user-facing error that says what failed, on which
// resource, and what the user can do about it.
//
//	return issue.New("run less").
//		On("src").
//		Suggest("Create the source directory or set 'source' in wxpipe.cue").
//		Wrap(statErr)
type ActionableError struct {
	// Operation is a verb phrase such as "load configuration".
	Operation string
	// Resource is the file or directory involved (optional).
	Resource string
	// Suggestions are printed as a bullet list below the message.
	Suggestions []string
	// Cause is the underlying error (optional).
	Cause error
}

// New starts an ActionableError for operation.
func New(operation string) *ActionableError {
	return &ActionableError{Operation: operation}
}

// Wrap attaches operation and resource to err. A nil err yields a nil error.
func Wrap(err error, operation, resource string) error {
	if err == nil {
		return nil
	}
	return &ActionableError{Operation: operation, Resource: resource, Cause: err}
}

// On sets the file or directory involved.
func (e *ActionableError) On(resource string) *ActionableError {
	e.Resource = resource
	return e
}

// Suggest appends suggestions.
func (e *ActionableError) Suggest(suggestions ...string) *ActionableError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// Wrap sets the cause and returns e as an error.
func (e *ActionableError) Wrap(cause error) error {
	e.Cause = cause
	return e
}

// Error returns the one-line form: "failed to <op>: <resource>: <cause>".
func (e *ActionableError) Error() string {
	parts := []string{"failed to " + e.Operation}
	if e.Resource != "" {
		parts = append(parts, e.Resource)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *ActionableError) Unwrap() error {
	return e.Cause
}

// Format renders the error followed by its suggestions. When verbose is set
// the unwrap chain of the cause is appended, one numbered line per level.
func (e *ActionableError) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString(e.Error())

	if len(e.Suggestions) > 0 {
		b.WriteString("\n")
		for _, s := range e.Suggestions {
			b.WriteString("\n  • " + s)
		}
	}

	if verbose && e.Cause != nil {
		b.WriteString("\n\nError chain:")
		depth := 1
		for err := e.Cause; err != nil; err = errors.Unwrap(err) {
			fmt.Fprintf(&b, "\n  %d. %s", depth, err)
			depth++
		}
	}
	return b.String()
}
