// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
)

func TestActionableErrorMessage(t *testing.T) {
	t.Parallel()

	cause := errors.New("no such file or directory")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "operation only",
			err:  New("clean dist"),
			want: "failed to clean dist",
		},
		{
			name: "operation and cause",
			err:  New("load configuration").Wrap(cause),
			want: "failed to load configuration: no such file or directory",
		},
		{
			name: "operation resource and cause",
			err:  Wrap(cause, "run less", "src"),
			want: "failed to run less: src: no such file or directory",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	t.Parallel()

	// A typed nil pointer inside the interface would compare non-nil.
	if err := Wrap(nil, "x", "y"); err != nil {
		t.Errorf("Wrap(nil) = %#v, want nil", err)
	}
}

func TestBuilderChain(t *testing.T) {
	t.Parallel()

	err := New("run sass").
		On("src").
		Suggest("Create the source directory").
		Suggest("Set 'source' in wxpipe.cue", "Pass --dir").
		Wrap(fs.ErrNotExist)

	var ae *ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("Wrap() = %T, want *ActionableError", err)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("cause should be reachable with errors.Is")
	}
	if ae.Resource != "src" || len(ae.Suggestions) != 3 {
		t.Errorf("ActionableError = %+v", ae)
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	inner := errors.New("permission denied")
	var ae *ActionableError
	err := New("clean dist").
		On("dist").
		Suggest("Check directory permissions").
		Wrap(errors.Join(inner))
	if !errors.As(err, &ae) {
		t.Fatal("not an ActionableError")
	}

	short := ae.Format(false)
	if !strings.Contains(short, "• Check directory permissions") {
		t.Errorf("Format(false) missing suggestion:\n%s", short)
	}
	if strings.Contains(short, "Error chain") {
		t.Errorf("Format(false) should not include the chain:\n%s", short)
	}

	long := ae.Format(true)
	for _, want := range []string{"Error chain:", "1. permission denied"} {
		if !strings.Contains(long, want) {
			t.Errorf("Format(true) missing %q:\n%s", want, long)
		}
	}
}
