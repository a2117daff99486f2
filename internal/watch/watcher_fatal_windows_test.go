// SPDX-License-Identifier: MPL-2.0

//go:build windows

package watch

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestFatalErrnoWindows(t *testing.T) {
	t.Parallel()

	for _, errno := range []syscall.Errno{errnoTooManyOpenFiles, errnoInvalidHandle, errnoNotEnoughMemory} {
		if !isFatalFsnotifyError(errno) {
			t.Errorf("errno %d should end the watch loop", uintptr(errno))
		}
		if !isFatalFsnotifyError(fmt.Errorf("ReadDirectoryChanges: %w", errno)) {
			t.Errorf("wrapped errno %d should end the watch loop", uintptr(errno))
		}
	}

	// ERROR_FILE_NOT_FOUND and ERROR_ACCESS_DENIED happen when a watched
	// directory goes away and are only logged.
	for _, err := range []error{syscall.Errno(2), syscall.Errno(5), errors.New("short read")} {
		if isFatalFsnotifyError(err) {
			t.Errorf("%v should only be logged", err)
		}
	}
}
