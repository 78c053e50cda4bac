// SPDX-License-Identifier: MPL-2.0

package iox

import (
	"context"
	"errors"
	"syscall"
)

// IsTransient reports whether err is a local I/O error that may succeed on retry:
// an interrupted system call, a resource temporarily unavailable, or a busy file.
//
// Context cancellation and deadline errors are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, syscall.EINTR) ||
		errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY)
}
