// SPDX-License-Identifier: MPL-2.0

// Package iox wraps local file I/O with bounded retries for transient failures
// and all-or-nothing output files.
//
// Errors that survive the retry budget surface as *IOFailureError, which
// unwraps to both ErrIOFailure and the underlying OS error.
package iox
