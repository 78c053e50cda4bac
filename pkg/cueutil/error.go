// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrInvalidCUE is the sentinel behind every *ParseError.
var ErrInvalidCUE = errors.New("invalid CUE input")

// ParseError lists the problems CUE reported for one file, each prefixed
// with the JSON path of the offending field when CUE knows it.
type ParseError struct {
	FilePath string
	Problems []string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", e.FilePath, e.Problems[0])
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.FilePath, strings.Join(e.Problems, "\n  "))
}

// Unwrap returns ErrInvalidCUE for errors.Is() compatibility.
func (e *ParseError) Unwrap() error { return ErrInvalidCUE }

// FormatError converts a CUE error into a *ParseError.
//
// Format: <file-path>: <json-path>: <message>, e.g.
//
//	module-info.cue: requires[1].module: incomplete value string
func FormatError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	cueErrs := cueerrors.Errors(err)
	if len(cueErrs) == 0 {
		return &ParseError{FilePath: filePath, Problems: []string{err.Error()}}
	}

	pe := &ParseError{FilePath: filePath}
	for _, e := range cueErrs {
		pathStr := formatPath(cueerrors.Path(e))
		msg := e.Error()

		// CUE sometimes repeats the path in the message itself.
		if pathStr != "" && strings.HasPrefix(msg, pathStr) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, pathStr), ":"))
		}

		if pathStr != "" {
			pe.Problems = append(pe.Problems, pathStr+": "+msg)
		} else {
			pe.Problems = append(pe.Problems, msg)
		}
	}
	return pe
}

// formatPath turns ["requires", "0", "module"] into "requires[0].module".
func formatPath(path []string) string {
	var result strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			result.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			result.WriteString(".")
		}
		result.WriteString(part)
	}
	return result.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// CheckFileSize rejects data larger than maxSize.
func CheckFileSize(data []byte, maxSize int64, filename string) error {
	if int64(len(data)) > maxSize {
		return fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes",
			filename, len(data), maxSize)
	}
	return nil
}
