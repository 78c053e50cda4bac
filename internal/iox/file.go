// SPDX-License-Identifier: MPL-2.0

package iox

import (
	"bufio"
	"context"
	"io"
	"os"
	"path/filepath"
)

// Open opens path for reading under p.
func Open(ctx context.Context, p Policy, path string) (*os.File, error) {
	var f *os.File
	err := Do(ctx, p, "open", path, func() error {
		var err error
		f, err = os.Open(path)
		return err
	})
	return f, err
}

// ReadFile reads path under p.
func ReadFile(ctx context.Context, p Policy, path string) ([]byte, error) {
	var data []byte
	err := Do(ctx, p, "read", path, func() error {
		var err error
		data, err = os.ReadFile(path)
		return err
	})
	return data, err
}

// WriteFileAtomic streams write into a temporary file next to path and renames
// it over path only when write and the flush both succeed. On any failure the
// temporary file is removed and path is left untouched.
//
// Errors returned by write itself pass through unwrapped; failures of the
// create, sync and rename steps become *IOFailureError.
func WriteFileAtomic(ctx context.Context, p Policy, path string, write func(w io.Writer) error) error {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	var tmp *os.File
	if err := Do(ctx, p, "create temp file in", dir, func() error {
		var err error
		tmp, err = os.CreateTemp(dir, "."+base+".*.tmp")
		return err
	}); err != nil {
		return err
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err := write(bw); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return &IOFailureError{Op: "write", Path: tmpName, Attempts: 1, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &IOFailureError{Op: "sync", Path: tmpName, Attempts: 1, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IOFailureError{Op: "close", Path: tmpName, Attempts: 1, Err: err}
	}
	if err := Do(ctx, p, "rename", path, func() error {
		return os.Rename(tmpName, path)
	}); err != nil {
		_ = os.Remove(tmpName)
		committed = true
		return err
	}
	committed = true
	return nil
}
