// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"context"
	"os"

	"github.com/jmodlink/jmodlink/internal/iox"
	"github.com/jmodlink/jmodlink/pkg/jmod"
)

// OpenInput opens a module root directory or a jmod archive.
func OpenInput(ctx context.Context, path string, retry iox.Policy) (jmod.Source, error) {
	var info os.FileInfo
	err := iox.Do(ctx, retry, "stat", path, func() error {
		var err error
		info, err = os.Stat(path)
		return err
	})
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		d, err := jmod.OpenDirectoryPath(path)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
	r, err := jmod.Open(ctx, path, jmod.WithRetry(retry.Attempts, retry.Backoff))
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Link collects the modules at inputs and links them with opts.
func Link(ctx context.Context, opts Options, inputs ...string) (*Result, error) {
	l := New(opts)
	defer func() { _ = l.Close() }()
	for _, in := range inputs {
		src, err := OpenInput(ctx, in, opts.retry())
		if err != nil {
			return nil, l.fail(err)
		}
		if err := l.Collect(src); err != nil {
			return nil, err
		}
	}
	return l.Link(ctx)
}
