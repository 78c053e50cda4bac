// SPDX-License-Identifier: MPL-2.0

package jmod

import (
	"errors"
	"fmt"
)

var (
	// ErrWriterFinalized is returned when a Writer is used after Finalize.
	ErrWriterFinalized = errors.New("archive writer already finalized")

	// ErrInvalidEntryName is returned for entry names that are not clean relative paths.
	ErrInvalidEntryName = errors.New("invalid entry name")

	// ErrSymlink is returned when a module root contains a symbolic link.
	ErrSymlink = errors.New("symbolic links are not supported in module roots")

	// ErrNoDescriptorSource is returned when a module root has neither
	// module-info.cue nor module-info.toml.
	ErrNoDescriptorSource = errors.New("module root has no descriptor source")
)

func invalidEntryName(name string) error {
	return fmt.Errorf("%w: %q", ErrInvalidEntryName, name)
}
