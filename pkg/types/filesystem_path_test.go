// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"testing"
)

func TestFilesystemPath_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path  FilesystemPath
		valid bool
	}{
		{"/opt/jdk/lib/modules", true},
		{"mods/app.jmod", true},
		{`C:\jdk\jmods\java.base.jmod`, true},
		{"out dir/modules", true},
		{".", true},
		{"", false},
		{"   ", false},
		{"\t\n", false},
	}

	for _, tt := range tests {
		err := tt.path.Validate()
		if tt.valid {
			if err != nil {
				t.Errorf("FilesystemPath(%q).Validate() = %v, want nil", tt.path, err)
			}
			continue
		}
		var fpErr *InvalidFilesystemPathError
		if !errors.As(err, &fpErr) || !errors.Is(err, ErrInvalidFilesystemPath) {
			t.Errorf("FilesystemPath(%q).Validate() = %v, want *InvalidFilesystemPathError", tt.path, err)
		}
	}
}
