// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"runtime"
	"testing"
)

func TestParseTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input     string
		want      Target
		str       string
		byteOrder string
	}{
		{"linux-x64", Target{Linux, "amd64"}, "linux-x64", "little"},
		{"macos-aarch64", Target{Darwin, "arm64"}, "macos-aarch64", "little"},
		{"Windows-X64", Target{Windows, "amd64"}, "windows-x64", "little"},
		{"linux-s390x", Target{Linux, "s390x"}, "linux-s390x", "big"},
		{"aix-ppc64", Target{"aix", "ppc64"}, "aix-ppc64", "big"},
		{"linux-ppc64le", Target{Linux, "ppc64le"}, "linux-ppc64le", "little"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseTarget(tt.input)
			if err != nil {
				t.Fatalf("ParseTarget() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseTarget() = %+v, want %+v", got, tt.want)
			}
			if got.String() != tt.str {
				t.Errorf("String() = %q, want %q", got.String(), tt.str)
			}
			if got.ByteOrderName() != tt.byteOrder {
				t.Errorf("ByteOrderName() = %q, want %q", got.ByteOrderName(), tt.byteOrder)
			}
		})
	}
}

func TestParseTarget_Invalid(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"linux", "plan9-x64", "linux-z80", "-"} {
		if _, err := ParseTarget(input); !errors.Is(err, ErrInvalidTarget) {
			t.Errorf("ParseTarget(%q) error = %v, want ErrInvalidTarget", input, err)
		}
	}
}

func TestParseTarget_EmptyIsHost(t *testing.T) {
	t.Parallel()

	got, err := ParseTarget("")
	if err != nil {
		t.Fatal(err)
	}
	if got.OS != runtime.GOOS || got.Arch != runtime.GOARCH {
		t.Errorf("ParseTarget(\"\") = %+v, want host", got)
	}
}
