// SPDX-License-Identifier: MPL-2.0

package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrInvalidTarget is returned when a target string does not parse.
var ErrInvalidTarget = errors.New("invalid target platform")

type (
	// Target is an operating system and architecture, in GOOS/GOARCH terms.
	Target struct {
		OS   string
		Arch string
	}

	// InvalidTargetError reports an unparsable target string.
	InvalidTargetError struct {
		Value  string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target platform %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidTarget for errors.Is() compatibility.
func (e *InvalidTargetError) Unwrap() error { return ErrInvalidTarget }

// Host returns the platform this process runs on.
func Host() Target {
	return Target{OS: runtime.GOOS, Arch: runtime.GOARCH}
}

// ParseTarget parses "<os>-<arch>". The empty string means Host().
func ParseTarget(s string) (Target, error) {
	if s == "" {
		return Host(), nil
	}
	osName, arch, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "-")
	if !ok {
		return Target{}, &InvalidTargetError{Value: s, Reason: "want <os>-<arch>"}
	}
	goos, ok := osNames[osName]
	if !ok {
		return Target{}, &InvalidTargetError{Value: s, Reason: fmt.Sprintf("unknown operating system %q", osName)}
	}
	goarch, ok := archNames[arch]
	if !ok {
		return Target{}, &InvalidTargetError{Value: s, Reason: fmt.Sprintf("unknown architecture %q", arch)}
	}
	return Target{OS: goos, Arch: goarch}, nil
}

// String renders the target with image naming: "linux-x64", "macos-aarch64".
func (t Target) String() string {
	osName := t.OS
	if osName == Darwin {
		osName = "macos"
	}
	arch := t.Arch
	switch arch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "x86"
	case "arm64":
		arch = "aarch64"
	case "sparc64":
		arch = "sparcv9"
	}
	return osName + "-" + arch
}

// BigEndian reports whether images for t store multi-byte values big-endian.
func (t Target) BigEndian() bool { return bigEndianArchs[t.Arch] }

// ByteOrderName returns "big" or "little", the image-writer byte-order option.
func (t Target) ByteOrderName() string {
	if t.BigEndian() {
		return "big"
	}
	return "little"
}
