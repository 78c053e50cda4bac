// SPDX-License-Identifier: MPL-2.0

package platform

// OS name constants for runtime.GOOS comparisons.
// Centralizes the string literals to avoid scattered magic strings.
const (
	Windows = "windows"
	Darwin  = "darwin"
	Linux   = "linux"
)

// osNames maps image OS names to GOOS values.
var osNames = map[string]string{
	"linux":   Linux,
	"macos":   Darwin,
	"darwin":  Darwin,
	"windows": Windows,
	"aix":     "aix",
	"freebsd": "freebsd",
}

// archNames maps image architecture names to GOARCH values.
var archNames = map[string]string{
	"x64":     "amd64",
	"x86_64":  "amd64",
	"amd64":   "amd64",
	"x86":     "386",
	"aarch64": "arm64",
	"arm64":   "arm64",
	"arm":     "arm",
	"ppc64":   "ppc64",
	"ppc64le": "ppc64le",
	"s390x":   "s390x",
	"riscv64": "riscv64",
	"mips64":  "mips64",
	"sparcv9": "sparc64",
}

// bigEndianArchs lists the GOARCH values whose images are big-endian.
var bigEndianArchs = map[string]bool{
	"ppc64":   true,
	"s390x":   true,
	"mips64":  true,
	"mips":    true,
	"sparc64": true,
}
