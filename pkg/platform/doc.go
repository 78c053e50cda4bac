// SPDX-License-Identifier: MPL-2.0

// Package platform describes the target a runtime image is linked for.
//
// Targets are written the way runtime images name them, "<os>-<arch>" such
// as "linux-x64" or "macos-aarch64", and map onto Go's GOOS/GOARCH values.
package platform
