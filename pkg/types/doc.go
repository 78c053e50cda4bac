// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by the jmodlink packages:
// validated filesystem paths and the process exit codes of the CLI.
//
// This package is a leaf dependency: it imports only the standard library.
package types
