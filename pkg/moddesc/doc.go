// SPDX-License-Identifier: MPL-2.0

// Package moddesc models module descriptors: the module name, an optional
// version, the requires graph edges, exported and opened packages, services,
// and the main class.
//
// Descriptors travel inside containers as the binary record produced by
// Encode, and are authored in module roots as module-info.cue or
// module-info.toml (see ParseCUE and ParseTOML).
package moddesc
