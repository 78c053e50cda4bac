// SPDX-License-Identifier: MPL-2.0

// Package linker builds a runtime image from a set of modules.
//
// A Linker moves through COLLECTING, RESOLVING and LINKING to DONE, or to
// FAILED holding the error that stopped it. Collecting gathers module
// sources, the later of two same-named modules winning. Resolving computes
// the closure of the root modules over their requires edges and rejects
// missing modules and cycles. Linking loads the closure into a resource pool,
// runs the configured plugin pipeline and writes the image atomically.
package linker
