// SPDX-License-Identifier: MPL-2.0

// Package fallback shrinks module archives against a host runtime and grows
// them back.
//
// Reduce drops every class, native library and command whose bytes already
// ship with the runtime and records the dropped entries in a fallback list
// stored as classes/fallback.list. Restore re-materializes the listed entries
// from the runtime, and the fallback-jmod pipeline stage does the same inside
// a link. Hashes are SHA-256; entries recorded with "-" are not verified.
package fallback
