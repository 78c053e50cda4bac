// SPDX-License-Identifier: MPL-2.0

// Package testutil provides module fixtures and small helpers that fail the
// test on error instead of returning it.
//
// Module describes a module by name, dependencies and files; WriteArchive
// and ArchiveBytes encode it as a jmod archive and OpenArchive reads one back.
package testutil
