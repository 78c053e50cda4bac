// SPDX-License-Identifier: MPL-2.0

// Package poolcodec provides the byte-level primitives shared by the module
// archive (jmod) and runtime image (jimage) containers.
//
// It knows nothing about modules or pipelines: it encodes and decodes string
// pools, resource records, resource kinds and compression tags, and exposes a
// bounds-checked Cursor that turns every out-of-range length or index into a
// *MalformedContainerError instead of a panic.
package poolcodec
