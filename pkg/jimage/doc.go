// SPDX-License-Identifier: MPL-2.0

// Package jimage reads and writes linked runtime images.
//
// The header declares the byte order of everything that follows:
//
//	header     magic 0xCAFEDADA | u8 byte order | u8 major | u8 minor | u8 reserved
//	           u32 module count | u32 resource count
//	           u64 offsets of: strings, modules, offset table, locations, data
//	           u64 lengths of: strings, data | u64 total length
//	modules    per module: name u32 | first resource u32 | resource count u32
//	offsets    per resource: u32 offset of its location record
//	locations  module u32 | name u32 | kind u8 | compression u8 | data offset u64 | stored u64 | size u64
//	strings    string pool of module and resource names
//	data       resource bytes in pool order
//
// Modules are sorted by name and resources by name within their module, so
// a lookup is a binary search inside one module's range.
package jimage
