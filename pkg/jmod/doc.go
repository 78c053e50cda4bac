// SPDX-License-Identifier: MPL-2.0

// Package jmod reads and writes module archives.
//
// An archive holds one module: its binary descriptor under the entry
// "module-info.bin" and its resources under section paths (classes/, conf/,
// lib/, bin/, man/, legal/, include/). The layout is big-endian:
//
//	header  magic "JM" | major 1 | minor 0 | flags u16 | u32 entry count
//	        u64 pool offset, pool length | u64 index offset, index length
//	        u64 data offset, data length | u64 total length
//	pool    string pool of entry names
//	index   per entry: name u32 | kind u8 | compression u8 | offset u64 | stored u64 | size u64
//	data    entry bytes, in index order
//
// The package also opens module root directories (Directory) so that both
// forms satisfy Source.
package jmod
