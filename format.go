// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ooo

// On-disk layout constants. The archive begins with an 8-byte magic string
// and a 1-byte format version, followed by the fixed header
// (meta_offset, file_count), then the payload region, then the metadata
// block starting at meta_offset and running to end of file.
//
// The original reference tool's header held only meta_offset and
// file_count. This implementation prefixes them with the magic and version
// so every reader can reject a foreign or newer file before trusting any
// other field; see DESIGN.md.
const (
	magicString   = "OOOARCH\x00"
	formatVersion = byte(1)

	magicSize  = 8
	headerSize = magicSize + 1 /* version */ + 8 /* meta_offset */ + 4 /* file_count */

	// MinRedundancy and MaxRedundancy bound the number of copies a file may
	// be stored with, per the redundancy invariant.
	MinRedundancy = 1
	MaxRedundancy = 10

	// nameFieldSize is the fixed width of a file record's name field; names
	// longer than nameFieldSize-1 bytes are truncated, matching the
	// reference tool's strncpy(name, ..., 255).
	nameFieldSize = 256

	// reservedFieldSize is an 8-byte hole left where the reference tool's
	// runtime-only copy_meta pointer lived in its on-disk struct layout (it
	// was written out by an unguarded fwrite(&meta, offsetof(...), 1, ...)
	// that never actually included the pointer, but downstream tooling that
	// assumes the reference layout may still expect the gap). It is always
	// written as zero and ignored on read.
	reservedFieldSize = 8

	fileRecordSize = nameFieldSize + 4 /* mode */ + 4 /* uid */ + 4 /* gid */ +
		8 /* atime */ + 8 /* mtime */ + 4 /* copies */ + reservedFieldSize

	copyRecordSize = 4 /* crc */ + 8 /* offset */ + 8 /* size */
)
