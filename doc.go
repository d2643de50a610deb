// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package ooo implements a single-file archiver with configurable per-file
// redundancy: every stored file is written as 1 to MaxRedundancy
// independent, CRC32-checked copies of its payload, so extraction can
// recover a file as long as at least one of its copies survives intact.
//
// The archive container (Create, Add, Delete, List, Verify, Extract,
// ExtractMetadata, LoadMetadata) is the core of this package.
// internal/huffman is a separate, self-contained codec the container never
// calls into; it is exposed only for standalone stream compression.
package ooo
