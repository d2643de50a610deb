// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package crc32table implements the table-driven IEEE/Ethernet CRC32
// (reflected, polynomial 0xEDB88320) used to check every copy payload
// stored in an archive.
package crc32table

import "io"

const polynomial = 0xEDB88320

// table is computed once at package init and never written to again.
var table [256]uint32

func init() {
	for i := uint32(0); i < 256; i++ {
		crc := i
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ polynomial
			} else {
				crc >>= 1
			}
		}
		table[i] = crc
	}
}

// Update folds buf into a running CRC and returns the CRC32 of all data
// seen so far. crc is the finished CRC32 (final XOR already applied) of
// the preceding data, as returned by a previous Update or Checksum call:
// pass 0 for the first call. This is the single primitive both Checksum and
// ChecksumReader build on, so neither can drift from the other the way the
// reference C tool's per-chunk file checksum does (see ChecksumReader).
func Update(crc uint32, buf []byte) uint32 {
	crc = ^crc
	for _, b := range buf {
		crc = (crc >> 8) ^ table[byte(crc)^b]
	}
	return ^crc
}

// Checksum returns the CRC32 of buf in a single call.
func Checksum(buf []byte) uint32 {
	return Update(0, buf)
}

// ChecksumReader streams r in fixed-size chunks and returns the CRC32 of
// everything read, folding each chunk into the running register.
//
// The reference archiver's calculate_crc32_file reassigns its running crc
// from calculate_crc32_buffer(buffer, n) on every 4KiB chunk instead of
// folding the new chunk into the crc carried from the previous one, so it
// silently returns the CRC of only the final chunk for any file larger
// than one buffer. ChecksumReader has no such seam: crc is threaded through
// Update on every iteration.
func ChecksumReader(r io.Reader) (uint32, error) {
	var crc uint32
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			crc = Update(crc, buf[:n])
		}
		if err == io.EOF {
			return crc, nil
		}
		if err != nil {
			return 0, err
		}
	}
}
