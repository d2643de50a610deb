// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package huffman implements a standalone canonical Huffman codec: a
// self-describing compressed stream that carries its own tree, so
// decompression needs nothing but the bytes CompressStream produced.
//
// Wire format: [tree prefix][body]. For the common case (two or more
// distinct byte values) the body is the MSB-first bit-packed codes, one
// per input byte, zero-padded to a byte boundary. When the input has
// exactly one distinct byte value, the tree degenerates to a single leaf
// with no children to branch on; that case is carried as [tree
// prefix][8-byte little-endian length][bit-packed zero bits, one per
// input byte] so the decoder knows how many repetitions to emit without
// needing a real code to decode.
package huffman

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// CompressStream reads all of r, builds a canonical Huffman tree over its
// byte frequencies, and writes the self-describing compressed form to w.
func CompressStream(r io.Reader, w io.Writer) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("huffman: reading input: %w", err)
	}

	var freqs [256]int64
	for _, b := range data {
		freqs[b]++
	}
	root := buildTree(freqs)

	bw := bufio.NewWriter(w)
	if err := serializeTree(bw, root); err != nil {
		return fmt.Errorf("huffman: writing tree: %w", err)
	}
	if root == nil {
		return bw.Flush()
	}

	if root.isLeaf() {
		var lenBuf [8]byte
		binary.LittleEndian.PutUint64(lenBuf[:], uint64(len(data)))
		if _, err := bw.Write(lenBuf[:]); err != nil {
			return fmt.Errorf("huffman: writing length field: %w", err)
		}
		bits := newBitWriter(bw)
		for range data {
			if err := bits.WriteBit(0); err != nil {
				return fmt.Errorf("huffman: writing body: %w", err)
			}
		}
		if err := bits.Flush(); err != nil {
			return fmt.Errorf("huffman: writing body: %w", err)
		}
		return bw.Flush()
	}

	codes := buildCodes(root)
	bits := newBitWriter(bw)
	for _, b := range data {
		if err := bits.WriteCode(codes[b]); err != nil {
			return fmt.Errorf("huffman: writing body: %w", err)
		}
	}
	if err := bits.Flush(); err != nil {
		return fmt.Errorf("huffman: writing body: %w", err)
	}
	return bw.Flush()
}

// DecompressStream reads a stream produced by CompressStream from r and
// writes the decoded bytes to w. A multi-symbol stream stores no length, so
// zero padding bits in its final byte that happen to complete a code are
// decoded as extra trailing symbols.
func DecompressStream(r io.Reader, w io.Writer) error {
	br := bufio.NewReader(r)
	root, err := parseNode(br)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	if root == nil {
		return bw.Flush()
	}

	if root.isLeaf() {
		var lenBuf [8]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return fmt.Errorf("huffman: truncated length field: %w", err)
		}
		n := binary.LittleEndian.Uint64(lenBuf[:])
		bits := newBitReader(br)
		for i := uint64(0); i < n; i++ {
			if _, err := bits.ReadBit(); err != nil {
				return fmt.Errorf("huffman: truncated body: %w", err)
			}
			if err := bw.WriteByte(root.symbol); err != nil {
				return err
			}
		}
		return bw.Flush()
	}

	bits := newBitReader(br)
	for {
		n := root
		for !n.isLeaf() {
			bit, err := bits.ReadBit()
			if err != nil {
				// End of input. Zero padding bits from Flush that did not
				// complete a code leave n short of a leaf; they are
				// discarded silently rather than treated as a truncation
				// error. Padding bits that did complete a code have already
				// been emitted as symbols above.
				return bw.Flush()
			}
			if bit == 0 {
				n = n.left
			} else {
				n = n.right
			}
		}
		if err := bw.WriteByte(n.symbol); err != nil {
			return err
		}
	}
}
