// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package huffman

// code is a symbol's bit pattern: the low length bits of bits, MSB first.
type code struct {
	bits   uint32
	length uint8
}

// buildCodes walks root and returns the code table, one entry per symbol
// reachable from it. The single-leaf-root case (one distinct byte in the
// whole input) has no left/right branch to number, so it is given the
// one-bit code "0" by convention; DecompressStream's leaf-at-root path
// never actually consults this value, it only needs root.isLeaf() to be
// true, but the entry is still filled in so callers that inspect the code
// table directly see a consistent, non-empty table.
func buildCodes(root *node) map[byte]code {
	codes := make(map[byte]code)
	if root == nil {
		return codes
	}
	if root.isLeaf() {
		codes[root.symbol] = code{bits: 0, length: 1}
		return codes
	}
	var walk func(n *node, bits uint32, length uint8)
	walk = func(n *node, bits uint32, length uint8) {
		if n.isLeaf() {
			codes[n.symbol] = code{bits: bits, length: length}
			return
		}
		walk(n.left, bits<<1, length+1)
		walk(n.right, bits<<1|1, length+1)
	}
	walk(root, 0, 0)
	return codes
}
