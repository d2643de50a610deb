// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package huffman

import "container/heap"

// node is one node of a canonical Huffman tree. Leaves carry a symbol;
// internal nodes always have exactly two children.
type node struct {
	symbol byte
	freq   int64
	seq    int
	left   *node
	right  *node
}

func (n *node) isLeaf() bool {
	return n.left == nil && n.right == nil
}

// nodeHeap is a min-heap over (freq, seq): lower frequency wins, and among
// equal frequencies the node inserted first (lower seq) wins. seq is a
// monotonic counter assigned to both leaves and the combined nodes created
// while merging, so a tie between a leaf and a later-built internal node
// resolves the same way every run — container/heap itself makes no such
// guarantee from Less alone when frequencies tie.
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].freq != h[j].freq {
		return h[i].freq < h[j].freq
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *nodeHeap) Push(x any) {
	*h = append(*h, x.(*node))
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// buildTree builds a canonical Huffman tree from byte frequencies. It
// returns nil if every frequency is zero (empty input).
func buildTree(freqs [256]int64) *node {
	h := &nodeHeap{}
	seq := 0
	for b := 0; b < 256; b++ {
		if freqs[b] == 0 {
			continue
		}
		heap.Push(h, &node{symbol: byte(b), freq: freqs[b], seq: seq})
		seq++
	}
	if h.Len() == 0 {
		return nil
	}
	for h.Len() > 1 {
		a := heap.Pop(h).(*node)
		b := heap.Pop(h).(*node)
		parent := &node{freq: a.freq + b.freq, seq: seq, left: a, right: b}
		seq++
		heap.Push(h, parent)
	}
	return heap.Pop(h).(*node)
}
