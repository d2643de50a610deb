// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package huffman

import (
	"errors"
	"fmt"
	"io"
)

// Tree prefix markers. markerEmpty only ever appears as the very first byte
// of a tree prefix (an empty-input stream has no root at all); an internal
// node's two children are canonical-tree children, so they are always
// present and are therefore written/read as markerLeaf or markerInternal,
// never markerEmpty. That keeps the three cases unambiguous without a
// separate "is this the top call" flag.
const (
	markerEmpty    = 0x00
	markerLeaf     = 0x01
	markerInternal = 0x02
)

// serializeTree writes root's self-describing preorder prefix: a
// depth-first walk where every leaf contributes (markerLeaf, symbol) and
// every internal node contributes (markerInternal) followed by its left
// and right subtrees, in that order.
func serializeTree(w io.ByteWriter, root *node) error {
	if root == nil {
		return w.WriteByte(markerEmpty)
	}
	return writeNode(w, root)
}

func writeNode(w io.ByteWriter, n *node) error {
	if n.isLeaf() {
		if err := w.WriteByte(markerLeaf); err != nil {
			return err
		}
		return w.WriteByte(n.symbol)
	}
	if err := w.WriteByte(markerInternal); err != nil {
		return err
	}
	if err := writeNode(w, n.left); err != nil {
		return err
	}
	return writeNode(w, n.right)
}

// parseNode reads one tree prefix from r. At the top level a markerEmpty
// byte yields (nil, nil), meaning the original input was empty. Found
// anywhere else (as a would-be child of an internal node) it is corruption,
// since canonical trees never have a nil child.
func parseNode(r io.ByteReader) (*node, error) {
	marker, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("huffman: truncated tree prefix: %w", err)
	}
	switch marker {
	case markerEmpty:
		return nil, nil
	case markerLeaf:
		sym, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("huffman: truncated tree prefix: %w", err)
		}
		return &node{symbol: sym}, nil
	case markerInternal:
		left, err := parseNode(r)
		if err != nil {
			return nil, err
		}
		if left == nil {
			return nil, errors.New("huffman: corrupt tree prefix: internal node missing left child")
		}
		right, err := parseNode(r)
		if err != nil {
			return nil, err
		}
		if right == nil {
			return nil, errors.New("huffman: corrupt tree prefix: internal node missing right child")
		}
		return &node{left: left, right: right}, nil
	default:
		return nil, fmt.Errorf("huffman: corrupt tree prefix: unknown marker %#02x", marker)
	}
}
