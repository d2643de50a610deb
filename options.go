// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ooo

// writeOpts holds the options common to Create and Add.
type writeOpts struct {
	redundancy int
	progressCh chan<- Progress
}

func defaultWriteOpts() writeOpts {
	return writeOpts{redundancy: MinRedundancy}
}

// WriteOption configures Create or Add.
type WriteOption func(*writeOpts)

// Redundancy sets the number of independent copies written for every file
// in the operation; it must be between MinRedundancy and MaxRedundancy.
func Redundancy(n int) WriteOption {
	return func(o *writeOpts) {
		o.redundancy = n
	}
}

// SendProgress sets the channel Create/Add report per-file Progress on.
// The channel is closed by Create/Add when the operation returns.
func SendProgress(ch chan<- Progress) WriteOption {
	return func(o *writeOpts) {
		o.progressCh = ch
	}
}

// extractOpts holds the options for Extract.
type extractOpts struct {
	only       string
	onExisting OverwriteDecision
}

// ExtractOption configures Extract.
type ExtractOption func(*extractOpts)

// Only restricts Extract to the single named file instead of every file in
// the archive.
func Only(name string) ExtractOption {
	return func(o *extractOpts) {
		o.only = name
	}
}
