// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ooo

// Progress reports how far Create or Add has gotten through its input
// file list. One value is sent per source file, after all of that file's
// copies have been written.
type Progress struct {
	Index int    // 1-based position of Name in the input list.
	Total int    // total number of files being processed.
	Name  string // source path as given by the caller.
	Bytes int64  // payload size of one copy of Name.
}
