// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

//go:build !unix

package hostfs

import (
	"os"
	"time"
)

func statOwnerAndAtime(fi os.FileInfo) (uid, gid uint32, atime time.Time) {
	return 0, 0, fi.ModTime()
}
