// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package hostfs is the adapter archive code uses to read and restore OS
// file metadata (mode, ownership, timestamps), create parent directories,
// and create and rename its temporary files. Archive code still opens,
// reads, and writes archive and output files through package os directly.
package hostfs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Info is the subset of file metadata the archive format records per file:
// mode, ownership, and the two timestamps the reference tool restores.
type Info struct {
	Mode  os.FileMode
	UID   uint32
	GID   uint32
	Atime time.Time
	Mtime time.Time
}

// Stat reads Info for the file at path.
func Stat(path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("hostfs: stat %s: %w", path, err)
	}
	uid, gid, atime := statOwnerAndAtime(fi)
	return Info{
		Mode:  fi.Mode(),
		UID:   uid,
		GID:   gid,
		Atime: atime,
		Mtime: fi.ModTime(),
	}, nil
}

// Chmod restores a file's permission bits.
func Chmod(path string, mode os.FileMode) error {
	if err := os.Chmod(path, mode); err != nil {
		return fmt.Errorf("hostfs: chmod %s: %w", path, err)
	}
	return nil
}

// Chown restores a file's owning user and group. Unprivileged processes
// cannot generally chown to an arbitrary uid/gid, so a permission error is
// swallowed the same way the reference tool's unchecked chown(2) call
// effectively is: extraction proceeds with whatever ownership the file was
// created with rather than aborting.
func Chown(path string, uid, gid uint32) error {
	if err := os.Chown(path, int(uid), int(gid)); err != nil {
		if os.IsPermission(err) {
			return nil
		}
		return fmt.Errorf("hostfs: chown %s: %w", path, err)
	}
	return nil
}

// Utime restores a file's access and modification times.
func Utime(path string, atime, mtime time.Time) error {
	if err := os.Chtimes(path, atime, mtime); err != nil {
		return fmt.Errorf("hostfs: utime %s: %w", path, err)
	}
	return nil
}

// Mkdir creates dir if it does not already exist, matching the reference
// tool's single mkdir(path, 0777) call: it creates only dir itself, not any
// missing ancestor of dir, and an existing directory at dir is not an
// error.
func Mkdir(dir string) error {
	if dir == "" || dir == "." {
		return nil
	}
	if fi, err := os.Stat(dir); err == nil {
		if fi.IsDir() {
			return nil
		}
		return fmt.Errorf("hostfs: mkdir %s: already exists and is not a directory", dir)
	}
	if err := os.Mkdir(dir, 0777); err != nil && !os.IsExist(err) {
		return fmt.Errorf("hostfs: mkdir %s: %w", dir, err)
	}
	return nil
}

// MktempIn creates a new, empty temporary file in dir (the same directory
// as the final archive path, so the later rename is same-filesystem and
// therefore atomic) and returns an open handle positioned at offset 0; the
// handle's Name method gives its path. The caller owns closing it.
func MktempIn(dir, pattern string) (*os.File, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return nil, fmt.Errorf("hostfs: create temp file in %s: %w", dir, err)
	}
	return f, nil
}

// AtomicRename replaces dst with the file at src. On POSIX filesystems
// os.Rename is already atomic when src and dst share a filesystem, which
// is why MktempIn places its temp file in dst's own directory.
func AtomicRename(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("hostfs: rename %s to %s: %w", src, dst, err)
	}
	return nil
}

// DirOf returns the directory component of path, defaulting to "." for a
// bare filename the way filepath.Dir already does; this exists purely so
// callers setting up a temp file next to an archive don't need to import
// path/filepath themselves for that one call.
func DirOf(path string) string {
	return filepath.Dir(path)
}
