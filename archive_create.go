// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ooo

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloudeng.io/errors"

	"github.com/oditynet/ooo/internal/hostfs"
)

// Create builds a new archive at path containing files, each stored with
// the configured redundancy (Redundancy(1) if unset). Like Add and Delete,
// it writes to a sibling temporary file and renames it into place as its
// last step, so a crash or early return never leaves a truncated file at
// path: on any error that stops the operation the temp file is removed and
// path is untouched.
//
// A file that cannot be stat'd or read is reported but does not abort the
// rest of the batch; Create returns a non-nil error enumerating every such
// failure once every other file has been written, per the "report and
// continue" policy for multi-file operations.
func Create(path string, files []string, opts ...WriteOption) error {
	o := defaultWriteOpts()
	for _, opt := range opts {
		opt(&o)
	}
	if o.progressCh != nil {
		defer close(o.progressCh)
	}
	if err := validateRedundancy(o.redundancy); err != nil {
		return err
	}

	tmp, err := hostfs.MktempIn(hostfs.DirOf(path), "ooo-create-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		tmp.Close()
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if err := writeHeaderPlaceholder(tmp); err != nil {
		return err
	}

	var errs errors.M
	var records []FileRecord
	for i, srcPath := range files {
		rec, err := writeNewFilePayloads(tmp, filepath.Base(srcPath), srcPath, o.redundancy)
		if err != nil {
			errs.Append(fmt.Errorf("ooo: create: %s: %w", srcPath, err))
			continue
		}
		records = append(records, rec)
		if o.progressCh != nil {
			o.progressCh <- Progress{Index: i + 1, Total: len(files), Name: srcPath, Bytes: rec.Copies[0].Size}
		}
	}

	metaOffset, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := writeMetadataBlock(tmp, records); err != nil {
		return err
	}
	if err := patchHeader(tmp, header{metaOffset: metaOffset, fileCount: int32(len(records))}); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := hostfs.AtomicRename(tmpPath, path); err != nil {
		return err
	}
	succeeded = true
	return errs.Err()
}

// Add appends files to the existing archive at path, each stored with the
// configured redundancy, using the same temp-then-rename protocol as
// Create: the original archive is read but never modified in place, and a
// crash or an error that stops the operation leaves it exactly as it was.
// As with Create, a source file that cannot be stat'd or read is reported
// in the returned error while the remaining files are still added.
func Add(path string, files []string, opts ...WriteOption) error {
	o := defaultWriteOpts()
	for _, opt := range opts {
		opt(&o)
	}
	if o.progressCh != nil {
		defer close(o.progressCh)
	}
	if err := validateRedundancy(o.redundancy); err != nil {
		return err
	}

	src, _, oldRecords, err := openAndReadMetadata(path)
	if err != nil {
		return err
	}
	defer src.Close()

	tmp, err := hostfs.MktempIn(hostfs.DirOf(path), "ooo-add-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		tmp.Close()
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if err := writeHeaderPlaceholder(tmp); err != nil {
		return err
	}

	var errs errors.M
	records := make([]FileRecord, 0, len(oldRecords)+len(files))
	for _, rec := range oldRecords {
		moved, err := copyExistingPayloads(tmp, src, rec)
		if err != nil {
			return err
		}
		records = append(records, moved)
	}
	for i, srcPath := range files {
		rec, err := writeNewFilePayloads(tmp, filepath.Base(srcPath), srcPath, o.redundancy)
		if err != nil {
			errs.Append(fmt.Errorf("ooo: add: %s: %w", srcPath, err))
			continue
		}
		records = append(records, rec)
		if o.progressCh != nil {
			o.progressCh <- Progress{Index: i + 1, Total: len(files), Name: srcPath, Bytes: rec.Copies[0].Size}
		}
	}

	metaOffset, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := writeMetadataBlock(tmp, records); err != nil {
		return err
	}
	if err := patchHeader(tmp, header{metaOffset: metaOffset, fileCount: int32(len(records))}); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := hostfs.AtomicRename(tmpPath, path); err != nil {
		return err
	}
	succeeded = true
	return errs.Err()
}

// Delete removes the single file named name from the archive at path,
// using the same temp-then-rename protocol as Create and Add. It returns
// an error if no file named name exists in the archive.
func Delete(path, name string) error {
	src, _, oldRecords, err := openAndReadMetadata(path)
	if err != nil {
		return err
	}
	defer src.Close()

	found := false
	keep := make([]FileRecord, 0, len(oldRecords))
	for _, rec := range oldRecords {
		if rec.Name == name {
			found = true
			continue
		}
		keep = append(keep, rec)
	}
	if !found {
		return fmt.Errorf("ooo: delete: %q not found in %s", name, path)
	}

	tmp, err := hostfs.MktempIn(hostfs.DirOf(path), "ooo-delete-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	succeeded := false
	defer func() {
		tmp.Close()
		if !succeeded {
			os.Remove(tmpPath)
		}
	}()

	if err := writeHeaderPlaceholder(tmp); err != nil {
		return err
	}

	records := make([]FileRecord, 0, len(keep))
	for _, rec := range keep {
		moved, err := copyExistingPayloads(tmp, src, rec)
		if err != nil {
			return err
		}
		records = append(records, moved)
	}

	metaOffset, err := tmp.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := writeMetadataBlock(tmp, records); err != nil {
		return err
	}
	if err := patchHeader(tmp, header{metaOffset: metaOffset, fileCount: int32(len(records))}); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := hostfs.AtomicRename(tmpPath, path); err != nil {
		return err
	}
	succeeded = true
	return nil
}

func validateRedundancy(n int) error {
	if n < MinRedundancy || n > MaxRedundancy {
		return fmt.Errorf("ooo: redundancy %d out of range %d..%d", n, MinRedundancy, MaxRedundancy)
	}
	return nil
}
