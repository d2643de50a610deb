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

	"github.com/oditynet/ooo/internal/crc32table"
	"github.com/oditynet/ooo/internal/hostfs"
)

// OverwriteDecision is consulted by Extract when the destination for a
// file already exists. Returning false skips that file without an error;
// returning an error skips that file and records the error, which Extract
// returns together with any other per-file failures once the remaining
// files have been processed. Extract overwrites
// unconditionally when no decision function is supplied — the interactive
// y/N prompt described in the external interface is a cmd/ooo concern, not
// a library default.
type OverwriteDecision func(path string) (overwrite bool, err error)

// OnExisting sets the OverwriteDecision Extract consults for files that
// already exist at their destination path.
func OnExisting(fn OverwriteDecision) ExtractOption {
	return func(o *extractOpts) {
		o.onExisting = fn
	}
}

// Extract restores files from the archive at path into dir, trying each
// file's copies in order and using the first one whose CRC32 checks out.
// A file whose copies are all corrupt is reported but does not abort the
// rest of the extraction.
func Extract(path, dir string, opts ...ExtractOption) error {
	var o extractOpts
	for _, opt := range opts {
		opt(&o)
	}

	f, h, records, err := openAndReadMetadata(path)
	if err != nil {
		return err
	}
	defer f.Close()

	for _, rec := range records {
		for i, c := range rec.Copies {
			if c.Offset < headerSize || c.Offset+c.Size > h.metaOffset {
				return fmt.Errorf("ooo: copy %d of %q has offsets outside the archive's payload region", i+1, rec.Name)
			}
		}
	}

	var errs errors.M
	for _, rec := range records {
		if o.only != "" && rec.Name != o.only {
			continue
		}
		if err := extractOne(f, dir, rec, o.onExisting); err != nil {
			errs.Append(err)
		}
	}
	return errs.Err()
}

func extractOne(f *os.File, dir string, rec FileRecord, onExisting OverwriteDecision) error {
	dest := filepath.Join(dir, rec.Name)

	if _, err := os.Stat(dest); err == nil && onExisting != nil {
		ok, err := onExisting(dest)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
	}

	for i, c := range rec.Copies {
		if _, err := f.Seek(c.Offset, io.SeekStart); err != nil {
			return fmt.Errorf("ooo: extract %q: seeking to copy %d: %w", rec.Name, i+1, err)
		}
		data := make([]byte, c.Size)
		if _, err := io.ReadFull(f, data); err != nil {
			return fmt.Errorf("ooo: extract %q: reading copy %d: %w", rec.Name, i+1, err)
		}
		if crc32table.Checksum(data) != c.CRC {
			continue
		}

		if err := hostfs.Mkdir(filepath.Dir(dest)); err != nil {
			return fmt.Errorf("ooo: extract %q: %w", rec.Name, err)
		}
		if err := os.WriteFile(dest, data, 0644); err != nil {
			return fmt.Errorf("ooo: extract %q: writing %s: %w", rec.Name, dest, err)
		}
		if err := hostfs.Chmod(dest, rec.Mode); err != nil {
			return fmt.Errorf("ooo: extract %q: %w", rec.Name, err)
		}
		if err := hostfs.Chown(dest, rec.UID, rec.GID); err != nil {
			return fmt.Errorf("ooo: extract %q: %w", rec.Name, err)
		}
		if err := hostfs.Utime(dest, rec.Atime, rec.Mtime); err != nil {
			return fmt.Errorf("ooo: extract %q: %w", rec.Name, err)
		}
		return nil
	}
	return fmt.Errorf("ooo: extract %q: all %d copies failed CRC check", rec.Name, len(rec.Copies))
}
