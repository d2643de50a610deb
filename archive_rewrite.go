// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ooo

import (
	"fmt"
	"io"
	"os"

	"github.com/oditynet/ooo/internal/crc32table"
	"github.com/oditynet/ooo/internal/hostfs"
)

// rewriteBufferSize is the chunk size used when streaming an existing
// copy's bytes from one archive file into another, matching the reference
// tool's BUFFER_SIZE.
const rewriteBufferSize = 4096

// copyExistingPayloads streams rec's copies from src (positioned anywhere;
// each copy is sought to explicitly) into dst, which must be positioned at
// the point the first copy should land. It returns rec with Offset fields
// updated to the copies' new locations in dst; CRC and Size are carried
// over unchanged since the bytes themselves are not re-derived, only
// relocated.
//
// Copies are streamed through a fixed buffer rather than read whole into
// memory, the same way the reference tool's delete/add rewrite loops do,
// since a rewrite may be carrying forward files this process never opened
// as a whole.
func copyExistingPayloads(dst io.Writer, src io.ReaderAt, rec FileRecord) (FileRecord, error) {
	out := rec
	out.Copies = make([]CopyRecord, len(rec.Copies))
	buf := make([]byte, rewriteBufferSize)
	for i, c := range rec.Copies {
		newOffset, err := currentOffset(dst)
		if err != nil {
			return FileRecord{}, err
		}
		if err := streamN(dst, io.NewSectionReader(src, c.Offset, c.Size), buf); err != nil {
			return FileRecord{}, fmt.Errorf("ooo: copying copy %d of %q: %w", i+1, rec.Name, err)
		}
		out.Copies[i] = CopyRecord{CRC: c.CRC, Offset: newOffset, Size: c.Size}
	}
	return out, nil
}

// streamN copies all of src to dst using buf as scratch space.
func streamN(dst io.Writer, src io.Reader, buf []byte) error {
	_, err := io.CopyBuffer(dst, src, buf)
	return err
}

// currentOffset returns w's current write position; w must be an *os.File.
func currentOffset(w io.Writer) (int64, error) {
	f, ok := w.(*os.File)
	if !ok {
		return 0, fmt.Errorf("ooo: internal error: rewrite destination is not a seekable file")
	}
	return f.Seek(0, io.SeekCurrent)
}

// writeNewFilePayloads stats and reads path from the host filesystem,
// writes redundancy independent copies of its full contents to dst (which
// must be positioned where the first copy should land), and returns the
// resulting FileRecord.
func writeNewFilePayloads(dst *os.File, name, path string, redundancy int) (FileRecord, error) {
	info, err := hostfs.Stat(path)
	if err != nil {
		return FileRecord{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return FileRecord{}, fmt.Errorf("ooo: reading %s: %w", path, err)
	}
	crc := crc32table.Checksum(data)

	rec := FileRecord{
		Name:  name,
		Mode:  info.Mode,
		UID:   info.UID,
		GID:   info.GID,
		Atime: info.Atime,
		Mtime: info.Mtime,
	}
	for i := 0; i < redundancy; i++ {
		offset, err := dst.Seek(0, io.SeekCurrent)
		if err != nil {
			return FileRecord{}, err
		}
		if _, err := dst.Write(data); err != nil {
			return FileRecord{}, fmt.Errorf("ooo: writing copy %d of %s: %w", i+1, path, err)
		}
		rec.Copies = append(rec.Copies, CopyRecord{CRC: crc, Offset: offset, Size: int64(len(data))})
	}
	return rec, nil
}
