// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ooo

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/oditynet/ooo/internal/crc32table"
)

// header is the fixed-size prefix of every archive file.
type header struct {
	metaOffset int64
	fileCount  int32
}

// writeHeaderPlaceholder writes headerSize bytes: the real magic and
// version, which never change, followed by zero-valued metaOffset/fileCount
// fields, so the payload region can start immediately; the real
// metaOffset/fileCount are patched in later via patchHeader, once they're
// known.
func writeHeaderPlaceholder(w io.Writer) error {
	buf := make([]byte, headerSize)
	copy(buf, magicString)
	buf[magicSize] = formatVersion
	_, err := w.Write(buf)
	return err
}

// patchHeader overwrites the metaOffset/fileCount fields of an
// already-written header in place.
func patchHeader(f *os.File, h header) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, h.metaOffset); err != nil {
		return err
	}
	if err := binary.Write(&buf, binary.LittleEndian, h.fileCount); err != nil {
		return err
	}
	_, err := f.WriteAt(buf.Bytes(), magicSize+1)
	return err
}

// readHeader reads and validates the magic, version, and header fields at
// the start of r. List/Verify/Extract/Add/Delete all reject a file that
// fails this check before trusting any other byte in it.
func readHeader(r io.Reader) (header, error) {
	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return header{}, fmt.Errorf("ooo: reading archive header: %w", err)
	}
	if !bytes.Equal(buf[:magicSize], []byte(magicString)) {
		return header{}, fmt.Errorf("ooo: not an archive: bad magic")
	}
	if buf[magicSize] != formatVersion {
		return header{}, fmt.Errorf("ooo: unsupported archive format version %d", buf[magicSize])
	}
	h := header{
		metaOffset: int64(binary.LittleEndian.Uint64(buf[magicSize+1:])),
		fileCount:  int32(binary.LittleEndian.Uint32(buf[magicSize+9:])),
	}
	if h.fileCount < 0 {
		return header{}, fmt.Errorf("ooo: archive header declares a negative file count")
	}
	if h.metaOffset < headerSize {
		return header{}, fmt.Errorf("ooo: archive header's metadata offset %d precedes the payload region", h.metaOffset)
	}
	return h, nil
}

// openAndReadMetadata opens the archive at path, validates its header, and
// returns the archive's file records (not yet checked against the payload
// data itself — that's Verify's job). The caller must close the returned
// file.
func openAndReadMetadata(path string) (*os.File, header, []FileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, header{}, nil, fmt.Errorf("ooo: opening archive: %w", err)
	}
	h, err := readHeader(f)
	if err != nil {
		f.Close()
		return nil, header{}, nil, err
	}
	if _, err := f.Seek(h.metaOffset, io.SeekStart); err != nil {
		f.Close()
		return nil, header{}, nil, fmt.Errorf("ooo: seeking to metadata block: %w", err)
	}
	records, err := readMetadataBlock(f, h.fileCount)
	if err != nil {
		f.Close()
		return nil, header{}, nil, err
	}
	return f, h, records, nil
}

// List returns the file records stored in the archive at path, without
// reading or checking any payload bytes.
func List(path string) ([]FileRecord, error) {
	f, _, records, err := openAndReadMetadata(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return records, nil
}

// CopyVerification is the verification outcome for one stored copy.
type CopyVerification struct {
	Index    int // 1-based copy number, matching the archive's own numbering in reports.
	Expected uint32
	Actual   uint32
	OK       bool
}

// FileVerification is the verification outcome for one file's copies.
type FileVerification struct {
	Name   string
	Copies []CopyVerification
}

// OK reports whether at least one copy of the file verified correctly.
func (f FileVerification) OK() bool {
	for _, c := range f.Copies {
		if c.OK {
			return true
		}
	}
	return false
}

// VerifyReport is the result of verifying every file in an archive.
type VerifyReport struct {
	Files []FileVerification
}

// OK reports whether every file in the report had at least one good copy.
func (r VerifyReport) OK() bool {
	for _, f := range r.Files {
		if !f.OK() {
			return false
		}
	}
	return true
}

// Verify reads every copy of every file in the archive at path and checks
// its CRC32 against the recorded value.
func Verify(path string) (VerifyReport, error) {
	f, h, records, err := openAndReadMetadata(path)
	if err != nil {
		return VerifyReport{}, err
	}
	defer f.Close()

	var report VerifyReport
	for _, rec := range records {
		fv := FileVerification{Name: rec.Name}
		for i, c := range rec.Copies {
			if c.Offset < headerSize || c.Size < 0 || c.Offset+c.Size > h.metaOffset {
				return VerifyReport{}, fmt.Errorf("ooo: copy %d of %q has offsets outside the archive's payload region", i+1, rec.Name)
			}
			if _, err := f.Seek(c.Offset, io.SeekStart); err != nil {
				return VerifyReport{}, fmt.Errorf("ooo: seeking to copy %d of %q: %w", i+1, rec.Name, err)
			}
			actual, err := crc32table.ChecksumReader(io.LimitReader(f, c.Size))
			if err != nil {
				return VerifyReport{}, fmt.Errorf("ooo: reading copy %d of %q: %w", i+1, rec.Name, err)
			}
			fv.Copies = append(fv.Copies, CopyVerification{
				Index:    i + 1,
				Expected: c.CRC,
				Actual:   actual,
				OK:       actual == c.CRC,
			})
		}
		report.Files = append(report.Files, fv)
	}
	return report, nil
}
