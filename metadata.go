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
	"time"
)

// CopyRecord describes one stored copy of a file's payload.
type CopyRecord struct {
	CRC    uint32
	Offset int64
	Size   int64
}

// FileRecord is the in-memory form of one logical file in the archive: its
// restorable metadata plus one CopyRecord per redundant copy.
type FileRecord struct {
	Name  string
	Mode  os.FileMode
	UID   uint32
	GID   uint32
	Atime time.Time
	Mtime time.Time
	Copies []CopyRecord
}

// wireFileRecord is the fixed-width on-disk form of FileRecord, minus its
// trailing copy records. Every field is a fixed-size type so
// encoding/binary writes and reads it with no implicit padding, in
// declaration order.
type wireFileRecord struct {
	Name     [nameFieldSize]byte
	Mode     uint32
	UID      uint32
	GID      uint32
	Atime    int64
	Mtime    int64
	Copies   int32
	Reserved [reservedFieldSize]byte
}

// wireCopyRecord is the fixed-width on-disk form of CopyRecord.
type wireCopyRecord struct {
	CRC    uint32
	Offset int64
	Size   int64
}

func encodeFileRecord(r FileRecord) (wireFileRecord, error) {
	var w wireFileRecord
	name := []byte(r.Name)
	if len(name) >= nameFieldSize {
		name = name[:nameFieldSize-1]
	}
	copy(w.Name[:], name)
	w.Mode = uint32(r.Mode)
	w.UID = r.UID
	w.GID = r.GID
	w.Atime = r.Atime.Unix()
	w.Mtime = r.Mtime.Unix()
	if len(r.Copies) < MinRedundancy || len(r.Copies) > MaxRedundancy {
		return w, fmt.Errorf("ooo: file %q has %d copies, want %d..%d", r.Name, len(r.Copies), MinRedundancy, MaxRedundancy)
	}
	w.Copies = int32(len(r.Copies))
	return w, nil
}

func decodeFileRecord(w wireFileRecord) FileRecord {
	name := w.Name[:]
	if i := bytes.IndexByte(name, 0); i >= 0 {
		name = name[:i]
	}
	return FileRecord{
		Name:  string(name),
		Mode:  os.FileMode(w.Mode),
		UID:   w.UID,
		GID:   w.GID,
		Atime: time.Unix(w.Atime, 0).UTC(),
		Mtime: time.Unix(w.Mtime, 0).UTC(),
	}
}

// writeFileRecord writes r's fixed-width prefix followed by its copy
// records, in that order, matching the on-disk metadata block layout.
func writeFileRecord(w io.Writer, r FileRecord) error {
	wire, err := encodeFileRecord(r)
	if err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, wire); err != nil {
		return fmt.Errorf("ooo: writing file record for %q: %w", r.Name, err)
	}
	for _, c := range r.Copies {
		wc := wireCopyRecord{CRC: c.CRC, Offset: c.Offset, Size: c.Size}
		if err := binary.Write(w, binary.LittleEndian, wc); err != nil {
			return fmt.Errorf("ooo: writing copy record for %q: %w", r.Name, err)
		}
	}
	return nil
}

// readFileRecord reads one fixed-width file record prefix and its copy
// records. copies is bounds-checked against MinRedundancy/MaxRedundancy
// before it is trusted to size an allocation or a read loop, so a corrupt
// or hostile archive cannot drive an unbounded read.
func readFileRecord(r io.Reader) (FileRecord, error) {
	var wire wireFileRecord
	if err := binary.Read(r, binary.LittleEndian, &wire); err != nil {
		return FileRecord{}, fmt.Errorf("ooo: reading file record: %w", err)
	}
	if wire.Copies < MinRedundancy || wire.Copies > MaxRedundancy {
		return FileRecord{}, fmt.Errorf("ooo: file record declares %d copies, want %d..%d", wire.Copies, MinRedundancy, MaxRedundancy)
	}
	rec := decodeFileRecord(wire)
	rec.Copies = make([]CopyRecord, wire.Copies)
	for i := range rec.Copies {
		var wc wireCopyRecord
		if err := binary.Read(r, binary.LittleEndian, &wc); err != nil {
			return FileRecord{}, fmt.Errorf("ooo: reading copy record %d for %q: %w", i, rec.Name, err)
		}
		if wc.Size < 0 || wc.Offset < 0 {
			return FileRecord{}, fmt.Errorf("ooo: copy record %d for %q has a negative offset or size", i, rec.Name)
		}
		rec.Copies[i] = CopyRecord{CRC: wc.CRC, Offset: wc.Offset, Size: wc.Size}
	}
	return rec, nil
}

// writeMetadataBlock writes every record's fixed-width form in order,
// matching the metadata block described in the archive layout.
func writeMetadataBlock(w io.Writer, records []FileRecord) error {
	for _, r := range records {
		if err := writeFileRecord(w, r); err != nil {
			return err
		}
	}
	return nil
}

// readMetadataBlock reads exactly count file records from r.
func readMetadataBlock(r io.Reader, count int32) ([]FileRecord, error) {
	records := make([]FileRecord, 0, count)
	for i := int32(0); i < count; i++ {
		rec, err := readFileRecord(r)
		if err != nil {
			return nil, fmt.Errorf("ooo: reading record %d of %d: %w", i, count, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
