// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ooo

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ExtractMetadata writes the archive's file and copy records to sidecarPath
// as a standalone sidecar file: a 32-bit record count followed by the same
// fixed-width metadata block encoding used inside the archive itself.
func ExtractMetadata(archivePath, sidecarPath string) error {
	records, err := List(archivePath)
	if err != nil {
		return err
	}
	out, err := os.Create(sidecarPath)
	if err != nil {
		return fmt.Errorf("ooo: creating %s: %w", sidecarPath, err)
	}
	defer out.Close()

	if err := binary.Write(out, binary.LittleEndian, int32(len(records))); err != nil {
		return fmt.Errorf("ooo: writing %s: %w", sidecarPath, err)
	}
	if err := writeMetadataBlock(out, records); err != nil {
		return fmt.Errorf("ooo: writing %s: %w", sidecarPath, err)
	}
	return nil
}

// LoadMetadata replaces the archive at archivePath's metadata block with
// the contents of the sidecar file at sidecarPath, without re-validating
// the loaded records against the archive's existing payload bytes: this is
// the "trusted" load spec.md calls for, meant for restoring metadata that
// is already known to match the payload region (e.g. one just saved by
// ExtractMetadata from the same archive). The payload region itself is
// left untouched; only the bytes from the archive's existing meta_offset
// onward are replaced, and the header's file count is updated to the
// sidecar's record count.
func LoadMetadata(archivePath, sidecarPath string) error {
	in, err := os.Open(sidecarPath)
	if err != nil {
		return fmt.Errorf("ooo: opening %s: %w", sidecarPath, err)
	}
	defer in.Close()

	var count int32
	if err := binary.Read(in, binary.LittleEndian, &count); err != nil {
		return fmt.Errorf("ooo: reading %s: %w", sidecarPath, err)
	}
	if count < 0 {
		return fmt.Errorf("ooo: %s declares a negative record count", sidecarPath)
	}
	records, err := readMetadataBlock(in, count)
	if err != nil {
		return fmt.Errorf("ooo: reading %s: %w", sidecarPath, err)
	}

	arch, err := os.OpenFile(archivePath, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("ooo: opening %s: %w", archivePath, err)
	}
	defer arch.Close()

	h, err := readHeader(arch)
	if err != nil {
		return err
	}
	if err := arch.Truncate(h.metaOffset); err != nil {
		return fmt.Errorf("ooo: truncating %s: %w", archivePath, err)
	}
	if _, err := arch.Seek(h.metaOffset, io.SeekStart); err != nil {
		return fmt.Errorf("ooo: seeking in %s: %w", archivePath, err)
	}
	if err := writeMetadataBlock(arch, records); err != nil {
		return fmt.Errorf("ooo: writing metadata into %s: %w", archivePath, err)
	}
	return patchHeader(arch, header{metaOffset: h.metaOffset, fileCount: int32(len(records))})
}
