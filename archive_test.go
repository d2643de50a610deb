// Copyright 2024 Cosmos Nicolaou. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package ooo

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func writeSourceFiles(t *testing.T, dir string, contents map[string]string) []string {
	t.Helper()
	var paths []string
	for name, body := range contents {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}
	return paths
}

func TestCreateListVerifyExtractRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	archDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{
		"one.txt": "hello, world",
		"two.txt": "redundant copies everywhere",
	})

	archivePath := filepath.Join(archDir, "test.ooo")
	if err := Create(archivePath, files, Redundancy(3)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	records, err := List(archivePath)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	for _, rec := range records {
		if len(rec.Copies) != 3 {
			t.Errorf("file %q: %d copies, want 3", rec.Name, len(rec.Copies))
		}
	}

	report, err := Verify(archivePath)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !report.OK() {
		t.Fatalf("Verify report not OK: %+v", report)
	}

	outDir := t.TempDir()
	if err := Extract(archivePath, outDir); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for name, want := range map[string]string{"one.txt": "hello, world", "two.txt": "redundant copies everywhere"} {
		got, err := os.ReadFile(filepath.Join(outDir, name))
		if err != nil {
			t.Fatalf("reading extracted %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("extracted %s = %q, want %q", name, got, want)
		}
	}
}

func TestCreateRejectsInvalidRedundancy(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	for _, n := range []int{0, MaxRedundancy + 1} {
		if err := Create(archivePath, nil, Redundancy(n)); err == nil {
			t.Errorf("Create with redundancy %d: expected an error, got nil", n)
		}
		if _, err := os.Stat(archivePath); !os.IsNotExist(err) {
			t.Errorf("Create with invalid redundancy %d left a file behind", n)
		}
	}
}

func TestCreateReportsPerFileFailureWithoutAbortingBatch(t *testing.T) {
	srcDir := t.TempDir()
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	missing := filepath.Join(srcDir, "does-not-exist.txt")

	// A missing input file is a per-file failure that is reported but does
	// not abort the whole Create; since it's the only input, the resulting
	// archive exists but contains zero files, and Create still reports the
	// failure via its returned error.
	err := Create(archivePath, []string{missing}, Redundancy(1))
	if err == nil {
		t.Fatal("expected Create to report the missing file, got nil error")
	}
	records, listErr := List(archivePath)
	if listErr != nil {
		t.Fatalf("List: %v", listErr)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0", len(records))
	}
}

func TestDeleteRemovesNamedFileOnly(t *testing.T) {
	srcDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{
		"keep.txt":   "keep me",
		"remove.txt": "remove me",
	})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, files, Redundancy(2)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := Delete(archivePath, "remove.txt"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	records, err := List(archivePath)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].Name != "keep.txt" {
		t.Fatalf("records after delete = %+v, want only keep.txt", records)
	}

	report, err := Verify(archivePath)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !report.OK() {
		t.Fatalf("Verify report not OK after delete: %+v", report)
	}
}

func TestDeleteMissingFileReturnsError(t *testing.T) {
	srcDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{"a.txt": "a"})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, files, Redundancy(1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	before, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	if err := Delete(archivePath, "does-not-exist.txt"); err == nil {
		t.Fatal("expected an error deleting a nonexistent file, got nil")
	}
	after, err := os.ReadFile(archivePath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("archive contents changed after a failed delete")
	}
}

func TestAddAppendsWithoutDisturbingExisting(t *testing.T) {
	srcDir := t.TempDir()
	first := writeSourceFiles(t, srcDir, map[string]string{"a.txt": "aaa"})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, first, Redundancy(2)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	second := writeSourceFiles(t, srcDir, map[string]string{"b.txt": "bbb"})
	if err := Add(archivePath, second, Redundancy(1)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	records, err := List(archivePath)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	report, err := Verify(archivePath)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !report.OK() {
		t.Fatalf("Verify report not OK after add: %+v", report)
	}

	outDir := t.TempDir()
	if err := Extract(archivePath, outDir); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	gotA, err := os.ReadFile(filepath.Join(outDir, "a.txt"))
	if err != nil || string(gotA) != "aaa" {
		t.Errorf("a.txt = %q, %v, want \"aaa\"", gotA, err)
	}
	gotB, err := os.ReadFile(filepath.Join(outDir, "b.txt"))
	if err != nil || string(gotB) != "bbb" {
		t.Errorf("b.txt = %q, %v, want \"bbb\"", gotB, err)
	}
}

func TestVerifyDetectsCorruptedCopy(t *testing.T) {
	srcDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{"a.txt": "original contents"})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, files, Redundancy(2)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	records, err := List(archivePath)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	corruptOffset := records[0].Copies[0].Offset

	f, err := os.OpenFile(archivePath, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt([]byte("X"), corruptOffset); err != nil {
		t.Fatal(err)
	}
	f.Close()

	report, err := Verify(archivePath)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if report.OK() {
		t.Fatal("expected Verify to detect the corrupted copy")
	}
	if report.Files[0].Copies[0].OK {
		t.Error("corrupted copy 0 reported OK")
	}
	if !report.Files[0].Copies[1].OK {
		t.Error("intact copy 1 reported corrupt")
	}

	// Extract should still succeed by falling back to the good copy (P-style
	// redundancy guarantee): at least one copy survives intact.
	outDir := t.TempDir()
	if err := Extract(archivePath, outDir); err != nil {
		t.Fatalf("Extract with one corrupted copy: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(outDir, "a.txt"))
	if err != nil || string(got) != "original contents" {
		t.Errorf("extracted content = %q, %v, want \"original contents\"", got, err)
	}
}

func TestExtractAllCopiesCorruptReportsErrorAndContinues(t *testing.T) {
	srcDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{
		"bad.txt":  "will be corrupted",
		"good.txt": "stays intact",
	})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, files, Redundancy(1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	records, err := List(archivePath)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	var badOffset int64
	for _, rec := range records {
		if rec.Name == "bad.txt" {
			badOffset = rec.Copies[0].Offset
		}
	}

	f, err := os.OpenFile(archivePath, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteAt([]byte("Z"), badOffset); err != nil {
		t.Fatal(err)
	}
	f.Close()

	outDir := t.TempDir()
	err = Extract(archivePath, outDir)
	if err == nil {
		t.Fatal("expected Extract to report the corrupted file's failure")
	}
	got, err := os.ReadFile(filepath.Join(outDir, "good.txt"))
	if err != nil || string(got) != "stays intact" {
		t.Errorf("good.txt should still have been extracted: %q, %v", got, err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "bad.txt")); !os.IsNotExist(err) {
		t.Errorf("bad.txt should not have been extracted")
	}
}

func TestExtractOnlyRestrictsToOneFile(t *testing.T) {
	srcDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{"a.txt": "a", "b.txt": "b"})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, files, Redundancy(1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	outDir := t.TempDir()
	if err := Extract(archivePath, outDir, Only("a.txt")); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "a.txt")); err != nil {
		t.Errorf("a.txt should have been extracted: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "b.txt")); !os.IsNotExist(err) {
		t.Errorf("b.txt should not have been extracted")
	}
}

func TestExtractOnExistingSkipsWhenDeclined(t *testing.T) {
	srcDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{"a.txt": "new content"})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, files, Redundancy(1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	outDir := t.TempDir()
	existing := filepath.Join(outDir, "a.txt")
	if err := os.WriteFile(existing, []byte("old content"), 0644); err != nil {
		t.Fatal(err)
	}

	err := Extract(archivePath, outDir, OnExisting(func(string) (bool, error) { return false, nil }))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	got, err := os.ReadFile(existing)
	if err != nil || string(got) != "old content" {
		t.Errorf("a.txt = %q, %v, want unchanged \"old content\"", got, err)
	}
}

func TestListVerifyExtractRejectBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notanarchive.ooo")
	if err := os.WriteFile(path, []byte("not an ooo archive at all, just text"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := List(path); err == nil {
		t.Error("List on a non-archive file: expected an error, got nil")
	}
	if _, err := Verify(path); err == nil {
		t.Error("Verify on a non-archive file: expected an error, got nil")
	}
	if err := Extract(path, t.TempDir()); err == nil {
		t.Error("Extract on a non-archive file: expected an error, got nil")
	}
}

func TestExtractMetadataAndLoadMetadataRoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{"a.txt": "aaa", "b.txt": "bbbbb"})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, files, Redundancy(2)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	before, err := List(archivePath)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	sidecarPath := filepath.Join(t.TempDir(), "meta.sidecar")
	if err := ExtractMetadata(archivePath, sidecarPath); err != nil {
		t.Fatalf("ExtractMetadata: %v", err)
	}
	if err := LoadMetadata(archivePath, sidecarPath); err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}

	after, err := List(archivePath)
	if err != nil {
		t.Fatalf("List after LoadMetadata: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("len(after) = %d, want %d", len(after), len(before))
	}
	for i := range before {
		if before[i].Name != after[i].Name {
			t.Errorf("record %d: Name = %q, want %q", i, after[i].Name, before[i].Name)
		}
	}

	report, err := Verify(archivePath)
	if err != nil {
		t.Fatalf("Verify after LoadMetadata: %v", err)
	}
	if !report.OK() {
		t.Fatalf("Verify report not OK after LoadMetadata round trip: %+v", report)
	}
}

func TestRedundancyAllowsRecoveryFromPartialCorruption(t *testing.T) {
	srcDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{"a.txt": "important data"})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, files, Redundancy(MaxRedundancy)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	records, err := List(archivePath)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records[0].Copies) != MaxRedundancy {
		t.Fatalf("copies = %d, want %d", len(records[0].Copies), MaxRedundancy)
	}

	f, err := os.OpenFile(archivePath, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < MaxRedundancy-1; i++ {
		if _, err := f.WriteAt([]byte("X"), records[0].Copies[i].Offset); err != nil {
			t.Fatal(err)
		}
	}
	f.Close()

	outDir := t.TempDir()
	if err := Extract(archivePath, outDir); err != nil {
		t.Fatalf("Extract with all but one copy corrupted: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(outDir, "a.txt"))
	if err != nil || string(got) != "important data" {
		t.Errorf("extracted content = %q, %v, want \"important data\"", got, err)
	}
}

func TestVerifyRejectsCopyOffsetsOutsidePayloadRegion(t *testing.T) {
	srcDir := t.TempDir()
	files := writeSourceFiles(t, srcDir, map[string]string{"a.txt": "important data"})
	archivePath := filepath.Join(t.TempDir(), "test.ooo")
	if err := Create(archivePath, files, Redundancy(1)); err != nil {
		t.Fatalf("Create: %v", err)
	}

	f, err := os.OpenFile(archivePath, os.O_RDWR, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	h, err := readHeader(f)
	if err != nil {
		t.Fatalf("readHeader: %v", err)
	}
	// The single file record's copy record sits right after the fixed-width
	// file record prefix; its Size field is the second 8 bytes of that
	// copy record (after the 4-byte CRC). Overwrite it with a value that
	// pushes offset+size past the end of the payload region.
	sizeFieldOffset := h.metaOffset + fileRecordSize + 4 /* CRC */ + 8 /* Offset */
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1<<40)
	if _, err := f.WriteAt(buf[:], sizeFieldOffset); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := Verify(archivePath); err == nil {
		t.Fatal("expected Verify to reject a copy whose offset+size runs past the payload region, got nil")
	}
}
