package wal

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/xtxerr/trackside/internal/errors"
)

func TestEncodeDecode(t *testing.T) {
	entries := []Entry{
		{Op: OpCreate, Session: "run1"},
		{Op: OpAppend, Session: "run1", Channel: "speed", Time: 0.01, Values: []float64{42.5}},
		{Op: OpAppend, Session: "run1", Channel: "position", Time: 0.02, Values: []float64{1, 2, 3}},
		{Op: OpSeal, Session: "run1"},
	}

	data, err := encodeEntries(entries)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := decodeEntries(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(decoded) != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), len(decoded))
	}
	for i, e := range entries {
		d := decoded[i]
		if d.Op != e.Op {
			t.Errorf("entry %d: op mismatch", i)
		}
		if d.Session != e.Session {
			t.Errorf("entry %d: session mismatch", i)
		}
		if d.Channel != e.Channel {
			t.Errorf("entry %d: channel mismatch", i)
		}
		if d.Time != e.Time {
			t.Errorf("entry %d: time mismatch", i)
		}
		if len(d.Values) != len(e.Values) {
			t.Errorf("entry %d: width mismatch", i)
			continue
		}
		for j := range e.Values {
			if d.Values[j] != e.Values[j] {
				t.Errorf("entry %d value %d: mismatch", i, j)
			}
		}
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	batch1 := []Entry{
		{Op: OpCreate, Session: "run1"},
		{Op: OpAppend, Session: "run1", Channel: "speed", Time: 0, Values: []float64{1}},
	}
	batch2 := []Entry{
		{Op: OpAppend, Session: "run1", Channel: "speed", Time: 0.1, Values: []float64{2}},
		{Op: OpSeal, Session: "run1"},
	}

	if err := w.Write(batch1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Write(batch2); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	stats := w.Stats()
	if stats.RecordsWritten != 2 || stats.EntriesWritten != 4 {
		t.Errorf("unexpected writer stats %+v", stats)
	}

	paths, err := ListSegments(dir)
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(paths) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(paths))
	}

	entries, err := ReadAllSegments(paths)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}
	if entries[0].Op != OpCreate || entries[3].Op != OpSeal {
		t.Errorf("entry order lost: first=%d last=%d", entries[0].Op, entries[3].Op)
	}
}

func TestWriterContinuesAfterExistingSegments(t *testing.T) {
	dir := t.TempDir()

	w1, err := NewWriter(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w1.Write([]Entry{{Op: OpCreate, Session: "run1"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	w1.Close()

	w2, err := NewWriter(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("reopen writer: %v", err)
	}
	if err := w2.Write([]Entry{{Op: OpSeal, Session: "run1"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	w2.Close()

	paths, _ := ListSegments(dir)
	if len(paths) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(paths))
	}

	entries, err := ReadAllSegments(paths)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries across segments, got %d", len(entries))
	}
}

func TestReaderSkipsTornTail(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, Options{SyncMode: "sync"})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Write([]Entry{{Op: OpCreate, Session: "run1"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	path := w.CurrentSegment()
	w.Close()

	// Simulate a torn write: append garbage that looks like a record header.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.Write([]byte{0x10, 0, 0, 0, 0xde, 0xad, 0xbe, 0xef, 1, 2, 3})
	f.Close()

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	entries, err := r.ReadAll()
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the 1 intact entry, got %d", len(entries))
	}
}

func TestReaderReportsMidSegmentCorruption(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, Options{SyncMode: "sync"})
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	for i := 0; i < 3; i++ {
		e := Entry{Op: OpAppend, Session: "run1", Channel: "speed", Time: float64(i), Values: []float64{1}}
		if err := w.Write([]Entry{e}); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	path := w.CurrentSegment()
	w.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read segment: %v", err)
	}

	// Flip one payload byte of the middle record. Records start after the
	// segment header; each is a length, a CRC, then the payload.
	len1 := binary.LittleEndian.Uint32(data[headerSize:])
	rec2 := headerSize + recordHeaderSize + int(len1)
	data[rec2+recordHeaderSize] ^= 0xFF
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("rewrite segment: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("new reader: %v", err)
	}
	defer r.Close()

	// Intact records after the bad one mean damage, not a torn tail.
	entries, err := r.ReadAll()
	if !errors.Is(err, errors.ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected the 1 entry before the damage, got %d", len(entries))
	}
}

func TestRotateAndDelete(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	defer w.Close()

	if err := w.Write([]Entry{{Op: OpCreate, Session: "run1"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Rotate(); err != nil {
		t.Fatalf("rotate: %v", err)
	}

	paths, _ := ListSegments(dir)
	if len(paths) != 2 {
		t.Fatalf("expected 2 segments after rotate, got %d", len(paths))
	}

	deleted, err := w.DeleteSegmentsBefore(1)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted segment, got %d", deleted)
	}

	if _, err := os.Stat(filepath.Join(dir, "0000000000000000.wal")); !os.IsNotExist(err) {
		t.Error("old segment should be gone")
	}
}
