package archive

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/store"
)

func sealedSession(t *testing.T, st *store.Store, name string) *store.Session {
	t.Helper()

	sess, err := st.CreateSession(name)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 10; i++ {
		ts := float64(i) * 0.1
		if err := sess.AddSample("speed", ts, float64(100+i)); err != nil {
			t.Fatalf("add speed: %v", err)
		}
		if err := sess.AddSample("position", ts, float64(i), float64(2*i), 0.5); err != nil {
			t.Fatalf("add position: %v", err)
		}
	}
	if err := sess.Seal(); err != nil {
		t.Fatalf("seal: %v", err)
	}
	return sess
}

func TestFileName(t *testing.T) {
	name := FileName("Monza Race 1", "4a3b2c1d-0000-0000-0000-000000000000")
	if name != "monza-race-1-4a3b2c1d.parquet" {
		t.Errorf("unexpected file name %q", name)
	}
	if strings.ContainsAny(name, " /") {
		t.Errorf("file name must be slugged: %q", name)
	}
}

func TestParseCompressionType(t *testing.T) {
	tests := []struct {
		in   string
		want CompressionType
	}{
		{"zstd", CompressionZstd},
		{"snappy", CompressionSnappy},
		{"gzip", CompressionGzip},
		{"lz4", CompressionLZ4},
		{"none", CompressionNone},
		{"", CompressionNone},
		{"bogus", CompressionZstd},
	}
	for _, tt := range tests {
		if got := ParseCompressionType(tt.in); got != tt.want {
			t.Errorf("ParseCompressionType(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestArchiveRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()

	src := store.New()
	orig := sealedSession(t, src, "run1")

	path, err := ArchiveSession(dir, orig, DefaultOptions())
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("archive written outside dir: %s", path)
	}

	dst := store.New()
	restored, err := RestoreSession(dst, path)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if restored.Name() != orig.Name() {
		t.Errorf("name: got %q, want %q", restored.Name(), orig.Name())
	}
	if !restored.Sealed() {
		t.Fatal("restored session must be sealed")
	}

	names, _ := restored.Channels()
	if len(names) != 2 {
		t.Fatalf("expected 2 channels, got %v", names)
	}

	for _, name := range names {
		want, err := orig.Channel(name)
		if err != nil {
			t.Fatalf("orig channel %s: %v", name, err)
		}
		got, err := restored.Channel(name)
		if err != nil {
			t.Fatalf("restored channel %s: %v", name, err)
		}

		if got.Len() != want.Len() || got.Width() != want.Width() {
			t.Fatalf("channel %s shape: got %dx%d, want %dx%d",
				name, got.Len(), got.Width(), want.Len(), want.Width())
		}
		for i := 0; i < want.Len(); i++ {
			if got.Time(i) != want.Time(i) {
				t.Errorf("channel %s sample %d: time mismatch", name, i)
			}
			for j := 0; j < want.Width(); j++ {
				if got.Component(j)[i] != want.Component(j)[i] {
					t.Errorf("channel %s sample %d component %d: value mismatch", name, i, j)
				}
			}
		}
	}
}

func TestRestoreRejectsTruncatedComponent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.parquet")

	w, err := NewWriter(path, DefaultOptions())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}

	// Component 1 is missing its last row, as if the file lost a page.
	rows := []ChannelRow{
		{Session: "run1", Channel: "position", Component: 0, Time: 0, Value: 1},
		{Session: "run1", Channel: "position", Component: 0, Time: 0.1, Value: 2},
		{Session: "run1", Channel: "position", Component: 0, Time: 0.2, Value: 3},
		{Session: "run1", Channel: "position", Component: 1, Time: 0, Value: 4},
		{Session: "run1", Channel: "position", Component: 1, Time: 0.1, Value: 5},
	}
	if err := w.WriteRows(rows); err != nil {
		t.Fatalf("write rows: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	st := store.New()
	if _, err := RestoreSession(st, path); !errors.Is(err, errors.ErrCorruptRecord) {
		t.Fatalf("expected ErrCorruptRecord, got %v", err)
	}
	if st.Len() != 0 {
		t.Error("corrupt restore must not leave a session behind")
	}
}

func TestWriterRejectsAfterClose(t *testing.T) {
	dir := t.TempDir()

	w, err := NewWriter(filepath.Join(dir, "x.parquet"), DefaultOptions())
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	err = w.WriteRows([]ChannelRow{{Session: "s", Channel: "c", Time: 0, Value: 1}})
	if err == nil {
		t.Error("expected error writing after close")
	}
}
