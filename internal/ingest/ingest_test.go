package ingest

import (
	"math"
	"strings"
	"testing"

	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/store"
	"github.com/xtxerr/trackside/internal/wal"
)

func TestReadDelimited(t *testing.T) {
	input := strings.Join([]string{
		"# exported by logger",
		"",
		"time;speed;throttle",
		"0.0;100.5;0.2",
		"0.1;101.0;0.3",
		"# trailing comment",
		"0.2;101.5;0.4",
	}, "\n")

	tbl, err := Read(strings.NewReader(input), DefaultReadOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if tbl.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", tbl.Len())
	}
	cols := tbl.Columns()
	if len(cols) != 3 || cols[0] != "time" || cols[1] != "speed" || cols[2] != "throttle" {
		t.Fatalf("unexpected columns %v", cols)
	}

	speed, err := tbl.Float("speed")
	if err != nil {
		t.Fatalf("float: %v", err)
	}
	if speed[1] != 101.0 {
		t.Errorf("speed[1] = %g, want 101.0", speed[1])
	}
}

func TestReadDecimalComma(t *testing.T) {
	opts := DefaultReadOptions()
	opts.DecimalComma = true

	tbl, err := Read(strings.NewReader("time;v\n0,5;3,14\n"), opts)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	v, err := tbl.Float("v")
	if err != nil {
		t.Fatalf("float: %v", err)
	}
	if v[0] != 3.14 {
		t.Errorf("v[0] = %g, want 3.14", v[0])
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := Read(strings.NewReader("# only comments\n"), DefaultReadOptions()); !errors.Is(err, errors.ErrCorruptRecord) {
		t.Errorf("expected ErrCorruptRecord for missing header, got %v", err)
	}

	tbl, err := Read(strings.NewReader("time;v\n0;abc\n"), DefaultReadOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if _, err := tbl.Float("v"); !errors.Is(err, errors.ErrBadValue) {
		t.Errorf("expected ErrBadValue, got %v", err)
	}
}

func TestTableRename(t *testing.T) {
	tbl, err := Read(strings.NewReader("time;VVEH\n0;10\n"), DefaultReadOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	tbl.Rename("VVEH", "V")
	if tbl.Has("VVEH") || !tbl.Has("V") {
		t.Fatalf("rename failed: columns %v", tbl.Columns())
	}

	// Renaming a missing column is a no-op.
	tbl.Rename("nope", "x")
	if tbl.Has("x") {
		t.Error("rename of missing column must not create a column")
	}
}

func TestConverterRegistry(t *testing.T) {
	if _, err := Lookup("gp2"); err != nil {
		t.Errorf("gp2 converter not registered: %v", err)
	}
	if _, err := Lookup("mlt"); err != nil {
		t.Errorf("mlt converter not registered: %v", err)
	}
	if _, err := Lookup("bogus"); !errors.Is(err, errors.ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}

	formats := Formats()
	if len(formats) < 2 {
		t.Errorf("expected at least 2 formats, got %v", formats)
	}
}

func TestGP2Convert(t *testing.T) {
	// 45 degrees 30.00000 minutes packs as decimal 453000000
	// (deg*1e7 + minutes*1e5), hex 1B003B40, plus one trailing status
	// character. 45 + 30/60 = 45.5 decimal degrees.
	input := strings.Join([]string{
		"LAPTIM;VVEH;SteerATWheel;CE_ADR_84_Lat;CE_ADR_87_Alt",
		"0.0;50.0;1.5;1B003B40A;9C40F", // alt 0x9C40 = 40000 -> 400.00 m
	}, "\n")

	tbl, err := Read(strings.NewReader(input), DefaultReadOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := (GP2{}).Convert(tbl); err != nil {
		t.Fatalf("convert: %v", err)
	}

	// Renames applied.
	for _, name := range []string{"time", "V", "steering", "latitude", "elevation"} {
		if !tbl.Has(name) {
			t.Errorf("missing canonical column %q after convert (have %v)", name, tbl.Columns())
		}
	}

	lat, err := tbl.Float("latitude")
	if err != nil {
		t.Fatalf("latitude: %v", err)
	}
	if math.Abs(lat[0]-45.5) > 1e-9 {
		t.Errorf("latitude = %.9f, want 45.5", lat[0])
	}

	alt, err := tbl.Float("elevation")
	if err != nil {
		t.Fatalf("elevation: %v", err)
	}
	if alt[0] != 400.0 {
		t.Errorf("elevation = %g, want 400.0", alt[0])
	}
}

func TestGP2RequiresTime(t *testing.T) {
	tbl, err := Read(strings.NewReader("VVEH\n10\n"), DefaultReadOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := (GP2{}).Convert(tbl); !errors.Is(err, errors.ErrMissingColumn) {
		t.Errorf("expected ErrMissingColumn, got %v", err)
	}
}

func TestMLTConvert(t *testing.T) {
	input := strings.Join([]string{
		"time;u;v;xTrj;y__steer",
		"0.0;3.0;4.0;12.5;0.1",
	}, "\n")

	tbl, err := Read(strings.NewReader(input), DefaultReadOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := (MLT{}).Convert(tbl); err != nil {
		t.Fatalf("convert: %v", err)
	}

	speed, err := tbl.Float("V")
	if err != nil {
		t.Fatalf("V: %v", err)
	}
	if speed[0] != 5.0 { // sqrt(3^2 + 4^2)
		t.Errorf("V = %g, want 5.0", speed[0])
	}

	if !tbl.Has("x") || !tbl.Has("steering") {
		t.Errorf("renames not applied: %v", tbl.Columns())
	}
}

func TestIngestTableAndSeal(t *testing.T) {
	st := store.New()
	svc := NewService(st, nil)

	tbl, err := Read(strings.NewReader("time;speed\n0;10\n0.1;11\n0.2;12\n"), DefaultReadOptions())
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	if err := svc.IngestTable(tbl, "run1", DefaultIngestOptions()); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if err := svc.Seal("run1"); err != nil {
		t.Fatalf("seal: %v", err)
	}

	sess, err := st.Session("run1")
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	ch, err := sess.Channel("speed")
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if ch.Len() != 3 || ch.ScalarAt(2) != 12 {
		t.Errorf("unexpected channel data: len=%d", ch.Len())
	}
}

func TestJournalRecovery(t *testing.T) {
	dir := t.TempDir()

	// First lifetime: journal everything, seal one of two sessions.
	journal, err := wal.NewWriter(dir, wal.Options{SyncMode: "sync"})
	if err != nil {
		t.Fatalf("new journal: %v", err)
	}

	st := store.New()
	svc := NewService(st, journal)

	if _, err := svc.CreateSession("sealed"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AddSample("sealed", "speed", 0, 10); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.AddSample("sealed", "speed", 0.1, 11); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := svc.Seal("sealed"); err != nil {
		t.Fatalf("seal: %v", err)
	}

	if _, err := svc.CreateSession("open"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.AddSample("open", "throttle", 0, 0.5); err != nil {
		t.Fatalf("add: %v", err)
	}

	journal.Close()

	// Second lifetime: recovery must rebuild both sessions with their
	// states intact.
	st2 := store.New()
	applied, err := Recover(st2, dir)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if applied == 0 {
		t.Fatal("expected replayed entries")
	}

	sealed, err := st2.Session("sealed")
	if err != nil {
		t.Fatalf("sealed session: %v", err)
	}
	if !sealed.Sealed() {
		t.Error("sealed session must come back sealed")
	}
	ch, err := sealed.Channel("speed")
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if ch.Len() != 2 || ch.ScalarAt(1) != 11 {
		t.Errorf("replayed channel data wrong: len=%d", ch.Len())
	}

	open, err := st2.Session("open")
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	if open.Sealed() {
		t.Error("open session must come back open")
	}
	// The open session keeps accepting samples after recovery.
	if err := open.AddSample("throttle", 0.1, 0.6); err != nil {
		t.Errorf("append after recovery: %v", err)
	}
}

func TestGuessFormat(t *testing.T) {
	if got := GuessFormat("/data/lap3.gp2"); got != "gp2" {
		t.Errorf("GuessFormat(.gp2) = %q", got)
	}
	if got := GuessFormat("/data/lap3.csv"); got != "" {
		t.Errorf("GuessFormat(.csv) = %q, want empty", got)
	}
}
