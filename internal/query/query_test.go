package query

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/series"
)

func dataset(t *testing.T) *series.Dataset {
	t.Helper()

	ds := series.NewDataset([]float64{0, 1, 2, 3})
	if err := ds.AddColumn("speed", "run1", series.NewColumn([][]float64{{10, 11, 12, 13}})); err != nil {
		t.Fatalf("add column: %v", err)
	}
	if err := ds.AddColumn("gap", "run2", series.NewColumn([][]float64{
		{series.Missing(), 5, series.Missing(), 7},
	})); err != nil {
		t.Fatalf("add column: %v", err)
	}
	return ds
}

func TestSliceWindow(t *testing.T) {
	ds := dataset(t)

	rows, err := Slice(ds, 1, 2, nil)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	// Window bounds are inclusive.
	if rows[0].Time != 1 || rows[1].Time != 2 {
		t.Errorf("unexpected row times %g, %g", rows[0].Time, rows[1].Time)
	}
	if rows[0].Values["speed"][0] != 11 {
		t.Errorf("speed at t=1: got %g, want 11", rows[0].Values["speed"][0])
	}
}

func TestSliceChannelSelection(t *testing.T) {
	ds := dataset(t)

	rows, err := Slice(ds, 0, 3, []string{"speed"})
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if len(rows[0].Values) != 1 {
		t.Errorf("expected 1 channel, got %d", len(rows[0].Values))
	}

	if _, err := Slice(ds, 0, 3, []string{"nope"}); !errors.Is(err, errors.ErrUnknownChannel) {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
}

func TestSliceEmptyResult(t *testing.T) {
	ds := dataset(t)

	if _, err := Slice(ds, 10, 20, nil); !errors.Is(err, errors.ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult past range, got %v", err)
	}
	if _, err := Slice(ds, -5, -1, nil); !errors.Is(err, errors.ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult before range, got %v", err)
	}
	if _, err := Slice(ds, 2, 1, nil); err == nil {
		t.Error("expected error for inverted window")
	}
}

func TestSliceIdempotent(t *testing.T) {
	ds := dataset(t)

	r1, err := Slice(ds, 0, 3, nil)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	r2, err := Slice(ds, 0, 3, nil)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if len(r1) != len(r2) {
		t.Fatalf("row count changed between identical queries: %d vs %d", len(r1), len(r2))
	}
	for i := range r1 {
		if r1[i].Time != r2[i].Time {
			t.Errorf("row %d time changed", i)
		}
	}
}

func TestSliceFrame(t *testing.T) {
	f := series.NewFrame("run1", "id", []float64{0, 1})
	if err := f.AddColumn("speed", series.NewColumn([][]float64{{1, 2}})); err != nil {
		t.Fatalf("add column: %v", err)
	}

	rows, err := SliceFrame(f, 0, 1, nil)
	if err != nil {
		t.Fatalf("slice frame: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestExportCSV(t *testing.T) {
	ds := dataset(t)
	rows, err := Slice(ds, 0, 3, nil)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, rows); err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header + 4 records, got %d lines", len(lines))
	}
	if lines[0] != "time,gap,speed" {
		t.Errorf("unexpected header %q", lines[0])
	}
	// Missing values must export as empty fields.
	if lines[1] != "0,,10" {
		t.Errorf("unexpected first record %q", lines[1])
	}
	if lines[2] != "1,5,11" {
		t.Errorf("unexpected second record %q", lines[2])
	}
}

func TestExportCSVVector(t *testing.T) {
	ds := series.NewDataset([]float64{0})
	if err := ds.AddColumn("pos", "run1", series.NewColumn([][]float64{{1}, {2}, {3}})); err != nil {
		t.Fatalf("add column: %v", err)
	}

	rows, err := Slice(ds, 0, 0, nil)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}

	var buf bytes.Buffer
	if err := ExportCSV(&buf, rows); err != nil {
		t.Fatalf("export: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "time,pos[0],pos[1],pos[2]" {
		t.Errorf("unexpected vector header %q", lines[0])
	}
	if lines[1] != "0,1,2,3" {
		t.Errorf("unexpected vector record %q", lines[1])
	}
}
