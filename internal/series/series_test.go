package series

import (
	"math"
	"testing"

	"github.com/xtxerr/trackside/internal/errors"
)

func TestBuilderAppend(t *testing.T) {
	b := NewBuilder("speed", 1)

	if err := b.Append(0.0, 10.0); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := b.Append(0.1, 11.0); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Equal timestamp must be rejected.
	if err := b.Append(0.1, 12.0); !errors.Is(err, errors.ErrOutOfOrder) {
		t.Errorf("expected ErrOutOfOrder for equal timestamp, got %v", err)
	}
	// Earlier timestamp must be rejected.
	if err := b.Append(0.05, 12.0); !errors.Is(err, errors.ErrOutOfOrder) {
		t.Errorf("expected ErrOutOfOrder for earlier timestamp, got %v", err)
	}
	// Rejected appends leave the builder unchanged.
	if b.Len() != 2 {
		t.Errorf("expected 2 samples after rejected appends, got %d", b.Len())
	}

	// Width mismatch must be rejected.
	if err := b.Append(0.2, 1.0, 2.0); !errors.Is(err, errors.ErrWidthMismatch) {
		t.Errorf("expected ErrWidthMismatch, got %v", err)
	}

	ch := b.Build()
	if ch.Len() != 2 {
		t.Fatalf("expected 2 samples, got %d", ch.Len())
	}
	if ch.Start() != 0.0 || ch.End() != 0.1 {
		t.Errorf("unexpected range [%g, %g]", ch.Start(), ch.End())
	}
	if ch.ScalarAt(1) != 11.0 {
		t.Errorf("expected 11.0, got %g", ch.ScalarAt(1))
	}
}

func TestBuilderVector(t *testing.T) {
	b := NewBuilder("position", 3)
	if err := b.Append(1.0, 1.0, 2.0, 3.0); err != nil {
		t.Fatalf("append: %v", err)
	}

	ch := b.Build()
	if ch.Width() != 3 {
		t.Fatalf("expected width 3, got %d", ch.Width())
	}
	v := ch.Value(0)
	if v[0] != 1.0 || v[1] != 2.0 || v[2] != 3.0 {
		t.Errorf("unexpected vector %v", v)
	}
}

func TestChannelFromColumns(t *testing.T) {
	ch, err := ChannelFromColumns("x", []float64{0, 1, 2}, [][]float64{{10, 11, 12}})
	if err != nil {
		t.Fatalf("from columns: %v", err)
	}
	if ch.Len() != 3 || ch.Width() != 1 {
		t.Errorf("unexpected shape %dx%d", ch.Len(), ch.Width())
	}

	if _, err := ChannelFromColumns("x", []float64{0, 1, 1}, [][]float64{{1, 2, 3}}); !errors.Is(err, errors.ErrOutOfOrder) {
		t.Errorf("expected ErrOutOfOrder, got %v", err)
	}
	if _, err := ChannelFromColumns("x", []float64{0, 1}, [][]float64{{1}}); !errors.Is(err, errors.ErrWidthMismatch) {
		t.Errorf("expected ErrWidthMismatch, got %v", err)
	}
}

func TestSearchTime(t *testing.T) {
	ts := []float64{0, 1, 2, 4, 8}

	tests := []struct {
		t    float64
		want int
	}{
		{-1, 0},
		{0, 0},
		{0.5, 1},
		{2, 2},
		{3, 3},
		{8, 4},
		{9, 5},
	}
	for _, tt := range tests {
		if got := SearchTime(ts, tt.t); got != tt.want {
			t.Errorf("SearchTime(%g) = %d, want %d", tt.t, got, tt.want)
		}
	}
}

func TestMissing(t *testing.T) {
	if !IsMissing(Missing()) {
		t.Error("Missing() must be recognized by IsMissing")
	}
	if IsMissing(0) {
		t.Error("zero must not be missing")
	}
	if !math.IsNaN(Missing()) {
		t.Error("missing marker must be NaN")
	}
}

func TestFrameAddColumn(t *testing.T) {
	f := NewFrame("run1", "id1", []float64{0, 1, 2})

	col := NewColumn([][]float64{{1, 2, 3}})
	if err := f.AddColumn("speed", col); err != nil {
		t.Fatalf("add column: %v", err)
	}
	if err := f.AddColumn("speed", col); !errors.Is(err, errors.ErrChannelExists) {
		t.Errorf("expected ErrChannelExists, got %v", err)
	}

	short := NewColumn([][]float64{{1, 2}})
	if err := f.AddColumn("short", short); !errors.Is(err, errors.ErrWidthMismatch) {
		t.Errorf("expected ErrWidthMismatch, got %v", err)
	}

	if !f.HasChannel("speed") || f.HasChannel("short") {
		t.Error("unexpected channel presence")
	}
}

func TestDatasetProvenance(t *testing.T) {
	ds := NewDataset([]float64{0, 1})
	if err := ds.AddColumn("speed", "run1", NewColumn([][]float64{{1, 2}})); err != nil {
		t.Fatalf("add column: %v", err)
	}

	col, err := ds.Column("speed")
	if err != nil {
		t.Fatalf("column: %v", err)
	}
	if col.Session != "run1" {
		t.Errorf("expected provenance run1, got %q", col.Session)
	}

	if _, err := ds.Column("missing"); !errors.Is(err, errors.ErrUnknownChannel) {
		t.Errorf("expected ErrUnknownChannel, got %v", err)
	}
}
