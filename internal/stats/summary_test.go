package stats

import (
	"math"
	"testing"

	"github.com/xtxerr/trackside/internal/series"
	"github.com/xtxerr/trackside/internal/store"
)

func TestAccumulator(t *testing.T) {
	acc := NewAccumulator("speed", 0, 0.01)
	for i := 1; i <= 100; i++ {
		acc.Add(float64(i))
	}

	s := acc.Summary()
	if s.Count != 100 {
		t.Fatalf("count = %d, want 100", s.Count)
	}
	if s.Min != 1 || s.Max != 100 {
		t.Errorf("range [%g, %g], want [1, 100]", s.Min, s.Max)
	}
	if s.Avg != 50.5 {
		t.Errorf("avg = %g, want 50.5", s.Avg)
	}

	// DDSketch guarantees 1% relative accuracy on quantiles.
	if math.Abs(s.P50-50)/50 > 0.02 {
		t.Errorf("p50 = %g, want ~50", s.P50)
	}
	if math.Abs(s.P99-99)/99 > 0.02 {
		t.Errorf("p99 = %g, want ~99", s.P99)
	}
}

func TestAccumulatorSkipsMissing(t *testing.T) {
	acc := NewAccumulator("gap", 0, 0)
	acc.Add(1)
	acc.Add(series.Missing())
	acc.Add(3)

	s := acc.Summary()
	if s.Count != 2 {
		t.Errorf("count = %d, want 2 (missing skipped)", s.Count)
	}
	if s.Avg != 2 {
		t.Errorf("avg = %g, want 2", s.Avg)
	}
}

func TestAccumulatorEmpty(t *testing.T) {
	s := NewAccumulator("empty", 0, 0).Summary()
	if s.Count != 0 {
		t.Errorf("count = %d, want 0", s.Count)
	}
	if s.Min != 0 || s.Max != 0 || s.Avg != 0 {
		t.Errorf("empty summary must be zeroed: %+v", s)
	}
}

func TestMerge(t *testing.T) {
	a := NewAccumulator("speed", 0, 0.01)
	b := NewAccumulator("speed", 0, 0.01)
	for i := 1; i <= 50; i++ {
		a.Add(float64(i))
	}
	for i := 51; i <= 100; i++ {
		b.Add(float64(i))
	}

	a.Merge(b)
	s := a.Summary()
	if s.Count != 100 || s.Min != 1 || s.Max != 100 {
		t.Errorf("merged summary wrong: %+v", s)
	}
}

func TestSummarizeSession(t *testing.T) {
	st := store.New()
	sess, err := st.CreateSession("run1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 10; i++ {
		ts := float64(i) * 0.1
		sess.AddSample("speed", ts, float64(i))
		sess.AddSample("position", ts, float64(i), float64(-i))
	}
	if err := sess.Seal(); err != nil {
		t.Fatalf("seal: %v", err)
	}

	summaries, err := SummarizeSession(sess, 0.01)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	// position has width 2, speed width 1: three summaries total, sorted
	// by channel name.
	if len(summaries) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(summaries))
	}
	if summaries[0].Channel != "position" || summaries[0].Component != 0 {
		t.Errorf("unexpected first summary %+v", summaries[0])
	}
	if summaries[2].Channel != "speed" {
		t.Errorf("unexpected last summary %+v", summaries[2])
	}
	if summaries[2].Max != 9 {
		t.Errorf("speed max = %g, want 9", summaries[2].Max)
	}
	if summaries[1].Min != -9 {
		t.Errorf("position[1] min = %g, want -9", summaries[1].Min)
	}
}

func TestSummarizeOpenSessionFails(t *testing.T) {
	st := store.New()
	sess, _ := st.CreateSession("open")
	sess.AddSample("speed", 0, 1)

	if _, err := SummarizeSession(sess, 0.01); err == nil {
		t.Error("expected error for open session")
	}
}

func TestSummarizeChannelBadComponent(t *testing.T) {
	st := store.New()
	sess, _ := st.CreateSession("run1")
	sess.AddSample("speed", 0, 1)
	sess.Seal()

	ch, err := sess.Channel("speed")
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	if _, err := SummarizeChannel(ch, 1, 0.01); err == nil {
		t.Error("expected error for out-of-range component")
	}
}
