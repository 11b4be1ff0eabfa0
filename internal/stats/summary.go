// Package stats computes per-channel summary statistics with streaming
// percentile sketches.
package stats

import (
	"math"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/xtxerr/trackside/config"
	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/series"
	"github.com/xtxerr/trackside/internal/store"
)

// Summary holds the statistics of one channel component.
type Summary struct {
	Channel   string
	Component int

	Count int64
	Min   float64
	Max   float64
	Sum   float64
	Avg   float64

	P50 float64
	P90 float64
	P95 float64
	P99 float64
}

// Accumulator builds a Summary incrementally. Missing samples (NaN) are
// skipped.
type Accumulator struct {
	channel   string
	component int

	count int64
	sum   float64
	min   float64
	max   float64

	sketch *ddsketch.DDSketch
}

// NewAccumulator creates an accumulator with the given relative percentile
// accuracy; pass 0 for the default.
func NewAccumulator(channel string, component int, accuracy float64) *Accumulator {
	if accuracy <= 0 {
		accuracy = config.DefaultSketchAccuracy
	}

	a := &Accumulator{
		channel:   channel,
		component: component,
		min:       math.MaxFloat64,
		max:       -math.MaxFloat64,
	}

	sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
	if err == nil {
		a.sketch = sketch
	}
	return a
}

// Add folds one value into the accumulator.
func (a *Accumulator) Add(v float64) {
	if series.IsMissing(v) {
		return
	}

	a.count++
	a.sum += v
	if v < a.min {
		a.min = v
	}
	if v > a.max {
		a.max = v
	}
	if a.sketch != nil {
		a.sketch.Add(v)
	}
}

// Count returns the number of non-missing values added.
func (a *Accumulator) Count() int64 { return a.count }

// Summary finalizes the accumulated statistics.
func (a *Accumulator) Summary() Summary {
	s := Summary{
		Channel:   a.channel,
		Component: a.component,
		Count:     a.count,
		Sum:       a.sum,
	}
	if a.count == 0 {
		return s
	}

	s.Min = a.min
	s.Max = a.max
	s.Avg = a.sum / float64(a.count)

	if a.sketch != nil {
		s.P50, _ = a.sketch.GetValueAtQuantile(0.50)
		s.P90, _ = a.sketch.GetValueAtQuantile(0.90)
		s.P95, _ = a.sketch.GetValueAtQuantile(0.95)
		s.P99, _ = a.sketch.GetValueAtQuantile(0.99)
	}
	return s
}

// Merge folds another accumulator for the same channel component into this
// one.
func (a *Accumulator) Merge(other *Accumulator) {
	if other == nil || other.count == 0 {
		return
	}

	a.count += other.count
	a.sum += other.sum
	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}
	if a.sketch != nil && other.sketch != nil {
		a.sketch.MergeWith(other.sketch)
	}
}

// SummarizeChannel computes the summary of one channel component.
func SummarizeChannel(ch *series.Channel, component int, accuracy float64) (Summary, error) {
	if component < 0 || component >= ch.Width() {
		return Summary{}, errors.Wrapf(errors.ErrWidthMismatch,
			"component %d of width-%d channel '%s'", component, ch.Width(), ch.Name())
	}

	acc := NewAccumulator(ch.Name(), component, accuracy)
	for _, v := range ch.Component(component) {
		acc.Add(v)
	}
	return acc.Summary(), nil
}

// SummarizeSession computes summaries for every component of every channel
// of a sealed session, ordered by channel name then component.
func SummarizeSession(sess *store.Session, accuracy float64) ([]Summary, error) {
	names, err := sess.Channels()
	if err != nil {
		return nil, err
	}

	var out []Summary
	for _, name := range names {
		ch, err := sess.Channel(name)
		if err != nil {
			return nil, err
		}
		for c := 0; c < ch.Width(); c++ {
			s, err := SummarizeChannel(ch, c, accuracy)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}
