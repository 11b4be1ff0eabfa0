package series

import (
	"math"

	"github.com/xtxerr/trackside/internal/errors"
)

// Sample represents a single measurement on a channel.
// This is the primary data unit flowing through the ingestion pipeline.
type Sample struct {
	// Time is the timestamp in seconds from the session's recording origin.
	Time float64

	// Values holds the measurement. Scalar channels have len(Values) == 1;
	// vector channels (e.g. ENU position) carry a small fixed width.
	Values []float64
}

// Scalar builds a width-1 sample.
func Scalar(t, v float64) Sample {
	return Sample{Time: t, Values: []float64{v}}
}

// Missing returns the designated missing-value marker.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing-value marker.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Channel is an immutable, time-ordered view of one named series.
// Storage is columnar: one timestamp slice plus one slice per vector
// component. Returned slices are shared with the channel and must be
// treated as read-only.
type Channel struct {
	name  string
	width int
	times []float64
	comps [][]float64
}

// Name returns the channel name.
func (c *Channel) Name() string { return c.name }

// Width returns the number of vector components (1 for scalar channels).
func (c *Channel) Width() int { return c.width }

// Len returns the number of samples.
func (c *Channel) Len() int { return len(c.times) }

// Times returns the timestamp slice.
func (c *Channel) Times() []float64 { return c.times }

// Component returns the value slice for one vector component.
func (c *Channel) Component(j int) []float64 { return c.comps[j] }

// Time returns the timestamp of sample i.
func (c *Channel) Time(i int) float64 { return c.times[i] }

// Value returns the value vector of sample i.
func (c *Channel) Value(i int) []float64 {
	v := make([]float64, c.width)
	for j := 0; j < c.width; j++ {
		v[j] = c.comps[j][i]
	}
	return v
}

// ScalarAt returns component 0 of sample i.
func (c *Channel) ScalarAt(i int) float64 { return c.comps[0][i] }

// Start returns the first timestamp, or NaN for an empty channel.
func (c *Channel) Start() float64 {
	if len(c.times) == 0 {
		return Missing()
	}
	return c.times[0]
}

// End returns the last timestamp, or NaN for an empty channel.
func (c *Channel) End() float64 {
	if len(c.times) == 0 {
		return Missing()
	}
	return c.times[len(c.times)-1]
}

// Builder accumulates samples for one channel while the owning session is
// open. Append enforces the monotonicity invariant; a failed Append leaves
// the builder unchanged.
type Builder struct {
	name  string
	width int
	times []float64
	comps [][]float64
}

// NewBuilder creates a channel builder for the given name and vector width.
func NewBuilder(name string, width int) *Builder {
	if width < 1 {
		width = 1
	}
	comps := make([][]float64, width)
	return &Builder{
		name:  name,
		width: width,
		comps: comps,
	}
}

// Name returns the channel name.
func (b *Builder) Name() string { return b.name }

// Width returns the vector width.
func (b *Builder) Width() int { return b.width }

// Len returns the number of samples appended so far.
func (b *Builder) Len() int { return len(b.times) }

// LastTime returns the most recent timestamp, or NaN if empty.
func (b *Builder) LastTime() float64 {
	if len(b.times) == 0 {
		return Missing()
	}
	return b.times[len(b.times)-1]
}

// Append adds one sample. Timestamps must strictly increase.
func (b *Builder) Append(t float64, values ...float64) error {
	if len(values) != b.width {
		return errors.Wrapf(errors.ErrWidthMismatch,
			"channel '%s': got %d values, want %d", b.name, len(values), b.width)
	}
	if len(b.times) > 0 && t <= b.times[len(b.times)-1] {
		return errors.NewOutOfOrder(b.name, t, b.times[len(b.times)-1])
	}

	b.times = append(b.times, t)
	for j, v := range values {
		b.comps[j] = append(b.comps[j], v)
	}
	return nil
}

// Build freezes the accumulated samples into an immutable Channel.
// The builder must not be used after Build.
func (b *Builder) Build() *Channel {
	return &Channel{
		name:  b.name,
		width: b.width,
		times: b.times,
		comps: b.comps,
	}
}

// ChannelFromColumns constructs an immutable channel directly from columnar
// data. Used by archive recovery, where ordering was validated at write time.
// Returns ErrOutOfOrder if times are not strictly increasing.
func ChannelFromColumns(name string, times []float64, comps [][]float64) (*Channel, error) {
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, errors.NewOutOfOrder(name, times[i], times[i-1])
		}
	}
	for _, comp := range comps {
		if len(comp) != len(times) {
			return nil, errors.Wrapf(errors.ErrWidthMismatch,
				"channel '%s': component length %d, want %d", name, len(comp), len(times))
		}
	}
	if len(comps) == 0 {
		comps = [][]float64{make([]float64, len(times))}
	}
	return &Channel{
		name:  name,
		width: len(comps),
		times: times,
		comps: comps,
	}, nil
}

// SearchTime returns the index of the first timestamp >= t in ts.
func SearchTime(ts []float64, t float64) int {
	lo, hi := 0, len(ts)
	for lo < hi {
		mid := (lo + hi) / 2
		if ts[mid] < t {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
