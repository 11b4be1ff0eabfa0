// Package series defines the core time-series data model shared by the
// store, aligner, merger, and query layers:
//
//   - Sample: one (timestamp, value vector) measurement
//   - Channel: an immutable, strictly time-ordered sequence of samples
//   - Frame: a session's channels resampled onto one shared timestamp grid
//   - Dataset: the union of several frames under per-frame time keys
//
// Timestamps are float64 seconds. The missing-value marker is NaN; use
// Missing and IsMissing rather than math directly so the convention stays
// in one place.
package series
