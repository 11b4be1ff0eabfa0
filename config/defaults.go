// Package config provides configuration defaults and utilities
// for the trackside application.
//
// This package defines all configurable constants with documented defaults.
// Users can override these values via config.yaml or CLI flags.
package config

import "time"

// =============================================================================
// Alignment Defaults
// =============================================================================

const (
	// DefaultAlignRateHz is the default resampling rate for frame alignment.
	// Motorsport loggers commonly record at 100 Hz; alignment defaults to
	// the same rate so that exact sample points survive resampling.
	// Override via config: align.rate_hz
	DefaultAlignRateHz = 100.0

	// DefaultAlignWorkers caps the number of channels resampled in parallel.
	// Zero means one goroutine per channel.
	// Override via config: align.workers
	DefaultAlignWorkers = 8

	// DefaultFrameCacheSize is the number of derived frames kept per aligner.
	// Frames are pure functions of (session, grid), so eviction only costs
	// recomputation.
	// Override via config: align.frame_cache_size
	DefaultFrameCacheSize = 32
)

// =============================================================================
// Ingest Defaults
// =============================================================================

const (
	// DefaultSeparator is the column separator for telemetry files.
	// Override via config: ingest.separator
	DefaultSeparator = ";"

	// DefaultCommentPrefix marks lines to skip in telemetry and track files.
	// Override via config: ingest.comment_prefix
	DefaultCommentPrefix = "#"

	// DefaultTimeColumn is the channel used to order samples within a session.
	// Override via config: ingest.time_column
	DefaultTimeColumn = "time"

	// DefaultDecimalComma enables parsing of decimal-comma numerals
	// (European ECU exports).
	// Override via config: ingest.decimal_comma
	DefaultDecimalComma = false
)

// =============================================================================
// Journal (WAL) Defaults
// =============================================================================

const (
	// DefaultWALSegmentSize is the maximum size of a journal segment before
	// rotation.
	// Override via config: wal.max_segment_size
	DefaultWALSegmentSize = 64 * 1024 * 1024 // 64MB

	// DefaultWALBufferSize is the size of the journal write buffer.
	// Override via config: wal.buffer_size
	DefaultWALBufferSize = 64 * 1024 // 64KB

	// DefaultWALSyncInterval is the flush interval in async sync mode.
	// Override via config: wal.sync_interval
	DefaultWALSyncInterval = time.Second
)

// =============================================================================
// Archive Defaults
// =============================================================================

const (
	// DefaultArchiveCompression is the Parquet compression algorithm.
	// Override via config: archive.compression
	DefaultArchiveCompression = "zstd"

	// DefaultArchiveCompressionLevel is the zstd compression level (1-22).
	// Override via config: archive.compression_level
	DefaultArchiveCompressionLevel = 3

	// DefaultArchiveDir is the subdirectory of data_dir holding Parquet files.
	DefaultArchiveDir = "archive"

	// DefaultWALDir is the subdirectory of data_dir holding journal segments.
	DefaultWALDir = "wal"
)

// =============================================================================
// Stats Defaults
// =============================================================================

const (
	// DefaultSketchAccuracy is the DDSketch relative accuracy for channel
	// summaries (0.01 = 1% error on quantiles).
	// Override via config: stats.accuracy
	DefaultSketchAccuracy = 0.01
)

// =============================================================================
// Query Defaults
// =============================================================================

const (
	// DefaultQueryMemoryLimit bounds DuckDB memory use for archive queries.
	// Override via config: query.memory_limit
	DefaultQueryMemoryLimit = "1GB"
)
