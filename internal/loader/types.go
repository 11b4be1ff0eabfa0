// Package loader handles configuration file loading and validation.
//
// This package is responsible for:
//   - Loading YAML configuration files
//   - Expanding environment variables
//   - Applying defaults and validating the result
package loader

import (
	"time"

	"github.com/xtxerr/trackside/config"
)

// Config is the root configuration structure for trackside.
type Config struct {
	// DataDir is the root directory for journal segments and Parquet
	// archives. Default: "./data".
	DataDir string `yaml:"data_dir"`

	// TracksDir holds track description files, one per track.
	TracksDir string `yaml:"tracks_dir"`

	// Logging configures structured log output.
	Logging LoggingConfig `yaml:"logging"`

	// Ingest configures telemetry file parsing.
	Ingest IngestConfig `yaml:"ingest"`

	// WAL configures the session journal.
	WAL WALConfig `yaml:"wal"`

	// Archive configures Parquet archival of sealed sessions.
	Archive ArchiveConfig `yaml:"archive"`

	// Align configures frame alignment.
	Align AlignConfig `yaml:"align"`

	// Query configures the SQL query service.
	Query QueryConfig `yaml:"query"`

	// Stats configures channel summaries.
	Stats StatsConfig `yaml:"stats"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches from text to JSON output.
	JSON bool `yaml:"json"`
}

// IngestConfig configures telemetry file parsing.
type IngestConfig struct {
	// Separator splits a line into cells. Default ";".
	Separator string `yaml:"separator"`

	// CommentPrefix marks lines to skip. Default "#".
	CommentPrefix string `yaml:"comment_prefix"`

	// DecimalComma parses "3,14" as 3.14.
	DecimalComma bool `yaml:"decimal_comma"`

	// TimeColumn names the column holding sample timestamps. Default "time".
	TimeColumn string `yaml:"time_column"`
}

// WALConfig configures the session journal.
type WALConfig struct {
	// Dir overrides the journal directory; empty means <data_dir>/wal.
	Dir string `yaml:"dir"`

	// MaxSegmentSize is the segment rotation threshold in bytes.
	MaxSegmentSize int64 `yaml:"max_segment_size"`

	// SyncMode is one of async, sync, fsync.
	SyncMode string `yaml:"sync_mode"`

	// SyncInterval is the flush interval for async mode.
	SyncInterval time.Duration `yaml:"sync_interval"`

	// BufferSize is the write buffer size in bytes.
	BufferSize int `yaml:"buffer_size"`
}

// ArchiveConfig configures Parquet archival.
type ArchiveConfig struct {
	// Dir overrides the archive directory; empty means <data_dir>/archive.
	Dir string `yaml:"dir"`

	// Compression is one of none, snappy, gzip, zstd, lz4.
	Compression string `yaml:"compression"`

	// CompressionLevel applies to zstd and gzip.
	CompressionLevel int `yaml:"compression_level"`
}

// AlignConfig configures frame alignment.
type AlignConfig struct {
	// RateHz is the default resampling rate.
	RateHz float64 `yaml:"rate_hz"`

	// Workers caps parallel channel resampling; zero means one goroutine
	// per channel.
	Workers int `yaml:"workers"`

	// FrameCacheSize is the number of derived frames kept in memory.
	FrameCacheSize int `yaml:"frame_cache_size"`
}

// QueryConfig configures the SQL query service.
type QueryConfig struct {
	// MemoryLimit bounds DuckDB memory use, e.g. "1GB".
	MemoryLimit string `yaml:"memory_limit"`
}

// StatsConfig configures channel summaries.
type StatsConfig struct {
	// Accuracy is the DDSketch relative accuracy for percentiles.
	Accuracy float64 `yaml:"accuracy"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		DataDir:   "./data",
		TracksDir: "./tracks",
		Logging: LoggingConfig{
			Level: "info",
		},
		Ingest: IngestConfig{
			Separator:     config.DefaultSeparator,
			CommentPrefix: config.DefaultCommentPrefix,
			DecimalComma:  config.DefaultDecimalComma,
			TimeColumn:    config.DefaultTimeColumn,
		},
		WAL: WALConfig{
			MaxSegmentSize: config.DefaultWALSegmentSize,
			SyncMode:       "async",
			SyncInterval:   config.DefaultWALSyncInterval,
			BufferSize:     config.DefaultWALBufferSize,
		},
		Archive: ArchiveConfig{
			Compression:      config.DefaultArchiveCompression,
			CompressionLevel: config.DefaultArchiveCompressionLevel,
		},
		Align: AlignConfig{
			RateHz:         config.DefaultAlignRateHz,
			Workers:        config.DefaultAlignWorkers,
			FrameCacheSize: config.DefaultFrameCacheSize,
		},
		Query: QueryConfig{
			MemoryLimit: config.DefaultQueryMemoryLimit,
		},
		Stats: StatsConfig{
			Accuracy: config.DefaultSketchAccuracy,
		},
	}
}

// WALDir returns the effective journal directory.
func (c *Config) WALDir() string {
	if c.WAL.Dir != "" {
		return c.WAL.Dir
	}
	return c.DataDir + "/" + config.DefaultWALDir
}

// ArchiveDir returns the effective archive directory.
func (c *Config) ArchiveDir() string {
	if c.Archive.Dir != "" {
		return c.Archive.Dir
	}
	return c.DataDir + "/" + config.DefaultArchiveDir
}
