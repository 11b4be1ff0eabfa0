package loader

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/xtxerr/trackside/internal/errors"
)

// Load loads configuration from a YAML file, expanding environment
// variables and applying defaults for unset fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func Validate(cfg *Config) error {
	errs := errors.NewValidationErrors()

	if cfg.DataDir == "" {
		errs.AddField("data_dir", "cannot be empty")
	}

	switch cfg.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		errs.AddField("logging.level", "must be one of debug, info, warn, error")
	}

	if cfg.Ingest.Separator == "" {
		errs.AddField("ingest.separator", "cannot be empty")
	}
	if cfg.Ingest.TimeColumn == "" {
		errs.AddField("ingest.time_column", "cannot be empty")
	}

	switch cfg.WAL.SyncMode {
	case "", "async", "sync", "fsync":
	default:
		errs.AddField("wal.sync_mode", "must be one of async, sync, fsync")
	}
	if cfg.WAL.MaxSegmentSize < 0 {
		errs.AddField("wal.max_segment_size", "cannot be negative")
	}

	switch cfg.Archive.Compression {
	case "", "none", "snappy", "gzip", "zstd", "lz4":
	default:
		errs.AddField("archive.compression", "must be one of none, snappy, gzip, zstd, lz4")
	}

	if cfg.Align.RateHz <= 0 {
		errs.AddField("align.rate_hz", "must be positive")
	}
	if cfg.Align.Workers < 0 {
		errs.AddField("align.workers", "cannot be negative")
	}
	if cfg.Align.FrameCacheSize < 0 {
		errs.AddField("align.frame_cache_size", "cannot be negative")
	}

	if cfg.Stats.Accuracy <= 0 || cfg.Stats.Accuracy >= 1 {
		errs.AddField("stats.accuracy", "must be in (0, 1)")
	}

	return errs.Err()
}

// LogLevel converts the configured level name to a slog level.
func (c *Config) LogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
