// Package engine wires the subsystems together: the sample store with its
// journal, the aligner, the Parquet archive, and the SQL query service.
// Commands and the interactive shell operate exclusively through an Engine.
package engine

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/xtxerr/trackside/internal/align"
	"github.com/xtxerr/trackside/internal/archive"
	"github.com/xtxerr/trackside/internal/dsp"
	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/ingest"
	"github.com/xtxerr/trackside/internal/loader"
	"github.com/xtxerr/trackside/internal/logging"
	"github.com/xtxerr/trackside/internal/merge"
	"github.com/xtxerr/trackside/internal/query"
	"github.com/xtxerr/trackside/internal/series"
	"github.com/xtxerr/trackside/internal/stats"
	"github.com/xtxerr/trackside/internal/store"
	"github.com/xtxerr/trackside/internal/track"
	"github.com/xtxerr/trackside/internal/wal"
)

// Engine owns the subsystems and their shared state.
type Engine struct {
	cfg *loader.Config

	store   *store.Store
	journal *wal.Writer
	ingest  *ingest.Service
	aligner *align.Aligner
	sql     *query.SQLService
}

// New builds an engine from configuration: it replays the journal to
// rebuild sessions that were open at the last shutdown, opens a fresh
// journal, and attaches the SQL service to the archive directory.
func New(cfg *loader.Config) (*Engine, error) {
	log := logging.Component("engine")

	st := store.New()

	replayed, err := ingest.Recover(st, cfg.WALDir())
	if err != nil {
		return nil, errors.Wrap(err, "recover journal")
	}
	if replayed > 0 {
		log.Info("sessions recovered", "entries", replayed, "sessions", st.Len())
	}

	journal, err := wal.NewWriter(cfg.WALDir(), wal.Options{
		MaxSegmentSize: cfg.WAL.MaxSegmentSize,
		SyncMode:       cfg.WAL.SyncMode,
		SyncInterval:   cfg.WAL.SyncInterval,
		BufferSize:     cfg.WAL.BufferSize,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open journal")
	}

	if err := os.MkdirAll(cfg.ArchiveDir(), 0755); err != nil {
		journal.Close()
		return nil, errors.Wrap(err, "create archive dir")
	}

	sqlSvc, err := query.NewSQLService(cfg.ArchiveDir(), cfg.Query.MemoryLimit)
	if err != nil {
		journal.Close()
		return nil, errors.Wrap(err, "open query service")
	}

	return &Engine{
		cfg:     cfg,
		store:   st,
		journal: journal,
		ingest:  ingest.NewService(st, journal),
		aligner: align.New(align.Options{
			Workers:   cfg.Align.Workers,
			CacheSize: cfg.Align.FrameCacheSize,
		}),
		sql: sqlSvc,
	}, nil
}

// Close flushes the journal and closes the SQL service.
func (e *Engine) Close() error {
	var first error
	if e.journal != nil {
		if err := e.journal.Sync(); err != nil && first == nil {
			first = err
		}
		if err := e.journal.Close(); err != nil && first == nil {
			first = err
		}
	}
	if e.sql != nil {
		if err := e.sql.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Config returns the engine configuration.
func (e *Engine) Config() *loader.Config { return e.cfg }

// Store returns the sample store.
func (e *Engine) Store() *store.Store { return e.store }

// Ingest returns the journal-backed ingest service.
func (e *Engine) Ingest() *ingest.Service { return e.ingest }

// SQL returns the archive query service.
func (e *Engine) SQL() *query.SQLService { return e.sql }

// IngestFile parses and ingests one telemetry file into the named session.
func (e *Engine) IngestFile(path, session, format string) error {
	readOpts := ingest.ReadOptions{
		Separator:     e.cfg.Ingest.Separator,
		CommentPrefix: e.cfg.Ingest.CommentPrefix,
		DecimalComma:  e.cfg.Ingest.DecimalComma,
	}
	opts := ingest.IngestOptions{
		TimeColumn: e.cfg.Ingest.TimeColumn,
		Format:     format,
		Create:     true,
	}
	return e.ingest.IngestFile(path, session, readOpts, opts)
}

// Seal seals the named session.
func (e *Engine) Seal(session string) error {
	return e.ingest.Seal(session)
}

// Align aligns a sealed session onto a fixed-rate grid; rateHz zero falls
// back to the configured default.
func (e *Engine) Align(ctx context.Context, session string, rateHz float64) (*series.Frame, error) {
	sess, err := e.store.Session(session)
	if err != nil {
		return nil, err
	}
	if rateHz <= 0 {
		rateHz = e.cfg.Align.RateHz
	}
	return e.aligner.AlignRate(ctx, sess, rateHz)
}

// Derive aligns a sealed session and computes trajectory channels from its
// x/y positions: heading, curvature, and acceleration estimates when a V
// speed channel is recorded. cutoffHz > 0 low-pass filters the positions
// before differentiation; zero skips filtering.
func (e *Engine) Derive(ctx context.Context, session string, rateHz, cutoffHz float64) (*series.Frame, error) {
	frame, err := e.Align(ctx, session, rateHz)
	if err != nil {
		return nil, err
	}

	xcol, err := frame.Column("x")
	if err != nil {
		return nil, err
	}
	ycol, err := frame.Column("y")
	if err != nil {
		return nil, err
	}

	var v []float64
	if frame.HasChannel("V") {
		vcol, err := frame.Column("V")
		if err != nil {
			return nil, err
		}
		v = vcol.Component(0)
	}

	traj, err := dsp.DeriveTrajectory(frame.Times(), xcol.Component(0), ycol.Component(0), v, cutoffHz)
	if err != nil {
		return nil, err
	}

	out := series.NewFrame(frame.Session(), frame.SessionID(), frame.Times())
	if err := out.AddColumn("heading", series.NewColumn([][]float64{traj.Heading})); err != nil {
		return nil, err
	}
	if err := out.AddColumn("curvature", series.NewColumn([][]float64{traj.Curvature})); err != nil {
		return nil, err
	}
	if traj.AccelX != nil {
		if err := out.AddColumn("ax_est", series.NewColumn([][]float64{traj.AccelX})); err != nil {
			return nil, err
		}
		if err := out.AddColumn("ay_est", series.NewColumn([][]float64{traj.AccelY})); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// MergeInput names one session's contribution to a merge.
type MergeInput struct {
	Session string
	Offset  float64
	Prefix  string
}

// Merge aligns the named sessions at the shared rate and merges the frames
// into one dataset.
func (e *Engine) Merge(ctx context.Context, inputs []MergeInput, rateHz float64) (*series.Dataset, error) {
	mi := make([]merge.Input, len(inputs))
	for i, in := range inputs {
		frame, err := e.Align(ctx, in.Session, rateHz)
		if err != nil {
			return nil, errors.Wrapf(err, "align session '%s'", in.Session)
		}
		mi[i] = merge.Input{Frame: frame, Offset: in.Offset, Prefix: in.Prefix}
	}
	return merge.Merge(ctx, mi)
}

// ExportCSV aligns a session and writes the windowed slice as CSV. Infinite
// window bounds select the full session range.
func (e *Engine) ExportCSV(ctx context.Context, w io.Writer, session string, rateHz, t0, t1 float64, channels []string) error {
	frame, err := e.Align(ctx, session, rateHz)
	if err != nil {
		return err
	}

	if math.IsInf(t0, -1) {
		t0 = frame.Start()
	}
	if math.IsInf(t1, 1) {
		t1 = frame.End()
	}

	rows, err := query.SliceFrame(frame, t0, t1, channels)
	if err != nil {
		return err
	}
	return query.ExportCSV(w, rows)
}

// Archive writes a sealed session to the Parquet archive and returns the
// file path.
func (e *Engine) Archive(session string) (string, error) {
	sess, err := e.store.Session(session)
	if err != nil {
		return "", err
	}

	path, err := archive.ArchiveSession(e.cfg.ArchiveDir(), sess, archive.Options{
		Compression:      archive.ParseCompressionType(e.cfg.Archive.Compression),
		CompressionLevel: e.cfg.Archive.CompressionLevel,
	})
	if err != nil {
		return "", err
	}

	logging.Component("engine").Info("session archived", "session", session, "path", path)
	return path, nil
}

// Restore replays an archived session back into the store.
func (e *Engine) Restore(path string) (*store.Session, error) {
	return archive.RestoreSession(e.store, path)
}

// Summaries computes per-channel statistics of a sealed session.
func (e *Engine) Summaries(session string) ([]stats.Summary, error) {
	sess, err := e.store.Session(session)
	if err != nil {
		return nil, err
	}
	return stats.SummarizeSession(sess, e.cfg.Stats.Accuracy)
}

// Track loads a track description by name from the configured tracks
// directory.
func (e *Engine) Track(name string) (*track.Track, error) {
	return track.Load(filepath.Join(e.cfg.TracksDir, name+".txt"))
}
