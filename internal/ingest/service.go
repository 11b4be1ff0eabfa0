package ingest

import (
	"path/filepath"
	"strings"

	"github.com/xtxerr/trackside/config"
	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/logging"
	"github.com/xtxerr/trackside/internal/series"
	"github.com/xtxerr/trackside/internal/store"
	"github.com/xtxerr/trackside/internal/wal"
)

// journalBatchSize bounds the number of entries per journal record.
const journalBatchSize = 4096

// Service routes session mutations through the journal before applying
// them to the store, so in-flight sessions survive a crash.
type Service struct {
	store   *store.Store
	journal *wal.Writer
}

// NewService creates an ingest service. The journal may be nil for
// in-memory-only operation (tests, one-shot conversions).
func NewService(st *store.Store, journal *wal.Writer) *Service {
	return &Service{store: st, journal: journal}
}

// Store returns the underlying sample store.
func (s *Service) Store() *store.Store { return s.store }

// CreateSession journals and creates a new open session.
func (s *Service) CreateSession(name string) (*store.Session, error) {
	if err := s.journalEntries([]wal.Entry{{Op: wal.OpCreate, Session: name}}); err != nil {
		return nil, err
	}
	return s.store.CreateSession(name)
}

// AddSample journals and appends one sample.
func (s *Service) AddSample(session, channel string, t float64, values ...float64) error {
	sess, err := s.store.Session(session)
	if err != nil {
		return err
	}
	err = s.journalEntries([]wal.Entry{{
		Op:      wal.OpAppend,
		Session: session,
		Channel: channel,
		Time:    t,
		Values:  values,
	}})
	if err != nil {
		return err
	}
	return sess.AddSample(channel, t, values...)
}

// Seal journals and seals the named session, then flushes the journal so
// the seal record is durable.
func (s *Service) Seal(name string) error {
	if err := s.journalEntries([]wal.Entry{{Op: wal.OpSeal, Session: name}}); err != nil {
		return err
	}
	if err := s.store.Seal(name); err != nil {
		return err
	}
	if s.journal != nil {
		return s.journal.Sync()
	}
	return nil
}

// IngestOptions configures table ingestion.
type IngestOptions struct {
	// TimeColumn names the column holding sample timestamps.
	TimeColumn string

	// Format selects a registered converter; empty means no conversion.
	Format string

	// Create makes the session if it does not exist yet.
	Create bool
}

// DefaultIngestOptions returns ingest options with the standard time column.
func DefaultIngestOptions() IngestOptions {
	return IngestOptions{
		TimeColumn: config.DefaultTimeColumn,
		Create:     true,
	}
}

// IngestFile parses, converts and ingests one telemetry file into the
// named session.
func (s *Service) IngestFile(path, session string, readOpts ReadOptions, opts IngestOptions) error {
	tbl, err := ReadFile(path, readOpts)
	if err != nil {
		return err
	}

	if opts.Format == "" {
		opts.Format = GuessFormat(path)
	}
	return s.IngestTable(tbl, session, opts)
}

// IngestTable converts a table and appends its numeric columns to the
// named session as channels. Columns that fail to parse as numbers are
// skipped with a warning, matching the tolerant behavior expected from
// logger exports.
func (s *Service) IngestTable(tbl *Table, session string, opts IngestOptions) error {
	log := logging.Component("ingest")

	if opts.TimeColumn == "" {
		opts.TimeColumn = config.DefaultTimeColumn
	}

	if opts.Format != "" {
		conv, err := Lookup(opts.Format)
		if err != nil {
			return err
		}
		if err := conv.Convert(tbl); err != nil {
			return errors.Wrapf(err, "convert format '%s'", opts.Format)
		}
	}

	times, err := tbl.Float(opts.TimeColumn)
	if err != nil {
		return errors.Wrapf(err, "time column '%s'", opts.TimeColumn)
	}

	sess, err := s.store.Session(session)
	if err != nil {
		if !opts.Create || !errors.Is(err, errors.ErrSessionNotFound) {
			return err
		}
		if sess, err = s.CreateSession(session); err != nil {
			return err
		}
	}

	batch := make([]wal.Entry, 0, journalBatchSize)
	channels := 0

	for _, name := range tbl.Columns() {
		if name == opts.TimeColumn {
			continue
		}

		vals, err := tbl.Float(name)
		if err != nil {
			log.Warn("skipping non-numeric column", "session", session, "column", name, "error", err)
			continue
		}

		for i, t := range times {
			if series.IsMissing(vals[i]) {
				continue
			}
			batch = append(batch, wal.Entry{
				Op:      wal.OpAppend,
				Session: session,
				Channel: name,
				Time:    t,
				Values:  []float64{vals[i]},
			})
			if len(batch) == journalBatchSize {
				if err := s.journalEntries(batch); err != nil {
					return err
				}
				batch = batch[:0]
			}
		}
		channels++
	}
	if err := s.journalEntries(batch); err != nil {
		return err
	}

	// Apply after journaling so a replay reproduces exactly this state.
	for _, name := range tbl.Columns() {
		if name == opts.TimeColumn {
			continue
		}
		vals, err := tbl.Float(name)
		if err != nil {
			continue
		}
		for i, t := range times {
			if series.IsMissing(vals[i]) {
				continue
			}
			if err := sess.AddSample(name, t, vals[i]); err != nil {
				return errors.Wrapf(err, "session '%s'", session)
			}
		}
	}

	log.Info("table ingested",
		"session", session,
		"rows", tbl.Len(),
		"channels", channels,
		"format", opts.Format)
	return nil
}

// GuessFormat infers a converter name from the file extension; returns ""
// when nothing matches.
func GuessFormat(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if _, err := Lookup(ext); err == nil {
		return ext
	}
	return ""
}

func (s *Service) journalEntries(entries []wal.Entry) error {
	if s.journal == nil || len(entries) == 0 {
		return nil
	}
	return s.journal.Write(entries)
}

// Recover replays journal segments from dir into the store, rebuilding the
// sessions that were open or just sealed when the process stopped. Entries
// for sessions that already exist sealed are skipped.
func Recover(st *store.Store, dir string) (int, error) {
	log := logging.Component("ingest")

	paths, err := wal.ListSegments(dir)
	if err != nil {
		return 0, errors.Wrap(err, "list journal segments")
	}
	if len(paths) == 0 {
		return 0, nil
	}

	entries, err := wal.ReadAllSegments(paths)
	if err != nil {
		return 0, errors.Wrap(err, "replay journal")
	}

	applied := 0
	for _, e := range entries {
		switch e.Op {
		case wal.OpCreate:
			if _, err := st.CreateSession(e.Session); err != nil {
				if errors.Is(err, errors.ErrSessionExists) {
					continue
				}
				return applied, err
			}

		case wal.OpAppend:
			sess, err := st.Session(e.Session)
			if err != nil {
				// Journal was truncated before the create record; the
				// sample cannot be placed.
				log.Warn("orphan append in journal", "session", e.Session, "channel", e.Channel)
				continue
			}
			if sess.Sealed() {
				continue
			}
			if err := sess.AddSample(e.Channel, e.Time, e.Values...); err != nil {
				if errors.Is(err, errors.ErrOutOfOrder) {
					// Duplicate replay of an already applied record.
					continue
				}
				return applied, err
			}

		case wal.OpSeal:
			sess, err := st.Session(e.Session)
			if err != nil || sess.Sealed() {
				continue
			}
			if err := st.Seal(e.Session); err != nil {
				return applied, err
			}

		default:
			return applied, errors.Wrapf(errors.ErrCorruptRecord, "unknown op %d", e.Op)
		}
		applied++
	}

	log.Info("journal replayed", "segments", len(paths), "entries", len(entries), "applied", applied)
	return applied, nil
}
