package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gosimple/slug"
	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/series"
	"github.com/xtxerr/trackside/internal/store"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// CompressionLevel for algorithms that support it (zstd: 1-22)
	CompressionLevel int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:      CompressionZstd,
		CompressionLevel: 3,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// ChannelRow is one sample component in Parquet format.
type ChannelRow struct {
	Session   string  `parquet:"session,zstd"`
	SessionID string  `parquet:"session_id,zstd"`
	Channel   string  `parquet:"channel,zstd"`
	Component int32   `parquet:"component"`
	Time      float64 `parquet:"time"`
	Value     float64 `parquet:"value"`
}

// FileName derives the archive file name for a session: the slugged session
// name plus a short UUID suffix to keep re-archived sessions distinct.
func FileName(sessionName, sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s-%s.parquet", slug.Make(sessionName), short)
}

// Writer writes channel rows to a Parquet file.
type Writer struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[ChannelRow]
	rowCount int64
	closed   bool
}

// NewWriter creates a channel-row Parquet writer.
func NewWriter(path string, opts Options) (*Writer, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writer := parquet.NewGenericWriter[ChannelRow](f,
		parquet.Compression(getCompression(opts.Compression)))

	return &Writer{
		path:   path,
		file:   f,
		writer: writer,
	}, nil
}

// WriteRows writes raw channel rows.
func (w *Writer) WriteRows(rows []ChannelRow) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrWriterClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// WriteSession writes every channel of a sealed session.
func (w *Writer) WriteSession(sess *store.Session) error {
	names, err := sess.Channels()
	if err != nil {
		return err
	}

	for _, name := range names {
		ch, err := sess.Channel(name)
		if err != nil {
			return err
		}
		if err := w.writeChannel(sess.Name(), sess.ID(), ch); err != nil {
			return err
		}
	}
	return nil
}

// writeChannel writes one channel, component-major so rows for one component
// stay contiguous and compress well.
func (w *Writer) writeChannel(session, sessionID string, ch *series.Channel) error {
	ts := ch.Times()
	rows := make([]ChannelRow, 0, len(ts))

	for j := 0; j < ch.Width(); j++ {
		rows = rows[:0]
		comp := ch.Component(j)
		for i, t := range ts {
			rows = append(rows, ChannelRow{
				Session:   session,
				SessionID: sessionID,
				Channel:   ch.Name(),
				Component: int32(j),
				Time:      t,
				Value:     comp[i],
			})
		}
		if err := w.WriteRows(rows); err != nil {
			return fmt.Errorf("channel '%s' component %d: %w", ch.Name(), j, err)
		}
	}
	return nil
}

// WriteDataset writes every column of a merged dataset. Missing markers are
// skipped: absence of a row is the archive's missing representation.
func (w *Writer) WriteDataset(label string, ds *series.Dataset) error {
	times := ds.Times()
	rows := make([]ChannelRow, 0, len(times))

	for _, name := range ds.Channels() {
		col, err := ds.Column(name)
		if err != nil {
			return err
		}
		for j := 0; j < col.Width(); j++ {
			rows = rows[:0]
			comp := col.Component(j)
			for i, t := range times {
				if series.IsMissing(comp[i]) {
					continue
				}
				rows = append(rows, ChannelRow{
					Session:   col.Session,
					SessionID: label,
					Channel:   name,
					Component: int32(j),
					Time:      t,
					Value:     comp[i],
				})
			}
			if err := w.WriteRows(rows); err != nil {
				return fmt.Errorf("dataset column '%s' component %d: %w", name, j, err)
			}
		}
	}
	return nil
}

// Close closes the writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *Writer) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *Writer) Path() string {
	return w.path
}

// ArchiveSession writes a sealed session to dir using the derived file name
// and returns the file path.
func ArchiveSession(dir string, sess *store.Session, opts Options) (string, error) {
	path := filepath.Join(dir, FileName(sess.Name(), sess.ID()))

	w, err := NewWriter(path, opts)
	if err != nil {
		return "", err
	}
	if err := w.WriteSession(sess); err != nil {
		w.Close()
		os.Remove(path)
		return "", err
	}
	if err := w.Close(); err != nil {
		return "", err
	}
	return path, nil
}
