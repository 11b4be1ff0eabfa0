package archive

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/trackside/internal/errors"
	"github.com/xtxerr/trackside/internal/store"
)

// Reader reads channel rows from a Parquet archive file.
type Reader struct {
	file   *os.File
	reader *parquet.GenericReader[ChannelRow]
	path   string
}

// NewReader creates a channel-row Parquet reader.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	reader := parquet.NewGenericReader[ChannelRow](f)

	return &Reader{
		file:   f,
		reader: reader,
		path:   path,
	}, nil
}

// Read reads up to n rows from the file.
func (r *Reader) Read(n int) ([]ChannelRow, error) {
	rows := make([]ChannelRow, n)
	count, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:count], nil
}

// ReadAll reads all rows from the file.
func (r *Reader) ReadAll() ([]ChannelRow, error) {
	numRows := r.reader.NumRows()
	rows := make([]ChannelRow, numRows)

	n, err := r.reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return rows[:n], nil
}

// NumRows returns the total number of rows in the file.
func (r *Reader) NumRows() int64 {
	return r.reader.NumRows()
}

// Close closes the reader.
func (r *Reader) Close() error {
	if err := r.reader.Close(); err != nil {
		r.file.Close()
		return err
	}
	return r.file.Close()
}

// Path returns the file path.
func (r *Reader) Path() string {
	return r.path
}

// RestoreSession replays an archived session file into the store and seals
// it. Row order within a file is component-major per channel with strictly
// increasing timestamps, matching what WriteSession produced.
func RestoreSession(st *store.Store, path string) (*store.Session, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read archive %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("archive %s: no rows", path)
	}

	// Regroup component-major rows into per-channel sample vectors.
	type column struct {
		times []float64
		comps map[int32][]float64
		width int32
	}
	channels := make(map[string]*column)
	var order []string

	for _, row := range rows {
		col, ok := channels[row.Channel]
		if !ok {
			col = &column{comps: make(map[int32][]float64)}
			channels[row.Channel] = col
			order = append(order, row.Channel)
		}
		if row.Component == 0 {
			col.times = append(col.times, row.Time)
		}
		col.comps[row.Component] = append(col.comps[row.Component], row.Value)
		if row.Component >= col.width {
			col.width = row.Component + 1
		}
	}

	// A well-formed archive carries one row per (component, sample), so every
	// component slice must line up with the channel's timestamps. Anything
	// else is a truncated or hand-damaged file.
	for _, name := range order {
		col := channels[name]
		for j := int32(0); j < col.width; j++ {
			if len(col.comps[j]) != len(col.times) {
				return nil, errors.Wrapf(errors.ErrCorruptRecord,
					"archive %s: channel '%s' component %d has %d rows, want %d",
					path, name, j, len(col.comps[j]), len(col.times))
			}
		}
	}

	sess, err := st.CreateSession(rows[0].Session)
	if err != nil {
		return nil, err
	}

	for _, name := range order {
		col := channels[name]
		values := make([]float64, col.width)
		for i, t := range col.times {
			for j := int32(0); j < col.width; j++ {
				values[j] = col.comps[j][i]
			}
			if err := sess.AddSample(name, t, values...); err != nil {
				st.Drop(sess.Name())
				return nil, fmt.Errorf("restore channel '%s': %w", name, err)
			}
		}
	}

	if err := sess.Seal(); err != nil {
		st.Drop(sess.Name())
		return nil, err
	}
	return sess, nil
}
