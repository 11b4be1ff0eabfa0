// Package ingest parses delimited telemetry files, applies format
// converters, and feeds the resulting channels into sessions through the
// write-ahead journal.
package ingest

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/xtxerr/trackside/config"
	"github.com/xtxerr/trackside/internal/errors"
)

// ReadOptions configures the delimited-file parser.
type ReadOptions struct {
	// Separator splits a line into cells.
	Separator string

	// CommentPrefix marks lines to skip entirely.
	CommentPrefix string

	// DecimalComma parses "3,14" as 3.14.
	DecimalComma bool
}

// DefaultReadOptions returns parser options matching the common logger
// export format.
func DefaultReadOptions() ReadOptions {
	return ReadOptions{
		Separator:     config.DefaultSeparator,
		CommentPrefix: config.DefaultCommentPrefix,
		DecimalComma:  config.DefaultDecimalComma,
	}
}

// ReadFile parses a delimited telemetry file from disk.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open '%s'", path)
	}
	defer f.Close()

	tbl, err := Read(f, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "parse '%s'", path)
	}
	return tbl, nil
}

// Read parses a delimited telemetry stream. The first non-comment,
// non-empty line is the header; every following line is a data row.
func Read(r io.Reader, opts ReadOptions) (*Table, error) {
	if opts.Separator == "" {
		opts.Separator = config.DefaultSeparator
	}

	tbl := NewTable(opts.DecimalComma)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	header := false
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		if opts.CommentPrefix != "" && strings.HasPrefix(text, opts.CommentPrefix) {
			continue
		}

		cells := strings.Split(text, opts.Separator)
		for i := range cells {
			cells[i] = strings.TrimSpace(cells[i])
		}

		if !header {
			// Trailing separators produce empty header cells; drop them.
			for len(cells) > 0 && cells[len(cells)-1] == "" {
				cells = cells[:len(cells)-1]
			}
			if len(cells) == 0 {
				return nil, errors.Wrapf(errors.ErrCorruptRecord, "line %d: empty header", line)
			}
			tbl.setHeader(cells)
			header = true
			continue
		}

		tbl.addRow(cells)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read input")
	}
	if !header {
		return nil, errors.Wrap(errors.ErrCorruptRecord, "no header row found")
	}

	return tbl, nil
}
