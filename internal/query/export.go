package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/xtxerr/trackside/internal/series"
)

// ExportCSV writes rows as CSV: a header line (time plus one column per
// channel component, vector components suffixed "[j]"), then one record per
// row. Missing values become empty fields so downstream tooling can tell
// "no data" from zero.
func ExportCSV(w io.Writer, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	// Stable column layout from the first row; all rows of one slice share
	// the same channel set.
	names := make([]string, 0, len(rows[0].Values))
	for name := range rows[0].Values {
		names = append(names, name)
	}
	sort.Strings(names)

	header := []string{"time"}
	for _, name := range names {
		width := len(rows[0].Values[name])
		if width == 1 {
			header = append(header, name)
			continue
		}
		for j := 0; j < width; j++ {
			header = append(header, fmt.Sprintf("%s[%d]", name, j))
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, 0, len(header))
	for _, row := range rows {
		record = record[:0]
		record = append(record, formatFloat(row.Time))
		for _, name := range names {
			for _, v := range row.Values[name] {
				if series.IsMissing(v) {
					record = append(record, "")
				} else {
					record = append(record, formatFloat(v))
				}
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
