package query

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/trackside/internal/errors"
)

// SQLService provides SQL query capabilities over archived sessions.
// It uses DuckDB to read the Parquet archive directly.
type SQLService struct {
	mu sync.RWMutex

	archiveDir string
	db         *sql.DB

	queries atomic.Int64
	rows    atomic.Int64
	errs    atomic.Int64
}

// SQLStats holds query statistics.
type SQLStats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// Point is one (time, value) pair returned by a channel query.
type Point struct {
	Time  float64
	Value float64
}

// NewSQLService opens an in-memory DuckDB database over the archive
// directory.
func NewSQLService(archiveDir, memoryLimit string) (*SQLService, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, fmt.Sprintf("open duckdb: %v", err))
	}

	if memoryLimit != "" {
		if _, err := db.Exec(fmt.Sprintf("SET memory_limit='%s'", memoryLimit)); err != nil {
			db.Close()
			return nil, errors.Wrap(errors.ErrDatabase, fmt.Sprintf("set memory limit: %v", err))
		}
	}

	return &SQLService{
		archiveDir: archiveDir,
		db:         db,
	}, nil
}

// Close closes the SQL service.
func (s *SQLService) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// pattern returns the glob matching all archive files.
func (s *SQLService) pattern() string {
	return filepath.Join(s.archiveDir, "*.parquet")
}

// QueryChannel returns the archived points of one session channel component
// inside [t0, t1], ordered by time.
func (s *SQLService) QueryChannel(ctx context.Context, session, channel string, component int, t0, t1 float64) ([]Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT time, value
		FROM read_parquet($1)
		WHERE session = $2
		  AND channel = $3
		  AND component = $4
		  AND time >= $5
		  AND time <= $6
		ORDER BY time
	`

	rows, err := s.db.QueryContext(ctx, query, s.pattern(), session, channel, component, t0, t1)
	if err != nil {
		// No archive files yet: empty result, not an error.
		return nil, nil
	}
	defer rows.Close()

	var points []Point
	for rows.Next() {
		var p Point
		if err := rows.Scan(&p.Time, &p.Value); err != nil {
			s.countError()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		s.countError()
		return nil, err
	}

	s.count(int64(len(points)))
	return points, nil
}

// ArchivedSessions lists the distinct session names present in the archive.
func (s *SQLService) ArchivedSessions(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT session FROM read_parquet($1) ORDER BY session`, s.pattern())
	if err != nil {
		return nil, nil
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			s.countError()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		s.countError()
		return nil, err
	}

	s.count(int64(len(names)))
	return names, nil
}

// ExecuteSQL executes a raw SQL query using DuckDB.
// This is useful for ad-hoc queries from the shell.
func (s *SQLService) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.countError()
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	s.count(int64(len(results)))
	return results, rows.Err()
}

// Stats returns query statistics.
func (s *SQLService) Stats() SQLStats {
	return SQLStats{
		QueriesExecuted: s.queries.Load(),
		RowsReturned:    s.rows.Load(),
		Errors:          s.errs.Load(),
	}
}

func (s *SQLService) count(rows int64) {
	s.queries.Add(1)
	s.rows.Add(rows)
}

func (s *SQLService) countError() {
	s.errs.Add(1)
}
