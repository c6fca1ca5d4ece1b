package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	ferrors "github.com/framekit/framekit/internal/errors"
	"github.com/framekit/framekit/internal/frame"
	"github.com/framekit/framekit/pkg/types"

	_ "github.com/mattn/go-sqlite3"
)

// SQLSource turns a query result into records: the column names first, then
// one record per result row with every field rendered as text. NULL becomes
// the empty string.
type SQLSource struct {
	rows       *sql.Rows
	header     []string
	sentHeader bool
}

// NewSQLSource runs query on db and returns a source over its result. The
// caller must Close the source.
func NewSQLSource(ctx context.Context, db *sql.DB, query string, args ...interface{}) (*SQLSource, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ferrors.NewIngestError(ferrors.CodeParseError, "running source query", err)
	}
	header, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, ferrors.NewIngestError(ferrors.CodeParseError, "reading result columns", err)
	}
	return &SQLSource{rows: rows, header: header}, nil
}

// Next returns the header on the first call and result rows afterwards.
func (s *SQLSource) Next() ([]string, error) {
	if !s.sentHeader {
		s.sentHeader = true
		return s.header, nil
	}

	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}

	cells := make([]sql.NullString, len(s.header))
	dest := make([]interface{}, len(cells))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := s.rows.Scan(dest...); err != nil {
		return nil, err
	}

	rec := make([]string, len(cells))
	for i, c := range cells {
		if c.Valid {
			rec[i] = c.String
		}
	}
	return rec, nil
}

// Close releases the underlying result set.
func (s *SQLSource) Close() error {
	return s.rows.Close()
}

// OpenSQLite opens a SQLite database file read-only.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?mode=ro&_query_only=true")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return db, nil
}

// ReadQuery builds a frame from the result of query.
func ReadQuery(ctx context.Context, db *sql.DB, query string, kinds []types.Kind, args ...interface{}) (*frame.Frame, error) {
	src, err := NewSQLSource(ctx, db, query, args...)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return ReadFrom(src, kinds)
}
