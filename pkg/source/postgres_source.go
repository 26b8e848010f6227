package source

import (
	"context"
	"database/sql/driver"
	"fmt"
	"io"
	"time"

	"github.com/ajitpratap0/glidetables/pkg/schema"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSource streams the result of a query. Column names come from the
// result's field descriptions, so aliases in the query become row keys.
type PostgresSource struct {
	pool    *pgxpool.Pool
	rows    pgx.Rows
	columns []string
}

// NewPostgresSource connects to dsn and runs query
func NewPostgresSource(ctx context.Context, dsn, query string, args ...interface{}) (*PostgresSource, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	rows, err := pool.Query(ctx, query, args...)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	src := NewPostgresRowsSource(rows)
	src.pool = pool
	return src, nil
}

// NewPostgresRowsSource wraps an open cursor. Close closes it.
func NewPostgresRowsSource(rows pgx.Rows) *PostgresSource {
	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}
	return &PostgresSource{rows: rows, columns: columns}
}

// Next returns the next result row
func (s *PostgresSource) Next(ctx context.Context) (schema.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.rows.Next() {
		if err := s.rows.Err(); err != nil {
			return nil, fmt.Errorf("query failed: %w", err)
		}
		return nil, io.EOF
	}

	values, err := s.rows.Values()
	if err != nil {
		return nil, fmt.Errorf("failed to read row values: %w", err)
	}

	row := make(schema.Row, len(s.columns))
	for i, col := range s.columns {
		if i < len(values) {
			row[col] = normalizeValue(values[i])
		}
	}
	return row, nil
}

// Close releases the cursor and the pool
func (s *PostgresSource) Close() error {
	s.rows.Close()
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// normalizeValue converts driver values into JSON friendly ones
func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(val)
	case [16]byte:
		return uuid.UUID(val).String()
	case string, bool, int, int8, int16, int32, int64, float32, float64:
		return val
	case driver.Valuer:
		out, err := val.Value()
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return normalizeValue(out)
	default:
		return val
	}
}
