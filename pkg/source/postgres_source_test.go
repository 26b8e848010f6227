package source

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows is an in-memory pgx.Rows
type fakeRows struct {
	fields []pgconn.FieldDescription
	values [][]interface{}
	pos    int
	err    error
	closed bool
}

func newFakeRows(columns []string, values ...[]interface{}) *fakeRows {
	fields := make([]pgconn.FieldDescription, len(columns))
	for i, c := range columns {
		fields[i] = pgconn.FieldDescription{Name: c}
	}
	return &fakeRows{fields: fields, values: values, pos: -1}
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }
func (r *fakeRows) Scan(dest ...interface{}) error               { return errors.New("not supported") }

func (r *fakeRows) Next() bool {
	if r.closed || r.pos+1 >= len(r.values) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Values() ([]interface{}, error) {
	return r.values[r.pos], nil
}

func TestPostgresRowsSource(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	rows := newFakeRows([]string{"Name", "Age", "Created", "ID", "Notes"},
		[]interface{}{"Alex", int32(30), created, [16]byte(id), nil},
		[]interface{}{"Sam", int64(41), created, [16]byte(id), []byte("hi")},
	)
	src := NewPostgresRowsSource(rows)

	got, err := ReadAll(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Alex", got[0]["Name"])
	assert.Equal(t, int32(30), got[0]["Age"])
	assert.Equal(t, "2024-03-01T12:30:00Z", got[0]["Created"])
	assert.Equal(t, id.String(), got[0]["ID"])
	assert.Nil(t, got[0]["Notes"])
	assert.Contains(t, got[0], "Notes")
	assert.Equal(t, "hi", got[1]["Notes"])

	require.NoError(t, src.Close())
	assert.True(t, rows.closed)
}

func TestPostgresRowsSourceError(t *testing.T) {
	rows := newFakeRows([]string{"a"})
	rows.err = errors.New("connection reset")

	_, err := NewPostgresRowsSource(rows).Next(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestPostgresRowsSourceEOF(t *testing.T) {
	_, err := NewPostgresRowsSource(newFakeRows([]string{"a"})).Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestNormalizeValueValuer(t *testing.T) {
	assert.Nil(t, normalizeValue(pgtype.Text{}))
	assert.Equal(t, "x", normalizeValue(pgtype.Text{String: "x", Valid: true}))
}

func TestNewPostgresSourceBadDSN(t *testing.T) {
	_, err := NewPostgresSource(context.Background(), "postgres://%zz@localhost/db", "SELECT 1")
	assert.Error(t, err)
}
