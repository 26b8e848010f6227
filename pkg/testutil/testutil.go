// Package testutil provides testing utilities for glidetables
package testutil

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/glidetables/pkg/json"
	"github.com/ajitpratap0/glidetables/pkg/schema"
)

// TestLogger creates a test logger that writes to the test output.
func TestLogger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestContext creates a test context with a 30-second timeout that is
// canceled when the test completes.
func TestContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// People returns n rows keyed by the display names of PeopleColumns
func People(n int) []schema.Row {
	rows := make([]schema.Row, n)
	for i := range rows {
		rows[i] = schema.Row{
			"First Name": fmt.Sprintf("Person_%d", i),
			"Age":        20 + i%50,
			"Email":      nil,
		}
	}
	return rows
}

// PeopleColumns is the schema People rows are written against
func PeopleColumns() schema.Columns {
	return schema.Columns{
		"First Name": schema.Alias("first_name", "string"),
		"Age":        schema.Ident("number"),
		"Email":      schema.Alias("email", "emailAddress"),
	}
}

// WriteRows writes rows to dir/name as JSON lines, or as CSV when name ends in
// .csv, and returns the path.
func WriteRows(t *testing.T, dir, name string, rows []schema.Row) string {
	t.Helper()

	path := filepath.Join(dir, name)
	file, err := os.Create(path) //nolint:gosec // G304: test path
	require.NoError(t, err)
	defer file.Close()

	if filepath.Ext(name) != ".csv" {
		enc := json.NewEncoder(file)
		for _, row := range rows {
			require.NoError(t, enc.Encode(row))
		}
		return path
	}

	seen := map[string]bool{}
	var names []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)

	w := csv.NewWriter(file)
	require.NoError(t, w.Write(names))
	for _, row := range rows {
		record := make([]string, len(names))
		for i, n := range names {
			if v := row[n]; v != nil {
				record[i] = fmt.Sprint(v)
			}
		}
		require.NoError(t, w.Write(record))
	}
	w.Flush()
	require.NoError(t, w.Error())
	return path
}
