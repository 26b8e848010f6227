// Package source produces rows for the CLI from files and databases.
package source

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ajitpratap0/glidetables/pkg/schema"
)

// RowSource yields rows one at a time. Next returns io.EOF after the last row.
type RowSource interface {
	Next(ctx context.Context) (schema.Row, error)
	Close() error
}

// Format names an input encoding
type Format string

const (
	// FormatLines is newline delimited JSON objects
	FormatLines Format = "lines"
	// FormatArray is a single JSON array of objects
	FormatArray Format = "array"
	// FormatCSV is CSV with a header row
	FormatCSV Format = "csv"
)

// ParseFormat accepts the CLI spellings of each format
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "lines", "jsonl", "ndjson":
		return FormatLines, nil
	case "array", "json":
		return FormatArray, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown input format %q", s)
	}
}

// Open returns the file source for format
func Open(r io.Reader, format Format) (RowSource, error) {
	switch format {
	case FormatLines, FormatArray:
		return NewJSONSource(r, format), nil
	case FormatCSV:
		return NewCSVSource(r), nil
	default:
		return nil, fmt.Errorf("unknown input format %q", format)
	}
}

// Batch reads up to size rows. It returns io.EOF only when no row was read.
func Batch(ctx context.Context, src RowSource, size int) ([]schema.Row, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	rows := make([]schema.Row, 0, size)
	for len(rows) < size {
		row, err := src.Next(ctx)
		if err == io.EOF {
			if len(rows) == 0 {
				return nil, io.EOF
			}
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadAll drains src
func ReadAll(ctx context.Context, src RowSource) ([]schema.Row, error) {
	var rows []schema.Row
	for {
		row, err := src.Next(ctx)
		if err == io.EOF {
			if rows == nil {
				rows = []schema.Row{}
			}
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}
