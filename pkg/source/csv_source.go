package source

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ajitpratap0/glidetables/pkg/schema"
)

// CSVSource reads rows from CSV with a header row. Empty cells become nil.
type CSVSource struct {
	reader  io.Reader
	csv     *csv.Reader
	headers []string
	line    int
}

// NewCSVSource creates a CSV source
func NewCSVSource(r io.Reader) *CSVSource {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true
	return &CSVSource{reader: r, csv: cr}
}

// Headers returns the header row once the first row has been read
func (s *CSVSource) Headers() []string {
	return s.headers
}

// Next returns the next row
func (s *CSVSource) Next(ctx context.Context) (schema.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.headers == nil {
		record, err := s.csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("failed to read CSV header: %w", err)
		}
		s.headers = append([]string(nil), record...)
		s.line++
	}

	record, err := s.csv.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV line %d: %w", s.line+1, err)
	}
	s.line++

	row := make(schema.Row, len(s.headers))
	for i, h := range s.headers {
		if i >= len(record) || record[i] == "" {
			row[h] = nil
			continue
		}
		row[h] = record[i]
	}
	return row, nil
}

// Close closes the reader when it is an io.Closer
func (s *CSVSource) Close() error {
	if c, ok := s.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
