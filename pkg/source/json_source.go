package source

import (
	"context"
	"fmt"
	"io"

	"github.com/ajitpratap0/glidetables/pkg/json"
	"github.com/ajitpratap0/glidetables/pkg/schema"
	gojson "github.com/goccy/go-json"
)

// JSONSource reads objects from a JSON array or from newline delimited JSON.
// Numbers are kept as json.Number so large integers survive the round trip.
type JSONSource struct {
	reader  io.Reader
	decoder *gojson.Decoder
	format  Format
	started bool
	done    bool
	index   int
}

// NewJSONSource creates a source for format (FormatArray or FormatLines)
func NewJSONSource(r io.Reader, format Format) *JSONSource {
	if format != FormatArray {
		format = FormatLines
	}
	return &JSONSource{
		reader:  r,
		decoder: json.NewDecoder(r),
		format:  format,
	}
}

// Next returns the next object
func (s *JSONSource) Next(ctx context.Context) (schema.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.done {
		return nil, io.EOF
	}

	if s.format == FormatArray && !s.started {
		token, err := s.decoder.Token()
		if err == io.EOF {
			s.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON array start: %w", err)
		}
		if delim, ok := token.(gojson.Delim); !ok || delim != '[' {
			return nil, fmt.Errorf("expected JSON array, got %v", token)
		}
		s.started = true
	}

	if !s.decoder.More() {
		if s.format == FormatArray {
			if _, err := s.decoder.Token(); err != nil {
				return nil, fmt.Errorf("failed to read JSON array end: %w", err)
			}
		}
		s.done = true
		return nil, io.EOF
	}

	var row schema.Row
	if err := s.decoder.Decode(&row); err != nil {
		return nil, fmt.Errorf("record %d: %w", s.index, err)
	}
	s.index++
	if row == nil {
		return nil, fmt.Errorf("record %d: expected an object", s.index-1)
	}
	return row, nil
}

// Close closes the reader when it is an io.Closer
func (s *JSONSource) Close() error {
	if c, ok := s.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
