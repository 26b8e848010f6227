// Package batch splits row mutations into requests the server will accept
// and dispatches them with fail-fast semantics.
package batch

import (
	"github.com/ajitpratap0/glidetables/pkg/errors"
)

// Chunks splits items into ceil(len/size) contiguous chunks in input order.
// Chunks are views into items, capped so that appending to one never touches the next.
// It returns nil when size < 1.
func Chunks[T any](items []T, size int) [][]T {
	if size < 1 {
		return nil
	}
	n := len(items) / size
	if len(items)%size != 0 {
		n++
	}
	chunks := make([][]T, 0, n)
	for start := 0; start < len(items); start += size {
		end := len(items)
		if size < end-start {
			end = start + size
		}
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// One unwraps the result of a single-row call
func One[T any](items []T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if len(items) != 1 {
		return zero, errors.Newf(errors.ErrorTypeData, "expected exactly one result, got %d", len(items)).
			WithDetail("results", len(items))
	}
	return items[0], nil
}
