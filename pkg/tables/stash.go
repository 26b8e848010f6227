package tables

import (
	"context"
	"fmt"
	"net/url"
	"sync/atomic"

	"github.com/ajitpratap0/glidetables/pkg/errors"
	"github.com/ajitpratap0/glidetables/pkg/metrics"
	"github.com/ajitpratap0/glidetables/pkg/observability"
	"github.com/ajitpratap0/glidetables/pkg/response"
	"github.com/ajitpratap0/glidetables/pkg/schema"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Stash is a staged upload: rows are appended in numbered parts and then
// committed to the table in one mutation.
//
// Part numbers start at 0 and are taken before each request is sent, so they
// are gap free and ordered by call order even when appends run concurrently.
// A number is never reused, including after a failed append. Appending after a
// commit is not supported.
type Stash struct {
	id    string
	table *BigTable
	seq   atomic.Int64
}

func newStash(id string, table *BigTable) *Stash {
	return &Stash{id: id, table: table}
}

// ID returns the stash ID
func (s *Stash) ID() string { return s.id }

// Table returns the table the stash commits to
func (s *Stash) Table() *BigTable { return s.table }

// Sequence returns the next part number to be issued
func (s *Stash) Sequence() int64 { return s.seq.Load() }

// Append uploads rows as the next part
func (s *Stash) Append(ctx context.Context, rows []schema.Row) (err error) {
	seq := s.seq.Add(1) - 1

	t := s.table
	ctx, span := t.tracer.Start(ctx, "glidetables.StashAppend",
		trace.WithAttributes(
			attribute.String("glide.stash", s.id),
			attribute.Int64("glide.sequence", seq),
			attribute.Int("glide.rows", len(rows))))
	defer func() {
		metrics.StashAppends.WithLabelValues(metrics.Result(err)).Inc()
		observability.End(span, err)
	}()

	path := fmt.Sprintf("/stashes/%s/%d", url.PathEscape(s.id), seq)
	resp, err := t.transport.Post(ctx, path, t.names.Translate(rows))
	if err != nil {
		return fmt.Errorf("stash %s part %d: %w", s.id, seq, err)
	}
	if err := response.Check(resp); err != nil {
		t.logger.Warn("stash append rejected",
			zap.String("stash", s.id),
			zap.Int64("sequence", seq),
			zap.Int("status", resp.StatusCode),
			zap.String("body", resp.Text()))
		return errors.Wrap(err, errors.ErrorTypeTransport, "error adding to stash").
			WithDetail("stash", s.id).
			WithDetail("sequence", seq)
	}

	t.logger.Debug("stash part uploaded",
		zap.String("stash", s.id),
		zap.Int64("sequence", seq),
		zap.Int("rows", len(rows)))
	return nil
}

// CommitAsInsert appends every uploaded row to the table
func (s *Stash) CommitAsInsert(ctx context.Context) ([]string, error) {
	return s.table.AddStash(ctx, s)
}

// CommitAsOverwrite replaces the table's rows with the uploaded rows
func (s *Stash) CommitAsOverwrite(ctx context.Context) ([]string, error) {
	return s.table.OverwriteStash(ctx, s)
}
