package batch

import (
	"context"
	"fmt"
	"sync"

	"github.com/ajitpratap0/glidetables/pkg/errors"
	"github.com/ajitpratap0/glidetables/pkg/metrics"
	"github.com/ajitpratap0/glidetables/pkg/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Sink sends one chunk and returns the row IDs the server assigned to it
type Sink func(ctx context.Context, chunkIndex int, chunk []schema.Row) ([]string, error)

// Dispatcher sends rows in chunks of at most ChunkSize.
//
// Chunks start in input order and results are concatenated in chunk order,
// whatever order the requests complete in. The first failure stops the
// dispatch: chunks that have not started are never sent, and chunks that
// already succeeded are not rolled back.
type Dispatcher struct {
	// ChunkSize is the maximum number of rows per sink call
	ChunkSize int
	// Concurrency is the number of sink calls in flight; 0 or 1 is sequential
	Concurrency int
	// Operation labels metrics and logs (add, overwrite, create)
	Operation string
	Logger    *zap.Logger
}

// Dispatch sends rows through sink and returns the concatenated row IDs.
// An empty input returns an empty, non-nil slice without calling sink.
func (d Dispatcher) Dispatch(ctx context.Context, rows []schema.Row, sink Sink) ([]string, error) {
	if d.ChunkSize < 1 {
		return nil, errors.New(errors.ErrorTypeConfig, "chunk size must be positive").
			WithDetail("chunk_size", d.ChunkSize)
	}

	chunks := Chunks(rows, d.ChunkSize)
	if len(chunks) == 0 {
		return []string{}, nil
	}

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(
		zap.String("component", "dispatcher"),
		zap.String("operation", d.Operation),
		zap.Int("rows", len(rows)),
		zap.Int("chunks", len(chunks)))

	r := &run{
		op:      d.Operation,
		logger:  logger,
		chunks:  chunks,
		results: make([][]string, len(chunks)),
		sink:    sink,
	}

	var err error
	if d.Concurrency <= 1 {
		err = r.sequential(ctx)
	} else {
		err = r.concurrent(ctx, d.Concurrency)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, chunkIDs := range r.results {
		ids = append(ids, chunkIDs...)
	}
	logger.Debug("dispatch completed", zap.Int("ids", len(ids)))
	return ids, nil
}

// run holds the state of one Dispatch call
type run struct {
	op      string
	logger  *zap.Logger
	chunks  [][]schema.Row
	results [][]string
	sink    Sink

	mu        sync.Mutex
	succeeded int
	failures  int
	failedAt  int
	cause     error
}

func (r *run) sequential(ctx context.Context) error {
	for i := range r.chunks {
		if err := ctx.Err(); err != nil {
			r.fail(i, err)
			break
		}
		if err := r.send(ctx, i); err != nil {
			break
		}
	}
	return r.err()
}

func (r *run) concurrent(ctx context.Context, limit int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range r.chunks {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			// Go may have blocked on the limit while another chunk failed
			if gctx.Err() != nil {
				return nil
			}
			return r.send(gctx, i)
		})
	}
	_ = g.Wait()

	// the parent context may have been canceled before any chunk failed
	if err := ctx.Err(); err != nil && r.succeeded < len(r.chunks) {
		r.fail(r.succeeded, err)
	}
	return r.err()
}

// send calls the sink for chunk i and records the outcome
func (r *run) send(ctx context.Context, i int) error {
	chunk := r.chunks[i]
	r.logger.Debug("dispatching chunk", zap.Int("chunk", i), zap.Int("size", len(chunk)))

	ids, err := r.sink(ctx, i, chunk)
	if err != nil {
		metrics.ChunksDispatched.WithLabelValues(r.op, metrics.ResultFailure).Inc()
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()
		r.fail(i, err)
		return err
	}

	metrics.ChunksDispatched.WithLabelValues(r.op, metrics.ResultSuccess).Inc()
	metrics.RowsMutated.WithLabelValues(r.op).Add(float64(len(ids)))

	r.mu.Lock()
	r.results[i] = ids
	r.succeeded++
	r.mu.Unlock()
	return nil
}

// fail records the first failure only
func (r *run) fail(i int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cause == nil {
		r.cause = err
		r.failedAt = i
	}
}

func (r *run) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cause == nil {
		return nil
	}

	total := len(r.chunks)
	skipped := total - r.succeeded - r.failures
	if skipped > 0 {
		metrics.ChunksDispatched.WithLabelValues(r.op, metrics.ResultSkipped).Add(float64(skipped))
	}

	r.logger.Warn("dispatch failed",
		zap.Int("chunk", r.failedAt),
		zap.Int("succeeded", r.succeeded),
		zap.Error(r.cause))

	return errors.Wrap(r.cause, errors.ErrorTypePartialBatch,
		fmt.Sprintf("chunk %d of %d failed", r.failedAt+1, total)).
		WithDetail("chunk", r.failedAt).
		WithDetail("chunks", total).
		WithDetail("succeeded", r.succeeded)
}
