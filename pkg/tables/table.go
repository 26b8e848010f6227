// Package tables binds Glide big tables and sends row mutations to them.
package tables

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ajitpratap0/glidetables/pkg/batch"
	"github.com/ajitpratap0/glidetables/pkg/clients"
	"github.com/ajitpratap0/glidetables/pkg/config"
	"github.com/ajitpratap0/glidetables/pkg/metrics"
	"github.com/ajitpratap0/glidetables/pkg/observability"
	"github.com/ajitpratap0/glidetables/pkg/response"
	"github.com/ajitpratap0/glidetables/pkg/schema"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Transport is the HTTP surface a table needs. *clients.HTTPClient implements it.
type Transport interface {
	Get(ctx context.Context, path string) (*clients.Response, error)
	Post(ctx context.Context, path string, body interface{}) (*clients.Response, error)
	Put(ctx context.Context, path string, body interface{}) (*clients.Response, error)
}

// Props identifies a table and describes its columns
type Props struct {
	ID      string
	Name    string
	Columns schema.Columns
}

// BigTable is a handle on one backend table. Its NameMap is built once in New
// and shared read-only by every operation, so a BigTable is safe for concurrent use.
type BigTable struct {
	props     Props
	names     schema.NameMap
	transport Transport

	maxMutations int
	concurrency  int
	logger       *zap.Logger
	tracer       trace.Tracer
}

// Option configures a BigTable
type Option func(*BigTable)

// WithMaxMutations sets the maximum rows per request
func WithMaxMutations(n int) Option {
	return func(t *BigTable) { t.maxMutations = n }
}

// WithConcurrency sets how many chunk requests may be in flight
func WithConcurrency(n int) Option {
	return func(t *BigTable) { t.concurrency = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(t *BigTable) { t.logger = l }
}

// WithTracer sets the tracer used for operation and chunk spans
func WithTracer(tr trace.Tracer) Option {
	return func(t *BigTable) { t.tracer = tr }
}

// New binds a table. The column schema is flattened here and never again.
func New(props Props, transport Transport, opts ...Option) *BigTable {
	t := &BigTable{
		props:        props,
		names:        schema.Build(props.Columns),
		transport:    transport,
		maxMutations: config.DefaultMaxMutations,
		concurrency:  1,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = zap.NewNop()
	}
	if t.tracer == nil {
		t.tracer = observability.Tracer()
	}
	t.logger = t.logger.With(
		zap.String("component", "big_table"),
		zap.String("table", props.ID))
	return t
}

// ID returns the backend table ID
func (t *BigTable) ID() string { return t.props.ID }

// Name returns the display name
func (t *BigTable) Name() string { return t.props.Name }

// Columns returns the column schema the table was bound with
func (t *BigTable) Columns() schema.Columns { return t.props.Columns }

// NameMap returns the display to storage name table
func (t *BigTable) NameMap() schema.NameMap { return t.names }

// MaxMutations returns the maximum rows per request
func (t *BigTable) MaxMutations() int { return t.maxMutations }

// AddRows appends rows to the table, one request per chunk.
// The returned IDs line up with rows. Calling it twice adds the rows twice.
func (t *BigTable) AddRows(ctx context.Context, rows []schema.Row) ([]string, error) {
	return t.mutate(ctx, metrics.OpAdd, rows, t.transport.Post, t.rowsPath())
}

// Add appends a single row and returns its ID
func (t *BigTable) Add(ctx context.Context, row schema.Row) (string, error) {
	return batch.One(t.AddRows(ctx, []schema.Row{row}))
}

// OverwriteRows sends rows as table replacements, one PUT per chunk
func (t *BigTable) OverwriteRows(ctx context.Context, rows []schema.Row) ([]string, error) {
	return t.mutate(ctx, metrics.OpOverwrite, rows, t.transport.Put, t.tablePath()+"/")
}

// Overwrite sends a single row and returns its ID
func (t *BigTable) Overwrite(ctx context.Context, row schema.Row) (string, error) {
	return batch.One(t.OverwriteRows(ctx, []schema.Row{row}))
}

// CreateStash starts a staged upload bound to this table
func (t *BigTable) CreateStash() *Stash {
	return newStash(uuid.NewString(), t)
}

// AddStash commits a stash by appending its rows
func (t *BigTable) AddStash(ctx context.Context, stash *Stash) ([]string, error) {
	return t.commit(ctx, "glidetables.AddStash", t.rowsPath(), stash)
}

// OverwriteStash commits a stash by replacing the table's rows
func (t *BigTable) OverwriteStash(ctx context.Context, stash *Stash) ([]string, error) {
	return t.commit(ctx, "glidetables.OverwriteStash", t.tablePath(), stash)
}

type sendFunc func(ctx context.Context, path string, body interface{}) (*clients.Response, error)

func (t *BigTable) mutate(ctx context.Context, op string, rows []schema.Row, send sendFunc, path string) (ids []string, err error) {
	ctx, span := t.tracer.Start(ctx, "glidetables."+op,
		trace.WithAttributes(
			attribute.String("glide.table", t.props.ID),
			attribute.Int("glide.rows", len(rows))))
	defer func() { observability.End(span, err) }()

	translated := t.names.Translate(rows)

	d := batch.Dispatcher{
		ChunkSize:   t.maxMutations,
		Concurrency: t.concurrency,
		Operation:   op,
		Logger:      t.logger,
	}
	return d.Dispatch(ctx, translated, func(ctx context.Context, i int, chunk []schema.Row) (chunkIDs []string, err error) {
		ctx, span := t.tracer.Start(ctx, "glidetables.chunk",
			trace.WithAttributes(
				attribute.Int("glide.chunk", i),
				attribute.Int("glide.rows", len(chunk))))
		defer func() { observability.End(span, err) }()

		resp, err := send(ctx, path, chunk)
		if err != nil {
			return nil, err
		}
		return response.RowIDs(resp)
	})
}

func (t *BigTable) commit(ctx context.Context, spanName, path string, stash *Stash) (ids []string, err error) {
	ctx, span := t.tracer.Start(ctx, spanName,
		trace.WithAttributes(
			attribute.String("glide.table", t.props.ID),
			attribute.String("glide.stash", stash.ID())))
	defer func() { observability.End(span, err) }()

	resp, err := t.transport.Post(ctx, path, StashRef(stash.ID()))
	if err != nil {
		return nil, err
	}
	ids, err = response.RowIDs(resp)
	if err != nil {
		return nil, err
	}

	metrics.RowsMutated.WithLabelValues(metrics.OpStash).Add(float64(len(ids)))
	t.logger.Info("stash committed",
		zap.String("stash", stash.ID()),
		zap.Int64("parts", stash.Sequence()),
		zap.Int("rows", len(ids)))
	return ids, nil
}

func (t *BigTable) tablePath() string {
	return "/tables/" + url.PathEscape(t.props.ID)
}

func (t *BigTable) rowsPath() string {
	return t.tablePath() + "/rows"
}

// StashRef is the body that points a mutation at a stash
func StashRef(id string) map[string]string {
	return map[string]string{"$stashID": id}
}

// String implements fmt.Stringer
func (t *BigTable) String() string {
	return fmt.Sprintf("BigTable(%s %q)", t.props.ID, t.props.Name)
}
