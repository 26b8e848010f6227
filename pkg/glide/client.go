// Package glide is the entry point for the Glide Big Tables API.
//
//	client, err := glide.New(config.NewDefaultConfig())
//	if err != nil {
//	    return err
//	}
//	table := client.BigTable(tables.Props{ID: "native-table-abc", Columns: cols})
//	ids, err := table.AddRows(ctx, rows)
package glide

import (
	"context"
	"os"

	"github.com/ajitpratap0/glidetables/pkg/clients"
	"github.com/ajitpratap0/glidetables/pkg/config"
	"github.com/ajitpratap0/glidetables/pkg/errors"
	"github.com/ajitpratap0/glidetables/pkg/metrics"
	"github.com/ajitpratap0/glidetables/pkg/observability"
	"github.com/ajitpratap0/glidetables/pkg/response"
	"github.com/ajitpratap0/glidetables/pkg/schema"
	"github.com/ajitpratap0/glidetables/pkg/tables"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// TokenEnv is read when the configuration carries no token
const TokenEnv = "GLIDE_TOKEN"

// Client talks to one Glide account
type Client struct {
	cfg    *config.Config
	http   *clients.HTTPClient
	logger *zap.Logger
	tracer trace.Tracer
}

// Option configures a Client
type Option func(*Client)

// WithToken overrides the bearer token
func WithToken(token string) Option {
	return func(c *Client) { c.cfg.Token = token }
}

// WithClientID sets the X-Glide-Client-ID header
func WithClientID(id string) Option {
	return func(c *Client) { c.cfg.ClientID = id }
}

// WithEndpoint overrides the function endpoint
func WithEndpoint(endpoint string) Option {
	return func(c *Client) { c.cfg.Endpoint = endpoint }
}

// WithEndpointREST overrides the REST endpoint
func WithEndpointREST(endpoint string) Option {
	return func(c *Client) { c.cfg.EndpointREST = endpoint }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTracer sets the tracer passed to every bound table
func WithTracer(tr trace.Tracer) Option {
	return func(c *Client) { c.tracer = tr }
}

// New builds a client. A nil cfg means the defaults.
// The token falls back to $GLIDE_TOKEN.
func New(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	c := &Client{cfg: cfg.Clone()}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.Token == "" {
		c.cfg.Token = os.Getenv(TokenEnv)
	}
	if err := c.cfg.Validate(); err != nil {
		return nil, err
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.tracer == nil {
		c.tracer = observability.Tracer()
	}

	c.http = clients.NewHTTPClient(clients.HTTPConfigFrom(c.cfg), c.logger)
	c.logger = c.logger.With(zap.String("component", "glide_client"))
	return c, nil
}

// With returns a copy of the client with opts applied on top
func (c *Client) With(opts ...Option) (*Client, error) {
	base := []Option{WithLogger(c.logger), WithTracer(c.tracer)}
	return New(c.cfg, append(base, opts...)...)
}

// Config returns a copy of the effective configuration
func (c *Client) Config() *config.Config {
	return c.cfg.Clone()
}

// HTTP returns the underlying transport
func (c *Client) HTTP() *clients.HTTPClient {
	return c.http
}

// Close releases idle connections
func (c *Client) Close() error {
	return c.http.Close()
}

// BigTable binds a table handle using the client's mutation settings
func (c *Client) BigTable(props tables.Props) *tables.BigTable {
	return tables.New(props, c.http,
		tables.WithMaxMutations(c.cfg.Mutations.MaxMutations),
		tables.WithConcurrency(c.cfg.Mutations.MaxConcurrency),
		tables.WithLogger(c.logger),
		tables.WithTracer(c.tracer))
}

type idName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GetBigTables lists the account's big tables. The handles have no column schema,
// so their rows are sent with the keys the caller uses.
func (c *Client) GetBigTables(ctx context.Context) ([]*tables.BigTable, error) {
	resp, err := c.http.Get(ctx, "/tables")
	if err != nil {
		return nil, err
	}

	var list []idName
	if err := response.Decode(resp, &list); err != nil {
		return nil, err
	}

	out := make([]*tables.BigTable, 0, len(list))
	for _, t := range list {
		out = append(out, c.BigTable(tables.Props{ID: t.ID, Name: t.Name, Columns: schema.Columns{}}))
	}
	return out, nil
}

// createRequest is the POST /tables body
type createRequest struct {
	Name   string       `json:"name"`
	Schema createSchema `json:"schema"`
	Rows   interface{}  `json:"rows"`
}

type createSchema struct {
	Columns []schema.APIColumn `json:"columns"`
}

type createResult struct {
	TableID string   `json:"tableId"`
	RowIDs  []string `json:"rowIDs"`
}

// CreateBigTable creates a table and inserts rows. The first chunk goes with the
// create call and the rest through AddRows on the new table.
// When a later chunk fails the table is still returned alongside the error.
func (c *Client) CreateBigTable(ctx context.Context, name string, cols schema.Columns, rows []schema.Row) (table *tables.BigTable, ids []string, err error) {
	ctx, span := c.tracer.Start(ctx, "glidetables.create",
		trace.WithAttributes(
			attribute.String("glide.table_name", name),
			attribute.Int("glide.rows", len(rows))))
	defer func() { observability.End(span, err) }()

	first := rows
	var rest []schema.Row
	if limit := c.cfg.Mutations.MaxMutations; len(rows) > limit {
		first, rest = rows[:limit], rows[limit:]
	}

	names := schema.Build(cols)
	result, err := c.create(ctx, name, cols, names.Translate(first))
	if err != nil {
		return nil, nil, err
	}
	metrics.RowsMutated.WithLabelValues(metrics.OpCreate).Add(float64(len(result.RowIDs)))

	table = c.BigTable(tables.Props{ID: result.TableID, Name: name, Columns: cols})
	c.logger.Info("table created",
		zap.String("table", result.TableID),
		zap.String("name", name),
		zap.Int("rows", len(rows)))

	ids = result.RowIDs
	if len(rest) == 0 {
		if ids == nil {
			ids = []string{}
		}
		return table, ids, nil
	}

	more, err := table.AddRows(ctx, rest)
	if err != nil {
		return table, nil, errors.Wrap(err, errors.ErrorTypePartialBatch, "table created but remaining rows failed").
			WithDetail("table", result.TableID)
	}
	return table, append(ids, more...), nil
}

// CreateBigTableFromStash creates a table whose rows come from a committed stash
func (c *Client) CreateBigTableFromStash(ctx context.Context, name string, cols schema.Columns, stash *tables.Stash) (table *tables.BigTable, ids []string, err error) {
	ctx, span := c.tracer.Start(ctx, "glidetables.create_from_stash",
		trace.WithAttributes(
			attribute.String("glide.table_name", name),
			attribute.String("glide.stash", stash.ID())))
	defer func() { observability.End(span, err) }()

	result, err := c.create(ctx, name, cols, tables.StashRef(stash.ID()))
	if err != nil {
		return nil, nil, err
	}
	metrics.RowsMutated.WithLabelValues(metrics.OpStash).Add(float64(len(result.RowIDs)))

	table = c.BigTable(tables.Props{ID: result.TableID, Name: name, Columns: cols})
	return table, result.RowIDs, nil
}

func (c *Client) create(ctx context.Context, name string, cols schema.Columns, rows interface{}) (*createResult, error) {
	if name == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "table name is required")
	}

	resp, err := c.http.Post(ctx, "/tables", createRequest{
		Name:   name,
		Schema: createSchema{Columns: cols.APIColumns()},
		Rows:   rows,
	})
	if err != nil {
		return nil, err
	}

	var result createResult
	if err := response.Decode(resp, &result); err != nil {
		return nil, err
	}
	if result.TableID == "" {
		return nil, errors.New(errors.ErrorTypeData, "create response has no tableId").
			WithDetail("body", resp.Text())
	}
	return &result, nil
}
