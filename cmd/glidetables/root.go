package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/glidetables/pkg/config"
	"github.com/ajitpratap0/glidetables/pkg/glide"
	"github.com/ajitpratap0/glidetables/pkg/json"
	"github.com/ajitpratap0/glidetables/pkg/logger"
	"github.com/ajitpratap0/glidetables/pkg/observability"
	"github.com/ajitpratap0/glidetables/pkg/schema"
	"github.com/ajitpratap0/glidetables/pkg/source"
)

// app carries what every subcommand needs once flags are parsed
type app struct {
	out        io.Writer
	configFile string
	logLevel   string
	trace      bool
	timeout    time.Duration

	cfg    *config.Config
	log    *zap.Logger
	client *glide.Client
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	root := &cobra.Command{
		Use:   "glidetables",
		Short: "Batch row mutations against Glide Big Tables",
		Long: `glidetables sends rows to Glide Big Tables in chunks the service accepts.
Rows are read as JSON lines, a JSON array, CSV, or from a Postgres query.

The token is read from --config, GLIDE_TOKEN, or any GLIDE_* override.`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	root.PersistentFlags().StringVarP(&a.configFile, "config", "c", "", "Path to a YAML config file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&a.trace, "trace", false, "Export spans to stderr")
	root.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Minute, "Overall command timeout")

	root.AddCommand(
		newVersionCmd(a),
		newTablesCmd(a),
		newMutateCmd(a, "add", "Append rows to a table", false),
		newMutateCmd(a, "overwrite", "Replace every row of a table", true),
		newStashCmd(a),
		newCreateCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.out, "glidetables v%s\n", version)
		},
	}
}

// run sets up config, logging, tracing and the client around fn
func (a *app) run(fn func(ctx context.Context) error) error {
	if err := a.setup(); err != nil {
		return err
	}
	defer func() {
		_ = a.client.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := observability.Shutdown(ctx); err != nil {
			a.log.Warn("shutdown failed", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()
	return fn(ctx)
}

func (a *app) setup() error {
	v, err := config.NewViper(a.configFile)
	if err != nil {
		return err
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	logCfg := logger.Config{
		Level:       cfg.Logging.Level,
		Encoding:    cfg.Logging.Encoding,
		Development: cfg.Logging.Development,
	}
	if err := logger.Init(logCfg); err != nil {
		return err
	}
	a.log = logger.With(zap.String("component", "glidetables-cli"))

	if a.trace {
		tc := observability.DefaultTracingConfig()
		tc.ServiceVersion = version
		if _, err := observability.InitTracing(tc); err != nil {
			return err
		}
	}

	client, err := glide.New(cfg, glide.WithLogger(a.log))
	if err != nil {
		return err
	}
	a.client = client
	return nil
}

// print writes v as one line of JSON
func (a *app) print(v interface{}) error {
	buf, err := json.MarshalToBuffer(v)
	if err != nil {
		return err
	}
	defer json.PutBuffer(buf)
	buf.WriteByte('\n')
	_, err = a.out.Write(buf.Bytes())
	return err
}

// loadColumns reads a column file; .yaml and .yml are YAML, everything else JSON.
// An empty path means no columns.
func loadColumns(path string) (schema.Columns, error) {
	if path == "" {
		return schema.Columns{}, nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read columns file: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return schema.ParseYAML(data)
	default:
		return schema.ParseJSON(data)
	}
}

// inputFlags selects where rows come from
type inputFlags struct {
	path    string
	format  string
	pgDSN   string
	pgQuery string
}

func (f *inputFlags) register(cmd *cobra.Command, defaultPath string) {
	cmd.Flags().StringVarP(&f.path, "input", "i", defaultPath, "Row file, - for stdin")
	cmd.Flags().StringVarP(&f.format, "format", "f", "lines", "Input format (lines, array, csv)")
	cmd.Flags().StringVar(&f.pgDSN, "pg-dsn", "", "Read rows from this Postgres database instead of --input")
	cmd.Flags().StringVar(&f.pgQuery, "pg-query", "", "Query to run against --pg-dsn")
}

func (f *inputFlags) open(ctx context.Context, stdin io.Reader) (source.RowSource, error) {
	if f.pgDSN != "" {
		if f.pgQuery == "" {
			return nil, fmt.Errorf("--pg-query is required with --pg-dsn")
		}
		return source.NewPostgresSource(ctx, f.pgDSN, f.pgQuery)
	}

	format, err := source.ParseFormat(f.format)
	if err != nil {
		return nil, err
	}
	if f.path == "-" {
		return source.Open(io.NopCloser(stdin), format)
	}
	file, err := os.Open(f.path) //nolint:gosec // G304: path supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	return source.Open(file, format)
}

// readRows drains the selected input
func (f *inputFlags) readRows(ctx context.Context, stdin io.Reader) ([]schema.Row, error) {
	src, err := f.open(ctx, stdin)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return source.ReadAll(ctx, src)
}
