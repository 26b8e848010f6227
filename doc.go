// Package glidetables is a client for the Glide Big Tables API that sends row
// mutations in chunks the service accepts.
//
// A table handle translates rows from display column names to storage names,
// splits them into chunks of at most max_mutations rows, and sends one request
// per chunk. The first failed chunk stops the call; chunks that were already
// accepted stay accepted and are reported in the error.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/glidetables/pkg/config"
//	    "github.com/ajitpratap0/glidetables/pkg/glide"
//	    "github.com/ajitpratap0/glidetables/pkg/schema"
//	    "github.com/ajitpratap0/glidetables/pkg/tables"
//	)
//
//	client, err := glide.New(config.NewDefaultConfig(), glide.WithToken(token))
//	if err != nil {
//	    return err
//	}
//	cols := schema.Columns{
//	    "First Name": schema.Alias("first_name", "string"),
//	    "Age":        schema.Ident("number"),
//	}
//	table := client.BigTable(tables.Props{ID: "native-table-abc", Columns: cols})
//	ids, err := table.AddRows(ctx, []schema.Row{{"First Name": "Alex", "Age": 30}})
//
// Large uploads that must land all at once go through a stash:
//
//	stash := table.CreateStash()
//	for _, part := range parts {
//	    if err := stash.Append(ctx, part); err != nil {
//	        return err
//	    }
//	}
//	ids, err := stash.CommitAsOverwrite(ctx)
//
// # Key Packages
//
//	pkg/glide          - Client, table listing, table creation
//	pkg/tables         - Table handles, mutations, stashes
//	pkg/schema         - Column specs and display to storage name translation
//	pkg/batch          - Chunking and fail-fast dispatch
//	pkg/clients        - HTTP transport, rate limiter, circuit breaker
//	pkg/response       - Status checks and response envelope decoding
//	pkg/source         - JSON, CSV and Postgres row sources for the CLI
//	pkg/config         - Configuration with YAML files and GLIDE_* overrides
//	pkg/errors         - Structured error handling
//	pkg/logger         - Structured logging
//	pkg/metrics        - Prometheus collectors
//	pkg/observability  - Tracing
//
// # Reliability
//
// Nothing in this module retries a request. Mutations are not idempotent, so
// a retry could duplicate rows; callers that want retries decide per error
// with errors.IsRetryable. The optional rate limiter only delays requests and
// the optional circuit breaker only rejects them.
//
// # Configuration
//
// Configuration is read from YAML with ${VAR_NAME} expansion, and every key
// can be overridden from the environment with a GLIDE_ prefix, for example
// GLIDE_TOKEN or GLIDE_MUTATIONS_MAX_MUTATIONS.
package glidetables
