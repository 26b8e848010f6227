package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/glidetables/pkg/schema"
	"github.com/ajitpratap0/glidetables/pkg/source"
	"github.com/ajitpratap0/glidetables/pkg/tables"
)

type tableSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type mutationResult struct {
	Table  string   `json:"table"`
	Stash  string   `json:"stash,omitempty"`
	Parts  int64    `json:"parts,omitempty"`
	RowIDs []string `json:"rowIDs"`
}

func newTablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List big tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(func(ctx context.Context) error {
				list, err := a.client.GetBigTables(ctx)
				if err != nil {
					return err
				}
				out := make([]tableSummary, 0, len(list))
				for _, t := range list {
					out = append(out, tableSummary{ID: t.ID(), Name: t.Name()})
				}
				return a.print(out)
			})
		},
	}
}

func newMutateCmd(a *app, use, short string, overwrite bool) *cobra.Command {
	var tableID, columnsFile string
	var in inputFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := loadColumns(columnsFile)
			if err != nil {
				return err
			}
			return a.run(func(ctx context.Context) error {
				rows, err := in.readRows(ctx, cmd.InOrStdin())
				if err != nil {
					return err
				}
				table := a.client.BigTable(tables.Props{ID: tableID, Columns: cols})

				var ids []string
				if overwrite {
					ids, err = table.OverwriteRows(ctx, rows)
				} else {
					ids, err = table.AddRows(ctx, rows)
				}
				if err != nil {
					return err
				}
				a.log.Info("rows sent",
					zap.String("table", tableID),
					zap.String("operation", use),
					zap.Int("rows", len(rows)))
				return a.print(mutationResult{Table: tableID, RowIDs: ids})
			})
		},
	}
	cmd.Flags().StringVarP(&tableID, "table", "t", "", "Table ID (required)")
	cmd.Flags().StringVar(&columnsFile, "columns", "", "Column file (JSON or YAML)")
	_ = cmd.MarkFlagRequired("table")
	in.register(cmd, "-")
	return cmd
}

func newStashCmd(a *app) *cobra.Command {
	var tableID, columnsFile string
	var batch int
	var overwrite bool
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "stash",
		Short: "Stage rows in a stash and commit them in one call",
		Long: `stash streams rows into a stash in parts of --batch rows and then commits
the stash as an insert, or with --overwrite as a replacement of the table.
Nothing is visible in the table until the commit succeeds.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := loadColumns(columnsFile)
			if err != nil {
				return err
			}
			return a.run(func(ctx context.Context) error {
				if batch < 1 {
					batch = a.cfg.Mutations.MaxMutations
				}
				src, err := in.open(ctx, cmd.InOrStdin())
				if err != nil {
					return err
				}
				defer src.Close()

				table := a.client.BigTable(tables.Props{ID: tableID, Columns: cols})
				stash := table.CreateStash()
				if err := fillStash(ctx, stash, src, batch); err != nil {
					return err
				}

				var ids []string
				if overwrite {
					ids, err = stash.CommitAsOverwrite(ctx)
				} else {
					ids, err = stash.CommitAsInsert(ctx)
				}
				if err != nil {
					return fmt.Errorf("commit stash %s: %w", stash.ID(), err)
				}
				a.log.Info("stash committed",
					zap.String("table", tableID),
					zap.String("stash", stash.ID()),
					zap.Int64("parts", stash.Sequence()),
					zap.Bool("overwrite", overwrite))
				return a.print(mutationResult{Table: tableID, Stash: stash.ID(), Parts: stash.Sequence(), RowIDs: ids})
			})
		},
	}
	cmd.Flags().StringVarP(&tableID, "table", "t", "", "Table ID (required)")
	cmd.Flags().StringVar(&columnsFile, "columns", "", "Column file (JSON or YAML)")
	cmd.Flags().IntVar(&batch, "batch", 0, "Rows per stash part (default max_mutations)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Commit as a table overwrite")
	_ = cmd.MarkFlagRequired("table")
	in.register(cmd, "-")
	return cmd
}

// fillStash appends src to stash in parts of batch rows
func fillStash(ctx context.Context, stash *tables.Stash, src source.RowSource, batch int) error {
	for {
		rows, err := source.Batch(ctx, src, batch)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := stash.Append(ctx, rows); err != nil {
			return err
		}
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var name, columnsFile string
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a big table with initial rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := loadColumns(columnsFile)
			if err != nil {
				return err
			}
			return a.run(func(ctx context.Context) error {
				rows := []schema.Row{}
				if in.path != "" || in.pgDSN != "" {
					rows, err = in.readRows(ctx, cmd.InOrStdin())
					if err != nil {
						return err
					}
				}
				table, ids, err := a.client.CreateBigTable(ctx, name, cols, rows)
				if err != nil {
					if table != nil {
						a.log.Error("table created with missing rows", zap.String("table", table.ID()), zap.Error(err))
					}
					return err
				}
				return a.print(mutationResult{Table: table.ID(), RowIDs: ids})
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Table name (required)")
	cmd.Flags().StringVar(&columnsFile, "columns", "", "Column file (JSON or YAML)")
	_ = cmd.MarkFlagRequired("name")
	in.register(cmd, "")
	return cmd
}
