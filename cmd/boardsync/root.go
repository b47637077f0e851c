// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
	"github.com/msewell13/abs-scrape-sub000/internal/config"
	"github.com/msewell13/abs-scrape-sub000/internal/grist"
	"github.com/msewell13/abs-scrape-sub000/internal/monday"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "boardsync",
		Short:         "Reconcile scraped records against a remote board",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Credentials often live in a .env next to the scrapers;
			// absence is fine.
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "boardsync.yaml", "path to the configuration file")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "enable debug logging")

	cmd.AddCommand(newRunCmd(opts))
	cmd.AddCommand(newPruneCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	return cmd
}

func (o *rootOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildBoard constructs the transport for one entity against the
// configured store flavor. sample, when present, is one source record
// used to infer Grist column types; nil is fine when no feed has been
// loaded (prune, relation lookups).
func buildBoard(ctx context.Context, cfg *config.Config, ent *config.Entity, sample boardsync.SourceRecord, logger *slog.Logger) (boardsync.Board, error) {
	switch cfg.Store {
	case config.StoreMonday:
		return monday.New(cfg.Monday.APIURL, cfg.Monday.Token, ent.BoardID, ent.ColumnDefs(), logger), nil

	case config.StoreGrist:
		client := grist.NewClient(cfg.Grist.Server, cfg.Grist.APIKey, cfg.Grist.Org, logger)
		doc, err := client.GetOrCreateDoc(ctx, cfg.Grist.Doc)
		if err != nil {
			return nil, fmt.Errorf("entity %q: %w", ent.Name, err)
		}
		if err := client.EnsureTable(ctx, doc.ID, ent.Table, gristColumns(ent, sample)); err != nil {
			return nil, fmt.Errorf("entity %q: %w", ent.Name, err)
		}
		return grist.NewTable(client, doc.ID, ent.Table, ent.ColumnDefs()), nil

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

// gristColumns maps the entity's column kinds to Grist column types.
// Date, checkbox and relation kinds have fixed mappings; text kinds fall
// back to the type inferred from the sample record, so numeric rates land
// as Numeric rather than Text.
func gristColumns(ent *config.Entity, sample boardsync.SourceRecord) []grist.Column {
	inferred := make(map[string]string)
	if len(sample) > 0 {
		for _, col := range grist.InferColumns(sample) {
			inferred[col.ID] = col.Type
		}
	}
	columns := make([]grist.Column, len(ent.Columns))
	for i, col := range ent.Columns {
		var typ string
		switch col.Kind {
		case boardsync.ColDate:
			typ = "Date"
		case boardsync.ColCheckbox:
			typ = "Bool"
		case boardsync.ColRelation:
			typ = "Int"
		default:
			typ = inferred[col.Name]
			if typ == "" {
				typ = "Text"
			}
		}
		columns[i] = grist.Column{ID: col.ID, Type: typ}
	}
	return columns
}

// buildResolver wires an entity's relation column to the board of the
// entity it points at, indexing display names once per cycle.
func buildResolver(ctx context.Context, cfg *config.Config, ent *config.Entity, logger *slog.Logger) (boardsync.RelationResolver, error) {
	if ent.Relation == nil {
		return nil, nil
	}
	var target *config.Entity
	for i := range cfg.Entities {
		if cfg.Entities[i].Name == ent.Relation.Entity {
			target = &cfg.Entities[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("entity %q: relation target %q not configured", ent.Name, ent.Relation.Entity)
	}
	board, err := buildBoard(ctx, cfg, target, nil, logger)
	if err != nil {
		return nil, err
	}
	idx, err := boardsync.BuildNameIndex(ctx, board, ent.Relation.NameField)
	if err != nil {
		return nil, fmt.Errorf("entity %q: index relation names: %w", ent.Name, err)
	}
	return idx, nil
}
