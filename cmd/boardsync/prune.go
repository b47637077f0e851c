// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
	"github.com/msewell13/abs-scrape-sub000/internal/config"
)

func newPruneCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Apply only the retention window, without diffing a source snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := opts.logger()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			for i := range cfg.Entities {
				ent := &cfg.Entities[i]
				if ent.Retention == nil || ent.Retention.Days <= 0 {
					continue
				}

				board, err := buildBoard(ctx, cfg, ent, nil, logger)
				if err != nil {
					return err
				}
				snap, err := boardsync.FetchSnapshot(ctx, board, ent.KeyFields, logger)
				if err != nil {
					return fmt.Errorf("entity %q: %w", ent.Name, err)
				}

				pruner := boardsync.NewPruner(board, ent.Retention.DateField, ent.Retention.Days,
					logger.With("entity", ent.Name))
				deleted, failures := pruner.Prune(ctx, snap, time.Now())

				fmt.Fprintf(cmd.OutOrStdout(), "%s: pruned=%d failed=%d\n",
					ent.Name, deleted, len(failures))
			}
			return nil
		},
	}
	return cmd
}
