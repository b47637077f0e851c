// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/msewell13/abs-scrape-sub000/boardsync"
	"github.com/msewell13/abs-scrape-sub000/internal/config"
	"github.com/msewell13/abs-scrape-sub000/internal/feed"
	"github.com/msewell13/abs-scrape-sub000/internal/journal"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	var (
		entityFilter string
		feedOverride string
		dryRun       bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one full reconciliation cycle for every configured entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := opts.logger()

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if feedOverride != "" && entityFilter == "" {
				return fmt.Errorf("--feed requires --entity")
			}

			runID := uuid.New().String()
			logger = logger.With("run_id", runID)

			var jnl *journal.Journal
			if !dryRun {
				jnl, err = journal.Open(cfg.Journal)
				if err != nil {
					// The journal is observability only; a broken local DB
					// must not block the sync itself.
					logger.Warn("run journal unavailable", "path", cfg.Journal, "error", err)
				} else {
					defer jnl.Close()
				}
			}

			ran := 0
			for i := range cfg.Entities {
				ent := &cfg.Entities[i]
				if entityFilter != "" && ent.Name != entityFilter {
					continue
				}
				ran++

				feedPath := ent.Feed
				if feedOverride != "" {
					feedPath = feedOverride
				}
				source, err := feed.LoadFile(feedPath)
				if err != nil {
					return fmt.Errorf("entity %q: %w", ent.Name, err)
				}

				var sample boardsync.SourceRecord
				if len(source) > 0 {
					sample = source[0]
				}
				board, err := buildBoard(ctx, cfg, ent, sample, logger)
				if err != nil {
					return err
				}
				resolver, err := buildResolver(ctx, cfg, ent, logger)
				if err != nil {
					return err
				}
				engineCfg, err := ent.EngineConfig(resolver)
				if err != nil {
					return err
				}
				engine, err := boardsync.NewEngine(board, engineCfg, logger)
				if err != nil {
					return err
				}
				engine.DryRun = dryRun

				started := time.Now()
				outcome, err := engine.RunCycle(ctx, source)
				if err != nil {
					// Fatal: the remote snapshot could not be built; no
					// partial writes were attempted against unknown state.
					return err
				}

				if jnl != nil {
					entry := journal.Entry{
						RunID:      runID,
						Entity:     ent.Name,
						StartedAt:  started,
						FinishedAt: time.Now(),
						Created:    outcome.Created,
						Updated:    outcome.Updated,
						Deleted:    outcome.Deleted,
						Failed:     outcome.Failed,
						Skipped:    outcome.Skipped,
						Failures:   outcome.Failures,
					}
					if err := jnl.Record(ctx, entry); err != nil {
						logger.Warn("failed to record run entry", "error", err)
					}
				}

				fmt.Fprintf(cmd.OutOrStdout(),
					"%s: created=%d updated=%d deleted=%d skipped=%d failed=%d\n",
					ent.Name, outcome.Created, outcome.Updated, outcome.Deleted,
					outcome.Skipped, outcome.Failed)
			}

			if ran == 0 {
				return fmt.Errorf("no entity matched %q", entityFilter)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&entityFilter, "entity", "", "run only the named entity")
	cmd.Flags().StringVar(&feedOverride, "feed", "", "override the entity's feed file (requires --entity)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan the cycle without writing to the board")
	return cmd
}
