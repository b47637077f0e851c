// Copyright 2025 Toly Pochkin
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/msewell13/abs-scrape-sub000/internal/config"
	"github.com/msewell13/abs-scrape-sub000/internal/journal"
)

func newValidateCmd(opts *rootOptions) *cobra.Command {
	var history int

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check configuration and credentials, and show recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok: store=%s entities=%d\n", cfg.Store, len(cfg.Entities))
			for i := range cfg.Entities {
				ent := &cfg.Entities[i]
				strategy, _ := ent.DiffStrategy()
				retention := "none"
				if ent.Retention != nil && ent.Retention.Days > 0 {
					retention = fmt.Sprintf("%s > %dd", ent.Retention.DateField, ent.Retention.Days)
				}
				fmt.Fprintf(out, "  %s: key=%v columns=%d strategy=%s retention=%s\n",
					ent.Name, ent.KeyFields, len(ent.Columns), strategy.Name(), retention)
			}

			if history <= 0 {
				return nil
			}
			jnl, err := journal.Open(cfg.Journal)
			if err != nil {
				fmt.Fprintf(out, "journal unavailable: %v\n", err)
				return nil
			}
			defer jnl.Close()

			entries, err := jnl.Recent(cmd.Context(), history)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s %s %s: created=%d updated=%d deleted=%d failed=%d\n",
					e.StartedAt.Format(time.RFC3339), e.RunID[:8], e.Entity,
					e.Created, e.Updated, e.Deleted, e.Failed)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&history, "history", 10, "number of recent journal entries to print (0 disables)")
	return cmd
}
