package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently settled tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				entries, err := store.Recent(cmd.Context(), limit)
				if err != nil {
					return err
				}
				counts, err := store.CountByOutcome(cmd.Context())
				if err != nil {
					return err
				}

				if jsonOut {
					return writeJSON(cmd, map[string]any{
						"entries": entries,
						"counts":  counts,
					})
				}

				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "No settled tasks recorded")
					return nil
				}

				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					detail := e.Error
					if len(detail) > 60 {
						detail = detail[:57] + "..."
					}
					rows = append(rows, []string{
						e.FinishedAt.Local().Format(time.DateTime),
						e.Operation,
						e.Outcome,
						formatDuration(e.Duration),
						detail,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Finished", "Operation", "Outcome", "Duration", "Detail"}, rows, 4))
				fmt.Fprintf(out, "\nTotals: %d completed, %d failed, %d timed out\n",
					counts[history.OutcomeCompleted],
					counts[history.OutcomeFailed],
					counts[history.OutcomeTimedOut])
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable output")

	cmd.AddCommand(newHistoryPruneCommand(ctx))
	return cmd
}

func newHistoryPruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete ledger entries past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			retention := time.Duration(cfg.History.RetentionDays) * 24 * time.Hour
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Prune(cmd.Context(), retention)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries older than %d days\n",
					removed, cfg.History.RetentionDays)
				return nil
			})
		},
	}
}
