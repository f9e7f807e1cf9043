package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show resolved pool settings and occupancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withPool(func(sess *session) error {
				stats := sess.pool.Stats()
				if jsonOut {
					return writeJSON(cmd, stats)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable(
					[]string{"Setting", "Value"},
					[][]string{
						{"Max concurrency", strconv.Itoa(stats.MaxConcurrency)},
						{"Live workers", strconv.Itoa(stats.Live)},
						{"Queued tasks", strconv.Itoa(stats.QueueDepth)},
						{"Task timeout", fmt.Sprintf("%ds", sess.cfg.Pool.TaskTimeoutSeconds)},
						{"Worker heap cap", fmt.Sprintf("%d MiB", sess.cfg.Pool.WorkerHeapCapMB)},
						{"Memory ceiling", fmt.Sprintf("%d MiB", sess.cfg.Pool.MemoryCeilingMB)},
						{"Scratch dir", sess.cfg.Paths.ScratchDir},
						{"History", yesNo(sess.cfg.History.Enabled)},
					},
				))

				if len(stats.Slots) > 0 {
					rows := make([][]string, 0, len(stats.Slots))
					for _, s := range stats.Slots {
						rows = append(rows, []string{
							s.ID,
							strconv.Itoa(s.PID),
							s.Operation,
							formatDuration(s.Uptime),
							formatBytes(s.MemoryBytes),
						})
					}
					fmt.Fprintln(out)
					fmt.Fprintln(out, renderTable([]string{"Slot", "PID", "Operation", "Uptime", "Memory"}, rows, 2, 5))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable output")
	return cmd
}
