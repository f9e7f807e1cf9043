package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"folio/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}

			if overwrite {
				if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("remove existing config: %w", err)
				}
			}
			if err := config.WriteSample(target); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if ctx.configFlag != nil {
				path = strings.TrimSpace(*ctx.configFlag)
			}
			cfg, resolvedPath, exists, err := config.Load(path)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"path":   resolvedPath,
					"exists": exists,
					"config": cfg,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", resolvedPath)
			if !exists {
				fmt.Fprintln(out, "Config file does not exist; showing defaults")
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Setting", "Value"},
				[][]string{
					{"paths.scratch_dir", cfg.Paths.ScratchDir},
					{"paths.log_dir", cfg.Paths.LogDir},
					{"pool.max_concurrency", fmt.Sprintf("%d", cfg.Pool.MaxConcurrency)},
					{"pool.worker_binary", cfg.Pool.WorkerBinary},
					{"pool.task_timeout_seconds", fmt.Sprintf("%d", cfg.Pool.TaskTimeoutSeconds)},
					{"pool.worker_heap_cap_mb", fmt.Sprintf("%d", cfg.Pool.WorkerHeapCapMB)},
					{"pool.memory_sample_seconds", fmt.Sprintf("%d", cfg.Pool.MemorySampleSeconds)},
					{"pool.memory_ceiling_mb", fmt.Sprintf("%d", cfg.Pool.MemoryCeilingMB)},
					{"pool.grace_window_seconds", fmt.Sprintf("%d", cfg.Pool.GraceWindowSeconds)},
					{"pool.shutdown_ceiling_seconds", fmt.Sprintf("%d", cfg.Pool.ShutdownCeilingSeconds)},
					{"archive.scratch_ttl_hours", fmt.Sprintf("%d", cfg.Archive.ScratchTTLHours)},
					{"history.enabled", yesNo(cfg.History.Enabled)},
					{"history.retention_days", fmt.Sprintf("%d", cfg.History.RetentionDays)},
					{"logging.format", cfg.Logging.Format},
					{"logging.level", cfg.Logging.Level},
				},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable output")
	return cmd
}
