package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"folio/internal/archive"
)

func newScratchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scratch",
		Short: "Scratch area utilities",
	}
	cmd.AddCommand(newScratchCleanCommand(ctx))
	return cmd
}

func newScratchCleanCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove abandoned extract directories from the scratch area",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := fileLogger(cfg)
			if err != nil {
				return fmt.Errorf("initialize logging: %w", err)
			}

			ttl := time.Duration(cfg.Archive.ScratchTTLHours) * time.Hour
			if all {
				ttl = 0
			}
			removed, err := archive.CleanupScratch(cfg.Paths.ScratchDir, ttl, logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d extract directories from %s\n",
				removed, cfg.Paths.ScratchDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every extract directory regardless of age")
	return cmd
}
