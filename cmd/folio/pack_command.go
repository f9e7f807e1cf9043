package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"folio/internal/taskmsg"
	"folio/internal/worker"
)

func newPackCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "pack <document.json> <archive>",
		Short: "Pack a document description into a compressed archive",
		Long:  "Reads a document description (metadata, markup, embedded image references),\nhands it to a worker process, and writes the deduplicated compressed container.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read document description: %w", err)
			}
			var doc worker.DocumentPayload
			if err := json.Unmarshal(raw, &doc); err != nil {
				return fmt.Errorf("parse document description: %w", err)
			}

			target, err := filepath.Abs(args[1])
			if err != nil {
				return fmt.Errorf("resolve archive path: %w", err)
			}

			return ctx.withPool(func(sess *session) error {
				result, err := sess.run(cmd.Context(), cmd, taskmsg.OpSave, worker.SaveRequest{
					Path:     target,
					Document: doc,
				})
				if err != nil {
					return err
				}
				var res worker.SaveResult
				if err := json.Unmarshal(result, &res); err != nil {
					return fmt.Errorf("parse worker result: %w", err)
				}
				if jsonOut {
					return writeJSON(cmd, res)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Packed %s (%s, %d images)\n",
					res.Path, formatBytes(res.Bytes), res.Images)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable output")
	return cmd
}
