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

func newUnpackCommand(ctx *commandContext) *cobra.Command {
	var outputPath string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "unpack <archive>",
		Short: "Unpack an archive into a document description",
		Long:  "Decodes a container (or a legacy byte stream) in a worker process, materializes\nits images into the scratch area, and emits the recovered document description.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve archive path: %w", err)
			}

			return ctx.withPool(func(sess *session) error {
				result, err := sess.run(cmd.Context(), cmd, taskmsg.OpLoad, worker.LoadRequest{Path: source})
				if err != nil {
					return err
				}
				var res worker.LoadResult
				if err := json.Unmarshal(result, &res); err != nil {
					return fmt.Errorf("parse worker result: %w", err)
				}

				if jsonOut {
					return writeJSON(cmd, res)
				}

				encoded, err := json.MarshalIndent(res.Document, "", "  ")
				if err != nil {
					return fmt.Errorf("encode document description: %w", err)
				}
				if outputPath != "" {
					if err := os.WriteFile(outputPath, append(encoded, '\n'), 0o644); err != nil {
						return fmt.Errorf("write document description: %w", err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Unpacked %s to %s (schema %d, %d images)\n",
						source, outputPath, res.Document.SchemaVersion, len(res.Document.Images))
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
				}
				if res.ScratchDir != "" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Images materialized under %s\n", res.ScratchDir)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the document description to this file instead of stdout")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable output")
	return cmd
}
