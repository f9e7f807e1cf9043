package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"folio/internal/taskmsg"
	"folio/internal/worker"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "validate <archive>",
		Short: "Check whether a file is a well-formed archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve archive path: %w", err)
			}

			return ctx.withPool(func(sess *session) error {
				result, err := sess.run(cmd.Context(), cmd, taskmsg.OpValidate, worker.ValidateRequest{Path: source})
				if err != nil {
					return err
				}
				var res worker.ValidateResult
				if err := json.Unmarshal(result, &res); err != nil {
					return fmt.Errorf("parse worker result: %w", err)
				}
				if jsonOut {
					return writeJSON(cmd, res)
				}
				if !res.Valid {
					return fmt.Errorf("%s is not a valid archive", source)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is a valid archive\n", source)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable output")
	return cmd
}
