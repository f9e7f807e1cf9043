package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"folio/internal/archive"
)

// inspect reads manifests in-process. It never materializes images, so
// no worker, scratch directory, or pool is involved.
func newInspectCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inspect <archive>",
		Short: "Show an archive's manifest without unpacking it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read archive: %w", err)
			}

			doc, err := archive.New(nil).Inspect(raw)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"schemaVersion": doc.SchemaVersion,
					"metadata":      doc.Metadata,
					"contentBytes":  len(doc.ContentHTML),
					"imageFiles":    doc.Images,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Schema version: %d\n", doc.SchemaVersion)
			fmt.Fprintf(out, "Content:        %s\n", formatBytes(int64(len(doc.ContentHTML))))

			if len(doc.Metadata) > 0 {
				keys := make([]string, 0, len(doc.Metadata))
				for k := range doc.Metadata {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				rows := make([][]string, 0, len(keys))
				for _, k := range keys {
					rows = append(rows, []string{k, doc.Metadata[k]})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Metadata", "Value"}, rows))
			}

			if len(doc.Images) > 0 {
				rows := make([][]string, 0, len(doc.Images))
				for _, img := range doc.Images {
					rows = append(rows, []string{img.FileName, img.MimeType, formatBytes(img.Size), img.Hash})
				}
				fmt.Fprintln(out)
				fmt.Fprintln(out, renderTable([]string{"Image", "Type", "Size", "Fingerprint"}, rows, 3))
			} else {
				fmt.Fprintln(out, "Images:         none")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Emit machine-readable output")
	return cmd
}
