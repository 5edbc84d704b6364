package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show queue and corpus health",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Ping(cmd.Context(), 2*time.Second); err != nil {
				return fmt.Errorf("queue database unreachable: %w", err)
			}
			summary, err := store.Health(cmd.Context())
			if err != nil {
				return err
			}
			refs, err := store.CountReferences(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "queue database: %s\n", store.Path())
			fmt.Fprintf(out, "blob store:     %s\n", cfg.BlobDir())
			fmt.Fprintf(out, "extractor:      %s\n", cfg.Analysis.Extractor)
			fmt.Fprintf(out, "strategy:       %s\n", cfg.Classifier.Strategy)
			fmt.Fprintln(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Pending", "Processing", "Done", "Error", "References"},
				[][]string{{
					fmt.Sprintf("%d", summary.Pending),
					fmt.Sprintf("%d", summary.Processing),
					fmt.Sprintf("%d", summary.Done),
					fmt.Sprintf("%d", summary.Errored),
					fmt.Sprintf("%d", refs),
				}},
				[]columnAlignment{alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}
