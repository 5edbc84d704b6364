package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show recent classifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			results, err := store.RecentResults(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no results yet")
				return nil
			}

			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{
					result.TaskID,
					result.Label,
					fmt.Sprintf("%.2f", result.Confidence),
					result.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Task", "Label", "Confidence", "Classified"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))

			counts, err := store.LabelCounts(cmd.Context())
			if err != nil {
				return err
			}
			labels := make([]string, 0, len(counts))
			for label := range counts {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			for _, label := range labels {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d\n", label, counts[label])
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum results to show")
	return cmd
}
