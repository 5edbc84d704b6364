package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"cadence/internal/features"
	"cadence/internal/seed"
)

func newSeedCommand(ctx *commandContext) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed <corpus-dir>",
		Short: "Populate the reference corpus from labeled WAV directories",
		Long: `Populate the reference corpus from a directory whose first-level
subdirectories name the labels, e.g. corpus/vocal/*.wav and
corpus/electronic/*.wav.`,
		Args: cobra.ExactArgs(1),
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

			if reset {
				removed, err := store.ClearReferences(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "cleared %d existing reference(s)\n", removed)
			}

			extractor, err := features.ForConfig(cfg)
			if err != nil {
				return err
			}
			report, err := seed.New(store, extractor, nil).Seed(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			labels := make([]string, 0, len(report.Labels))
			for label := range report.Labels {
				labels = append(labels, label)
			}
			sort.Strings(labels)
			for _, label := range labels {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d reference(s)\n", label, report.Labels[label])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d, skipped %d\n", report.Added, report.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "Clear existing references before seeding")
	return cmd
}
