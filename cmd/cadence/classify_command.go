package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cadence/internal/classify"
	"cadence/internal/features"
	"cadence/internal/wavio"
)

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <file.wav>",
		Short: "Classify a WAV file without queueing it",
		Args:  cobra.ExactArgs(1),
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

			extractor, err := features.ForConfig(cfg)
			if err != nil {
				return err
			}
			classifier, err := classify.ForConfig(cfg, store)
			if err != nil {
				return err
			}

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read audio file: %w", err)
			}
			clip, err := wavio.DecodeMono(data)
			if err != nil {
				return fmt.Errorf("decode audio: %w", err)
			}
			vector, err := extractor.Extract(clip)
			if err != nil {
				return fmt.Errorf("extract features: %w", err)
			}
			pred, err := classifier.Classify(cmd.Context(), vector)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (confidence %.2f)\n", args[0], pred.Label, pred.Confidence)
			return nil
		},
	}
}
