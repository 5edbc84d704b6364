package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cadence/internal/features"
	"cadence/internal/seed"
)

func newExtractCommand(ctx *commandContext) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "extract <corpus-dir>",
		Short: "Extract training features from labeled WAV directories to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			extractor := features.NewSpectralStats(cfg.Analysis.FrameSize, cfg.Analysis.HopSize)

			var out *os.File
			if output == "-" || output == "" {
				out = os.Stdout
			} else {
				out, err = os.Create(output)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer out.Close()
			}

			rows, err := seed.ExtractCSV(cmd.Context(), extractor, features.SpectralFeatureNames, args[0], out)
			if err != nil {
				return err
			}
			if out != os.Stdout {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d row(s) to %s\n", rows, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "features.csv", "Output CSV path (- for stdout)")
	return cmd
}
