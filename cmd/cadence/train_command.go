package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"cadence/internal/classify"
	"cadence/internal/seed"
)

func newTrainCommand(ctx *commandContext) *cobra.Command {
	opts := classify.DefaultTrainOptions()
	var output string

	cmd := &cobra.Command{
		Use:   "train <features.csv>",
		Short: "Train a classifier model from extracted features",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open training csv: %w", err)
			}
			vectors, labels, err := seed.ReadTrainingCSV(f)
			f.Close()
			if err != nil {
				return err
			}

			artifact, err := classify.Train(vectors, labels, opts)
			if err != nil {
				return err
			}

			path := output
			if path == "" {
				path = cfg.Classifier.ModelPath
			}
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				return fmt.Errorf("create model directory: %w", err)
			}
			if err := classify.SaveArtifact(path, artifact); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "trained on %d sample(s), %d label(s); wrote %s\n",
				len(vectors), len(artifact.Labels), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Model artifact path (defaults to classifier.model_path)")
	cmd.Flags().IntVar(&opts.Epochs, "epochs", opts.Epochs, "Training epochs")
	cmd.Flags().Float64Var(&opts.LearningRate, "rate", opts.LearningRate, "Learning rate")
	return cmd
}
