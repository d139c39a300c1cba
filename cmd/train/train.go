// Package train implements the validate and train commands.
package train

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/imagelab/internal/app"
)

// ValidateCommand checks that a model's training data can be trained on.
func ValidateCommand(rt *app.Runtime) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "validate [model]",
		Short: "Check that training data has enough labels and images",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			switch {
			case dir != "":
				err = rt.App.Classifier.Validate(cmd.Context(), dir)
			case len(args) == 1:
				err = rt.App.Classifier.ValidateModel(cmd.Context(), args[0])
			default:
				return fmt.Errorf("either a model name or --dir is required")
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(rt.Out, "training data is valid")
			return err
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Validate a directory of label subdirectories instead of a model")
	return cmd
}

// Command trains a model and installs the result as the selected model.
func Command(rt *app.Runtime) *cobra.Command {
	var data, output string
	cmd := &cobra.Command{
		Use:   "train [model]",
		Short: "Train a model from its labelled images",
		Long: "Train a model from its labelled images, compile the result and select it. " +
			"With --data and --output the trainer runs on an arbitrary directory and nothing is installed.",
		Args: cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if data != "" || output != "" {
				if data == "" || output == "" {
					return fmt.Errorf("--data and --output must be used together")
				}
				if err := rt.App.Classifier.Train(cmd.Context(), data, output); err != nil {
					return err
				}
				_, err := fmt.Fprintf(rt.Out, "trained %s\n", output)
				return err
			}
			if len(args) != 1 {
				return fmt.Errorf("a model name is required")
			}
			if err := rt.App.Classifier.TrainModel(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(rt.Out, "trained and selected model %s\n", args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&data, "data", "", "Training directory of label subdirectories")
	cmd.Flags().StringVar(&output, "output", "", "Destination of the uncompiled artifact")
	return cmd
}
