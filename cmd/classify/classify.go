// Package classify implements the classify command.
package classify

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/imagelab/internal/app"
	"github.com/tphakala/imagelab/internal/classifier"
	"github.com/tphakala/imagelab/internal/errors"
)

// Command classifies image files with the selected or a named model.
func Command(rt *app.Runtime) *cobra.Command {
	var (
		model  string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "classify [files...]",
		Short: "Classify images and print the top predictions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enc := json.NewEncoder(rt.Out)
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return errors.FileError(err, path, 0)
				}
				res, err := rt.App.Classifier.ClassifyBytes(cmd.Context(), data, model)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if asJSON {
					if err := enc.Encode(struct {
						File string `json:"file"`
						classifier.Result
					}{path, res}); err != nil {
						return err
					}
					continue
				}
				if _, err := fmt.Fprintf(rt.Out, "%s (%s)\n", path, res.Model); err != nil {
					return err
				}
				for _, line := range res.Strings() {
					if _, err := fmt.Fprintf(rt.Out, "  %s\n", line); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use instead of the selected one")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per file")
	return cmd
}
