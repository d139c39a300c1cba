// Package label implements the label subcommands.
package label

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/imagelab/internal/app"
)

// Command creates the label command and its subcommands.
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "label",
		Short: "Manage the labels of a model",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "add [model] [label]",
			Short: "Add an empty label",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.App.Organizer.AddLabel(cmd.Context(), args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "list [model]",
			Short: "List labels with their image counts",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				labels, err := rt.App.Organizer.ListLabels(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				counts, err := rt.App.Organizer.LabelCounts(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, l := range labels {
					if _, err := fmt.Fprintf(rt.Out, "%s\t%d\n", l, counts[l]); err != nil {
						return err
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete [model] [label]",
			Short: "Delete a label and all of its images",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return rt.App.Organizer.DeleteLabel(cmd.Context(), args[0], args[1])
			},
		},
	)
	return cmd
}
