// Package image implements the training image subcommands.
package image

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tphakala/imagelab/internal/app"
	"github.com/tphakala/imagelab/internal/errors"
)

// Command creates the image command and its subcommands.
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Add, list and delete training images",
	}
	cmd.AddCommand(addCommand(rt), listCommand(rt), deleteCommand(rt))
	return cmd
}

func addCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "add [model] [label] [files...]",
		Short: "Store image files under a label",
		Long:  "Decode each file, re-encode it as JPEG and store it under the label. The label is created if needed.",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			model, label := args[0], args[1]
			for _, path := range args[2:] {
				data, err := os.ReadFile(path)
				if err != nil {
					return errors.FileError(err, path, 0)
				}
				rec, err := rt.App.Organizer.SaveBytes(cmd.Context(), data, label, model)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if _, err := fmt.Fprintf(rt.Out, "%s\t%s\t%s\n", rec.ID, rec.Label, path); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func listCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list [model]",
		Short: "List the training images of a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := rt.App.Organizer.ListImages(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(rt.Out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tLABEL\tFILE\tCREATED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Label, r.Filename, r.CreatedAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func deleteCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [model] [id]",
		Short: "Delete a training image by identifier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.App.Organizer.DeleteImage(cmd.Context(), args[0], args[1])
		},
	}
}
