// Package model implements the model subcommands.
package model

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/imagelab/internal/app"
	"github.com/tphakala/imagelab/internal/models"
)

// Command creates the model command and its subcommands.
func Command(rt *app.Runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Create, list, select and delete models",
	}
	cmd.AddCommand(
		createCommand(rt),
		listCommand(rt),
		deleteCommand(rt),
		selectCommand(rt),
		currentCommand(rt),
		importCommand(rt),
	)
	return cmd
}

func createCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create an empty model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.App.Models.CreateEmpty(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(rt.Out, "created model %s\n", args[0])
			return err
		},
	}
}

func listCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List models with their status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := rt.App.Models.List(cmd.Context())
			if err != nil {
				return err
			}
			return printEntries(rt, entries)
		},
	}
}

func deleteCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a model and its training images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.App.Models.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(rt.Out, "deleted model %s\n", args[0])
			return err
		},
	}
}

func selectCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "select [name]",
		Short: "Select the model used for classification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.App.Models.Select(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(rt.Out, "selected model %s\n", args[0])
			return err
		},
	}
}

func currentCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the model used for classification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := rt.App.Models.Current(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(rt.Out, e.Name)
			return err
		},
	}
}

func importCommand(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "import [name] [artifact]",
		Short: "Install an externally built model artifact",
		Long:  "Install a compiled artifact, or compile and install an uncompiled one, as the model's artifact and select it.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.App.Models.SaveFromExternal(cmd.Context(), args[1], args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(rt.Out, "imported %s as model %s\n", args[1], args[0])
			return err
		},
	}
}

func printEntries(rt *app.Runtime, entries []models.Entry) error {
	w := tabwriter.NewWriter(rt.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tSIZE\tSELECTED")
	for _, e := range entries {
		selected := ""
		if e.Selected {
			selected = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", e.Name, e.Status, e.Size, selected)
	}
	return w.Flush()
}
