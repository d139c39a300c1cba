package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tphakala/imagelab/cmd/classify"
	"github.com/tphakala/imagelab/cmd/cleanup"
	"github.com/tphakala/imagelab/cmd/image"
	"github.com/tphakala/imagelab/cmd/label"
	"github.com/tphakala/imagelab/cmd/model"
	"github.com/tphakala/imagelab/cmd/train"
	"github.com/tphakala/imagelab/internal/app"
)

// RootCommand creates and returns the root command
func RootCommand(rt *app.Runtime) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "imagelab",
		Short:         "Organize training images, train and run image classifiers",
		Version:       rt.Build.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(rt.Build.String() + "\n")

	if err := setupFlags(rootCmd, rt); err != nil {
		// flags are static; a binding error is a programming mistake
		panic(err)
	}

	rootCmd.AddCommand(
		model.Command(rt),
		label.Command(rt),
		image.Command(rt),
		train.ValidateCommand(rt),
		train.Command(rt),
		classify.Command(rt),
		cleanup.Command(rt),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		rt.Out = cmd.OutOrStdout()
		return rt.Open(cmd.Context())
	}
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return rt.Close()
	}

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, rt *app.Runtime) error {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&rt.ConfigFile, "config", "c", rt.ConfigFile, "Path to config.yaml (default: search standard locations)")
	flags.String("root", "", "Directory holding the models")
	flags.BoolP("debug", "d", false, "Enable debug output")

	if err := rt.Viper.BindPFlag("storage.root", flags.Lookup("root")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := rt.Viper.BindPFlag("debug", flags.Lookup("debug")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
