// Package cleanup implements the cleanup command.
package cleanup

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/imagelab/internal/app"
	"github.com/tphakala/imagelab/internal/logger"
)

// Command removes metadata files left by older versions. Failures are
// logged and do not fail the command.
func Command(rt *app.Runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Remove obsolete metadata files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.App.Models.CleanupLegacy(cmd.Context()); err != nil {
				rt.App.Log.Warn("Legacy metadata cleanup incomplete", logger.Error(err))
			}
			return nil
		},
	}
}
