package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/realies/rpi-compute-node/internal/interfaces/di"
)

// NewRestoreCommand creates the restore command, the escape hatch for the
// one file this tool snapshots.
func NewRestoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Restore the boot configuration from its pristine backup",
		Long: `Copy the pristine backup captured on the first provisioning run back over
the boot configuration file, removing every managed setting. Fails when the
file is not currently managed, or when the marker is present but the backup
has gone missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			container, err := di.NewContainer(configPath, os.Stderr)
			if err != nil {
				return err
			}

			if err := container.Reconciler.Restore(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s from %s\n",
				container.Reconciler.ConfigPath(), container.Reconciler.BackupPath())
			return nil
		},
	}
}
