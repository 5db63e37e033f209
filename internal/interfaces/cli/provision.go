package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/realies/rpi-compute-node/internal/interfaces/di"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	errStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// NewProvisionCommand creates the provision command.
func NewProvisionCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Run the full provisioning sequence",
		Long: `Run every provisioning step in order: preconditions, package upgrade and
trim, service and swap shutdown, module blacklist, boot configuration
reconciliation, kernel command line, container runtime install, group
membership.

With --dry-run, each step's convergence check is evaluated and printed and
nothing on the host is touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			container, err := di.NewContainer(configPath, os.Stderr)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if dryRun {
				printReports(cmd, container)
				return nil
			}
			return container.Provisioner.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate convergence checks without changing anything")

	return cmd
}

func printReports(cmd *cobra.Command, container *di.Container) {
	for _, report := range container.Provisioner.Evaluate(context.Background()) {
		switch {
		case report.Err != nil:
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-18s %v\n", errStyle.Render("✗"), report.Name, report.Err)
		case report.Converged:
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-18s %s\n", okStyle.Render("✓"), report.Name, report.Detail)
		default:
			fmt.Fprintf(cmd.OutOrStdout(), "%s %-18s %s\n", pendingStyle.Render("…"), report.Name, report.Detail)
		}
	}
}
