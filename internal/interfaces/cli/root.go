package cli

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/realies/rpi-compute-node/internal/infrastructure/config"
)

var (
	Version   = "dev"     // Overridden by ldflags
	BuildTime = "unknown" // Overridden by ldflags
)

// NewRootCommand builds the base command and its subcommands.
func NewRootCommand() *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "rpi-compute-node",
		Short: "Turn a fresh Raspberry Pi OS install into a container-ready compute node",
		Long: `rpi-compute-node reconciles a freshly imaged Raspberry Pi toward a fixed
compute-node state: unneeded packages, services, and kernel modules go away,
the boot configuration is rewritten idempotently with a pristine backup kept
next to it, cgroups are enabled on the kernel command line, and a container
runtime is installed.

Every step is idempotent: re-running after an interruption converges to the
same end state instead of accumulating changes.`,
		Version: Version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf("{{.Name}} version {{.Version}}\nBuild time: %s\nGo version: %s\nPlatform: %s/%s\n",
		BuildTime, goVersion(), runtime.GOOS, runtime.GOARCH))

	rootCmd.PersistentFlags().String("config", config.DefaultPath, "Tool configuration file")

	rootCmd.AddCommand(NewProvisionCommand())
	rootCmd.AddCommand(NewStatusCommand())
	rootCmd.AddCommand(NewRestoreCommand())

	return rootCmd
}

// goVersion returns the Go version used to build the binary.
func goVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		return info.GoVersion
	}
	return "unknown"
}

// Execute runs the root command and exits non-zero on any failure.
func Execute() {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
