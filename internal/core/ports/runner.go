package ports

import "context"

// CommandRunner abstracts shelling out to external system commands so the
// provisioning logic can be exercised without a privileged host.
type CommandRunner interface {
	// Run executes the command and waits for it, trusting the exit status.
	Run(ctx context.Context, name string, args ...string) error

	// Output executes the command and returns its trimmed stdout.
	Output(ctx context.Context, name string, args ...string) (string, error)

	// LookPath reports the absolute path of an executable, or an error if it
	// is not installed.
	LookPath(name string) (string, error)
}
