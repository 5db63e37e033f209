package system

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/realies/rpi-compute-node/internal/core/ports"
)

// Runner executes external commands through os/exec. Commands inherit a
// fixed environment with DEBIAN_FRONTEND set so package operations never
// block on interactive prompts.
type Runner struct {
	env    []string
	logger ports.Logger
}

// NewRunner creates a Runner. env entries are appended to the inherited
// process environment; logger may be nil.
func NewRunner(env []string, logger ports.Logger) *Runner {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Runner{env: env, logger: logger}
}

// Run implements ports.CommandRunner.
func (r *Runner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = r.environment()
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	r.logger.Infof("exec: %s %s", name, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, msg)
		}
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}

// Output implements ports.CommandRunner.
func (r *Runner) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = r.environment()
	out, err := cmd.Output()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// LookPath implements ports.CommandRunner.
func (r *Runner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

func (r *Runner) environment() []string {
	env := append(os.Environ(), r.env...)
	return append(env, "DEBIAN_FRONTEND=noninteractive")
}
