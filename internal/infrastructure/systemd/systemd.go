// Package systemd adapts systemctl to the ServiceController port.
package systemd

import (
	"context"
	"fmt"

	"github.com/realies/rpi-compute-node/internal/core/ports"
)

// Controller implements ports.ServiceController over systemctl.
type Controller struct {
	runner ports.CommandRunner
}

// NewController creates a systemd Controller on top of the given runner.
func NewController(runner ports.CommandRunner) *Controller {
	return &Controller{runner: runner}
}

// IsEnabled reports whether the unit starts at boot. systemctl is-enabled
// exits non-zero for disabled, masked, and unknown units alike; all of
// those count as "not enabled" here.
func (c *Controller) IsEnabled(ctx context.Context, unit string) (bool, error) {
	out, err := c.runner.Output(ctx, "systemctl", "is-enabled", unit)
	if err != nil {
		return false, nil
	}
	return out == "enabled", nil
}

// DisableNow disables the unit and stops it immediately.
func (c *Controller) DisableNow(ctx context.Context, unit string) error {
	if err := c.runner.Run(ctx, "systemctl", "disable", "--now", unit); err != nil {
		return fmt.Errorf("disable %s: %w", unit, err)
	}
	return nil
}

// EnableNow enables the unit and starts it immediately.
func (c *Controller) EnableNow(ctx context.Context, unit string) error {
	if err := c.runner.Run(ctx, "systemctl", "enable", "--now", unit); err != nil {
		return fmt.Errorf("enable %s: %w", unit, err)
	}
	return nil
}
