// Package apt adapts the Debian package manager to the PackageManager port.
// apt-get is invoked with fixed, non-interactive arguments; exit status is
// the only contract.
package apt

import (
	"context"
	"fmt"
	"strings"

	"github.com/realies/rpi-compute-node/internal/core/ports"
)

// Manager implements ports.PackageManager over apt-get and dpkg-query.
type Manager struct {
	runner ports.CommandRunner
}

// NewManager creates an apt Manager on top of the given runner.
func NewManager(runner ports.CommandRunner) *Manager {
	return &Manager{runner: runner}
}

// Update refreshes the apt package index.
func (m *Manager) Update(ctx context.Context) error {
	if err := m.runner.Run(ctx, "apt-get", "update"); err != nil {
		return fmt.Errorf("update apt cache: %w", err)
	}
	return nil
}

// FullUpgrade upgrades all installed packages, removing obsolete ones when
// the resolver requires it.
func (m *Manager) FullUpgrade(ctx context.Context) error {
	if err := m.runner.Run(ctx, "apt-get", "full-upgrade", "-y", "-q"); err != nil {
		return fmt.Errorf("full-upgrade: %w", err)
	}
	return nil
}

// Install installs the named packages in one transaction.
func (m *Manager) Install(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	args := append([]string{"install", "-y", "-q"}, pkgs...)
	if err := m.runner.Run(ctx, "apt-get", args...); err != nil {
		return fmt.Errorf("install %s: %w", strings.Join(pkgs, " "), err)
	}
	return nil
}

// Purge removes one package with its configuration files. Packages are
// purged one at a time so a single absent package cannot fail the rest of
// the trim list.
func (m *Manager) Purge(ctx context.Context, pkg string) error {
	if err := m.runner.Run(ctx, "apt-get", "purge", "-y", "-q", pkg); err != nil {
		return fmt.Errorf("purge %s: %w", pkg, err)
	}
	return nil
}

// Autoremove drops packages no longer depended on.
func (m *Manager) Autoremove(ctx context.Context) error {
	if err := m.runner.Run(ctx, "apt-get", "autoremove", "-y", "-q"); err != nil {
		return fmt.Errorf("autoremove: %w", err)
	}
	return nil
}

// Installed reports whether pkg is currently in the installed state.
func (m *Manager) Installed(ctx context.Context, pkg string) (bool, error) {
	out, err := m.runner.Output(ctx, "dpkg-query", "-W", "-f=${Status}", pkg)
	if err != nil {
		// dpkg-query exits non-zero for unknown packages.
		return false, nil
	}
	return strings.Contains(out, "install ok installed"), nil
}
