// Package modprobe manages the kernel module blacklist file. The file is
// written once, verbatim, only when absent — coarser idempotency than the
// boot config reconciler, and deliberately without merge logic.
package modprobe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/realies/rpi-compute-node/internal/core/ports"
)

// BlacklistModules are the onboard wireless and bluetooth drivers a compute
// node has no use for.
var BlacklistModules = []string{
	"brcmfmac",
	"brcmutil",
	"btbcm",
	"hci_uart",
	"bluetooth",
}

// Blacklister writes the blacklist file and best-effort unloads the
// affected modules.
type Blacklister struct {
	path    string
	modules []string
	runner  ports.CommandRunner
	logger  ports.Logger
}

// NewBlacklister creates a Blacklister targeting the given modprobe.d path.
func NewBlacklister(path string, runner ports.CommandRunner, logger ports.Logger) (*Blacklister, error) {
	if path == "" {
		return nil, fmt.Errorf("blacklist path cannot be empty")
	}
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Blacklister{path: path, modules: BlacklistModules, runner: runner, logger: logger}, nil
}

// Path returns the blacklist file path.
func (b *Blacklister) Path() string {
	return b.path
}

// Present reports whether the blacklist file already exists.
func (b *Blacklister) Present() (bool, error) {
	if _, err := os.Stat(b.path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", b.path, err)
	}
	return true, nil
}

// Ensure writes the blacklist file if absent and tries to unload each
// blacklisted module. Unload failures are tolerated: modules may be absent
// from this kernel or stay loaded until reboot.
func (b *Blacklister) Ensure(ctx context.Context) (created bool, err error) {
	present, err := b.Present()
	if err != nil {
		return false, err
	}
	if !present {
		if err := os.WriteFile(b.path, []byte(b.render()), 0o644); err != nil {
			return false, fmt.Errorf("write %s: %w", b.path, err)
		}
		created = true
	}

	for _, mod := range b.modules {
		if err := b.runner.Run(ctx, "modprobe", "-r", mod); err != nil {
			b.logger.Warnf("module %s not unloaded (takes effect after reboot): %v", mod, err)
		}
	}
	return created, nil
}

func (b *Blacklister) render() string {
	var sb strings.Builder
	sb.WriteString("# Managed by rpi-compute-node. Wireless and bluetooth are not used\n")
	sb.WriteString("# on compute nodes.\n")
	for _, mod := range b.modules {
		sb.WriteString("blacklist " + mod + "\n")
	}
	return sb.String()
}
