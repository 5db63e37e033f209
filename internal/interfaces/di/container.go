// Package di wires concrete adapters into the provisioning plan.
package di

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/realies/rpi-compute-node/internal/application/provisioner"
	"github.com/realies/rpi-compute-node/internal/core/domain/bootconfig"
	"github.com/realies/rpi-compute-node/internal/core/ports"
	"github.com/realies/rpi-compute-node/internal/infrastructure/apt"
	"github.com/realies/rpi-compute-node/internal/infrastructure/config"
	"github.com/realies/rpi-compute-node/internal/infrastructure/docker"
	"github.com/realies/rpi-compute-node/internal/infrastructure/fetch"
	"github.com/realies/rpi-compute-node/internal/infrastructure/hostinfo"
	"github.com/realies/rpi-compute-node/internal/infrastructure/logging"
	"github.com/realies/rpi-compute-node/internal/infrastructure/modprobe"
	"github.com/realies/rpi-compute-node/internal/infrastructure/system"
	"github.com/realies/rpi-compute-node/internal/infrastructure/systemd"
)

// Container holds the wired application dependencies.
type Container struct {
	Config      config.Config
	RunID       string
	Logger      ports.Logger
	Provisioner *provisioner.Provisioner
	Reconciler  *bootconfig.Reconciler
}

// NewContainer loads configuration from configPath and wires every adapter.
// Log output goes to out.
func NewContainer(configPath string, out io.Writer) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := logging.NewStepLogger(out, runID)

	runner := system.NewRunner(nil, logger)
	packages := apt.NewManager(runner)
	services := systemd.NewController(runner)
	probe := hostinfo.NewProbe(cfg.OSRelease, cfg.DeviceTreeModel, nil)

	reconciler, err := bootconfig.NewReconciler(cfg.BootConfig, bootconfig.DefaultSettings())
	if err != nil {
		return nil, fmt.Errorf("wire reconciler: %w", err)
	}
	patcher, err := bootconfig.NewCmdlinePatcher(cfg.BootCmdline)
	if err != nil {
		return nil, fmt.Errorf("wire cmdline patcher: %w", err)
	}
	blacklister, err := modprobe.NewBlacklister(cfg.BlacklistFile, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("wire blacklister: %w", err)
	}

	// The repository entry needs the release codename; fall back to the
	// current stable when the probe cannot answer (e.g. dry runs off-node).
	codename := "bookworm"
	if release, err := probe.OSRelease(); err == nil && release.Codename != "" {
		codename = release.Codename
	}
	installer, err := docker.NewInstaller(
		cfg.DockerKeyURL, cfg.DockerKeyring, cfg.DockerList, codename,
		runner, packages, fetch.NewHTTPFetcher(30*time.Second), logger)
	if err != nil {
		return nil, fmt.Errorf("wire installer: %w", err)
	}

	plan, err := provisioner.BuildPlan(provisioner.Deps{
		Probe:           probe,
		Packages:        packages,
		Services:        services,
		Runner:          runner,
		Blacklister:     blacklister,
		Reconciler:      reconciler,
		Cmdline:         patcher,
		Installer:       installer,
		Logger:          logger,
		PurgePackages:   cfg.PurgePackages,
		DisableServices: cfg.DisableServices,
		TargetUser:      cfg.TargetUser,
	})
	if err != nil {
		return nil, fmt.Errorf("build plan: %w", err)
	}

	return &Container{
		Config:      cfg,
		RunID:       runID,
		Logger:      logger,
		Provisioner: provisioner.New(plan, logger, runID),
		Reconciler:  reconciler,
	}, nil
}
