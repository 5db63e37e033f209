package provisioner

import (
	"context"
	"fmt"
	"strings"

	"github.com/realies/rpi-compute-node/internal/core/domain/bootconfig"
	"github.com/realies/rpi-compute-node/internal/core/domain/provision"
	"github.com/realies/rpi-compute-node/internal/core/ports"
	"github.com/realies/rpi-compute-node/internal/infrastructure/docker"
	"github.com/realies/rpi-compute-node/internal/infrastructure/hostinfo"
	"github.com/realies/rpi-compute-node/internal/infrastructure/modprobe"
)

// Deps bundles everything the fixed plan needs. The DI container fills it;
// tests fill it with mocks and scratch paths.
type Deps struct {
	Probe       *hostinfo.Probe
	Packages    ports.PackageManager
	Services    ports.ServiceController
	Runner      ports.CommandRunner
	Blacklister *modprobe.Blacklister
	Reconciler  *bootconfig.Reconciler
	Cmdline     *bootconfig.CmdlinePatcher
	Installer   *docker.Installer
	Logger      ports.Logger

	PurgePackages   []string
	DisableServices []string
	TargetUser      string
}

// BuildPlan assembles the fixed provisioning sequence in its documented
// order.
func BuildPlan(d Deps) (*provision.Plan, error) {
	if d.Logger == nil {
		d.Logger = ports.NopLogger{}
	}
	return provision.NewPlan(
		&preconditionsStep{probe: d.Probe, logger: d.Logger},
		&aptRefreshStep{packages: d.Packages},
		&trimPackagesStep{packages: d.Packages, list: d.PurgePackages, logger: d.Logger},
		&disableServicesStep{services: d.Services, units: d.DisableServices},
		&disableSwapStep{runner: d.Runner, services: d.Services, logger: d.Logger},
		&blacklistStep{blacklister: d.Blacklister},
		&bootConfigStep{reconciler: d.Reconciler, logger: d.Logger},
		&cmdlineStep{patcher: d.Cmdline},
		&runtimeStep{installer: d.Installer, services: d.Services},
		&grantUserStep{installer: d.Installer, user: d.TargetUser},
	)
}

// preconditionsStep aborts the run before any mutation when the process is
// not root or the OS is not a Raspberry Pi OS / Debian flavor. The board
// model probe is informational only.
type preconditionsStep struct {
	probe  *hostinfo.Probe
	logger ports.Logger
}

func (s *preconditionsStep) Name() string    { return "preconditions" }
func (s *preconditionsStep) Summary() string { return "verify privileges and host identity" }

func (s *preconditionsStep) Check(ctx context.Context) (provision.Status, error) {
	// Preconditions are re-verified on every run; they gate everything
	// after them and cost nothing.
	return provision.Pending("verified on every run"), nil
}

func (s *preconditionsStep) Apply(ctx context.Context) error {
	if err := s.probe.RequireRoot(); err != nil {
		return err
	}
	release, err := s.probe.OSRelease()
	if err != nil {
		return err
	}
	if !release.Supported() {
		return fmt.Errorf("unsupported OS %q: need Raspberry Pi OS or Debian", release.ID)
	}
	if model := s.probe.Model(); model != "" {
		s.logger.Infof("board: %s", model)
	} else {
		s.logger.Warnf("no device-tree model found; not running on a Pi?")
	}
	s.logger.Infof("host: %s", release.Pretty)
	return nil
}

// aptRefreshStep updates the package index and upgrades the installed set.
// There is no cheap convergence probe for "everything is current", so the
// step always applies.
type aptRefreshStep struct {
	packages ports.PackageManager
}

func (s *aptRefreshStep) Name() string    { return "apt-refresh" }
func (s *aptRefreshStep) Summary() string { return "refresh package index and upgrade installed set" }

func (s *aptRefreshStep) Check(ctx context.Context) (provision.Status, error) {
	return provision.Pending("runs every invocation"), nil
}

func (s *aptRefreshStep) Apply(ctx context.Context) error {
	if err := s.packages.Update(ctx); err != nil {
		return err
	}
	return s.packages.FullUpgrade(ctx)
}

// trimPackagesStep purges the desktop/bloat list. Each purge is
// best-effort: a package that was never installed is already the desired
// state.
type trimPackagesStep struct {
	packages ports.PackageManager
	list     []string
	logger   ports.Logger
}

func (s *trimPackagesStep) Name() string { return "trim-packages" }
func (s *trimPackagesStep) Summary() string {
	return fmt.Sprintf("purge %d unneeded packages", len(s.list))
}

func (s *trimPackagesStep) Check(ctx context.Context) (provision.Status, error) {
	var present []string
	for _, pkg := range s.list {
		installed, err := s.packages.Installed(ctx, pkg)
		if err != nil {
			return provision.Status{}, err
		}
		if installed {
			present = append(present, pkg)
		}
	}
	if len(present) == 0 {
		return provision.Satisfied("no listed packages installed"), nil
	}
	return provision.Pending("would purge " + strings.Join(present, ", ")), nil
}

func (s *trimPackagesStep) Apply(ctx context.Context) error {
	for _, pkg := range s.list {
		installed, err := s.packages.Installed(ctx, pkg)
		if err != nil {
			return err
		}
		if !installed {
			continue
		}
		if err := s.packages.Purge(ctx, pkg); err != nil {
			s.logger.Warnf("purge %s failed, continuing: %v", pkg, err)
		}
	}
	return s.packages.Autoremove(ctx)
}

// disableServicesStep turns off the units a headless compute node does not
// need, gated per unit by an is-enabled query.
type disableServicesStep struct {
	services ports.ServiceController
	units    []string
}

func (s *disableServicesStep) Name() string { return "disable-services" }
func (s *disableServicesStep) Summary() string {
	return fmt.Sprintf("disable %d services", len(s.units))
}

func (s *disableServicesStep) Check(ctx context.Context) (provision.Status, error) {
	var enabled []string
	for _, unit := range s.units {
		on, err := s.services.IsEnabled(ctx, unit)
		if err != nil {
			return provision.Status{}, err
		}
		if on {
			enabled = append(enabled, unit)
		}
	}
	if len(enabled) == 0 {
		return provision.Satisfied("all listed services disabled"), nil
	}
	return provision.Pending("would disable " + strings.Join(enabled, ", ")), nil
}

func (s *disableServicesStep) Apply(ctx context.Context) error {
	for _, unit := range s.units {
		on, err := s.services.IsEnabled(ctx, unit)
		if err != nil {
			return err
		}
		if !on {
			continue
		}
		if err := s.services.DisableNow(ctx, unit); err != nil {
			return err
		}
	}
	return nil
}

// disableSwapStep retires the dphys-swapfile swap. Containers behave
// poorly with swap on SD cards; every sub-operation is best-effort because
// fresh images vary in whether the tool and service exist at all.
type disableSwapStep struct {
	runner   ports.CommandRunner
	services ports.ServiceController
	logger   ports.Logger
}

func (s *disableSwapStep) Name() string    { return "disable-swap" }
func (s *disableSwapStep) Summary() string { return "turn off and remove the swap file" }

func (s *disableSwapStep) Check(ctx context.Context) (provision.Status, error) {
	if _, err := s.runner.LookPath("dphys-swapfile"); err != nil {
		return provision.Satisfied("dphys-swapfile not present"), nil
	}
	on, err := s.services.IsEnabled(ctx, "dphys-swapfile")
	if err != nil {
		return provision.Status{}, err
	}
	if !on {
		return provision.Satisfied("dphys-swapfile service disabled"), nil
	}
	return provision.Pending("would disable dphys-swapfile"), nil
}

func (s *disableSwapStep) Apply(ctx context.Context) error {
	if err := s.runner.Run(ctx, "dphys-swapfile", "swapoff"); err != nil {
		s.logger.Warnf("swapoff failed, continuing: %v", err)
	}
	if err := s.runner.Run(ctx, "dphys-swapfile", "uninstall"); err != nil {
		s.logger.Warnf("swap uninstall failed, continuing: %v", err)
	}
	if err := s.services.DisableNow(ctx, "dphys-swapfile"); err != nil {
		s.logger.Warnf("disable dphys-swapfile failed, continuing: %v", err)
	}
	return nil
}

// blacklistStep writes the kernel module blacklist once.
type blacklistStep struct {
	blacklister *modprobe.Blacklister
}

func (s *blacklistStep) Name() string    { return "blacklist-modules" }
func (s *blacklistStep) Summary() string { return "blacklist wireless and bluetooth modules" }

func (s *blacklistStep) Check(ctx context.Context) (provision.Status, error) {
	present, err := s.blacklister.Present()
	if err != nil {
		return provision.Status{}, err
	}
	if present {
		return provision.Satisfied(s.blacklister.Path() + " exists"), nil
	}
	return provision.Pending("would write " + s.blacklister.Path()), nil
}

func (s *blacklistStep) Apply(ctx context.Context) error {
	_, err := s.blacklister.Ensure(ctx)
	return err
}

// bootConfigStep runs the config reconciler. A managed file without its
// backup is the one fatal inconsistency in this component and aborts the
// run from Check.
type bootConfigStep struct {
	reconciler *bootconfig.Reconciler
	logger     ports.Logger
}

func (s *bootConfigStep) Name() string    { return "boot-config" }
func (s *bootConfigStep) Summary() string { return "reconcile " + s.reconciler.ConfigPath() }

func (s *bootConfigStep) Check(ctx context.Context) (provision.Status, error) {
	converged, err := s.reconciler.Converged()
	if err != nil {
		return provision.Status{}, err
	}
	if converged {
		return provision.Satisfied("managed settings in place"), nil
	}
	return provision.Pending("would reconcile desired settings"), nil
}

func (s *bootConfigStep) Apply(ctx context.Context) error {
	outcome, err := s.reconciler.Reconcile()
	if err != nil {
		return err
	}
	switch {
	case outcome.BackupCreated:
		s.logger.Infof("captured pristine backup at %s", s.reconciler.BackupPath())
	case outcome.RestoredFromBackup:
		s.logger.Infof("restored pristine state before re-applying settings")
	}
	return nil
}

// cmdlineStep appends the cgroup tokens to the boot command line once.
type cmdlineStep struct {
	patcher *bootconfig.CmdlinePatcher
}

func (s *cmdlineStep) Name() string    { return "boot-cmdline" }
func (s *cmdlineStep) Summary() string { return "enable cgroups on " + s.patcher.Path() }

func (s *cmdlineStep) Check(ctx context.Context) (provision.Status, error) {
	patched, err := s.patcher.Patched()
	if err != nil {
		return provision.Status{}, err
	}
	if patched {
		return provision.Satisfied("cgroup tokens present"), nil
	}
	return provision.Pending("would append cgroup tokens"), nil
}

func (s *cmdlineStep) Apply(ctx context.Context) error {
	_, err := s.patcher.Patch()
	return err
}

// runtimeStep installs the container runtime and makes sure its service is
// on.
type runtimeStep struct {
	installer *docker.Installer
	services  ports.ServiceController
}

func (s *runtimeStep) Name() string    { return "container-runtime" }
func (s *runtimeStep) Summary() string { return "install and enable the container runtime" }

func (s *runtimeStep) Check(ctx context.Context) (provision.Status, error) {
	installed, err := s.installer.Installed(ctx)
	if err != nil {
		return provision.Status{}, err
	}
	if !installed {
		return provision.Pending("would install docker packages"), nil
	}
	enabled, err := s.services.IsEnabled(ctx, "docker")
	if err != nil {
		return provision.Status{}, err
	}
	if !enabled {
		return provision.Pending("would enable the docker service"), nil
	}
	return provision.Satisfied("runtime installed and enabled"), nil
}

func (s *runtimeStep) Apply(ctx context.Context) error {
	installed, err := s.installer.Installed(ctx)
	if err != nil {
		return err
	}
	if !installed {
		if err := s.installer.Install(ctx); err != nil {
			return err
		}
	}
	return s.services.EnableNow(ctx, "docker")
}

// grantUserStep puts the primary account into the docker group.
type grantUserStep struct {
	installer *docker.Installer
	user      string
}

func (s *grantUserStep) Name() string    { return "grant-user" }
func (s *grantUserStep) Summary() string { return "add " + s.user + " to the docker group" }

func (s *grantUserStep) Check(ctx context.Context) (provision.Status, error) {
	member, err := s.installer.UserInGroup(ctx, s.user)
	if err != nil {
		return provision.Status{}, err
	}
	if member {
		return provision.Satisfied(s.user + " already in docker group"), nil
	}
	return provision.Pending("would run usermod -aG docker " + s.user), nil
}

func (s *grantUserStep) Apply(ctx context.Context) error {
	_, err := s.installer.GrantUser(ctx, s.user)
	return err
}
