// Package docker installs the container runtime from Docker's apt
// repository: signing key, source entry, packages, service, group
// membership. The upstream endpoints and the installer commands are opaque
// collaborators; only their exit status is inspected.
package docker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/realies/rpi-compute-node/internal/core/ports"
)

// Packages is the fixed set installed from the Docker repository.
var Packages = []string{
	"docker-ce",
	"docker-ce-cli",
	"containerd.io",
	"docker-buildx-plugin",
	"docker-compose-plugin",
}

// Installer wires the key fetch, apt repository setup, and package install
// into one idempotent sequence.
type Installer struct {
	keyURL   string
	keyring  string
	listPath string
	codename string

	runner   ports.CommandRunner
	packages ports.PackageManager
	fetcher  ports.Fetcher
	logger   ports.Logger
}

// NewInstaller creates an Installer. codename is the OS release codename
// used in the repository entry (e.g. "bookworm").
func NewInstaller(keyURL, keyring, listPath, codename string,
	runner ports.CommandRunner, packages ports.PackageManager,
	fetcher ports.Fetcher, logger ports.Logger) (*Installer, error) {
	switch {
	case keyURL == "":
		return nil, fmt.Errorf("key URL cannot be empty")
	case keyring == "":
		return nil, fmt.Errorf("keyring path cannot be empty")
	case listPath == "":
		return nil, fmt.Errorf("source list path cannot be empty")
	case codename == "":
		return nil, fmt.Errorf("codename cannot be empty")
	}
	if logger == nil {
		logger = ports.NopLogger{}
	}
	return &Installer{
		keyURL:   keyURL,
		keyring:  keyring,
		listPath: listPath,
		codename: codename,
		runner:   runner,
		packages: packages,
		fetcher:  fetcher,
		logger:   logger,
	}, nil
}

// Installed reports whether the runtime package is already present.
func (i *Installer) Installed(ctx context.Context) (bool, error) {
	return i.packages.Installed(ctx, "docker-ce")
}

// Install runs the full sequence: keyring, repository entry, index refresh,
// package install. Keyring and repository entry are create-once files.
func (i *Installer) Install(ctx context.Context) error {
	if err := i.ensureKeyring(ctx); err != nil {
		return err
	}
	if err := i.ensureRepo(ctx); err != nil {
		return err
	}
	if err := i.packages.Update(ctx); err != nil {
		return err
	}
	if err := i.packages.Install(ctx, Packages...); err != nil {
		return err
	}
	return nil
}

// GrantUser adds user to the docker group unless already a member.
func (i *Installer) GrantUser(ctx context.Context, user string) (changed bool, err error) {
	member, err := i.UserInGroup(ctx, user)
	if err != nil {
		return false, err
	}
	if member {
		return false, nil
	}
	if err := i.runner.Run(ctx, "usermod", "-aG", "docker", user); err != nil {
		return false, fmt.Errorf("add %s to docker group: %w", user, err)
	}
	return true, nil
}

// UserInGroup reports whether user already belongs to the docker group.
func (i *Installer) UserInGroup(ctx context.Context, user string) (bool, error) {
	groups, err := i.runner.Output(ctx, "id", "-nG", user)
	if err != nil {
		return false, fmt.Errorf("query groups of %s: %w", user, err)
	}
	for _, g := range strings.Fields(groups) {
		if g == "docker" {
			return true, nil
		}
	}
	return false, nil
}

func (i *Installer) ensureKeyring(ctx context.Context) error {
	if _, err := os.Stat(i.keyring); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", i.keyring, err)
	}
	key, err := i.fetcher.Fetch(ctx, i.keyURL)
	if err != nil {
		return fmt.Errorf("fetch signing key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(i.keyring), 0o755); err != nil {
		return fmt.Errorf("create keyring directory: %w", err)
	}
	if err := os.WriteFile(i.keyring, key, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", i.keyring, err)
	}
	i.logger.Infof("wrote signing key to %s", i.keyring)
	return nil
}

func (i *Installer) ensureRepo(ctx context.Context) error {
	if _, err := os.Stat(i.listPath); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", i.listPath, err)
	}
	arch, err := i.runner.Output(ctx, "dpkg", "--print-architecture")
	if err != nil {
		return fmt.Errorf("detect architecture: %w", err)
	}
	entry := fmt.Sprintf("deb [arch=%s signed-by=%s] https://download.docker.com/linux/debian %s stable\n",
		arch, i.keyring, i.codename)
	if err := os.WriteFile(i.listPath, []byte(entry), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", i.listPath, err)
	}
	i.logger.Infof("wrote apt repository entry to %s", i.listPath)
	return nil
}
