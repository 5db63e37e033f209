package ports

import "context"

// PackageManager abstracts the system package manager. Implementations
// invoke it with fixed arguments and trust the process exit status.
type PackageManager interface {
	// Update refreshes the package index.
	Update(ctx context.Context) error

	// FullUpgrade upgrades every installed package.
	FullUpgrade(ctx context.Context) error

	// Install installs the named packages.
	Install(ctx context.Context, pkgs ...string) error

	// Purge removes one package and its configuration. Purging a package
	// that was never installed returns an error the caller may tolerate.
	Purge(ctx context.Context, pkg string) error

	// Autoremove drops packages that are no longer depended on.
	Autoremove(ctx context.Context) error

	// Installed reports whether the named package is currently installed.
	Installed(ctx context.Context, pkg string) (bool, error)
}
