package ports

import "context"

// ServiceController abstracts the service manager for unit enable/disable
// toggles and the queries that gate them.
type ServiceController interface {
	// IsEnabled reports whether the unit starts at boot.
	IsEnabled(ctx context.Context, unit string) (bool, error)

	// DisableNow disables the unit and stops it immediately.
	DisableNow(ctx context.Context, unit string) error

	// EnableNow enables the unit and starts it immediately.
	EnableNow(ctx context.Context, unit string) error
}
