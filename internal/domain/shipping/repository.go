package shipping

import (
	"context"
)

// Repository defines the interface for loading shipping configuration.
// The engine only ever reads: rows are maintained by the admin surface.
type Repository interface {
	// FindActiveZones returns all active shipping zones
	FindActiveZones(ctx context.Context) ([]Zone, error)

	// FindActiveCarriers returns all active carriers
	FindActiveCarriers(ctx context.Context) ([]Carrier, error)

	// FindActiveMethods returns all active shipping methods
	FindActiveMethods(ctx context.Context) ([]Method, error)

	// FindActiveBlackouts returns all active blackouts, including dated
	// ones outside their window; effectiveness is evaluated per request
	FindActiveBlackouts(ctx context.Context) ([]Blackout, error)

	// GetSettings returns the global shipping settings record, or the
	// disabled defaults when none is configured
	GetSettings(ctx context.Context) (Settings, error)
}
