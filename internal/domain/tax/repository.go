package tax

import (
	"context"
)

// Repository defines the interface for loading tax configuration. The
// engine only ever reads: rows are maintained by the admin surface.
type Repository interface {
	// FindActiveClasses returns all active tax classes
	FindActiveClasses(ctx context.Context) ([]TaxClass, error)

	// FindActiveRates returns all rates of active classes, including rates
	// whose effective window is in the future or past; effectiveness is
	// evaluated per pricing request
	FindActiveRates(ctx context.Context) ([]TaxRate, error)

	// FindActiveRules returns all active rules ordered by priority descending
	FindActiveRules(ctx context.Context) ([]TaxRule, error)
}
