package shipping

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// BlackoutFilter excludes carrier/zone combinations under active shipping
// restrictions for a given address
type BlackoutFilter struct {
	blackouts []Blackout
}

// NewBlackoutFilter creates a filter over the given blackout set
func NewBlackoutFilter(blackouts []Blackout) *BlackoutFilter {
	return &BlackoutFilter{blackouts: blackouts}
}

// IsBlocked reports whether the carrier/zone pair is blocked for the
// address at the given instant. A blackout with no carrier blocks every
// carrier in its zone; one with no zone applies to any zone.
func (f *BlackoutFilter) IsBlocked(carrierID, zoneID uuid.UUID, address valueobject.Address, asOf time.Time) bool {
	for i := range f.blackouts {
		b := &f.blackouts[i]
		if !b.IsEffective(asOf) {
			continue
		}
		if b.CarrierID != nil && *b.CarrierID != carrierID {
			continue
		}
		if b.ZoneID != nil && *b.ZoneID != zoneID {
			continue
		}
		if b.MatchesAddress(address) {
			return true
		}
	}
	return false
}
