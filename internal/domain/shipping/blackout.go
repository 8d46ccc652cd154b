package shipping

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// RestrictionType describes which address dimension a blackout restricts
type RestrictionType string

const (
	RestrictionTypePostalCode RestrictionType = "postal_code"
	RestrictionTypeCity       RestrictionType = "city"
	RestrictionTypeRegion     RestrictionType = "region"
	RestrictionTypeCountry    RestrictionType = "country"
)

// IsValid returns true if the restriction type is valid
func (t RestrictionType) IsValid() bool {
	switch t {
	case RestrictionTypePostalCode, RestrictionTypeCity, RestrictionTypeRegion, RestrictionTypeCountry:
		return true
	default:
		return false
	}
}

// Blackout is a hard exclusion layered on top of zone and carrier
// eligibility. With CarrierID set it blocks just that carrier; with
// CarrierID nil it blocks the whole zone for every carrier. Blocked
// methods are removed from candidates, never merely deprioritized.
type Blackout struct {
	shared.BaseEntity
	CarrierID        *uuid.UUID      `gorm:"type:uuid;index"`
	ZoneID           *uuid.UUID      `gorm:"type:uuid;index"`
	RestrictionType  RestrictionType `gorm:"type:varchar(20);not null"`
	RestrictionValue string          `gorm:"type:varchar(100);not null"`
	IsPermanent      bool            `gorm:"not null;default:false"`
	StartDate        *time.Time      `gorm:"index"`
	EndDate          *time.Time      `gorm:"index"`
	IsActive         bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Blackout) TableName() string {
	return "shipping_blackouts"
}

// NewBlackout creates a new shipping blackout
func NewBlackout(restrictionType RestrictionType, restrictionValue string) (*Blackout, error) {
	restrictionValue = strings.TrimSpace(restrictionValue)
	if !restrictionType.IsValid() {
		return nil, shared.NewDomainError("INVALID_RESTRICTION_TYPE", fmt.Sprintf("Unknown restriction type %q", restrictionType))
	}
	if restrictionValue == "" {
		return nil, shared.NewDomainError("INVALID_RESTRICTION", "Restriction value cannot be empty")
	}

	return &Blackout{
		BaseEntity:       shared.NewBaseEntity(),
		RestrictionType:  restrictionType,
		RestrictionValue: restrictionValue,
		IsActive:         true,
	}, nil
}

// IsEffective returns true if the blackout is active and in force at asOf.
// Permanent blackouts ignore the date window.
func (b *Blackout) IsEffective(asOf time.Time) bool {
	if !b.IsActive {
		return false
	}
	if b.IsPermanent {
		return true
	}
	if b.StartDate != nil && asOf.Before(*b.StartDate) {
		return false
	}
	if b.EndDate != nil && asOf.After(*b.EndDate) {
		return false
	}
	return b.StartDate != nil || b.EndDate != nil
}

// MatchesAddress reports whether the restriction applies to the address.
// Postal codes match exactly or by prefix; city, region and country match
// by case-insensitive equality.
func (b *Blackout) MatchesAddress(address valueobject.Address) bool {
	switch b.RestrictionType {
	case RestrictionTypePostalCode:
		code := address.PostalCode()
		return code != "" && strings.HasPrefix(code, b.RestrictionValue)
	case RestrictionTypeCity:
		return equalFoldTurkish(address.City(), b.RestrictionValue)
	case RestrictionTypeRegion:
		return equalFoldTurkish(address.Region(), b.RestrictionValue)
	case RestrictionTypeCountry:
		return strings.EqualFold(address.CountryCode(), b.RestrictionValue)
	default:
		return false
	}
}
