package tax

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// RateType determines how a rate value is interpreted
type RateType string

const (
	// RateTypePercentage rates are fractions of the taxable base (0.20 = 20%)
	RateTypePercentage RateType = "percentage"
	// RateTypeFixed rates charge a fixed amount per line in order currency
	RateTypeFixed RateType = "fixed"
)

// IsValid returns true if the rate type is valid
func (t RateType) IsValid() bool {
	return t == RateTypePercentage || t == RateTypeFixed
}

// TaxRate is one rate belonging to a tax class. A class may carry several
// rates, e.g. a standard rate plus regional variants selected by rules.
type TaxRate struct {
	shared.BaseEntity
	TaxClassID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Code          string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Rate          decimal.Decimal `gorm:"type:decimal(12,6);not null"`
	RateType      RateType        `gorm:"type:varchar(20);not null;default:'percentage'"`
	CountryCode   string          `gorm:"type:varchar(2)"`
	Region        string          `gorm:"type:varchar(100)"`
	IsCompound    bool            `gorm:"not null;default:false"`
	Priority      int             `gorm:"not null;default:0"`
	EffectiveFrom *time.Time      `gorm:"index"`
	EffectiveTo   *time.Time      `gorm:"index"`
	IsActive      bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaxRate) TableName() string {
	return "tax_rates"
}

// NewTaxRate creates a new tax rate for a class
func NewTaxRate(taxClassID uuid.UUID, code string, rate decimal.Decimal, rateType RateType) (*TaxRate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Tax rate code cannot be empty")
	}
	if !rateType.IsValid() {
		return nil, shared.NewDomainError("INVALID_RATE_TYPE", "Rate type must be percentage or fixed")
	}
	if rateType == RateTypePercentage {
		if err := validateRateFraction(rate); err != nil {
			return nil, err
		}
	} else if rate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_RATE", "Fixed tax amount cannot be negative")
	}

	return &TaxRate{
		BaseEntity: shared.NewBaseEntity(),
		TaxClassID: taxClassID,
		Code:       code,
		Rate:       rate,
		RateType:   rateType,
		IsActive:   true,
	}, nil
}

// IsEffective returns true if the rate is active and its effective window
// contains the given instant. Open bounds never restrict.
func (r *TaxRate) IsEffective(asOf time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.EffectiveFrom != nil && asOf.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && asOf.After(*r.EffectiveTo) {
		return false
	}
	return true
}
