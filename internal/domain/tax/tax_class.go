package tax

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// TaxClass groups tax rates for a family of taxable entities.
// Every taxable entity ultimately falls back to its class's default rate
// when no rule selects a more specific one.
type TaxClass struct {
	shared.BaseEntity
	Code        string          `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string          `gorm:"type:varchar(100);not null"`
	DefaultRate decimal.Decimal `gorm:"type:decimal(8,6);not null"` // fraction, 0.20 = 20%
	IsActive    bool            `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaxClass) TableName() string {
	return "tax_classes"
}

// NewTaxClass creates a new tax class
func NewTaxClass(code, name string, defaultRate decimal.Decimal) (*TaxClass, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Tax class code cannot be empty")
	}
	if err := validateRateFraction(defaultRate); err != nil {
		return nil, err
	}

	return &TaxClass{
		BaseEntity:  shared.NewBaseEntity(),
		Code:        code,
		Name:        name,
		DefaultRate: defaultRate,
		IsActive:    true,
	}, nil
}

// validateRateFraction checks a fractional rate is within [0, 1]
func validateRateFraction(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return shared.NewDomainError("INVALID_RATE", "Tax rate must be a fraction between 0 and 1")
	}
	return nil
}
