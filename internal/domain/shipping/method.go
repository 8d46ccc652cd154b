package shipping

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// CalcMethod is the pricing strategy a shipping method uses to turn cart
// measurements into a fee
type CalcMethod string

const (
	CalcMethodFlat       CalcMethod = "flat"
	CalcMethodByWeight   CalcMethod = "by_weight"
	CalcMethodByPrice    CalcMethod = "by_price"
	CalcMethodByQuantity CalcMethod = "by_quantity"
	CalcMethodTableRate  CalcMethod = "table_rate"
)

// IsValid returns true if the calc method is valid
func (m CalcMethod) IsValid() bool {
	switch m {
	case CalcMethodFlat, CalcMethodByWeight, CalcMethodByPrice, CalcMethodByQuantity, CalcMethodTableRate:
		return true
	default:
		return false
	}
}

// RateDimension selects which cart measurement a rate table is keyed by
type RateDimension string

const (
	RateDimensionWeight RateDimension = "weight"
	RateDimensionPrice  RateDimension = "price"
)

// IsValid returns true if the rate dimension is valid
func (d RateDimension) IsValid() bool {
	return d == RateDimensionWeight || d == RateDimensionPrice
}

// RateBreakpoint is one row of a rate table: the fee charged for measured
// values up to and including UpTo.
type RateBreakpoint struct {
	UpTo decimal.Decimal `json:"up_to"`
	Fee  decimal.Decimal `json:"fee"`
}

// RateTable is an ordered breakpoint table stored as a JSON column. The fee
// is the one of the smallest breakpoint >= the measured value; values
// beyond the last breakpoint take the last breakpoint's fee.
type RateTable struct {
	Dimension   RateDimension    `json:"dimension"`
	Breakpoints []RateBreakpoint `json:"breakpoints"`
}

// Value implements driver.Valuer for database storage
func (t RateTable) Value() (driver.Value, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database retrieval
func (t *RateTable) Scan(value any) error {
	if value == nil {
		*t = RateTable{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RateTable", value)
	}
	return json.Unmarshal(data, t)
}

// Method is a shipping product a carrier offers inside one zone. The
// (carrier, zone, code) triple is unique.
type Method struct {
	shared.BaseEntity
	CarrierID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_method_carrier_zone_code,priority:1"`
	ZoneID    uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_method_carrier_zone_code,priority:2"`
	Code      string    `gorm:"type:varchar(50);not null;uniqueIndex:idx_method_carrier_zone_code,priority:3"`
	Name      string    `gorm:"type:varchar(100);not null"`

	CalcMethod CalcMethod      `gorm:"type:varchar(20);not null;default:'flat'"`
	BaseFee    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	StepFee    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	StepSize   decimal.Decimal `gorm:"type:decimal(12,3);not null;default:1"`
	RateTable  *RateTable      `gorm:"type:jsonb"`

	FreeThreshold            *decimal.Decimal `gorm:"type:decimal(12,2)"`
	FreeThresholdIncludesTax bool             `gorm:"not null;default:false"`
	CODSurcharge             *decimal.Decimal `gorm:"column:cod_surcharge;type:decimal(12,2)"`

	MinWeight   *decimal.Decimal `gorm:"type:decimal(10,3)"`
	MaxWeight   *decimal.Decimal `gorm:"type:decimal(10,3)"`
	MinPrice    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MaxPrice    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	MinQuantity *int             `gorm:""`
	MaxQuantity *int             `gorm:""`

	ExcludedProductCategories StringList `gorm:"type:jsonb"`
	ExcludedProductTypes      StringList `gorm:"type:jsonb"`

	DeliveryDaysMin int `gorm:"not null;default:1"`
	DeliveryDaysMax int `gorm:"not null;default:5"`

	IsTaxable  bool       `gorm:"not null;default:false"`
	TaxClassID *uuid.UUID `gorm:"type:uuid"`

	SortOrder int  `gorm:"not null;default:0"`
	IsActive  bool `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Method) TableName() string {
	return "shipping_methods"
}

// NewMethod creates a new shipping method for a carrier inside a zone
func NewMethod(carrierID, zoneID uuid.UUID, code, name string, calcMethod CalcMethod) (*Method, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Shipping method code cannot be empty")
	}
	if !calcMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_CALC_METHOD", fmt.Sprintf("Unknown calc method %q", calcMethod))
	}

	return &Method{
		BaseEntity:      shared.NewBaseEntity(),
		CarrierID:       carrierID,
		ZoneID:          zoneID,
		Code:            code,
		Name:            name,
		CalcMethod:      calcMethod,
		StepSize:        decimal.NewFromInt(1),
		DeliveryDaysMin: 1,
		DeliveryDaysMax: 5,
		IsActive:        true,
	}, nil
}

// ValidateFeeConfig checks the method's fee configuration is computable: the
// calc method must be known, and a table rate method needs a non-empty table
// keyed by a known dimension.
func (m *Method) ValidateFeeConfig() error {
	if !m.CalcMethod.IsValid() {
		return shared.NewDomainError("INVALID_CALC_METHOD", fmt.Sprintf("Unknown calc method %q", m.CalcMethod))
	}
	if m.CalcMethod == CalcMethodTableRate {
		if m.RateTable == nil || len(m.RateTable.Breakpoints) == 0 {
			return shared.NewDomainError("INVALID_RATE_TABLE", "Table rate method requires at least one breakpoint")
		}
		if !m.RateTable.Dimension.IsValid() {
			return shared.NewDomainError("INVALID_RATE_TABLE", fmt.Sprintf("Unknown rate table dimension %q", m.RateTable.Dimension))
		}
	}
	return nil
}

// FitsWeight returns true if the cart weight satisfies the method's bounds
func (m *Method) FitsWeight(weight decimal.Decimal) bool {
	if m.MinWeight != nil && weight.LessThan(*m.MinWeight) {
		return false
	}
	if m.MaxWeight != nil && weight.GreaterThan(*m.MaxWeight) {
		return false
	}
	return true
}

// FitsPrice returns true if the cart subtotal satisfies the method's bounds
func (m *Method) FitsPrice(subtotal decimal.Decimal) bool {
	if m.MinPrice != nil && subtotal.LessThan(*m.MinPrice) {
		return false
	}
	if m.MaxPrice != nil && subtotal.GreaterThan(*m.MaxPrice) {
		return false
	}
	return true
}

// FitsQuantity returns true if the cart item count satisfies the method's bounds
func (m *Method) FitsQuantity(quantity int) bool {
	if m.MinQuantity != nil && quantity < *m.MinQuantity {
		return false
	}
	if m.MaxQuantity != nil && quantity > *m.MaxQuantity {
		return false
	}
	return true
}

// ExcludesAny returns true if any cart category or product type is on the
// method's exclusion lists
func (m *Method) ExcludesAny(categories, productTypes []string) bool {
	return listsIntersect(m.ExcludedProductCategories, categories) ||
		listsIntersect(m.ExcludedProductTypes, productTypes)
}

func listsIntersect(excluded StringList, present []string) bool {
	if len(excluded) == 0 || len(present) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(excluded))
	for _, e := range excluded {
		set[strings.ToLower(strings.TrimSpace(e))] = struct{}{}
	}
	for _, p := range present {
		if _, ok := set[strings.ToLower(strings.TrimSpace(p))]; ok {
			return true
		}
	}
	return false
}
