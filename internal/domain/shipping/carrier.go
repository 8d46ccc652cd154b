package shipping

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
)

// Carrier is a shipping company with capability flags and physical limits
type Carrier struct {
	shared.BaseEntity
	Code                  string           `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name                  string           `gorm:"type:varchar(100);not null"`
	SupportsCOD           bool             `gorm:"column:supports_cod;not null;default:false"`
	SupportsReturn        bool             `gorm:"not null;default:false"`
	SupportsInternational bool             `gorm:"not null;default:false"`
	MaxWeight             *decimal.Decimal `gorm:"type:decimal(10,3)"` // kg
	MaxWidth              *decimal.Decimal `gorm:"type:decimal(10,2)"` // cm
	MaxHeight             *decimal.Decimal `gorm:"type:decimal(10,2)"` // cm
	MaxDepth              *decimal.Decimal `gorm:"type:decimal(10,2)"` // cm
	IsActive              bool             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (Carrier) TableName() string {
	return "carriers"
}

// NewCarrier creates a new carrier
func NewCarrier(code, name string) (*Carrier, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Carrier code cannot be empty")
	}

	return &Carrier{
		BaseEntity: shared.NewBaseEntity(),
		Code:       code,
		Name:       name,
		IsActive:   true,
	}, nil
}

// CanCarryWeight returns true if the weight fits within the carrier's limit
func (c *Carrier) CanCarryWeight(weight decimal.Decimal) bool {
	if c.MaxWeight == nil {
		return true
	}
	return weight.LessThanOrEqual(*c.MaxWeight)
}
