package tax

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// EntityType identifies what kind of subject a tax rule targets
type EntityType string

const (
	EntityTypeProduct  EntityType = "product"
	EntityTypeCategory EntityType = "category"
	EntityTypeCustomer EntityType = "customer"
	EntityTypeShipping EntityType = "shipping"
	EntityTypePayment  EntityType = "payment"
)

// IsValid returns true if the entity type is valid
func (t EntityType) IsValid() bool {
	switch t {
	case EntityTypeProduct, EntityTypeCategory, EntityTypeCustomer, EntityTypeShipping, EntityTypePayment:
		return true
	default:
		return false
	}
}

// ConditionKind is the closed set of predicate kinds a rule condition may
// use. Conditions are data, not code: each kind has a fixed evaluation,
// dispatched in Condition.Matches.
type ConditionKind string

const (
	// ConditionKindAttribute matches a key/value pair in the context
	// attributes (e.g. category_type=food)
	ConditionKindAttribute ConditionKind = "attribute"
	// ConditionKindCustomerType matches the context's customer type
	ConditionKindCustomerType ConditionKind = "customer_type"
	// ConditionKindCountry matches the destination country code
	ConditionKindCountry ConditionKind = "country"
	// ConditionKindRegion matches the destination region
	ConditionKindRegion ConditionKind = "region"
	// ConditionKindAmountRange matches when the order amount falls in [Min, Max]
	ConditionKindAmountRange ConditionKind = "amount_range"
	// ConditionKindDateRange matches when the evaluation instant falls in [From, To]
	ConditionKindDateRange ConditionKind = "date_range"
)

// Condition is a single tagged predicate attached to a tax rule
type Condition struct {
	Kind  ConditionKind    `json:"kind"`
	Key   string           `json:"key,omitempty"`
	Value string           `json:"value,omitempty"`
	Min   *decimal.Decimal `json:"min,omitempty"`
	Max   *decimal.Decimal `json:"max,omitempty"`
	From  *time.Time       `json:"from,omitempty"`
	To    *time.Time       `json:"to,omitempty"`
}

// Matches evaluates the condition against the entity context
func (c Condition) Matches(ctx EntityContext, asOf time.Time) bool {
	switch c.Kind {
	case ConditionKindAttribute:
		return ctx.Attributes[c.Key] == c.Value
	case ConditionKindCustomerType:
		return strings.EqualFold(ctx.CustomerType, c.Value)
	case ConditionKindCountry:
		return strings.EqualFold(ctx.Address.CountryCode(), c.Value)
	case ConditionKindRegion:
		return strings.EqualFold(ctx.Address.Region(), c.Value)
	case ConditionKindAmountRange:
		if c.Min != nil && ctx.OrderAmount.LessThan(*c.Min) {
			return false
		}
		if c.Max != nil && ctx.OrderAmount.GreaterThan(*c.Max) {
			return false
		}
		return true
	case ConditionKindDateRange:
		if c.From != nil && asOf.Before(*c.From) {
			return false
		}
		if c.To != nil && asOf.After(*c.To) {
			return false
		}
		return true
	default:
		// Unknown kinds never match; flagged at snapshot validation
		return false
	}
}

// Validate checks the condition is well formed
func (c Condition) Validate() error {
	switch c.Kind {
	case ConditionKindAttribute:
		if c.Key == "" {
			return shared.NewDomainError("INVALID_CONDITION", "Attribute condition requires a key")
		}
	case ConditionKindCustomerType, ConditionKindCountry, ConditionKindRegion:
		if c.Value == "" {
			return shared.NewDomainError("INVALID_CONDITION", fmt.Sprintf("%s condition requires a value", c.Kind))
		}
	case ConditionKindAmountRange:
		if c.Min == nil && c.Max == nil {
			return shared.NewDomainError("INVALID_CONDITION", "Amount range condition requires min or max")
		}
	case ConditionKindDateRange:
		if c.From == nil && c.To == nil {
			return shared.NewDomainError("INVALID_CONDITION", "Date range condition requires from or to")
		}
	default:
		return shared.NewDomainError("INVALID_CONDITION", fmt.Sprintf("Unknown condition kind %q", c.Kind))
	}
	return nil
}

// Conditions is a list of tagged predicates stored as a JSON column
type Conditions []Condition

// Value implements driver.Valuer for database storage
func (c Conditions) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for database retrieval
func (c *Conditions) Scan(value any) error {
	if value == nil {
		*c = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into Conditions", value)
	}
	return json.Unmarshal(data, c)
}

// EntityContext carries everything known about the taxable subject when a
// rate is resolved: the subject itself, its tax class, the destination, the
// customer and the cart amount, plus free-form attributes (category type,
// payment method and the like) consulted by attribute conditions.
type EntityContext struct {
	EntityType   EntityType
	EntityID     *uuid.UUID
	TaxClassID   uuid.UUID
	Address      valueobject.Address
	CustomerType string
	OrderAmount  decimal.Decimal
	Attributes   map[string]string
}

// TaxRule selects a tax rate for a subject. Rules evaluate in priority order
// (higher first, ties broken by lowest id) and a matching rule with
// StopProcessing set shadows everything below it.
type TaxRule struct {
	shared.BaseEntity
	TaxRateID      uuid.UUID        `gorm:"type:uuid;not null;index"`
	EntityType     EntityType       `gorm:"type:varchar(20);not null;index"`
	EntityID       *uuid.UUID       `gorm:"type:uuid;index"` // nil = any entity of this type
	CountryCode    string           `gorm:"type:varchar(2)"`
	Region         string           `gorm:"type:varchar(100)"`
	PostalCodeFrom string           `gorm:"type:varchar(20)"`
	PostalCodeTo   string           `gorm:"type:varchar(20)"`
	CustomerType   string           `gorm:"type:varchar(50)"`
	OrderAmountMin *decimal.Decimal `gorm:"type:decimal(18,2)"`
	OrderAmountMax *decimal.Decimal `gorm:"type:decimal(18,2)"`
	Priority       int              `gorm:"not null;default:0;index"`
	StopProcessing bool             `gorm:"not null;default:false"`
	ActiveFrom     *time.Time       `gorm:"index"`
	ActiveTo       *time.Time       `gorm:"index"`
	Conditions     Conditions       `gorm:"type:jsonb"`
	IsActive       bool             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TaxRule) TableName() string {
	return "tax_rules"
}

// Validate checks the rule is structurally sound
func (r *TaxRule) Validate() error {
	if !r.EntityType.IsValid() {
		return shared.NewDomainError("INVALID_ENTITY_TYPE", fmt.Sprintf("Unknown entity type %q", r.EntityType))
	}
	if r.TaxRateID == uuid.Nil {
		return shared.NewDomainError("INVALID_RULE_CONFIG", "Tax rule must reference a tax rate")
	}
	for _, cond := range r.Conditions {
		if err := cond.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsEffective returns true if the rule is active and its window contains asOf
func (r *TaxRule) IsEffective(asOf time.Time) bool {
	if !r.IsActive {
		return false
	}
	if r.ActiveFrom != nil && asOf.Before(*r.ActiveFrom) {
		return false
	}
	if r.ActiveTo != nil && asOf.After(*r.ActiveTo) {
		return false
	}
	return true
}

// AppliesTo reports whether every populated scope field of the rule is
// satisfied by the context. Empty scope fields are wildcards.
func (r *TaxRule) AppliesTo(ctx EntityContext, asOf time.Time) bool {
	if r.EntityType != ctx.EntityType {
		return false
	}
	if r.EntityID != nil {
		if ctx.EntityID == nil || *r.EntityID != *ctx.EntityID {
			return false
		}
	}
	if r.CountryCode != "" && !strings.EqualFold(r.CountryCode, ctx.Address.CountryCode()) {
		return false
	}
	if r.Region != "" && !strings.EqualFold(r.Region, ctx.Address.Region()) {
		return false
	}
	if r.PostalCodeFrom != "" || r.PostalCodeTo != "" {
		if !shared.PostalCodeInRange(ctx.Address.PostalCode(), r.PostalCodeFrom, r.PostalCodeTo) {
			return false
		}
	}
	if r.CustomerType != "" && !strings.EqualFold(r.CustomerType, ctx.CustomerType) {
		return false
	}
	if r.OrderAmountMin != nil && ctx.OrderAmount.LessThan(*r.OrderAmountMin) {
		return false
	}
	if r.OrderAmountMax != nil && ctx.OrderAmount.GreaterThan(*r.OrderAmountMax) {
		return false
	}
	for _, cond := range r.Conditions {
		if !cond.Matches(ctx, asOf) {
			return false
		}
	}
	return true
}

// IsExactEntityMatch reports whether the rule targets the context's exact
// entity id rather than the wildcard for its type.
func (r *TaxRule) IsExactEntityMatch(ctx EntityContext) bool {
	return r.EntityID != nil && ctx.EntityID != nil && *r.EntityID == *ctx.EntityID
}
