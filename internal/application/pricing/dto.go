package pricing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// OrderLineRequest is one cart line to be priced
type OrderLineRequest struct {
	ProductID  *uuid.UUID      `json:"product_id"`
	Name       string          `json:"name" binding:"max=200"`
	UnitPrice  decimal.Decimal `json:"unit_price" binding:"required"`
	Quantity   int             `json:"quantity" binding:"required,min=1"`
	Weight     decimal.Decimal `json:"weight"` // per unit, kg
	TaxClassID uuid.UUID       `json:"tax_class_id" binding:"required"`
	// Categories and ProductType feed shipping exclusion lists
	Categories  []string `json:"categories"`
	ProductType string   `json:"product_type"`
	// Attributes are consulted by attribute conditions on tax rules
	// (e.g. category_type: food)
	Attributes map[string]string `json:"attributes"`
}

// PriceOrderRequest asks for a full priced quote of a cart
type PriceOrderRequest struct {
	Address        valueobject.Address `json:"address" binding:"required"`
	CustomerType   string              `json:"customer_type" binding:"max=50"`
	CashOnDelivery bool                `json:"cash_on_delivery"`
	// ChosenMethodID, when set, selects that shipping method if it is
	// still eligible; otherwise the ranked option list is returned
	ChosenMethodID *uuid.UUID         `json:"chosen_method_id"`
	Lines          []OrderLineRequest `json:"lines" binding:"required,min=1,dive"`
	// AsOf pins rule and blackout effectiveness; defaults to now
	AsOf *time.Time `json:"as_of"`
}

// PricedLine is one priced cart line in the response
type PricedLine struct {
	ProductID      *uuid.UUID        `json:"product_id,omitempty"`
	Name           string            `json:"name,omitempty"`
	Quantity       int               `json:"quantity"`
	UnitPrice      valueobject.Money `json:"unit_price"`
	LineTotal      valueobject.Money `json:"line_total"`
	TaxRate        decimal.Decimal   `json:"tax_rate"`
	TaxAmount      valueobject.Money `json:"tax_amount"`
	AppliedRuleIDs []uuid.UUID       `json:"applied_rule_ids,omitempty"`
	TaxFromDefault bool              `json:"tax_from_default"`
}

// ShippingOption is one eligible shipping method with its computed fee
type ShippingOption struct {
	MethodID        uuid.UUID         `json:"method_id"`
	MethodCode      string            `json:"method_code"`
	MethodName      string            `json:"method_name"`
	CarrierCode     string            `json:"carrier_code"`
	CarrierName     string            `json:"carrier_name"`
	ZoneSlug        string            `json:"zone_slug"`
	Fee             valueobject.Money `json:"fee"`
	DeliveryDaysMin int               `json:"delivery_days_min"`
	DeliveryDaysMax int               `json:"delivery_days_max"`
}

// PricedOrder is the complete priced quote. Shipping is set when a chosen
// method was revalidated as eligible; otherwise ShippingOptions carries the
// ranked list for the caller to choose from and shipping amounts are zero.
type PricedOrder struct {
	Currency            valueobject.Currency `json:"currency"`
	Lines               []PricedLine         `json:"lines"`
	Subtotal            valueobject.Money    `json:"subtotal"`
	TaxTotal            valueobject.Money    `json:"tax_total"`
	Shipping            *ShippingOption      `json:"shipping,omitempty"`
	ShippingTax         valueobject.Money    `json:"shipping_tax"`
	ShippingOptions     []ShippingOption     `json:"shipping_options,omitempty"`
	GrandTotal          valueobject.Money    `json:"grand_total"`
	NoShippingAvailable bool                 `json:"no_shipping_available,omitempty"`
}

// ShippingOptionsRequest asks for the eligible shipping methods of a
// destination and cart without pricing the cart lines
type ShippingOptionsRequest struct {
	Address         valueobject.Address `json:"address" binding:"required"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	SubtotalWithTax decimal.Decimal     `json:"subtotal_with_tax"`
	Weight          decimal.Decimal     `json:"weight"`
	Quantity        int                 `json:"quantity" binding:"min=0"`
	CashOnDelivery  bool                `json:"cash_on_delivery"`
	Categories      []string            `json:"categories"`
	ProductTypes    []string            `json:"product_types"`
	AsOf            *time.Time          `json:"as_of"`
}

// ShippingOptionsResponse carries the ranked eligible methods. An empty
// list with NoShippingAvailable set is a valid outcome, not an error.
type ShippingOptionsResponse struct {
	Options             []ShippingOption `json:"options"`
	NoShippingAvailable bool             `json:"no_shipping_available"`
}

// TaxQueryRequest resolves the effective tax rate for one entity context
type TaxQueryRequest struct {
	EntityType   string              `json:"entity_type" binding:"required"`
	EntityID     *uuid.UUID          `json:"entity_id"`
	TaxClassID   uuid.UUID           `json:"tax_class_id" binding:"required"`
	Address      valueobject.Address `json:"address" binding:"required"`
	CustomerType string              `json:"customer_type" binding:"max=50"`
	OrderAmount  decimal.Decimal     `json:"order_amount"`
	Attributes   map[string]string   `json:"attributes"`
	AsOf         *time.Time          `json:"as_of"`
}

// TaxResolutionResponse reports the resolved rate and the rules that
// produced it, in application order
type TaxResolutionResponse struct {
	Rate           decimal.Decimal `json:"rate"`
	FixedAmount    decimal.Decimal `json:"fixed_amount"`
	AppliedRuleIDs []uuid.UUID     `json:"applied_rule_ids"`
	FromDefault    bool            `json:"from_default"`
}
