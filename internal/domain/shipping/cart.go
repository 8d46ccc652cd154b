package shipping

import (
	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// CartContext carries the cart measurements shipping resolution needs.
// SubtotalWithTax is consulted only by methods whose free threshold
// includes tax; when the caller has not priced tax yet it may equal
// Subtotal.
type CartContext struct {
	Subtotal        valueobject.Money
	SubtotalWithTax valueobject.Money
	Weight          decimal.Decimal // kg
	Quantity        int
	CashOnDelivery  bool
	Categories      []string
	ProductTypes    []string
}

// ThresholdBase returns the amount compared against a free-shipping
// threshold for the given method.
func (c CartContext) ThresholdBase(includesTax bool) decimal.Decimal {
	if includesTax && !c.SubtotalWithTax.IsZero() {
		return c.SubtotalWithTax.Amount()
	}
	return c.Subtotal.Amount()
}
