package shipping

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/storefront/backend/internal/domain/shared/strategy"
	"github.com/storefront/backend/internal/domain/shared/valueobject"
)

// FeeStrategyProvider resolves a fee strategy by calc method name
type FeeStrategyProvider interface {
	GetFeeStrategy(name string) (strategy.FeeStrategy, error)
}

// FeeCalculator turns a shipping method plus cart measurements into a
// final fee: raw carriage fee from the method's calc strategy, then the
// free-shipping waiver, then the COD surcharge. Free shipping waives the
// carriage cost, not the COD handling fee. Fees never go negative and are
// rounded half-up to 2 decimal places.
type FeeCalculator struct {
	strategies FeeStrategyProvider
	settings   Settings
}

// NewFeeCalculator creates a fee calculator over the given strategy
// provider and global settings
func NewFeeCalculator(strategies FeeStrategyProvider, settings Settings) *FeeCalculator {
	return &FeeCalculator{
		strategies: strategies,
		settings:   settings,
	}
}

// ComputeFee calculates the shipping fee for a method and cart
func (c *FeeCalculator) ComputeFee(ctx context.Context, method *Method, cart CartContext) (valueobject.Money, error) {
	feeStrategy, err := c.strategies.GetFeeStrategy(string(method.CalcMethod))
	if err != nil {
		return valueobject.Money{}, fmt.Errorf("method %s: %w", method.Code, err)
	}

	raw, err := feeStrategy.ComputeFee(ctx, c.feeContext(method, cart))
	if err != nil {
		return valueobject.Money{}, fmt.Errorf("method %s: %w", method.Code, err)
	}

	if threshold := c.settings.EffectiveFreeThreshold(method); threshold != nil {
		base := cart.ThresholdBase(method.FreeThresholdIncludesTax)
		if base.GreaterThanOrEqual(*threshold) {
			raw = decimal.Zero
		}
	}

	if cart.CashOnDelivery {
		raw = raw.Add(c.settings.EffectiveCODSurcharge(method))
	}

	if raw.IsNegative() {
		raw = decimal.Zero
	}

	currency := cart.Subtotal.Currency()
	if currency == "" {
		currency = c.settings.CurrencyCode
	}
	fee, err := valueobject.NewMoney(raw, currency)
	if err != nil {
		return valueobject.Money{}, err
	}
	return fee.RoundCurrency(), nil
}

// feeContext maps method configuration and cart measurements onto the
// strategy input
func (c *FeeCalculator) feeContext(method *Method, cart CartContext) strategy.FeeContext {
	feeCtx := strategy.FeeContext{
		BaseFee:  method.BaseFee,
		StepFee:  method.StepFee,
		StepSize: method.StepSize,
		Subtotal: cart.Subtotal.Amount(),
		Weight:   cart.Weight,
		Quantity: decimal.NewFromInt(int64(cart.Quantity)),
	}
	if method.RateTable != nil {
		feeCtx.TableDimension = strategy.FeeDimension(method.RateTable.Dimension)
		feeCtx.TableBreakpoints = make([]strategy.FeeBreakpoint, len(method.RateTable.Breakpoints))
		for i, bp := range method.RateTable.Breakpoints {
			feeCtx.TableBreakpoints[i] = strategy.FeeBreakpoint{UpTo: bp.UpTo, Fee: bp.Fee}
		}
	}
	return feeCtx
}
