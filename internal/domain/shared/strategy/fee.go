package strategy

import (
	"context"

	"github.com/shopspring/decimal"
)

// FeeDimension selects which cart measurement a table-rate fee is keyed by
type FeeDimension string

const (
	FeeDimensionWeight FeeDimension = "weight"
	FeeDimensionPrice  FeeDimension = "price"
)

// FeeBreakpoint is one row of a table-rate fee table
type FeeBreakpoint struct {
	UpTo decimal.Decimal
	Fee  decimal.Decimal
}

// FeeContext provides the method configuration and cart measurements a fee
// strategy needs. Strategies compute the raw carriage fee only; threshold
// waivers and surcharges are layered on by the caller.
type FeeContext struct {
	BaseFee  decimal.Decimal
	StepFee  decimal.Decimal
	StepSize decimal.Decimal

	// Table-rate configuration, used only by the table_rate strategy
	TableDimension   FeeDimension
	TableBreakpoints []FeeBreakpoint

	// Cart measurements
	Subtotal decimal.Decimal
	Weight   decimal.Decimal // kg
	Quantity decimal.Decimal
}

// FeeStrategy defines the interface for shipping fee calculation
type FeeStrategy interface {
	Strategy
	// ComputeFee calculates the raw carriage fee for the given context
	ComputeFee(ctx context.Context, feeCtx FeeContext) (decimal.Decimal, error)
}
