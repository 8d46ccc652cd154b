package strategy

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

// Fee strategy names match the calc_method values stored on shipping methods
const (
	FeeStrategyFlat       = "flat"
	FeeStrategyByWeight   = "by_weight"
	FeeStrategyByPrice    = "by_price"
	FeeStrategyByQuantity = "by_quantity"
	FeeStrategyTableRate  = "table_rate"
)

// FlatFeeStrategy charges the base fee regardless of cart measurements
type FlatFeeStrategy struct {
	BaseStrategy
}

// NewFlatFeeStrategy creates a new flat fee strategy
func NewFlatFeeStrategy() *FlatFeeStrategy {
	return &FlatFeeStrategy{
		BaseStrategy: NewBaseStrategy(
			FeeStrategyFlat,
			StrategyTypeFee,
			"Flat fee charges the method's base fee",
		),
	}
}

// ComputeFee returns the base fee
func (s *FlatFeeStrategy) ComputeFee(ctx context.Context, feeCtx FeeContext) (decimal.Decimal, error) {
	return feeCtx.BaseFee, nil
}

// SteppedFeeStrategy charges base fee plus a step fee per started step of a
// measured dimension: fee = base + step_fee * ceil(measure / step_size)
type SteppedFeeStrategy struct {
	BaseStrategy
	measure func(FeeContext) decimal.Decimal
}

// NewByWeightFeeStrategy creates a stepped strategy measured by cart weight
func NewByWeightFeeStrategy() *SteppedFeeStrategy {
	return &SteppedFeeStrategy{
		BaseStrategy: NewBaseStrategy(
			FeeStrategyByWeight,
			StrategyTypeFee,
			"Base fee plus a step fee per started weight step",
		),
		measure: func(c FeeContext) decimal.Decimal { return c.Weight },
	}
}

// NewByPriceFeeStrategy creates a stepped strategy measured by cart subtotal
func NewByPriceFeeStrategy() *SteppedFeeStrategy {
	return &SteppedFeeStrategy{
		BaseStrategy: NewBaseStrategy(
			FeeStrategyByPrice,
			StrategyTypeFee,
			"Base fee plus a step fee per started subtotal step",
		),
		measure: func(c FeeContext) decimal.Decimal { return c.Subtotal },
	}
}

// NewByQuantityFeeStrategy creates a stepped strategy measured by item count
func NewByQuantityFeeStrategy() *SteppedFeeStrategy {
	return &SteppedFeeStrategy{
		BaseStrategy: NewBaseStrategy(
			FeeStrategyByQuantity,
			StrategyTypeFee,
			"Base fee plus a step fee per started quantity step",
		),
		measure: func(c FeeContext) decimal.Decimal { return c.Quantity },
	}
}

// ComputeFee calculates base + step_fee * ceil(measure / step_size)
func (s *SteppedFeeStrategy) ComputeFee(ctx context.Context, feeCtx FeeContext) (decimal.Decimal, error) {
	if !feeCtx.StepSize.IsPositive() {
		return decimal.Zero, errors.New("step size must be positive")
	}
	steps := s.measure(feeCtx).Div(feeCtx.StepSize).Ceil()
	if steps.IsNegative() {
		steps = decimal.Zero
	}
	return feeCtx.BaseFee.Add(feeCtx.StepFee.Mul(steps)), nil
}

// TableRateFeeStrategy looks the fee up in an ordered breakpoint table
// keyed by weight or price. The fee is the one of the smallest breakpoint
// >= the measured value; values beyond every breakpoint take the last
// breakpoint's fee.
type TableRateFeeStrategy struct {
	BaseStrategy
}

// NewTableRateFeeStrategy creates a new table rate strategy
func NewTableRateFeeStrategy() *TableRateFeeStrategy {
	return &TableRateFeeStrategy{
		BaseStrategy: NewBaseStrategy(
			FeeStrategyTableRate,
			StrategyTypeFee,
			"Fee looked up in a breakpoint table keyed by weight or price",
		),
	}
}

// ComputeFee resolves the fee from the breakpoint table
func (s *TableRateFeeStrategy) ComputeFee(ctx context.Context, feeCtx FeeContext) (decimal.Decimal, error) {
	if len(feeCtx.TableBreakpoints) == 0 {
		return decimal.Zero, errors.New("table rate requires at least one breakpoint")
	}

	var measure decimal.Decimal
	switch feeCtx.TableDimension {
	case FeeDimensionWeight:
		measure = feeCtx.Weight
	case FeeDimensionPrice:
		measure = feeCtx.Subtotal
	default:
		return decimal.Zero, errors.New("table rate requires a weight or price dimension")
	}

	breakpoints := make([]FeeBreakpoint, len(feeCtx.TableBreakpoints))
	copy(breakpoints, feeCtx.TableBreakpoints)
	sort.SliceStable(breakpoints, func(i, j int) bool {
		return breakpoints[i].UpTo.LessThan(breakpoints[j].UpTo)
	})

	for _, bp := range breakpoints {
		if measure.LessThanOrEqual(bp.UpTo) {
			return bp.Fee, nil
		}
	}
	return breakpoints[len(breakpoints)-1].Fee, nil
}
