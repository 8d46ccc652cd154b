package strategy

import (
	"github.com/storefront/backend/internal/domain/shared/strategy"
)

// NewRegistryWithDefaults creates a new registry with every built-in fee
// strategy registered. Flat is the default when a method omits its calc
// method.
func NewRegistryWithDefaults() (*StrategyRegistry, error) {
	r := NewStrategyRegistry()

	strategies := []strategy.FeeStrategy{
		strategy.NewFlatFeeStrategy(),
		strategy.NewByWeightFeeStrategy(),
		strategy.NewByPriceFeeStrategy(),
		strategy.NewByQuantityFeeStrategy(),
		strategy.NewTableRateFeeStrategy(),
	}
	for _, s := range strategies {
		if err := r.RegisterFeeStrategy(s); err != nil {
			return nil, err
		}
	}

	if err := r.SetDefaultFeeStrategy(strategy.FeeStrategyFlat); err != nil {
		return nil, err
	}
	return r, nil
}
