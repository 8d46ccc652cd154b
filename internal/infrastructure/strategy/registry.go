package strategy

import (
	"fmt"
	"sort"
	"sync"

	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/domain/shared/strategy"
)

// StrategyRegistry manages strategy registrations
type StrategyRegistry struct {
	mu            sync.RWMutex
	feeStrategies map[string]strategy.FeeStrategy
	defaultFee    string
}

// NewStrategyRegistry creates a new strategy registry
func NewStrategyRegistry() *StrategyRegistry {
	return &StrategyRegistry{
		feeStrategies: make(map[string]strategy.FeeStrategy),
	}
}

// RegisterFeeStrategy registers a fee calculation strategy
func (r *StrategyRegistry) RegisterFeeStrategy(s strategy.FeeStrategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := s.Name()
	if _, exists := r.feeStrategies[name]; exists {
		return fmt.Errorf("%w: fee strategy '%s' already registered", shared.ErrAlreadyExists, name)
	}
	r.feeStrategies[name] = s
	return nil
}

// GetFeeStrategy returns a fee strategy by name, or the default if name is empty
func (r *StrategyRegistry) GetFeeStrategy(name string) (strategy.FeeStrategy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if name == "" {
		name = r.defaultFee
		if name == "" {
			return nil, fmt.Errorf("%w: no default fee strategy set", shared.ErrNotFound)
		}
	}

	s, exists := r.feeStrategies[name]
	if !exists {
		return nil, fmt.Errorf("%w: fee strategy '%s' not found", shared.ErrNotFound, name)
	}
	return s, nil
}

// SetDefaultFeeStrategy sets the fee strategy used when no name is given
func (r *StrategyRegistry) SetDefaultFeeStrategy(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.feeStrategies[name]; !exists {
		return fmt.Errorf("%w: fee strategy '%s' not registered", shared.ErrNotFound, name)
	}
	r.defaultFee = name
	return nil
}

// ListFeeStrategies returns the names of all registered fee strategies
func (r *StrategyRegistry) ListFeeStrategies() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.feeStrategies))
	for name := range r.feeStrategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
