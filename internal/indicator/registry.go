package indicator

import (
	"sync"

	"github.com/rxtech-lab/argo-futures/internal/types"
	"github.com/rxtech-lab/argo-futures/pkg/errors"
)

// IndicatorRegistry manages the indicators a strategy owns.
type IndicatorRegistry interface {
	RegisterIndicator(indicator Indicator) error
	GetIndicator(name Type) (Indicator, error)
	ListIndicators() []Type
	RemoveIndicator(name Type) error
	// UpdateAll feeds the event to every registered indicator in registration order.
	UpdateAll(marketData types.MarketData)
	// ResetAll clears every registered indicator.
	ResetAll()
}

// IndicatorRegistryV1 manages all available indicators.
type IndicatorRegistryV1 struct {
	indicators map[Type]Indicator
	order      []Type
	mu         sync.RWMutex
}

// NewIndicatorRegistry creates a new indicator registry.
func NewIndicatorRegistry() IndicatorRegistry {
	return &IndicatorRegistryV1{
		indicators: make(map[Type]Indicator),
		mu:         sync.RWMutex{},
	}
}

// RegisterIndicator adds an indicator to the registry.
func (r *IndicatorRegistryV1) RegisterIndicator(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := indicator.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "indicator with name %s already registered", name)
	}

	r.indicators[name] = indicator
	r.order = append(r.order, name)

	return nil
}

// GetIndicator retrieves an indicator by name.
func (r *IndicatorRegistryV1) GetIndicator(name Type) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "indicator with name %s not found", name)
	}

	return indicator, nil
}

// ListIndicators returns the registered indicator names in registration order.
func (r *IndicatorRegistryV1) ListIndicators() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]Type, len(r.order))
	copy(names, r.order)

	return names
}

// RemoveIndicator removes an indicator from the registry.
func (r *IndicatorRegistryV1) RemoveIndicator(name Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeDataNotFound, "indicator with name %s not found", name)
	}

	delete(r.indicators, name)

	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)

			break
		}
	}

	return nil
}

func (r *IndicatorRegistryV1) UpdateAll(marketData types.MarketData) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		r.indicators[name].Update(marketData)
	}
}

func (r *IndicatorRegistryV1) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, name := range r.order {
		r.indicators[name].Reset()
	}
}
