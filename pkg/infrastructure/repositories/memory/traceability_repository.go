package memory

import (
	"context"
	"sync"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// TraceabilityRepository is an in-memory store for lot-capture policy
// sources. Lookups return nil without error when no rule exists.
type TraceabilityRepository struct {
	mu       sync.RWMutex
	profiles map[string]*entities.TraceabilityProfile
	rules    map[string]*entities.GlobalLotRule
}

// NewTraceabilityRepository creates an empty repository.
func NewTraceabilityRepository() *TraceabilityRepository {
	return &TraceabilityRepository{
		profiles: make(map[string]*entities.TraceabilityProfile),
		rules:    make(map[string]*entities.GlobalLotRule),
	}
}

// Verify interface compliance
var _ repositories.TraceabilityRepository = (*TraceabilityRepository)(nil)

// SetProfile registers a customer's traceability profile.
func (r *TraceabilityRepository) SetProfile(profile *entities.TraceabilityProfile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.CustomerID] = profile
}

// SetGlobalRule registers a product-type lot rule.
func (r *TraceabilityRepository) SetGlobalRule(rule *entities.GlobalLotRule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.ProductType] = rule
}

// GetProfile returns the customer's profile, or nil when none exists.
func (r *TraceabilityRepository) GetProfile(ctx context.Context, customerID string) (*entities.TraceabilityProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.profiles[customerID], nil
}

// GetGlobalRule returns the product type's rule, or nil when none exists.
func (r *TraceabilityRepository) GetGlobalRule(ctx context.Context, productType string) (*entities.GlobalLotRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rules[productType], nil
}
