package execution

import (
	"context"
	"fmt"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// LotPolicyResolver decides per component whether lot capture is required
// for an order. Sources are consulted in priority order and the first one
// with an opinion wins:
//
//  1. the order's own capture override,
//  2. the customer's traceability profile,
//  3. the global rule for the component's product type,
//  4. the component product's own capture flag.
//
// When no source answers, capture is not required.
type LotPolicyResolver struct {
	traceability repositories.TraceabilityRepository
}

// NewLotPolicyResolver creates a resolver over the given policy sources.
func NewLotPolicyResolver(traceability repositories.TraceabilityRepository) *LotPolicyResolver {
	return &LotPolicyResolver{traceability: traceability}
}

// Required resolves the capture requirement for one component of an order.
func (r *LotPolicyResolver) Required(ctx context.Context, order *entities.ProductionOrder, component *entities.Product) (bool, error) {
	if order.LotCaptureOverride != nil {
		return *order.LotCaptureOverride, nil
	}

	if order.CustomerID != "" {
		profile, err := r.traceability.GetProfile(ctx, order.CustomerID)
		if err != nil {
			return false, fmt.Errorf("failed to get traceability profile for customer %s: %w", order.CustomerID, err)
		}
		if profile != nil {
			return profile.RequiresLotCapture, nil
		}
	}

	if component.ProductType != "" {
		rule, err := r.traceability.GetGlobalRule(ctx, component.ProductType)
		if err != nil {
			return false, fmt.Errorf("failed to get lot rule for product type %s: %w", component.ProductType, err)
		}
		if rule != nil {
			return rule.RequiresLotCapture, nil
		}
	}

	return component.RequiresLotCapture, nil
}
