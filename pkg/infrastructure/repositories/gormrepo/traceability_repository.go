package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// TraceabilityRepository reads lot-capture policy sources from Postgres.
type TraceabilityRepository struct {
	db *gorm.DB
}

// NewTraceabilityRepository creates the repository.
func NewTraceabilityRepository(db *gorm.DB) *TraceabilityRepository {
	return &TraceabilityRepository{db: db}
}

// Verify interface compliance
var _ repositories.TraceabilityRepository = (*TraceabilityRepository)(nil)

// GetProfile returns the customer's traceability profile, nil when none.
func (r *TraceabilityRepository) GetProfile(ctx context.Context, customerID string) (*entities.TraceabilityProfile, error) {
	var model TraceabilityProfileModel
	err := r.db.WithContext(ctx).First(&model, "customer_id = ?", customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load traceability profile for %s: %w", customerID, err)
	}
	return &entities.TraceabilityProfile{
		CustomerID:         model.CustomerID,
		RequiresLotCapture: model.RequiresLotCapture,
	}, nil
}

// GetGlobalRule returns the product type's lot rule, nil when none.
func (r *TraceabilityRepository) GetGlobalRule(ctx context.Context, productType string) (*entities.GlobalLotRule, error) {
	var model GlobalLotRuleModel
	err := r.db.WithContext(ctx).First(&model, "product_type = ?", productType).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load lot rule for %s: %w", productType, err)
	}
	return &entities.GlobalLotRule{
		ProductType:        model.ProductType,
		RequiresLotCapture: model.RequiresLotCapture,
	}, nil
}
