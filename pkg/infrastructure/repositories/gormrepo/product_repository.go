package gormrepo

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// ProductRepository reads product master data and BOMs from Postgres.
type ProductRepository struct {
	db *gorm.DB
}

// NewProductRepository creates the repository.
func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Verify interface compliance
var _ repositories.ProductRepository = (*ProductRepository)(nil)

// GetProduct returns the product or an error when unknown.
func (r *ProductRepository) GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error) {
	var model ProductModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", string(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	return model.toEntity(), nil
}

// GetActiveBOM returns the product's BOM lines, empty for products with no
// structure.
func (r *ProductRepository) GetActiveBOM(ctx context.Context, productID entities.ProductID) (*entities.BillOfMaterials, error) {
	var models []BOMLineModel
	err := r.db.WithContext(ctx).
		Where("product_id = ?", string(productID)).
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load BOM for %s: %w", productID, err)
	}

	bom := &entities.BillOfMaterials{ProductID: productID}
	for _, m := range models {
		line, err := entities.NewBOMLine(entities.ProductID(m.ComponentID), m.QuantityPer, m.Unit, m.ScrapFactor, m.IsCostOnly)
		if err != nil {
			return nil, fmt.Errorf("invalid BOM line %d for %s: %w", m.ID, productID, err)
		}
		bom.Lines = append(bom.Lines, *line)
	}
	return bom, nil
}
