package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// ProductRepository is an in-memory product master. Used by tests and the
// CSV-loading CLI; a live deployment reads master data from the database.
type ProductRepository struct {
	mu       sync.RWMutex
	products map[entities.ProductID]*entities.Product
	boms     map[entities.ProductID]*entities.BillOfMaterials
}

// NewProductRepository creates an empty repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{
		products: make(map[entities.ProductID]*entities.Product),
		boms:     make(map[entities.ProductID]*entities.BillOfMaterials),
	}
}

// Verify interface compliance
var _ repositories.ProductRepository = (*ProductRepository)(nil)

// AddProduct registers a product.
func (r *ProductRepository) AddProduct(product *entities.Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
}

// AddBOM registers a product's active bill of materials.
func (r *ProductRepository) AddBOM(bom *entities.BillOfMaterials) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.boms[bom.ProductID] = bom
}

// GetProduct returns the product or an error when unknown.
func (r *ProductRepository) GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, exists := r.products[id]
	if !exists {
		return nil, fmt.Errorf("product not found: %s", id)
	}
	return product, nil
}

// GetActiveBOM returns the product's BOM, or an empty one for purchased
// products with no structure.
func (r *ProductRepository) GetActiveBOM(ctx context.Context, productID entities.ProductID) (*entities.BillOfMaterials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bom, exists := r.boms[productID]
	if !exists {
		return &entities.BillOfMaterials{ProductID: productID}, nil
	}
	return bom, nil
}
