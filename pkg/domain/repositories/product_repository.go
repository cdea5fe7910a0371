package repositories

import (
	"context"

	"github.com/openmfg/planner/pkg/domain/entities"
)

// ProductRepository provides read access to product master data and active
// bills of materials. Master data is owned externally; this core never
// writes it.
type ProductRepository interface {
	GetProduct(ctx context.Context, id entities.ProductID) (*entities.Product, error)

	// GetActiveBOM returns the active bill of materials for a product.
	// Products without a BOM (purchased items) yield an empty line list.
	GetActiveBOM(ctx context.Context, productID entities.ProductID) (*entities.BillOfMaterials, error)
}
