package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/domain/entities"
)

// InventoryReader provides read access to live inventory levels.
// An empty locationID pools across all locations of the product.
type InventoryReader interface {
	GetLevels(ctx context.Context) ([]entities.InventoryLevel, error)
	GetAvailable(ctx context.Context, productID entities.ProductID, locationID string) (decimal.Decimal, error)
}

// InventoryWriter mutates the allocation counters this core exclusively
// owns. Every call must be atomic per (product, location) key: two
// concurrent Allocate calls over the same key must serialize so that only
// one can observe and claim the last available quantity.
type InventoryWriter interface {
	InventoryReader

	// Allocate moves quantity from available to allocated. Implementations
	// in strict mode return InsufficientInventoryError rather than allowing
	// a negative available balance.
	Allocate(ctx context.Context, productID entities.ProductID, locationID string, quantity decimal.Decimal) error

	// Release returns an unused allocated quantity to available.
	Release(ctx context.Context, productID entities.ProductID, locationID string, quantity decimal.Decimal) error

	// Consume removes an allocated quantity from stock entirely (material
	// issued to a completed or scrapped order).
	Consume(ctx context.Context, productID entities.ProductID, locationID string, quantity decimal.Decimal) error
}
