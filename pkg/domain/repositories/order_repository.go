package repositories

import (
	"context"
	"time"

	"github.com/openmfg/planner/pkg/domain/entities"
)

// PlannedOrderRepository persists planning-run output. A run's orders
// supersede the previous run's open suggestions.
type PlannedOrderRepository interface {
	// ReplaceOpen atomically swaps the open planned orders for the given set.
	ReplaceOpen(ctx context.Context, orders []entities.PlannedOrder) error
	GetOpen(ctx context.Context) ([]entities.PlannedOrder, error)
}

// ProductionOrderRepository persists production orders and owns sequence
// assignment for (resource, day) queues.
type ProductionOrderRepository interface {
	GetOrder(ctx context.Context, id string) (*entities.ProductionOrder, error)
	SaveOrder(ctx context.Context, order *entities.ProductionOrder) error

	// UpdateOrder persists a mutated order. Implementations check the order
	// version and return ConcurrencyConflictError on a stale write.
	UpdateOrder(ctx context.Context, order *entities.ProductionOrder) error

	// NextSequence atomically assigns the next FIFO queue position for the
	// (resource, day) key: max existing sequence + 1, serialized per key.
	NextSequence(ctx context.Context, resourceID string, day time.Time) (int, error)
}

// ReservationRepository persists material reservations and the immutable
// lot consumption records derived from them.
type ReservationRepository interface {
	SaveReservations(ctx context.Context, reservations []entities.MaterialReservation) error
	GetReservations(ctx context.Context, orderID string) ([]entities.MaterialReservation, error)
	UpdateReservation(ctx context.Context, reservation *entities.MaterialReservation) error
	DeleteReservations(ctx context.Context, orderID string) error

	SaveLotConsumptions(ctx context.Context, consumptions []entities.LotConsumption) error
	GetLotConsumptions(ctx context.Context, orderID string) ([]entities.LotConsumption, error)
}

// TraceabilityRepository reads lot-capture policy sources. Both lookups
// return nil without error when no rule exists.
type TraceabilityRepository interface {
	GetProfile(ctx context.Context, customerID string) (*entities.TraceabilityProfile, error)
	GetGlobalRule(ctx context.Context, productType string) (*entities.GlobalLotRule, error)
}
