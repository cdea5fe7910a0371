package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// ProductionOrderRepository is an in-memory production order store with
// optimistic version checking and atomic (resource, day) sequence counters.
type ProductionOrderRepository struct {
	mu        sync.Mutex
	orders    map[string]*entities.ProductionOrder
	sequences map[string]int
}

// NewProductionOrderRepository creates an empty repository.
func NewProductionOrderRepository() *ProductionOrderRepository {
	return &ProductionOrderRepository{
		orders:    make(map[string]*entities.ProductionOrder),
		sequences: make(map[string]int),
	}
}

// Verify interface compliance
var _ repositories.ProductionOrderRepository = (*ProductionOrderRepository)(nil)

// GetOrder returns a copy of the order, so concurrent callers work on
// independent snapshots and stale writes surface as version conflicts.
func (r *ProductionOrderRepository) GetOrder(ctx context.Context, id string) (*entities.ProductionOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, fmt.Errorf("production order not found: %s", id)
	}
	cp := *order
	return &cp, nil
}

// SaveOrder stores a new order.
func (r *ProductionOrderRepository) SaveOrder(ctx context.Context, order *entities.ProductionOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return fmt.Errorf("production order already exists: %s", order.ID)
	}
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

// UpdateOrder persists a mutated order if the caller's version is still
// current, then bumps it. A stale version is a ConcurrencyConflictError.
func (r *ProductionOrderRepository) UpdateOrder(ctx context.Context, order *entities.ProductionOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, exists := r.orders[order.ID]
	if !exists {
		return fmt.Errorf("production order not found: %s", order.ID)
	}
	if stored.Version != order.Version {
		return &entities.ConcurrencyConflictError{Resource: "production_order", Key: order.ID}
	}

	order.Version++
	cp := *order
	r.orders[order.ID] = &cp
	return nil
}

// NextSequence assigns the next queue position for the (resource, day) key.
func (r *ProductionOrderRepository) NextSequence(ctx context.Context, resourceID string, day time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := resourceID + "|" + day.UTC().Format("2006-01-02")
	r.sequences[key]++
	return r.sequences[key], nil
}

// PlannedOrderRepository is an in-memory store for planning-run output.
type PlannedOrderRepository struct {
	mu   sync.RWMutex
	open []entities.PlannedOrder
}

// NewPlannedOrderRepository creates an empty repository.
func NewPlannedOrderRepository() *PlannedOrderRepository {
	return &PlannedOrderRepository{}
}

// Verify interface compliance
var _ repositories.PlannedOrderRepository = (*PlannedOrderRepository)(nil)

// ReplaceOpen swaps the open planned orders for the given set.
func (r *PlannedOrderRepository) ReplaceOpen(ctx context.Context, orders []entities.PlannedOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.open = make([]entities.PlannedOrder, len(orders))
	copy(r.open, orders)
	return nil
}

// GetOpen returns a copy of the open planned orders.
func (r *PlannedOrderRepository) GetOpen(ctx context.Context) ([]entities.PlannedOrder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entities.PlannedOrder, len(r.open))
	copy(out, r.open)
	return out, nil
}
