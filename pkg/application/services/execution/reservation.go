package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/application/services/planning"
	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// ReservationEnforcer reserves, consumes, and releases component material
// for production orders. Reservation is all-or-nothing: lot policy is
// checked for every component before any stock is touched, and an
// allocation failure rolls back the allocations made so far.
type ReservationEnforcer struct {
	resolver     *planning.BOMResolver
	products     repositories.ProductRepository
	inventory    repositories.InventoryWriter
	reservations repositories.ReservationRepository
	policy       *LotPolicyResolver
}

// NewReservationEnforcer creates the enforcer.
func NewReservationEnforcer(
	resolver *planning.BOMResolver,
	products repositories.ProductRepository,
	inventory repositories.InventoryWriter,
	reservations repositories.ReservationRepository,
	policy *LotPolicyResolver,
) *ReservationEnforcer {
	return &ReservationEnforcer{
		resolver:     resolver,
		products:     products,
		inventory:    inventory,
		reservations: reservations,
		policy:       policy,
	}
}

// Requirements expands the order's direct components at the ordered
// quantity. Reservation is single-level: sub-assemblies are separate orders
// with their own reservations.
func (e *ReservationEnforcer) Requirements(ctx context.Context, order *entities.ProductionOrder) (*planning.Explosion, error) {
	return e.resolver.Explode(ctx, planning.ExplodeRequest{
		ProductID:   order.ProductID,
		Quantity:    order.QuantityOrdered,
		NeedBy:      order.NeedBy,
		Source:      order.ID,
		CustomerID:  order.CustomerID,
		LocationID:  order.LocationID,
		SingleLevel: true,
	})
}

// LotRequirements resolves the capture requirement for every direct
// component of the order, so callers can collect lot numbers up front.
func (e *ReservationEnforcer) LotRequirements(ctx context.Context, order *entities.ProductionOrder) ([]entities.LotRequirement, error) {
	explosion, err := e.Requirements(ctx, order)
	if err != nil {
		return nil, err
	}
	return e.lotRequirements(ctx, order, explosion)
}

func (e *ReservationEnforcer) lotRequirements(ctx context.Context, order *entities.ProductionOrder, explosion *planning.Explosion) ([]entities.LotRequirement, error) {
	out := make([]entities.LotRequirement, 0, len(explosion.Demands))
	seen := make(map[entities.ProductID]bool, len(explosion.Demands))
	for _, line := range explosion.Demands {
		if seen[line.ProductID] {
			continue
		}
		seen[line.ProductID] = true

		component, err := e.products.GetProduct(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to get component %s: %w", line.ProductID, err)
		}
		required, err := e.policy.Required(ctx, order, component)
		if err != nil {
			return nil, err
		}
		out = append(out, entities.LotRequirement{ComponentID: line.ProductID, Required: required})
	}
	return out, nil
}

// Reserve allocates every component requirement of the order, or nothing.
// lots maps component ids to the lot numbers being issued; a component whose
// policy requires capture fails with LotRequiredError before any allocation.
func (e *ReservationEnforcer) Reserve(ctx context.Context, order *entities.ProductionOrder, lots map[entities.ProductID]string, now time.Time) ([]entities.MaterialReservation, error) {
	explosion, err := e.Requirements(ctx, order)
	if err != nil {
		return nil, err
	}

	// Policy pass first: lot failures must not move stock.
	requirements, err := e.lotRequirements(ctx, order, explosion)
	if err != nil {
		return nil, err
	}
	for _, req := range requirements {
		if req.Required && lots[req.ComponentID] == "" {
			return nil, &entities.LotRequiredError{ComponentID: req.ComponentID}
		}
	}

	var reserved []entities.MaterialReservation
	for _, line := range explosion.Demands {
		if err := e.inventory.Allocate(ctx, line.ProductID, line.LocationID, line.Quantity); err != nil {
			e.rollbackAllocations(ctx, reserved)
			return nil, err
		}
		res, err := entities.NewMaterialReservation(
			uuid.NewString(), order.ID, line.ProductID, line.LocationID,
			line.Quantity, lots[line.ProductID], now,
		)
		if err != nil {
			e.rollbackAllocations(ctx, reserved)
			_ = e.inventory.Release(ctx, line.ProductID, line.LocationID, line.Quantity)
			return nil, err
		}
		reserved = append(reserved, *res)
	}

	if err := e.reservations.SaveReservations(ctx, reserved); err != nil {
		e.rollbackAllocations(ctx, reserved)
		return nil, fmt.Errorf("failed to save reservations for order %s: %w", order.ID, err)
	}
	return reserved, nil
}

// Consume draws down the order's reservations in proportion to the quantity
// being reported against the ordered quantity, issues the stock, and emits a
// lot consumption record for every draw with a captured lot.
func (e *ReservationEnforcer) Consume(ctx context.Context, order *entities.ProductionOrder, quantity decimal.Decimal, now time.Time) ([]entities.LotConsumption, error) {
	reservations, err := e.reservations.GetReservations(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get reservations for order %s: %w", order.ID, err)
	}

	fraction := quantity.Div(order.QuantityOrdered)
	var consumptions []entities.LotConsumption
	for i := range reservations {
		res := &reservations[i]
		draw := res.QuantityReserved.Mul(fraction)
		if outstanding := res.Outstanding(); draw.GreaterThan(outstanding) {
			draw = outstanding
		}
		if draw.Sign() <= 0 {
			continue
		}

		if err := e.inventory.Consume(ctx, res.ComponentID, res.LocationID, draw); err != nil {
			return nil, fmt.Errorf("failed to consume %s of %s: %w", draw, res.ComponentID, err)
		}
		res.QuantityConsumed = res.QuantityConsumed.Add(draw)
		if err := e.reservations.UpdateReservation(ctx, res); err != nil {
			return nil, fmt.Errorf("failed to update reservation %s: %w", res.ID, err)
		}

		if res.LotNumber != "" {
			consumption, err := entities.NewLotConsumption(uuid.NewString(), order.ID, res.ComponentID, res.LotNumber, draw, now)
			if err != nil {
				return nil, err
			}
			consumptions = append(consumptions, *consumption)
		}
	}

	if len(consumptions) > 0 {
		if err := e.reservations.SaveLotConsumptions(ctx, consumptions); err != nil {
			return nil, fmt.Errorf("failed to save lot consumptions for order %s: %w", order.ID, err)
		}
	}
	return consumptions, nil
}

// ReleaseOutstanding returns every unconsumed reserved quantity of the order
// to available stock and settles the reservation rows. It reports whether
// anything was actually released.
func (e *ReservationEnforcer) ReleaseOutstanding(ctx context.Context, order *entities.ProductionOrder) (bool, error) {
	reservations, err := e.reservations.GetReservations(ctx, order.ID)
	if err != nil {
		return false, fmt.Errorf("failed to get reservations for order %s: %w", order.ID, err)
	}

	released := false
	for i := range reservations {
		res := &reservations[i]
		outstanding := res.Outstanding()
		if outstanding.Sign() <= 0 {
			continue
		}
		if err := e.inventory.Release(ctx, res.ComponentID, res.LocationID, outstanding); err != nil {
			return released, fmt.Errorf("failed to release %s of %s: %w", outstanding, res.ComponentID, err)
		}
		res.QuantityReserved = res.QuantityConsumed
		if err := e.reservations.UpdateReservation(ctx, res); err != nil {
			return released, fmt.Errorf("failed to update reservation %s: %w", res.ID, err)
		}
		released = true
	}
	return released, nil
}

// rollbackAllocations undoes allocations made during a failed Reserve. Best
// effort: an allocation that went through must come back.
func (e *ReservationEnforcer) rollbackAllocations(ctx context.Context, reserved []entities.MaterialReservation) {
	for i := range reserved {
		res := &reserved[i]
		_ = e.inventory.Release(ctx, res.ComponentID, res.LocationID, res.QuantityReserved)
	}
}
