package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/application/services/planning"
	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
	"github.com/openmfg/planner/pkg/infrastructure/events"
	"github.com/openmfg/planner/pkg/infrastructure/logging"
	"github.com/openmfg/planner/pkg/infrastructure/metrics"
)

// Service drives production order execution: scheduling, material
// reservation at start, completion reporting with scrap and remakes, and the
// remaining lifecycle transitions. Repositories own the per-key
// serialization; the service owns the ordering of checks and side effects.
type Service struct {
	machine   *StateMachine
	sequencer *Sequencer
	enforcer  *ReservationEnforcer
	orders    repositories.ProductionOrderRepository
	logger    *logging.Logger
	metrics   *metrics.Metrics
	publisher events.Publisher

	now func() time.Time
}

// NewService wires an execution service. metrics and publisher may be nil.
func NewService(
	orders repositories.ProductionOrderRepository,
	reservations repositories.ReservationRepository,
	products repositories.ProductRepository,
	inventory repositories.InventoryWriter,
	traceability repositories.TraceabilityRepository,
	resolver *planning.BOMResolver,
	logger *logging.Logger,
	m *metrics.Metrics,
	publisher events.Publisher,
) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	policy := NewLotPolicyResolver(traceability)
	return &Service{
		machine:   NewStateMachine(),
		sequencer: NewSequencer(orders),
		enforcer:  NewReservationEnforcer(resolver, products, inventory, reservations, policy),
		orders:    orders,
		logger:    logger.WithComponent("execution"),
		metrics:   m,
		publisher: publisher,
		now:       time.Now,
	}
}

// FirmPlannedOrder converts a production-type planned order into a released
// production order and persists it.
func (s *Service) FirmPlannedOrder(ctx context.Context, planned *entities.PlannedOrder) (*entities.ProductionOrder, error) {
	order, err := entities.FirmPlannedOrder(uuid.NewString(), planned, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.orders.SaveOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to save firmed order: %w", err)
	}
	s.logger.WithOperation("firm").WithOrder(order.ID).Info("planned order firmed",
		"productId", string(order.ProductID),
		"quantity", order.QuantityOrdered.String(),
	)
	return order, nil
}

// ScheduleProduction books the order onto a (resource, day) queue and
// returns the assigned sequence. Released orders move to scheduled; already
// scheduled orders may be rebooked onto a different queue. Orders that have
// started keep their slot.
func (s *Service) ScheduleProduction(ctx context.Context, orderID, resourceID string, day time.Time) (int, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}

	if order.Status != entities.StatusReleased && order.Status != entities.StatusScheduled {
		return 0, &entities.InvalidTransitionError{From: order.Status, To: entities.StatusScheduled}
	}

	sequence, err := s.sequencer.Assign(ctx, order, resourceID, day)
	if err != nil {
		return 0, err
	}
	if order.Status == entities.StatusReleased {
		if err := s.machine.Transition(order, entities.StatusScheduled, s.now()); err != nil {
			return 0, err
		}
	}
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return 0, err
	}

	s.metrics.Transition(entities.StatusScheduled.String())
	s.publish(ctx, events.NewOrderScheduled(order.ID, resourceID, order.ScheduledDay.Format("2006-01-02"), sequence))
	s.logger.WithOperation("schedule").WithOrder(order.ID).Info("order scheduled",
		"resourceId", resourceID,
		"day", order.ScheduledDay.Format("2006-01-02"),
		"sequence", sequence,
	)
	return sequence, nil
}

// StartProduction reserves the order's component material and moves it to
// in_progress. Reservation is all-or-nothing: on any failure the order and
// the stock are left exactly as they were. lots maps component ids to the
// lot numbers being issued.
func (s *Service) StartProduction(ctx context.Context, orderID string, lots map[entities.ProductID]string) ([]entities.MaterialReservation, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != entities.StatusScheduled {
		return nil, &entities.InvalidTransitionError{From: order.Status, To: entities.StatusInProgress}
	}

	// Claim the transition before touching stock: the version check makes
	// exactly one of two concurrent starts the claimant, so the loser never
	// allocates anything it would have to unwind.
	priorStartedAt := order.StartedAt
	if err := s.machine.Transition(order, entities.StatusInProgress, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	reservations, err := s.enforcer.Reserve(ctx, order, lots, s.now())
	if err != nil {
		s.metrics.ReservationFailure(reservationFailureKind(err))
		order.Status = entities.StatusScheduled
		order.StartedAt = priorStartedAt
		if revertErr := s.orders.UpdateOrder(ctx, order); revertErr != nil {
			s.logger.WithOrder(order.ID).WithError(revertErr).Error("failed to revert aborted start")
		}
		return nil, err
	}

	for range reservations {
		s.metrics.ReservationCreated()
	}
	s.metrics.Transition(entities.StatusInProgress.String())
	s.publish(ctx, events.NewReservationsCreated(order.ID, len(reservations)))
	s.publish(ctx, events.NewOrderTransitioned(order.ID, entities.StatusScheduled, entities.StatusInProgress))
	s.logger.WithOperation("start").WithOrder(order.ID).Info("production started",
		"reservations", len(reservations),
	)
	return reservations, nil
}

// CompleteProduction reports produced quantity against an in-progress order:
// good units completed and bad units scrapped. Material is consumed in
// proportion to the reported quantity. When the order is fully accounted it
// transitions to completed, releases any residual reservation, and spawns a
// remake order for the scrap shortfall.
func (s *Service) CompleteProduction(ctx context.Context, orderID string, good, bad decimal.Decimal) (*entities.ProductionOrder, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != entities.StatusInProgress {
		return nil, &entities.InvalidTransitionError{From: order.Status, To: entities.StatusCompleted}
	}
	if good.Sign() < 0 || bad.Sign() < 0 {
		return nil, fmt.Errorf("completion quantities cannot be negative")
	}
	reported := good.Add(bad)
	if reported.Sign() <= 0 {
		return nil, fmt.Errorf("completion must report a positive quantity")
	}
	if reported.GreaterThan(order.OpenQuantity()) {
		return nil, fmt.Errorf("reported %s exceeds open quantity %s of order %s", reported, order.OpenQuantity(), order.ID)
	}

	consumptions, err := s.enforcer.Consume(ctx, order, reported, s.now())
	if err != nil {
		return nil, err
	}

	order.QuantityCompleted = order.QuantityCompleted.Add(good)
	order.QuantityScrapped = order.QuantityScrapped.Add(bad)

	var remake *entities.ProductionOrder
	if order.OpenQuantity().Sign() == 0 {
		if err := s.machine.Transition(order, entities.StatusCompleted, s.now()); err != nil {
			return nil, err
		}
		if released, err := s.enforcer.ReleaseOutstanding(ctx, order); err != nil {
			return nil, err
		} else if released {
			s.publish(ctx, events.NewReservationsReleased(order.ID, "completed"))
		}
		if order.Shortfall().Sign() > 0 {
			remake, err = s.machine.BuildRemake(order, uuid.NewString(), s.now())
			if err != nil {
				return nil, err
			}
			if err := s.orders.SaveOrder(ctx, remake); err != nil {
				return nil, fmt.Errorf("failed to save remake order: %w", err)
			}
		}
		s.metrics.Transition(entities.StatusCompleted.String())
	}

	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	for _, c := range consumptions {
		s.publish(ctx, events.NewLotConsumed(c))
	}
	if order.Status == entities.StatusCompleted {
		s.publish(ctx, events.NewOrderTransitioned(order.ID, entities.StatusInProgress, entities.StatusCompleted))
	}
	if remake != nil {
		s.publish(ctx, events.NewRemakeSpawned(order, remake))
	}

	s.logger.WithOperation("complete").WithOrder(order.ID).Info("production reported",
		"good", good.String(),
		"bad", bad.String(),
		"open", order.OpenQuantity().String(),
		"status", order.Status.String(),
		"remake", remake != nil,
	)
	return remake, nil
}

// TransitionStatus performs a plain lifecycle transition: hold, resume,
// cancel, close, QC hold, rework, scrap. Scheduling and starting carry side
// effects and must go through their dedicated operations; the in_progress
// targets allowed here are rework out of QC hold and resuming work held from
// in_progress, both of which reuse the material already reserved.
func (s *Service) TransitionStatus(ctx context.Context, orderID string, target entities.OrderStatus) error {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if target == entities.StatusScheduled {
		return &entities.InvalidTransitionError{From: order.Status, To: target}
	}
	if target == entities.StatusInProgress && !resumesWork(order) {
		return &entities.InvalidTransitionError{From: order.Status, To: target}
	}

	from := order.Status
	if err := s.machine.Transition(order, target, s.now()); err != nil {
		return err
	}

	if target == entities.StatusCancelled || target == entities.StatusScrapped {
		released, err := s.enforcer.ReleaseOutstanding(ctx, order)
		if err != nil {
			return err
		}
		if released {
			s.publish(ctx, events.NewReservationsReleased(order.ID, target.String()))
		}
	}

	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return err
	}

	s.metrics.Transition(target.String())
	s.publish(ctx, events.NewOrderTransitioned(order.ID, from, target))
	s.logger.WithOperation("transition").WithOrder(order.ID).Info("order transitioned",
		"from", from.String(),
		"to", target.String(),
	)
	return nil
}

// GetLotRequirements resolves, per direct component of the order, whether a
// lot number must be captured at start. Callers use it to collect lot input
// before attempting StartProduction.
func (s *Service) GetLotRequirements(ctx context.Context, orderID string) ([]entities.LotRequirement, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.enforcer.LotRequirements(ctx, order)
}

// SplitOrder divides a released order into child orders whose quantities sum
// to the parent's. The parent moves to the terminal split status; children
// are released and reference the parent.
func (s *Service) SplitOrder(ctx context.Context, orderID string, quantities []decimal.Decimal) ([]*entities.ProductionOrder, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !s.machine.CanTransition(order, entities.StatusSplit) {
		return nil, &entities.InvalidTransitionError{From: order.Status, To: entities.StatusSplit}
	}
	if len(quantities) < 2 {
		return nil, fmt.Errorf("split requires at least two quantities")
	}
	total := decimal.Zero
	for _, q := range quantities {
		if q.Sign() <= 0 {
			return nil, fmt.Errorf("split quantities must be positive, got %s", q)
		}
		total = total.Add(q)
	}
	if !total.Equal(order.QuantityOrdered) {
		return nil, fmt.Errorf("split quantities sum to %s, order quantity is %s", total, order.QuantityOrdered)
	}

	now := s.now()
	children := make([]*entities.ProductionOrder, 0, len(quantities))
	childIDs := make([]string, 0, len(quantities))
	for _, q := range quantities {
		child, err := entities.NewProductionOrder(uuid.NewString(), order.ProductID, q, order.NeedBy)
		if err != nil {
			return nil, err
		}
		child.ParentOrderID = order.ID
		child.LocationID = order.LocationID
		child.CustomerID = order.CustomerID
		child.LotCaptureOverride = order.LotCaptureOverride
		child.Status = entities.StatusReleased
		released := now
		child.ReleasedAt = &released
		children = append(children, child)
		childIDs = append(childIDs, child.ID)
	}

	if err := s.machine.Transition(order, entities.StatusSplit, now); err != nil {
		return nil, err
	}
	for _, child := range children {
		if err := s.orders.SaveOrder(ctx, child); err != nil {
			return nil, fmt.Errorf("failed to save split child: %w", err)
		}
	}
	if err := s.orders.UpdateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.Transition(entities.StatusSplit.String())
	s.publish(ctx, events.NewOrderSplit(order.ID, childIDs))
	s.logger.WithOperation("split").WithOrder(order.ID).Info("order split",
		"children", len(children),
	)
	return children, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).Warn("failed to publish event", "eventType", event.Type())
	}
}

// resumesWork reports whether moving the order to in_progress continues work
// on material that is already reserved, as opposed to starting new work.
func resumesWork(order *entities.ProductionOrder) bool {
	switch order.Status {
	case entities.StatusQCHold:
		return true
	case entities.StatusOnHold:
		return order.HeldFrom == entities.StatusInProgress
	default:
		return false
	}
}

// reservationFailureKind buckets a reservation failure for metrics.
func reservationFailureKind(err error) string {
	var lotErr *entities.LotRequiredError
	if errors.As(err, &lotErr) {
		return "lot_required"
	}
	var invErr *entities.InsufficientInventoryError
	if errors.As(err, &invErr) {
		return "insufficient_inventory"
	}
	var convErr *entities.UnitConversionError
	if errors.As(err, &convErr) {
		return "unit_conversion"
	}
	return "other"
}
