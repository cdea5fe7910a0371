package execution

import (
	"time"

	"github.com/openmfg/planner/pkg/domain/entities"
)

// allowedTransitions is the complete transition allow-list. Anything not
// listed is rejected; there are no implicit transitions. on_hold exits are
// dynamic (they depend on the held-from status) and handled separately.
var allowedTransitions = map[entities.OrderStatus][]entities.OrderStatus{
	entities.StatusDraft:      {entities.StatusReleased, entities.StatusOnHold, entities.StatusCancelled},
	entities.StatusReleased:   {entities.StatusScheduled, entities.StatusOnHold, entities.StatusCancelled, entities.StatusSplit},
	entities.StatusScheduled:  {entities.StatusInProgress, entities.StatusOnHold, entities.StatusCancelled},
	entities.StatusInProgress: {entities.StatusCompleted, entities.StatusOnHold, entities.StatusCancelled},
	entities.StatusCompleted:  {entities.StatusClosed, entities.StatusQCHold},
	entities.StatusQCHold:     {entities.StatusInProgress, entities.StatusScrapped},
	entities.StatusOnHold:     nil, // resolved against HeldFrom
	entities.StatusClosed:     nil,
	entities.StatusCancelled:  nil,
	entities.StatusScrapped:   nil,
	entities.StatusSplit:      nil,
}

// resumableStates are the states an on-hold order may resume into, bounded
// by where it was held from.
var resumableStates = []entities.OrderStatus{
	entities.StatusDraft,
	entities.StatusReleased,
	entities.StatusScheduled,
	entities.StatusInProgress,
}

// StateMachine enforces production order status transitions. It validates
// and mutates the order only; side effects (sequencing, reservation,
// release) are orchestrated by the execution service around it.
type StateMachine struct{}

// NewStateMachine creates the lifecycle state machine.
func NewStateMachine() *StateMachine {
	return &StateMachine{}
}

// CanTransition reports whether target is reachable from the order's current
// status.
func (m *StateMachine) CanTransition(order *entities.ProductionOrder, target entities.OrderStatus) bool {
	if order.Status == entities.StatusOnHold {
		if target == entities.StatusCancelled {
			return true
		}
		if order.HeldFrom.IsTerminal() {
			return false
		}
		// Work that has begun resumes into in_progress only: resuming a
		// started order to released or scheduled would let it pass the
		// sequencer's started-order guard and reserve its material twice.
		if order.Started() {
			return target == entities.StatusInProgress
		}
		for _, s := range resumableStates {
			if s == target && forwardAtMost(target, order.HeldFrom) {
				return true
			}
		}
		return false
	}
	for _, s := range allowedTransitions[order.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// Transition moves the order to target, stamping the matching timestamp
// fields. On a disallowed target it returns InvalidTransitionError and
// leaves the order untouched.
func (m *StateMachine) Transition(order *entities.ProductionOrder, target entities.OrderStatus, now time.Time) error {
	if !m.CanTransition(order, target) {
		return &entities.InvalidTransitionError{From: order.Status, To: target}
	}

	from := order.Status
	order.Status = target

	switch target {
	case entities.StatusReleased:
		if order.ReleasedAt == nil {
			t := now
			order.ReleasedAt = &t
		}
	case entities.StatusInProgress:
		if order.StartedAt == nil {
			t := now
			order.StartedAt = &t
		}
		if from == entities.StatusQCHold {
			// Rework: the inspection failed and the order goes back to work.
			order.QCStatus = entities.QCFailed
		}
	case entities.StatusCompleted:
		t := now
		order.CompletedAt = &t
	case entities.StatusClosed:
		t := now
		order.ClosedAt = &t
	case entities.StatusCancelled:
		t := now
		order.CancelledAt = &t
	case entities.StatusOnHold:
		order.HeldFrom = from
	case entities.StatusQCHold:
		order.QCStatus = entities.QCPending
	case entities.StatusScrapped:
		order.QCStatus = entities.QCFailed
	}

	return nil
}

// BuildRemake spawns a remake order for the parent's shortfall. This is the
// single place the lifecycle creates a new entity instead of transitioning
// an existing one: the remake inherits product and resource, references the
// parent, and starts out released.
func (m *StateMachine) BuildRemake(parent *entities.ProductionOrder, id string, now time.Time) (*entities.ProductionOrder, error) {
	remake, err := entities.NewProductionOrder(id, parent.ProductID, parent.Shortfall(), parent.NeedBy)
	if err != nil {
		return nil, err
	}
	remake.ParentOrderID = parent.ID
	remake.ResourceID = parent.ResourceID
	remake.LocationID = parent.LocationID
	remake.CustomerID = parent.CustomerID
	remake.LotCaptureOverride = parent.LotCaptureOverride
	remake.Status = entities.StatusReleased
	released := now
	remake.ReleasedAt = &released
	return remake, nil
}

// forwardAtMost reports whether a comes at or before b on the forward chain.
func forwardAtMost(a, b entities.OrderStatus) bool {
	order := []entities.OrderStatus{
		entities.StatusDraft,
		entities.StatusReleased,
		entities.StatusScheduled,
		entities.StatusInProgress,
	}
	rank := func(s entities.OrderStatus) int {
		for i, v := range order {
			if v == s {
				return i
			}
		}
		return len(order)
	}
	return rank(a) <= rank(b)
}
