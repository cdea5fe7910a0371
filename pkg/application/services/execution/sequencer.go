package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// Sequencer assigns FIFO queue positions on (resource, day) queues.
// Sequences are append-only: positions are never recomputed, and a gap left
// by a cancelled order stays a gap.
type Sequencer struct {
	orders repositories.ProductionOrderRepository
}

// NewSequencer creates a sequencer backed by the order repository, which
// owns the atomic per-key counter.
func NewSequencer(orders repositories.ProductionOrderRepository) *Sequencer {
	return &Sequencer{orders: orders}
}

// Assign books the order onto the resource's queue for the given day and
// stamps the scheduling fields. Orders already started keep their slot;
// rescheduling them is an invalid transition. Rescheduling a not-yet-started
// order appends it to the new queue.
func (s *Sequencer) Assign(ctx context.Context, order *entities.ProductionOrder, resourceID string, day time.Time) (int, error) {
	if resourceID == "" {
		return 0, fmt.Errorf("resource id cannot be empty")
	}
	if order.Started() {
		return 0, &entities.InvalidTransitionError{From: order.Status, To: entities.StatusScheduled}
	}

	queueDay := truncateToDay(day)
	sequence, err := s.orders.NextSequence(ctx, resourceID, queueDay)
	if err != nil {
		return 0, fmt.Errorf("failed to assign sequence on %s/%s: %w", resourceID, queueDay.Format("2006-01-02"), err)
	}

	order.ResourceID = resourceID
	order.ScheduledDay = queueDay
	order.ScheduledStart = day
	order.Sequence = sequence
	return sequence, nil
}

func truncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
