package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a production order.
type OrderStatus int

const (
	StatusDraft OrderStatus = iota
	StatusReleased
	StatusScheduled
	StatusInProgress
	StatusCompleted
	StatusClosed
	StatusOnHold
	StatusCancelled
	StatusQCHold
	StatusScrapped
	StatusSplit
)

// String method for OrderStatus enum
func (s OrderStatus) String() string {
	switch s {
	case StatusDraft:
		return "draft"
	case StatusReleased:
		return "released"
	case StatusScheduled:
		return "scheduled"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusClosed:
		return "closed"
	case StatusOnHold:
		return "on_hold"
	case StatusCancelled:
		return "cancelled"
	case StatusQCHold:
		return "qc_hold"
	case StatusScrapped:
		return "scrapped"
	case StatusSplit:
		return "split"
	default:
		return "unknown"
	}
}

// forwardRank orders the states of the main chain. Side states carry the rank
// of the chain position they relate to so "status >= in_progress" checks work
// uniformly.
func (s OrderStatus) forwardRank() int {
	switch s {
	case StatusDraft:
		return 0
	case StatusReleased:
		return 1
	case StatusScheduled:
		return 2
	case StatusInProgress:
		return 3
	case StatusCompleted, StatusQCHold, StatusScrapped:
		return 4
	case StatusClosed:
		return 5
	default:
		return -1
	}
}

// IsTerminal reports whether no further transition may leave this state.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusClosed, StatusCancelled, StatusScrapped, StatusSplit:
		return true
	default:
		return false
	}
}

// QCStatus is the quality-control disposition of a completed order.
type QCStatus int

const (
	QCNone QCStatus = iota
	QCPending
	QCPassed
	QCFailed
)

// String method for QCStatus enum
func (q QCStatus) String() string {
	switch q {
	case QCNone:
		return "none"
	case QCPending:
		return "pending"
	case QCPassed:
		return "passed"
	case QCFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ProductionOrder is a firmed make order governed by the lifecycle state
// machine. Quantities are tracked as ordered/completed/scrapped; the
// invariant completed+scrapped <= ordered holds absent an overrun record,
// which this core does not support.
type ProductionOrder struct {
	ID                 string
	ProductID          ProductID
	QuantityOrdered    decimal.Decimal
	QuantityCompleted  decimal.Decimal
	QuantityScrapped   decimal.Decimal
	Status             OrderStatus
	QCStatus           QCStatus
	Sequence           int
	ResourceID         string
	ScheduledDay       time.Time
	ScheduledStart     time.Time
	NeedBy             time.Time
	LocationID         string
	CustomerID         string
	ParentOrderID      string
	LotCaptureOverride *bool
	HeldFrom           OrderStatus
	Version            int

	ReleasedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	ClosedAt    *time.Time
	CancelledAt *time.Time
}

// NewProductionOrder creates a validated ProductionOrder in draft status.
func NewProductionOrder(id string, productID ProductID, quantity decimal.Decimal, needBy time.Time) (*ProductionOrder, error) {
	if id == "" {
		return nil, fmt.Errorf("order id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if quantity.Sign() <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}

	return &ProductionOrder{
		ID:                id,
		ProductID:         productID,
		QuantityOrdered:   quantity,
		QuantityCompleted: decimal.Zero,
		QuantityScrapped:  decimal.Zero,
		Status:            StatusDraft,
		QCStatus:          QCNone,
		NeedBy:            needBy,
	}, nil
}

// FirmPlannedOrder converts a production-type planned order into a released
// production order. Firming is triggered externally; this is the one
// supported conversion path.
func FirmPlannedOrder(id string, planned *PlannedOrder, now time.Time) (*ProductionOrder, error) {
	if planned.Type != OrderTypeProduction {
		return nil, fmt.Errorf("cannot firm a %s planned order into a production order", planned.Type)
	}
	order, err := NewProductionOrder(id, planned.ProductID, planned.Quantity, planned.NeedBy)
	if err != nil {
		return nil, err
	}
	order.LocationID = planned.LocationID
	order.CustomerID = planned.CustomerID
	order.Status = StatusReleased
	released := now
	order.ReleasedAt = &released
	return order, nil
}

// OpenQuantity is what the order can still produce.
func (o *ProductionOrder) OpenQuantity() decimal.Decimal {
	return o.QuantityOrdered.Sub(o.QuantityCompleted).Sub(o.QuantityScrapped)
}

// Shortfall is the ordered quantity that scrap made unreachable. Non-zero
// only once the order is fully accounted.
func (o *ProductionOrder) Shortfall() decimal.Decimal {
	if o.OpenQuantity().Sign() > 0 {
		return decimal.Zero
	}
	return o.QuantityOrdered.Sub(o.QuantityCompleted)
}

// Started reports whether work on the order has begun. A set StartedAt is
// authoritative and survives any hold/resume sequence. Started orders keep
// their sequence: rescheduling them is forbidden.
func (o *ProductionOrder) Started() bool {
	if o.StartedAt != nil {
		return true
	}
	if o.Status == StatusOnHold {
		return o.HeldFrom.forwardRank() >= StatusInProgress.forwardRank()
	}
	return o.Status.forwardRank() >= StatusInProgress.forwardRank()
}
