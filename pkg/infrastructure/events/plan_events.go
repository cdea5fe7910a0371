package events

import (
	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/domain/entities"
)

const (
	PlanningRunCompletedEvent = "planning.run.completed"

	OrderTransitionedEvent = "order.transitioned"
	OrderScheduledEvent    = "order.scheduled"
	OrderSplitEvent        = "order.split"
	RemakeSpawnedEvent     = "order.remake.spawned"

	ReservationsCreatedEvent  = "reservation.created"
	ReservationsReleasedEvent = "reservation.released"
	LotConsumedEvent          = "lot.consumed"
)

type PlanningRunCompleted struct {
	DemandCount      int `json:"demand_count"`
	PurchaseOrders   int `json:"purchase_orders"`
	ProductionOrders int `json:"production_orders"`
	ErrorCount       int `json:"error_count"`
}

type OrderTransitioned struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type OrderScheduled struct {
	OrderID    string `json:"order_id"`
	ResourceID string `json:"resource_id"`
	Day        string `json:"day"`
	Sequence   int    `json:"sequence"`
}

type OrderSplit struct {
	ParentOrderID string   `json:"parent_order_id"`
	ChildOrderIDs []string `json:"child_order_ids"`
}

type RemakeSpawned struct {
	ParentOrderID string          `json:"parent_order_id"`
	OrderID       string          `json:"order_id"`
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
}

type ReservationsCreated struct {
	OrderID      string `json:"order_id"`
	Reservations int    `json:"reservations"`
}

type ReservationsReleased struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type LotConsumed struct {
	Consumption entities.LotConsumption `json:"consumption"`
}

// NewPlanningRunCompleted summarizes a finished planning run.
func NewPlanningRunCompleted(demandCount int, orders []entities.PlannedOrder, errorCount int) Event {
	data := PlanningRunCompleted{DemandCount: demandCount, ErrorCount: errorCount}
	for _, order := range orders {
		switch order.Type {
		case entities.OrderTypePurchase:
			data.PurchaseOrders++
		case entities.OrderTypeProduction:
			data.ProductionOrders++
		}
	}
	return NewEvent(PlanningRunCompletedEvent, "planning", data)
}

// NewOrderTransitioned records a successful status change.
func NewOrderTransitioned(orderID string, from, to entities.OrderStatus) Event {
	return NewEvent(OrderTransitionedEvent, orderID, OrderTransitioned{
		OrderID: orderID,
		From:    from.String(),
		To:      to.String(),
	})
}

// NewOrderScheduled records a sequence assignment.
func NewOrderScheduled(orderID, resourceID, day string, sequence int) Event {
	return NewEvent(OrderScheduledEvent, orderID, OrderScheduled{
		OrderID:    orderID,
		ResourceID: resourceID,
		Day:        day,
		Sequence:   sequence,
	})
}

// NewOrderSplit records a parent order divided into children.
func NewOrderSplit(parentID string, childIDs []string) Event {
	return NewEvent(OrderSplitEvent, parentID, OrderSplit{
		ParentOrderID: parentID,
		ChildOrderIDs: childIDs,
	})
}

// NewRemakeSpawned records an auto-created remake order.
func NewRemakeSpawned(parent, remake *entities.ProductionOrder) Event {
	return NewEvent(RemakeSpawnedEvent, parent.ID, RemakeSpawned{
		ParentOrderID: parent.ID,
		OrderID:       remake.ID,
		ProductID:     string(remake.ProductID),
		Quantity:      remake.QuantityOrdered,
	})
}

// NewReservationsCreated records a successful order start.
func NewReservationsCreated(orderID string, count int) Event {
	return NewEvent(ReservationsCreatedEvent, orderID, ReservationsCreated{
		OrderID:      orderID,
		Reservations: count,
	})
}

// NewReservationsReleased records reservations returned to stock.
func NewReservationsReleased(orderID, reason string) Event {
	return NewEvent(ReservationsReleasedEvent, orderID, ReservationsReleased{
		OrderID: orderID,
		Reason:  reason,
	})
}

// NewLotConsumed records one immutable lot consumption.
func NewLotConsumed(consumption entities.LotConsumption) Event {
	return NewEvent(LotConsumedEvent, consumption.OrderID, LotConsumed{Consumption: consumption})
}
