package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MaterialReservation ties a production order to a reserved component
// quantity. Created at order start, drawn down at completion, released at
// completion surplus or cancellation.
type MaterialReservation struct {
	ID               string
	OrderID          string
	ComponentID      ProductID
	LocationID       string
	QuantityReserved decimal.Decimal
	QuantityConsumed decimal.Decimal
	LotNumber        string
	CreatedAt        time.Time
}

// NewMaterialReservation creates a validated MaterialReservation.
func NewMaterialReservation(id, orderID string, componentID ProductID, locationID string, quantity decimal.Decimal, lotNumber string, createdAt time.Time) (*MaterialReservation, error) {
	if id == "" {
		return nil, fmt.Errorf("reservation id cannot be empty")
	}
	if orderID == "" {
		return nil, fmt.Errorf("order id cannot be empty")
	}
	if componentID == "" {
		return nil, fmt.Errorf("component id cannot be empty")
	}
	if quantity.Sign() <= 0 {
		return nil, fmt.Errorf("reserved quantity must be positive, got %s", quantity)
	}

	return &MaterialReservation{
		ID:               id,
		OrderID:          orderID,
		ComponentID:      componentID,
		LocationID:       locationID,
		QuantityReserved: quantity,
		QuantityConsumed: decimal.Zero,
		LotNumber:        lotNumber,
		CreatedAt:        createdAt,
	}, nil
}

// Outstanding is the reserved quantity not yet consumed.
func (r *MaterialReservation) Outstanding() decimal.Decimal {
	return r.QuantityReserved.Sub(r.QuantityConsumed)
}

// LotConsumption is the immutable traceability record of material drawn from
// a lot for a production order. Written at completion when lot capture was
// required; never updated or deleted.
type LotConsumption struct {
	ID          string
	OrderID     string
	ComponentID ProductID
	LotNumber   string
	Quantity    decimal.Decimal
	RecordedAt  time.Time
}

// NewLotConsumption creates a validated LotConsumption.
func NewLotConsumption(id, orderID string, componentID ProductID, lotNumber string, quantity decimal.Decimal, recordedAt time.Time) (*LotConsumption, error) {
	if id == "" {
		return nil, fmt.Errorf("consumption id cannot be empty")
	}
	if orderID == "" {
		return nil, fmt.Errorf("order id cannot be empty")
	}
	if componentID == "" {
		return nil, fmt.Errorf("component id cannot be empty")
	}
	if lotNumber == "" {
		return nil, fmt.Errorf("lot number cannot be empty")
	}
	if quantity.Sign() <= 0 {
		return nil, fmt.Errorf("consumed quantity must be positive, got %s", quantity)
	}

	return &LotConsumption{
		ID:          id,
		OrderID:     orderID,
		ComponentID: componentID,
		LotNumber:   lotNumber,
		Quantity:    quantity,
		RecordedAt:  recordedAt,
	}, nil
}
