package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType distinguishes purchase from production planned orders. Shared
// fields live on PlannedOrder; the type tag selects the lead time and
// rounding rule that produced it.
type OrderType int

const (
	OrderTypePurchase OrderType = iota
	OrderTypeProduction
)

// String method for OrderType enum
func (o OrderType) String() string {
	switch o {
	case OrderTypePurchase:
		return "purchase"
	case OrderTypeProduction:
		return "production"
	default:
		return "unknown"
	}
}

// PlannedOrder is a planning suggestion. It is superseded by the next run or
// firmed externally into a production or purchase order.
type PlannedOrder struct {
	ID              string
	ProductID       ProductID
	Quantity        decimal.Decimal
	Type            OrderType
	NeedBy          time.Time
	SuggestedStart  time.Time
	LocationID      string
	CustomerID      string
	SourceDemandIDs []string
	SourceChain     []ProductID
}

// NewPlannedOrder creates a validated PlannedOrder. Quantity must be strictly
// positive: netting never hands the generator a zero shortage, and the
// generator never emits a zero-quantity order.
func NewPlannedOrder(
	id string,
	productID ProductID,
	quantity decimal.Decimal,
	orderType OrderType,
	needBy, suggestedStart time.Time,
) (*PlannedOrder, error) {
	if id == "" {
		return nil, fmt.Errorf("planned order id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if quantity.Sign() <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if suggestedStart.After(needBy) {
		return nil, fmt.Errorf("suggested start %v cannot be after need-by %v", suggestedStart, needBy)
	}

	return &PlannedOrder{
		ID:             id,
		ProductID:      productID,
		Quantity:       quantity,
		Type:           orderType,
		NeedBy:         needBy,
		SuggestedStart: suggestedStart,
	}, nil
}
