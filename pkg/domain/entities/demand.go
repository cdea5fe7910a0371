package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DemandLine is a single requirement for a product: a sales-order line, or a
// line derived from a planned or production order during explosion.
// SourceChain records the product path root→line for pegging.
type DemandLine struct {
	ID          string
	ProductID   ProductID
	Quantity    decimal.Decimal
	Unit        string
	NeedBy      time.Time
	Source      string
	CustomerID  string
	LocationID  string
	SourceChain []ProductID
}

// NewDemandLine creates a validated DemandLine.
func NewDemandLine(id string, productID ProductID, quantity decimal.Decimal, unit string, needBy time.Time, source string) (*DemandLine, error) {
	if id == "" {
		return nil, fmt.Errorf("demand id cannot be empty")
	}
	if productID == "" {
		return nil, fmt.Errorf("product id cannot be empty")
	}
	if quantity.Sign() <= 0 {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	if unit == "" {
		return nil, fmt.Errorf("unit cannot be empty")
	}

	return &DemandLine{
		ID:          id,
		ProductID:   productID,
		Quantity:    quantity,
		Unit:        unit,
		NeedBy:      needBy,
		Source:      source,
		SourceChain: []ProductID{productID},
	}, nil
}

// ShortageLine is the netting result for one (component, unit, location)
// group: the gross requirement that available inventory could not cover.
// DemandIDs peg the shortage back to every demand that contributed to it.
type ShortageLine struct {
	ProductID   ProductID
	Unit        string
	LocationID  string
	Quantity    decimal.Decimal
	NeedBy      time.Time
	CustomerID  string
	DemandIDs   []string
	SourceChain []ProductID
}
