package entities

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BOMLine is a single component position on a bill of materials.
type BOMLine struct {
	ComponentID ProductID
	QuantityPer decimal.Decimal
	Unit        string
	ScrapFactor decimal.Decimal
	IsCostOnly  bool
}

// NewBOMLine creates a validated BOMLine.
func NewBOMLine(componentID ProductID, quantityPer decimal.Decimal, unit string, scrapFactor decimal.Decimal, isCostOnly bool) (*BOMLine, error) {
	if componentID == "" {
		return nil, fmt.Errorf("component id cannot be empty")
	}
	if quantityPer.Sign() <= 0 {
		return nil, fmt.Errorf("quantity per must be positive, got %s", quantityPer)
	}
	if unit == "" {
		return nil, fmt.Errorf("unit cannot be empty")
	}
	if scrapFactor.Sign() < 0 {
		return nil, fmt.Errorf("scrap factor cannot be negative, got %s", scrapFactor)
	}

	return &BOMLine{
		ComponentID: componentID,
		QuantityPer: quantityPer,
		Unit:        unit,
		ScrapFactor: scrapFactor,
		IsCostOnly:  isCostOnly,
	}, nil
}

// GrossPer returns the per-unit component quantity inflated by scrap.
func (l *BOMLine) GrossPer() decimal.Decimal {
	return l.QuantityPer.Mul(decimal.NewFromInt(1).Add(l.ScrapFactor))
}

// BillOfMaterials is the ordered component list for building one unit of a
// product. Lines reference components by id, never by pointer, so the
// product graph stays navigable even when it is malformed (cyclic).
type BillOfMaterials struct {
	ProductID ProductID
	Lines     []BOMLine
}

// CostRollupFlag marks a cost-only BOM position that was excluded from
// material demand during explosion. Cost accounting itself happens elsewhere.
type CostRollupFlag struct {
	ParentID    ProductID
	ComponentID ProductID
}
