package entities

import "github.com/shopspring/decimal"

// ProductID uniquely identifies a product (SKU).
type ProductID string

// MakeOrBuy is the sourcing policy for a product.
type MakeOrBuy int

const (
	MakeOrBuyMake MakeOrBuy = iota
	MakeOrBuyBuy
	MakeOrBuyEither
)

// String method for MakeOrBuy enum
func (m MakeOrBuy) String() string {
	switch m {
	case MakeOrBuyMake:
		return "make"
	case MakeOrBuyBuy:
		return "buy"
	case MakeOrBuyEither:
		return "make_or_buy"
	default:
		return "unknown"
	}
}

// Product is master data owned by an external collaborator. The planning
// core reads it and never mutates it.
type Product struct {
	ID                 ProductID
	Name               string
	ProductType        string
	Policy             MakeOrBuy
	StockUnit          string
	LeadTimeDays       int
	VendorLeadTimeDays int
	MinOrderQty        decimal.Decimal
	LotSizeQty         decimal.Decimal
	RequiresLotCapture bool
}

// ProcurementLeadTimeDays returns the lead time relevant to purchasing.
// Falls back to the manufacturing lead time when no vendor lead time is set.
func (p *Product) ProcurementLeadTimeDays() int {
	if p.VendorLeadTimeDays > 0 {
		return p.VendorLeadTimeDays
	}
	return p.LeadTimeDays
}
