package testing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/infrastructure/repositories/memory"
)

// Scenario bundles the in-memory repositories for one test data set.
type Scenario struct {
	Products     *memory.ProductRepository
	Inventory    *memory.InventoryRepository
	Orders       *memory.ProductionOrderRepository
	Planned      *memory.PlannedOrderRepository
	Reservations *memory.ReservationRepository
	Traceability *memory.TraceabilityRepository
	Converter    *entities.UnitConverter
	NeedBy       time.Time
}

// NewScenario creates empty repositories with a pieces/dozen converter.
func NewScenario(strictInventory bool) *Scenario {
	return &Scenario{
		Products:     memory.NewProductRepository(),
		Inventory:    memory.NewInventoryRepository(strictInventory),
		Orders:       memory.NewProductionOrderRepository(),
		Planned:      memory.NewPlannedOrderRepository(),
		Reservations: memory.NewReservationRepository(),
		Traceability: memory.NewTraceabilityRepository(),
		Converter: entities.NewUnitConverter([]entities.UnitConversion{
			{From: "dozen", To: "ea", Factor: decimal.NewFromInt(12)},
			{From: "kg", To: "g", Factor: decimal.NewFromInt(1000)},
		}),
		NeedBy: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	}
}

// BuildFurnitureScenario populates the table product structure:
//
//	TABLE (make, lead 3) -> 2 x LEG_ASSY (make, lead 2, lot size 10)
//	                     -> 1 x TOP (buy, vendor lead 5, MOQ 8)
//	LEG_ASSY             -> 4 x LEG (buy, vendor lead 4)
//	                     -> 1 x GLUE (cost only)
//
// Stock: 5 TOP at MAIN, 20 LEG at MAIN.
func BuildFurnitureScenario(strictInventory bool) *Scenario {
	s := NewScenario(strictInventory)

	s.Products.AddProduct(&entities.Product{
		ID: "TABLE", Name: "Dining Table", ProductType: "finished_good",
		Policy: entities.MakeOrBuyMake, StockUnit: "ea", LeadTimeDays: 3,
	})
	s.Products.AddProduct(&entities.Product{
		ID: "LEG_ASSY", Name: "Leg Assembly", ProductType: "subassembly",
		Policy: entities.MakeOrBuyMake, StockUnit: "ea", LeadTimeDays: 2,
		LotSizeQty: decimal.NewFromInt(10),
	})
	s.Products.AddProduct(&entities.Product{
		ID: "TOP", Name: "Table Top", ProductType: "component",
		Policy: entities.MakeOrBuyBuy, StockUnit: "ea",
		VendorLeadTimeDays: 5, MinOrderQty: decimal.NewFromInt(8),
	})
	s.Products.AddProduct(&entities.Product{
		ID: "LEG", Name: "Table Leg", ProductType: "component",
		Policy: entities.MakeOrBuyBuy, StockUnit: "ea",
		VendorLeadTimeDays: 4,
	})
	s.Products.AddProduct(&entities.Product{
		ID: "GLUE", Name: "Wood Glue", ProductType: "consumable",
		Policy: entities.MakeOrBuyBuy, StockUnit: "g",
	})

	s.Products.AddBOM(&entities.BillOfMaterials{
		ProductID: "TABLE",
		Lines: []entities.BOMLine{
			{ComponentID: "LEG_ASSY", QuantityPer: decimal.NewFromInt(2), Unit: "ea"},
			{ComponentID: "TOP", QuantityPer: decimal.NewFromInt(1), Unit: "ea"},
		},
	})
	s.Products.AddBOM(&entities.BillOfMaterials{
		ProductID: "LEG_ASSY",
		Lines: []entities.BOMLine{
			{ComponentID: "LEG", QuantityPer: decimal.NewFromInt(4), Unit: "ea"},
			{ComponentID: "GLUE", QuantityPer: decimal.NewFromInt(50), Unit: "g", IsCostOnly: true},
		},
	})

	s.Inventory.SetLevel(entities.InventoryLevel{
		ProductID: "TOP", LocationID: "MAIN", OnHand: decimal.NewFromInt(5),
	})
	s.Inventory.SetLevel(entities.InventoryLevel{
		ProductID: "LEG", LocationID: "MAIN", OnHand: decimal.NewFromInt(20),
	})

	return s
}

// Demand builds a demand line against the scenario's horizon.
func (s *Scenario) Demand(id string, productID entities.ProductID, quantity int64) entities.DemandLine {
	return entities.DemandLine{
		ID:        id,
		ProductID: productID,
		Quantity:  decimal.NewFromInt(quantity),
		NeedBy:    s.NeedBy,
		Source:    "sales_order",
	}
}
