package gormrepo

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/domain/entities"
)

// ProductModel is the products table. Master data is loaded by an external
// integration; the planner only reads it.
type ProductModel struct {
	ID                 string `gorm:"primaryKey;size:64"`
	Name               string `gorm:"size:255"`
	ProductType        string `gorm:"size:64;index"`
	Policy             int
	StockUnit          string `gorm:"size:32"`
	LeadTimeDays       int
	VendorLeadTimeDays int
	MinOrderQty        decimal.Decimal `gorm:"type:numeric(18,6)"`
	LotSizeQty         decimal.Decimal `gorm:"type:numeric(18,6)"`
	RequiresLotCapture bool
}

func (ProductModel) TableName() string { return "products" }

func (m *ProductModel) toEntity() *entities.Product {
	return &entities.Product{
		ID:                 entities.ProductID(m.ID),
		Name:               m.Name,
		ProductType:        m.ProductType,
		Policy:             entities.MakeOrBuy(m.Policy),
		StockUnit:          m.StockUnit,
		LeadTimeDays:       m.LeadTimeDays,
		VendorLeadTimeDays: m.VendorLeadTimeDays,
		MinOrderQty:        m.MinOrderQty,
		LotSizeQty:         m.LotSizeQty,
		RequiresLotCapture: m.RequiresLotCapture,
	}
}

// BOMLineModel is one edge of the product structure graph.
type BOMLineModel struct {
	ID          uint            `gorm:"primaryKey"`
	ProductID   string          `gorm:"size:64;index:idx_bom_product"`
	ComponentID string          `gorm:"size:64"`
	QuantityPer decimal.Decimal `gorm:"type:numeric(18,6)"`
	Unit        string          `gorm:"size:32"`
	ScrapFactor decimal.Decimal `gorm:"type:numeric(9,6)"`
	IsCostOnly  bool
}

func (BOMLineModel) TableName() string { return "bom_lines" }

// InventoryLevelModel is the stock position per (product, location).
type InventoryLevelModel struct {
	ProductID  string          `gorm:"primaryKey;size:64"`
	LocationID string          `gorm:"primaryKey;size:64"`
	OnHand     decimal.Decimal `gorm:"type:numeric(18,6)"`
	Allocated  decimal.Decimal `gorm:"type:numeric(18,6)"`
}

func (InventoryLevelModel) TableName() string { return "inventory_levels" }

func (m *InventoryLevelModel) toEntity() entities.InventoryLevel {
	return entities.InventoryLevel{
		ProductID:  entities.ProductID(m.ProductID),
		LocationID: m.LocationID,
		OnHand:     m.OnHand,
		Allocated:  m.Allocated,
	}
}

// PlannedOrderModel is a planning-run suggestion. Each run replaces the open
// set wholesale.
type PlannedOrderModel struct {
	ID             string          `gorm:"primaryKey;size:64"`
	ProductID      string          `gorm:"size:64;index"`
	Quantity       decimal.Decimal `gorm:"type:numeric(18,6)"`
	OrderType      int
	NeedBy         time.Time
	SuggestedStart time.Time
	LocationID     string `gorm:"size:64"`
	CustomerID     string `gorm:"size:64"`
	SourceDemands  string `gorm:"type:text"`
	SourceChain    string `gorm:"type:text"`
	CreatedAt      time.Time
}

func (PlannedOrderModel) TableName() string { return "planned_orders" }

// ProductionOrderModel is a firmed production order. Version backs the
// optimistic concurrency check on every update.
type ProductionOrderModel struct {
	ID                 string          `gorm:"primaryKey;size:64"`
	ProductID          string          `gorm:"size:64;index"`
	QuantityOrdered    decimal.Decimal `gorm:"type:numeric(18,6)"`
	QuantityCompleted  decimal.Decimal `gorm:"type:numeric(18,6)"`
	QuantityScrapped   decimal.Decimal `gorm:"type:numeric(18,6)"`
	Status             int             `gorm:"index"`
	QCStatus           int
	Sequence           int
	ResourceID         string    `gorm:"size:64;index:idx_orders_queue"`
	ScheduledDay       time.Time `gorm:"index:idx_orders_queue"`
	ScheduledStart     time.Time
	NeedBy             time.Time
	LocationID         string `gorm:"size:64"`
	CustomerID         string `gorm:"size:64"`
	ParentOrderID      string `gorm:"size:64;index"`
	LotCaptureOverride *bool
	HeldFrom           int
	Version            int

	ReleasedAt  *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	ClosedAt    *time.Time
	CancelledAt *time.Time
}

func (ProductionOrderModel) TableName() string { return "production_orders" }

func (m *ProductionOrderModel) toEntity() *entities.ProductionOrder {
	return &entities.ProductionOrder{
		ID:                 m.ID,
		ProductID:          entities.ProductID(m.ProductID),
		QuantityOrdered:    m.QuantityOrdered,
		QuantityCompleted:  m.QuantityCompleted,
		QuantityScrapped:   m.QuantityScrapped,
		Status:             entities.OrderStatus(m.Status),
		QCStatus:           entities.QCStatus(m.QCStatus),
		Sequence:           m.Sequence,
		ResourceID:         m.ResourceID,
		ScheduledDay:       m.ScheduledDay,
		ScheduledStart:     m.ScheduledStart,
		NeedBy:             m.NeedBy,
		LocationID:         m.LocationID,
		CustomerID:         m.CustomerID,
		ParentOrderID:      m.ParentOrderID,
		LotCaptureOverride: m.LotCaptureOverride,
		HeldFrom:           entities.OrderStatus(m.HeldFrom),
		Version:            m.Version,
		ReleasedAt:         m.ReleasedAt,
		StartedAt:          m.StartedAt,
		CompletedAt:        m.CompletedAt,
		ClosedAt:           m.ClosedAt,
		CancelledAt:        m.CancelledAt,
	}
}

func productionOrderModel(o *entities.ProductionOrder) *ProductionOrderModel {
	return &ProductionOrderModel{
		ID:                 o.ID,
		ProductID:          string(o.ProductID),
		QuantityOrdered:    o.QuantityOrdered,
		QuantityCompleted:  o.QuantityCompleted,
		QuantityScrapped:   o.QuantityScrapped,
		Status:             int(o.Status),
		QCStatus:           int(o.QCStatus),
		Sequence:           o.Sequence,
		ResourceID:         o.ResourceID,
		ScheduledDay:       o.ScheduledDay,
		ScheduledStart:     o.ScheduledStart,
		NeedBy:             o.NeedBy,
		LocationID:         o.LocationID,
		CustomerID:         o.CustomerID,
		ParentOrderID:      o.ParentOrderID,
		LotCaptureOverride: o.LotCaptureOverride,
		HeldFrom:           int(o.HeldFrom),
		Version:            o.Version,
		ReleasedAt:         o.ReleasedAt,
		StartedAt:          o.StartedAt,
		CompletedAt:        o.CompletedAt,
		ClosedAt:           o.ClosedAt,
		CancelledAt:        o.CancelledAt,
	}
}

// ReservationModel is a material reservation row.
type ReservationModel struct {
	ID               string          `gorm:"primaryKey;size:64"`
	OrderID          string          `gorm:"size:64;index"`
	ComponentID      string          `gorm:"size:64"`
	LocationID       string          `gorm:"size:64"`
	QuantityReserved decimal.Decimal `gorm:"type:numeric(18,6)"`
	QuantityConsumed decimal.Decimal `gorm:"type:numeric(18,6)"`
	LotNumber        string          `gorm:"size:64"`
	CreatedAt        time.Time
}

func (ReservationModel) TableName() string { return "material_reservations" }

func (m *ReservationModel) toEntity() entities.MaterialReservation {
	return entities.MaterialReservation{
		ID:               m.ID,
		OrderID:          m.OrderID,
		ComponentID:      entities.ProductID(m.ComponentID),
		LocationID:       m.LocationID,
		QuantityReserved: m.QuantityReserved,
		QuantityConsumed: m.QuantityConsumed,
		LotNumber:        m.LotNumber,
		CreatedAt:        m.CreatedAt,
	}
}

// LotConsumptionModel is an append-only traceability row.
type LotConsumptionModel struct {
	ID          string          `gorm:"primaryKey;size:64"`
	OrderID     string          `gorm:"size:64;index"`
	ComponentID string          `gorm:"size:64"`
	LotNumber   string          `gorm:"size:64;index"`
	Quantity    decimal.Decimal `gorm:"type:numeric(18,6)"`
	RecordedAt  time.Time
}

func (LotConsumptionModel) TableName() string { return "lot_consumptions" }

// TraceabilityProfileModel is a customer lot-capture profile.
type TraceabilityProfileModel struct {
	CustomerID         string `gorm:"primaryKey;size:64"`
	RequiresLotCapture bool
}

func (TraceabilityProfileModel) TableName() string { return "traceability_profiles" }

// GlobalLotRuleModel keys lot capture on a product type.
type GlobalLotRuleModel struct {
	ProductType        string `gorm:"primaryKey;size:64"`
	RequiresLotCapture bool
}

func (GlobalLotRuleModel) TableName() string { return "global_lot_rules" }

// SequenceModel is the per-(resource, day) queue counter.
type SequenceModel struct {
	ResourceID string    `gorm:"primaryKey;size:64"`
	Day        time.Time `gorm:"primaryKey"`
	Last       int
}

func (SequenceModel) TableName() string { return "schedule_sequences" }
