package planning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/infrastructure/repositories/memory"
)

var testNeedBy = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func tableProducts() *memory.ProductRepository {
	repo := memory.NewProductRepository()

	repo.AddProduct(&entities.Product{ID: "TABLE", Policy: entities.MakeOrBuyMake, StockUnit: "ea", LeadTimeDays: 3})
	repo.AddProduct(&entities.Product{ID: "LEG_ASSY", Policy: entities.MakeOrBuyMake, StockUnit: "ea", LeadTimeDays: 2})
	repo.AddProduct(&entities.Product{ID: "LEG", Policy: entities.MakeOrBuyBuy, StockUnit: "ea", VendorLeadTimeDays: 4})
	repo.AddProduct(&entities.Product{ID: "TOP", Policy: entities.MakeOrBuyBuy, StockUnit: "ea", VendorLeadTimeDays: 5})
	repo.AddProduct(&entities.Product{ID: "GLUE", Policy: entities.MakeOrBuyBuy, StockUnit: "g"})

	repo.AddBOM(&entities.BillOfMaterials{
		ProductID: "TABLE",
		Lines: []entities.BOMLine{
			{ComponentID: "LEG_ASSY", QuantityPer: decimal.NewFromInt(2), Unit: "ea"},
			{ComponentID: "TOP", QuantityPer: decimal.NewFromInt(1), Unit: "ea"},
		},
	})
	repo.AddBOM(&entities.BillOfMaterials{
		ProductID: "LEG_ASSY",
		Lines: []entities.BOMLine{
			{ComponentID: "LEG", QuantityPer: decimal.NewFromInt(4), Unit: "ea", ScrapFactor: decimal.NewFromFloat(0.25)},
			{ComponentID: "GLUE", QuantityPer: decimal.NewFromInt(50), Unit: "g", IsCostOnly: true},
		},
	})
	return repo
}

func demandFor(explosion *Explosion, productID entities.ProductID) *entities.DemandLine {
	for i := range explosion.Demands {
		if explosion.Demands[i].ProductID == productID {
			return &explosion.Demands[i]
		}
	}
	return nil
}

func TestBOMResolver_ExplodeMultiLevel(t *testing.T) {
	resolver := NewBOMResolver(tableProducts(), entities.NewUnitConverter(nil), Options{})

	explosion, err := resolver.Explode(context.Background(), ExplodeRequest{
		ProductID: "TABLE",
		Quantity:  decimal.NewFromInt(10),
		NeedBy:    testNeedBy,
		Source:    "so-1",
	})
	require.NoError(t, err)

	// LEG_ASSY 2x10 = 20, TOP 1x10 = 10, LEG 4x20x1.25 = 100.
	assert.Len(t, explosion.Demands, 3)
	assert.True(t, demandFor(explosion, "LEG_ASSY").Quantity.Equal(decimal.NewFromInt(20)))
	assert.True(t, demandFor(explosion, "TOP").Quantity.Equal(decimal.NewFromInt(10)))
	assert.True(t, demandFor(explosion, "LEG").Quantity.Equal(decimal.NewFromInt(100)))

	// GLUE is cost-only: flagged, not demanded.
	assert.Nil(t, demandFor(explosion, "GLUE"))
	require.Len(t, explosion.CostOnly, 1)
	assert.Equal(t, entities.ProductID("LEG_ASSY"), explosion.CostOnly[0].ParentID)
	assert.Equal(t, entities.ProductID("GLUE"), explosion.CostOnly[0].ComponentID)

	// Pegging chains run root to component.
	assert.Equal(t, []entities.ProductID{"TABLE", "LEG_ASSY", "LEG"}, demandFor(explosion, "LEG").SourceChain)
}

func TestBOMResolver_ExplodeSingleLevel(t *testing.T) {
	resolver := NewBOMResolver(tableProducts(), entities.NewUnitConverter(nil), Options{})

	explosion, err := resolver.Explode(context.Background(), ExplodeRequest{
		ProductID:   "TABLE",
		Quantity:    decimal.NewFromInt(10),
		NeedBy:      testNeedBy,
		SingleLevel: true,
	})
	require.NoError(t, err)

	assert.Len(t, explosion.Demands, 2)
	assert.Nil(t, demandFor(explosion, "LEG"))
}

func TestBOMResolver_CascadeDueDates(t *testing.T) {
	resolver := NewBOMResolver(tableProducts(), entities.NewUnitConverter(nil), Options{CascadeDueDates: true})

	explosion, err := resolver.Explode(context.Background(), ExplodeRequest{
		ProductID: "TABLE",
		Quantity:  decimal.NewFromInt(1),
		NeedBy:    testNeedBy,
	})
	require.NoError(t, err)

	// LEG_ASSY is due its own 2-day lead ahead of the table.
	assert.Equal(t, testNeedBy.AddDate(0, 0, -2), demandFor(explosion, "LEG_ASSY").NeedBy)
	// LEG inherits the assembly's date; its vendor lead applies at ordering,
	// not here.
	assert.Equal(t, testNeedBy.AddDate(0, 0, -2), demandFor(explosion, "LEG").NeedBy)
	assert.Equal(t, testNeedBy, demandFor(explosion, "TOP").NeedBy)
}

func TestBOMResolver_SharedDueDateWithoutCascade(t *testing.T) {
	resolver := NewBOMResolver(tableProducts(), entities.NewUnitConverter(nil), Options{})

	explosion, err := resolver.Explode(context.Background(), ExplodeRequest{
		ProductID: "TABLE",
		Quantity:  decimal.NewFromInt(1),
		NeedBy:    testNeedBy,
	})
	require.NoError(t, err)

	for _, d := range explosion.Demands {
		assert.Equal(t, testNeedBy, d.NeedBy)
	}
}

func TestBOMResolver_CircularBOM(t *testing.T) {
	repo := memory.NewProductRepository()
	repo.AddProduct(&entities.Product{ID: "A", Policy: entities.MakeOrBuyMake, StockUnit: "ea"})
	repo.AddProduct(&entities.Product{ID: "B", Policy: entities.MakeOrBuyMake, StockUnit: "ea"})
	repo.AddBOM(&entities.BillOfMaterials{ProductID: "A", Lines: []entities.BOMLine{
		{ComponentID: "B", QuantityPer: decimal.NewFromInt(1), Unit: "ea"},
	}})
	repo.AddBOM(&entities.BillOfMaterials{ProductID: "B", Lines: []entities.BOMLine{
		{ComponentID: "A", QuantityPer: decimal.NewFromInt(1), Unit: "ea"},
	}})

	resolver := NewBOMResolver(repo, entities.NewUnitConverter(nil), Options{})
	_, err := resolver.Explode(context.Background(), ExplodeRequest{
		ProductID: "A",
		Quantity:  decimal.NewFromInt(1),
		NeedBy:    testNeedBy,
	})
	require.Error(t, err)

	var cycleErr *entities.CircularBOMError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []entities.ProductID{"A", "B", "A"}, cycleErr.Cycle)
}

func TestBOMResolver_CycleAcrossSeededChain(t *testing.T) {
	// A cycle that spans planning levels: the chain seeded from an earlier
	// level already contains the component.
	repo := memory.NewProductRepository()
	repo.AddProduct(&entities.Product{ID: "B", Policy: entities.MakeOrBuyMake, StockUnit: "ea"})
	repo.AddProduct(&entities.Product{ID: "A", Policy: entities.MakeOrBuyMake, StockUnit: "ea"})
	repo.AddBOM(&entities.BillOfMaterials{ProductID: "B", Lines: []entities.BOMLine{
		{ComponentID: "A", QuantityPer: decimal.NewFromInt(1), Unit: "ea"},
	}})

	resolver := NewBOMResolver(repo, entities.NewUnitConverter(nil), Options{})
	_, err := resolver.Explode(context.Background(), ExplodeRequest{
		ProductID:   "B",
		Quantity:    decimal.NewFromInt(1),
		NeedBy:      testNeedBy,
		Chain:       []entities.ProductID{"A", "B"},
		SingleLevel: true,
	})
	require.Error(t, err)

	var cycleErr *entities.CircularBOMError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []entities.ProductID{"A", "B", "A"}, cycleErr.Cycle)
}

func TestBOMResolver_UnitConversion(t *testing.T) {
	repo := memory.NewProductRepository()
	repo.AddProduct(&entities.Product{ID: "BENCH", Policy: entities.MakeOrBuyMake, StockUnit: "ea"})
	repo.AddProduct(&entities.Product{ID: "SCREW", Policy: entities.MakeOrBuyBuy, StockUnit: "ea"})
	repo.AddBOM(&entities.BillOfMaterials{ProductID: "BENCH", Lines: []entities.BOMLine{
		{ComponentID: "SCREW", QuantityPer: decimal.NewFromInt(2), Unit: "dozen"},
	}})

	converter := entities.NewUnitConverter([]entities.UnitConversion{
		{From: "dozen", To: "ea", Factor: decimal.NewFromInt(12)},
	})
	resolver := NewBOMResolver(repo, converter, Options{})

	explosion, err := resolver.Explode(context.Background(), ExplodeRequest{
		ProductID: "BENCH",
		Quantity:  decimal.NewFromInt(3),
		NeedBy:    testNeedBy,
	})
	require.NoError(t, err)
	assert.True(t, demandFor(explosion, "SCREW").Quantity.Equal(decimal.NewFromInt(72)))
}

func TestBOMResolver_UnitConversionFailure(t *testing.T) {
	repo := memory.NewProductRepository()
	repo.AddProduct(&entities.Product{ID: "BENCH", Policy: entities.MakeOrBuyMake, StockUnit: "ea"})
	repo.AddProduct(&entities.Product{ID: "SCREW", Policy: entities.MakeOrBuyBuy, StockUnit: "ea"})
	repo.AddBOM(&entities.BillOfMaterials{ProductID: "BENCH", Lines: []entities.BOMLine{
		{ComponentID: "SCREW", QuantityPer: decimal.NewFromInt(2), Unit: "box"},
	}})

	resolver := NewBOMResolver(repo, entities.NewUnitConverter(nil), Options{})
	_, err := resolver.Explode(context.Background(), ExplodeRequest{
		ProductID: "BENCH",
		Quantity:  decimal.NewFromInt(1),
		NeedBy:    testNeedBy,
	})
	require.Error(t, err)

	var convErr *entities.UnitConversionError
	require.True(t, errors.As(err, &convErr))
	assert.Equal(t, entities.ProductID("SCREW"), convErr.ComponentID)
	assert.Equal(t, "box", convErr.From)
	assert.Equal(t, "ea", convErr.To)
}

func TestBOMResolver_DefaultPolicyResolvesEither(t *testing.T) {
	repo := memory.NewProductRepository()
	repo.AddProduct(&entities.Product{ID: "KIT", Policy: entities.MakeOrBuyMake, StockUnit: "ea"})
	repo.AddProduct(&entities.Product{ID: "PART", Policy: entities.MakeOrBuyEither, StockUnit: "ea"})
	repo.AddProduct(&entities.Product{ID: "RAW", Policy: entities.MakeOrBuyBuy, StockUnit: "ea"})
	repo.AddBOM(&entities.BillOfMaterials{ProductID: "KIT", Lines: []entities.BOMLine{
		{ComponentID: "PART", QuantityPer: decimal.NewFromInt(1), Unit: "ea"},
	}})
	repo.AddBOM(&entities.BillOfMaterials{ProductID: "PART", Lines: []entities.BOMLine{
		{ComponentID: "RAW", QuantityPer: decimal.NewFromInt(1), Unit: "ea"},
	}})

	// Default make: PART recurses into RAW.
	makeResolver := NewBOMResolver(repo, entities.NewUnitConverter(nil), Options{DefaultPolicy: entities.MakeOrBuyMake})
	explosion, err := makeResolver.Explode(context.Background(), ExplodeRequest{
		ProductID: "KIT", Quantity: decimal.NewFromInt(1), NeedBy: testNeedBy,
	})
	require.NoError(t, err)
	assert.NotNil(t, demandFor(explosion, "RAW"))

	// Default buy: PART is a leaf.
	buyResolver := NewBOMResolver(repo, entities.NewUnitConverter(nil), Options{DefaultPolicy: entities.MakeOrBuyBuy})
	explosion, err = buyResolver.Explode(context.Background(), ExplodeRequest{
		ProductID: "KIT", Quantity: decimal.NewFromInt(1), NeedBy: testNeedBy,
	})
	require.NoError(t, err)
	assert.Nil(t, demandFor(explosion, "RAW"))
}
