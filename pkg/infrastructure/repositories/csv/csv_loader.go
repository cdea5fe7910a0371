package csv

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/domain/entities"
)

// Loader reads planning master data and demands from CSV files. Used by the
// CLI for offline planning runs against exported data sets.
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadProducts loads product master data from a CSV file
func (l *Loader) LoadProducts(filename string) ([]*entities.Product, error) {
	records, err := readAll(filename, "products")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"product_id", "name", "product_type", "make_or_buy", "stock_unit", "lead_time_days", "vendor_lead_time_days", "min_order_qty", "lot_size_qty", "requires_lot_capture"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("products CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var products []*entities.Product
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("products CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}
		product, err := parseProduct(record)
		if err != nil {
			return nil, fmt.Errorf("products CSV row %d: %w", i+2, err)
		}
		products = append(products, product)
	}
	return products, nil
}

// LoadBOMs loads BOM lines from a CSV file, grouped per parent product
func (l *Loader) LoadBOMs(filename string) ([]*entities.BillOfMaterials, error) {
	records, err := readAll(filename, "BOM")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"product_id", "component_id", "quantity_per", "unit", "scrap_factor", "cost_only"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("BOM CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	byParent := make(map[entities.ProductID]*entities.BillOfMaterials)
	var order []entities.ProductID
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("BOM CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		parentID := entities.ProductID(record[0])
		line, err := parseBOMLine(record)
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}

		bom, exists := byParent[parentID]
		if !exists {
			bom = &entities.BillOfMaterials{ProductID: parentID}
			byParent[parentID] = bom
			order = append(order, parentID)
		}
		bom.Lines = append(bom.Lines, *line)
	}

	boms := make([]*entities.BillOfMaterials, 0, len(order))
	for _, id := range order {
		boms = append(boms, byParent[id])
	}
	return boms, nil
}

// LoadInventory loads stock positions from a CSV file
func (l *Loader) LoadInventory(filename string) ([]entities.InventoryLevel, error) {
	records, err := readAll(filename, "inventory")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"product_id", "location_id", "on_hand", "allocated"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("inventory CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var levels []entities.InventoryLevel
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("inventory CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		onHand, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: invalid on_hand: %s", i+2, record[2])
		}
		allocated, err := decimal.NewFromString(record[3])
		if err != nil {
			return nil, fmt.Errorf("inventory CSV row %d: invalid allocated: %s", i+2, record[3])
		}

		levels = append(levels, entities.InventoryLevel{
			ProductID:  entities.ProductID(record[0]),
			LocationID: record[1],
			OnHand:     onHand,
			Allocated:  allocated,
		})
	}
	return levels, nil
}

// LoadDemands loads open demand lines from a CSV file
func (l *Loader) LoadDemands(filename string) ([]entities.DemandLine, error) {
	records, err := readAll(filename, "demands")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"product_id", "quantity", "unit", "need_by", "source", "customer_id", "location_id"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("demands CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var demands []entities.DemandLine
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("demands CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		quantity, err := decimal.NewFromString(record[1])
		if err != nil {
			return nil, fmt.Errorf("demands CSV row %d: invalid quantity: %s", i+2, record[1])
		}
		needBy, err := time.Parse("2006-01-02", record[3])
		if err != nil {
			return nil, fmt.Errorf("demands CSV row %d: invalid need_by: %s (expected YYYY-MM-DD)", i+2, record[3])
		}

		demands = append(demands, entities.DemandLine{
			ID:         uuid.NewString(),
			ProductID:  entities.ProductID(record[0]),
			Quantity:   quantity,
			Unit:       record[2],
			NeedBy:     needBy,
			Source:     record[4],
			CustomerID: record[5],
			LocationID: record[6],
		})
	}
	return demands, nil
}

// LoadConversions loads unit conversion factors from a CSV file
func (l *Loader) LoadConversions(filename string) ([]entities.UnitConversion, error) {
	records, err := readAll(filename, "conversions")
	if err != nil {
		return nil, err
	}

	expectedHeader := []string{"from_unit", "to_unit", "factor"}
	if !validateHeader(records[0], expectedHeader) {
		return nil, fmt.Errorf("conversions CSV header mismatch. Expected: %v, Got: %v", expectedHeader, records[0])
	}

	var conversions []entities.UnitConversion
	for i, record := range records[1:] {
		if len(record) != len(expectedHeader) {
			return nil, fmt.Errorf("conversions CSV row %d: expected %d columns, got %d", i+2, len(expectedHeader), len(record))
		}

		factor, err := decimal.NewFromString(record[2])
		if err != nil {
			return nil, fmt.Errorf("conversions CSV row %d: invalid factor: %s", i+2, record[2])
		}
		conversions = append(conversions, entities.UnitConversion{
			From:   record[0],
			To:     record[1],
			Factor: factor,
		})
	}
	return conversions, nil
}

// Helper functions for parsing CSV records

func readAll(filename, kind string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%s CSV must have header and at least one data row", kind)
	}
	return records, nil
}

func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range expected {
		if strings.ToLower(strings.TrimSpace(actual[i])) != col {
			return false
		}
	}
	return true
}

func parseProduct(record []string) (*entities.Product, error) {
	policy, err := parseMakeOrBuy(record[3])
	if err != nil {
		return nil, err
	}

	leadTimeDays, err := strconv.Atoi(record[5])
	if err != nil {
		return nil, fmt.Errorf("invalid lead_time_days: %s", record[5])
	}
	vendorLeadTimeDays, err := strconv.Atoi(record[6])
	if err != nil {
		return nil, fmt.Errorf("invalid vendor_lead_time_days: %s", record[6])
	}

	minOrderQty, err := decimal.NewFromString(record[7])
	if err != nil {
		return nil, fmt.Errorf("invalid min_order_qty: %s", record[7])
	}
	lotSizeQty, err := decimal.NewFromString(record[8])
	if err != nil {
		return nil, fmt.Errorf("invalid lot_size_qty: %s", record[8])
	}

	requiresLot, err := strconv.ParseBool(record[9])
	if err != nil {
		return nil, fmt.Errorf("invalid requires_lot_capture: %s", record[9])
	}

	return &entities.Product{
		ID:                 entities.ProductID(record[0]),
		Name:               record[1],
		ProductType:        record[2],
		Policy:             policy,
		StockUnit:          record[4],
		LeadTimeDays:       leadTimeDays,
		VendorLeadTimeDays: vendorLeadTimeDays,
		MinOrderQty:        minOrderQty,
		LotSizeQty:         lotSizeQty,
		RequiresLotCapture: requiresLot,
	}, nil
}

func parseBOMLine(record []string) (*entities.BOMLine, error) {
	quantityPer, err := decimal.NewFromString(record[2])
	if err != nil {
		return nil, fmt.Errorf("invalid quantity_per: %s", record[2])
	}

	scrapFactor := decimal.Zero
	if record[4] != "" {
		scrapFactor, err = decimal.NewFromString(record[4])
		if err != nil {
			return nil, fmt.Errorf("invalid scrap_factor: %s", record[4])
		}
	}

	costOnly := false
	if record[5] != "" {
		costOnly, err = strconv.ParseBool(record[5])
		if err != nil {
			return nil, fmt.Errorf("invalid cost_only: %s", record[5])
		}
	}

	return entities.NewBOMLine(entities.ProductID(record[1]), quantityPer, record[3], scrapFactor, costOnly)
}

func parseMakeOrBuy(s string) (entities.MakeOrBuy, error) {
	switch strings.ToLower(s) {
	case "make":
		return entities.MakeOrBuyMake, nil
	case "buy":
		return entities.MakeOrBuyBuy, nil
	case "make_or_buy", "either":
		return entities.MakeOrBuyEither, nil
	default:
		return entities.MakeOrBuyMake, fmt.Errorf("invalid make_or_buy: %s (expected: make, buy, or make_or_buy)", s)
	}
}
