package planning

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/domain/entities"
)

// NetCalculator turns gross demand into shortages against an inventory
// snapshot. Demands for the same (component, unit, location) group are summed
// before netting: netting each demand independently would let two demands
// both claim the same on-hand quantity and under-count the shared shortage.
type NetCalculator struct{}

// NewNetCalculator creates a net requirements calculator.
func NewNetCalculator() *NetCalculator {
	return &NetCalculator{}
}

type grossGroup struct {
	productID   entities.ProductID
	unit        string
	locationID  string
	quantity    decimal.Decimal
	needBy      entities.DemandLine
	customerID  string
	demandIDs   []string
	sourceChain []entities.ProductID
}

// Net aggregates the demand lines and consumes the snapshot, returning one
// shortage per group that available inventory could not cover. The snapshot
// is drawn down as it nets so later planning levels see the remainder.
// Demands with a location net against that location; demands without one
// pool availability across locations.
func (c *NetCalculator) Net(demands []entities.DemandLine, snapshot *entities.InventorySnapshot) []entities.ShortageLine {
	groups := make(map[string]*grossGroup)
	var keys []string

	for i := range demands {
		d := &demands[i]
		if d.Quantity.Sign() <= 0 {
			continue
		}
		key := fmt.Sprintf("%s|%s|%s", d.ProductID, d.Unit, d.LocationID)
		g, ok := groups[key]
		if !ok {
			g = &grossGroup{
				productID:   d.ProductID,
				unit:        d.Unit,
				locationID:  d.LocationID,
				quantity:    decimal.Zero,
				needBy:      *d,
				sourceChain: d.SourceChain,
			}
			groups[key] = g
			keys = append(keys, key)
		}
		g.quantity = g.quantity.Add(d.Quantity)
		g.demandIDs = append(g.demandIDs, d.ID)
		// The shortage carries the need-by and pegging chain of the most
		// urgent contributing demand.
		if d.NeedBy.Before(g.needBy.NeedBy) {
			g.needBy = *d
			g.sourceChain = d.SourceChain
		}
		if g.customerID == "" {
			g.customerID = d.CustomerID
		}
	}

	sort.Strings(keys)

	var shortages []entities.ShortageLine
	for _, key := range keys {
		g := groups[key]
		consumed := snapshot.Consume(g.productID, g.locationID, g.quantity)
		shortage := g.quantity.Sub(consumed)
		if shortage.Sign() <= 0 {
			continue
		}
		shortages = append(shortages, entities.ShortageLine{
			ProductID:   g.productID,
			Unit:        g.unit,
			LocationID:  g.locationID,
			Quantity:    shortage,
			NeedBy:      g.needBy.NeedBy,
			CustomerID:  g.customerID,
			DemandIDs:   g.demandIDs,
			SourceChain: g.sourceChain,
		})
	}

	return shortages
}
