package entities

import (
	"sort"

	"github.com/shopspring/decimal"
)

// InventoryLevel is the stock position for one product at one location, in
// the product's stocking unit.
type InventoryLevel struct {
	ProductID  ProductID
	LocationID string
	OnHand     decimal.Decimal
	Allocated  decimal.Decimal
}

// Available returns the unallocated on-hand quantity.
func (l *InventoryLevel) Available() decimal.Decimal {
	return l.OnHand.Sub(l.Allocated)
}

// InventorySnapshot is a run-scoped copy of inventory levels that netting
// consumes as it plans. Mutating the snapshot never touches live inventory,
// so an abandoned planning run has nothing to undo.
type InventorySnapshot struct {
	levels map[ProductID]map[string]*InventoryLevel
}

// NewInventorySnapshot copies the given levels into a fresh snapshot.
func NewInventorySnapshot(levels []InventoryLevel) *InventorySnapshot {
	s := &InventorySnapshot{levels: make(map[ProductID]map[string]*InventoryLevel)}
	for _, lvl := range levels {
		byLoc, ok := s.levels[lvl.ProductID]
		if !ok {
			byLoc = make(map[string]*InventoryLevel)
			s.levels[lvl.ProductID] = byLoc
		}
		cp := lvl
		if existing, ok := byLoc[lvl.LocationID]; ok {
			existing.OnHand = existing.OnHand.Add(lvl.OnHand)
			existing.Allocated = existing.Allocated.Add(lvl.Allocated)
			continue
		}
		byLoc[lvl.LocationID] = &cp
	}
	return s
}

// Available returns what the snapshot can still supply. An empty locationID
// pools availability across all locations of the product.
func (s *InventorySnapshot) Available(productID ProductID, locationID string) decimal.Decimal {
	byLoc, ok := s.levels[productID]
	if !ok {
		return decimal.Zero
	}
	if locationID != "" {
		if lvl, ok := byLoc[locationID]; ok {
			return positiveOrZero(lvl.Available())
		}
		return decimal.Zero
	}
	total := decimal.Zero
	for _, lvl := range byLoc {
		total = total.Add(positiveOrZero(lvl.Available()))
	}
	return total
}

// Consume draws up to quantity from the snapshot and returns how much it
// actually supplied. Pooled consumption drains locations in a stable order.
func (s *InventorySnapshot) Consume(productID ProductID, locationID string, quantity decimal.Decimal) decimal.Decimal {
	if quantity.Sign() <= 0 {
		return decimal.Zero
	}
	byLoc, ok := s.levels[productID]
	if !ok {
		return decimal.Zero
	}

	var locations []string
	if locationID != "" {
		locations = []string{locationID}
	} else {
		for loc := range byLoc {
			locations = append(locations, loc)
		}
		sort.Strings(locations)
	}

	consumed := decimal.Zero
	remaining := quantity
	for _, loc := range locations {
		lvl, ok := byLoc[loc]
		if !ok {
			continue
		}
		avail := positiveOrZero(lvl.Available())
		if avail.Sign() <= 0 {
			continue
		}
		take := decimal.Min(avail, remaining)
		lvl.Allocated = lvl.Allocated.Add(take)
		consumed = consumed.Add(take)
		remaining = remaining.Sub(take)
		if remaining.Sign() <= 0 {
			break
		}
	}
	return consumed
}

func positiveOrZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}
