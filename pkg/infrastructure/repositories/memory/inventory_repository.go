package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// InventoryRepository is an in-memory inventory store. Mutations are
// serialized per product: two concurrent Allocate calls over the same
// product see each other's claims, so the last available unit goes to
// exactly one of them.
//
// In strict mode Allocate refuses to drive availability negative and returns
// InsufficientInventoryError instead.
type InventoryRepository struct {
	strict bool

	mu     sync.RWMutex
	levels map[entities.ProductID]map[string]*entities.InventoryLevel

	lockMu sync.Mutex
	locks  map[entities.ProductID]*sync.Mutex
}

// NewInventoryRepository creates an empty repository.
func NewInventoryRepository(strict bool) *InventoryRepository {
	return &InventoryRepository{
		strict: strict,
		levels: make(map[entities.ProductID]map[string]*entities.InventoryLevel),
		locks:  make(map[entities.ProductID]*sync.Mutex),
	}
}

// Verify interface compliance
var _ repositories.InventoryWriter = (*InventoryRepository)(nil)

// SetLevel registers or replaces the stock position for one (product,
// location) key.
func (r *InventoryRepository) SetLevel(level entities.InventoryLevel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byLoc, ok := r.levels[level.ProductID]
	if !ok {
		byLoc = make(map[string]*entities.InventoryLevel)
		r.levels[level.ProductID] = byLoc
	}
	cp := level
	byLoc[level.LocationID] = &cp
}

// GetLevels returns a copy of every stock position.
func (r *InventoryRepository) GetLevels(ctx context.Context) ([]entities.InventoryLevel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []entities.InventoryLevel
	for _, byLoc := range r.levels {
		for _, lvl := range byLoc {
			out = append(out, *lvl)
		}
	}
	return out, nil
}

// GetAvailable returns unallocated stock. An empty locationID pools across
// all locations of the product.
func (r *InventoryRepository) GetAvailable(ctx context.Context, productID entities.ProductID, locationID string) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available(productID, locationID), nil
}

// Allocate claims quantity from available stock. Pooled allocation (empty
// locationID) drains locations in a stable order.
func (r *InventoryRepository) Allocate(ctx context.Context, productID entities.ProductID, locationID string, quantity decimal.Decimal) error {
	if quantity.Sign() <= 0 {
		return nil
	}

	lock := r.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.strict {
		available := r.available(productID, locationID)
		if available.LessThan(quantity) {
			return &entities.InsufficientInventoryError{
				ProductID:  productID,
				LocationID: locationID,
				Requested:  quantity,
				Available:  available,
			}
		}
	}

	remaining := quantity
	for _, lvl := range r.levelsFor(productID, locationID, true) {
		take := decimal.Min(positiveOrZero(lvl.Available()), remaining)
		if take.Sign() <= 0 {
			continue
		}
		lvl.Allocated = lvl.Allocated.Add(take)
		remaining = remaining.Sub(take)
		if remaining.Sign() <= 0 {
			return nil
		}
	}

	// Non-strict leftover: over-allocate the first key so the books balance.
	lvls := r.levelsFor(productID, locationID, true)
	lvls[0].Allocated = lvls[0].Allocated.Add(remaining)
	return nil
}

// Release returns an allocated quantity to available.
func (r *InventoryRepository) Release(ctx context.Context, productID entities.ProductID, locationID string, quantity decimal.Decimal) error {
	if quantity.Sign() <= 0 {
		return nil
	}

	lock := r.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := quantity
	for _, lvl := range r.levelsFor(productID, locationID, false) {
		give := decimal.Min(positiveOrZero(lvl.Allocated), remaining)
		if give.Sign() <= 0 {
			continue
		}
		lvl.Allocated = lvl.Allocated.Sub(give)
		remaining = remaining.Sub(give)
		if remaining.Sign() <= 0 {
			break
		}
	}
	return nil
}

// Consume removes an allocated quantity from stock entirely.
func (r *InventoryRepository) Consume(ctx context.Context, productID entities.ProductID, locationID string, quantity decimal.Decimal) error {
	if quantity.Sign() <= 0 {
		return nil
	}

	lock := r.lockFor(productID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	remaining := quantity
	for _, lvl := range r.levelsFor(productID, locationID, false) {
		take := decimal.Min(positiveOrZero(lvl.Allocated), remaining)
		if take.Sign() <= 0 {
			continue
		}
		lvl.Allocated = lvl.Allocated.Sub(take)
		lvl.OnHand = lvl.OnHand.Sub(take)
		remaining = remaining.Sub(take)
		if remaining.Sign() <= 0 {
			break
		}
	}
	return nil
}

// available sums unallocated stock under r.mu.
func (r *InventoryRepository) available(productID entities.ProductID, locationID string) decimal.Decimal {
	byLoc, ok := r.levels[productID]
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

// levelsFor returns the matching levels in a stable location order,
// creating the key when asked and absent.
func (r *InventoryRepository) levelsFor(productID entities.ProductID, locationID string, create bool) []*entities.InventoryLevel {
	byLoc, ok := r.levels[productID]
	if !ok {
		if !create {
			return nil
		}
		byLoc = make(map[string]*entities.InventoryLevel)
		r.levels[productID] = byLoc
	}

	if locationID != "" {
		lvl, ok := byLoc[locationID]
		if !ok {
			if !create {
				return nil
			}
			lvl = &entities.InventoryLevel{ProductID: productID, LocationID: locationID}
			byLoc[locationID] = lvl
		}
		return []*entities.InventoryLevel{lvl}
	}

	if len(byLoc) == 0 && create {
		byLoc[""] = &entities.InventoryLevel{ProductID: productID}
	}
	locations := make([]string, 0, len(byLoc))
	for loc := range byLoc {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	out := make([]*entities.InventoryLevel, 0, len(locations))
	for _, loc := range locations {
		out = append(out, byLoc[loc])
	}
	return out
}

// lockFor returns the product's serialization lock.
func (r *InventoryRepository) lockFor(productID entities.ProductID) *sync.Mutex {
	r.lockMu.Lock()
	defer r.lockMu.Unlock()

	lock, ok := r.locks[productID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[productID] = lock
	}
	return lock
}

func positiveOrZero(d decimal.Decimal) decimal.Decimal {
	if d.Sign() < 0 {
		return decimal.Zero
	}
	return d
}
