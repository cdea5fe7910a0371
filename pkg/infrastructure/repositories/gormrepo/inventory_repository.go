package gormrepo

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// InventoryRepository persists inventory levels in Postgres. Allocation
// check-and-claim runs in a transaction that row-locks the product's levels,
// so concurrent claims on the same product serialize at the database.
type InventoryRepository struct {
	db     *gorm.DB
	strict bool
}

// NewInventoryRepository creates the repository. strict refuses allocations
// that would drive availability negative.
func NewInventoryRepository(db *gorm.DB, strict bool) *InventoryRepository {
	return &InventoryRepository{db: db, strict: strict}
}

// Verify interface compliance
var _ repositories.InventoryWriter = (*InventoryRepository)(nil)

// GetLevels returns every stock position.
func (r *InventoryRepository) GetLevels(ctx context.Context) ([]entities.InventoryLevel, error) {
	var models []InventoryLevelModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load inventory levels: %w", err)
	}
	out := make([]entities.InventoryLevel, 0, len(models))
	for _, m := range models {
		out = append(out, m.toEntity())
	}
	return out, nil
}

// GetAvailable returns unallocated stock, pooled across locations when
// locationID is empty.
func (r *InventoryRepository) GetAvailable(ctx context.Context, productID entities.ProductID, locationID string) (decimal.Decimal, error) {
	models, err := r.lockedLevels(r.db.WithContext(ctx), productID, locationID, false)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, m := range models {
		lvl := m.toEntity()
		if avail := lvl.Available(); avail.Sign() > 0 {
			total = total.Add(avail)
		}
	}
	return total, nil
}

// Allocate claims quantity from available stock atomically.
func (r *InventoryRepository) Allocate(ctx context.Context, productID entities.ProductID, locationID string, quantity decimal.Decimal) error {
	if quantity.Sign() <= 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models, err := r.lockedLevels(tx, productID, locationID, true)
		if err != nil {
			return err
		}

		if r.strict {
			available := decimal.Zero
			for i := range models {
				lvl := models[i].toEntity()
				if avail := lvl.Available(); avail.Sign() > 0 {
					available = available.Add(avail)
				}
			}
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
		for i := range models {
			m := &models[i]
			avail := m.OnHand.Sub(m.Allocated)
			if avail.Sign() <= 0 {
				continue
			}
			take := decimal.Min(avail, remaining)
			m.Allocated = m.Allocated.Add(take)
			remaining = remaining.Sub(take)
			if err := r.saveAllocated(tx, m); err != nil {
				return err
			}
			if remaining.Sign() <= 0 {
				return nil
			}
		}
		if remaining.Sign() > 0 {
			// Non-strict: the first row absorbs the over-allocation.
			m := &models[0]
			m.Allocated = m.Allocated.Add(remaining)
			return r.saveAllocated(tx, m)
		}
		return nil
	})
}

// Release returns an allocated quantity to available.
func (r *InventoryRepository) Release(ctx context.Context, productID entities.ProductID, locationID string, quantity decimal.Decimal) error {
	if quantity.Sign() <= 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models, err := r.lockedLevels(tx, productID, locationID, true)
		if err != nil {
			return err
		}

		remaining := quantity
		for i := range models {
			m := &models[i]
			if m.Allocated.Sign() <= 0 {
				continue
			}
			give := decimal.Min(m.Allocated, remaining)
			m.Allocated = m.Allocated.Sub(give)
			remaining = remaining.Sub(give)
			if err := r.saveAllocated(tx, m); err != nil {
				return err
			}
			if remaining.Sign() <= 0 {
				break
			}
		}
		return nil
	})
}

// Consume removes an allocated quantity from stock entirely.
func (r *InventoryRepository) Consume(ctx context.Context, productID entities.ProductID, locationID string, quantity decimal.Decimal) error {
	if quantity.Sign() <= 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		models, err := r.lockedLevels(tx, productID, locationID, true)
		if err != nil {
			return err
		}

		remaining := quantity
		for i := range models {
			m := &models[i]
			if m.Allocated.Sign() <= 0 {
				continue
			}
			take := decimal.Min(m.Allocated, remaining)
			m.Allocated = m.Allocated.Sub(take)
			m.OnHand = m.OnHand.Sub(take)
			remaining = remaining.Sub(take)
			err := tx.Model(&InventoryLevelModel{}).
				Where("product_id = ? AND location_id = ?", m.ProductID, m.LocationID).
				Updates(map[string]interface{}{"on_hand": m.OnHand, "allocated": m.Allocated}).Error
			if err != nil {
				return fmt.Errorf("failed to consume inventory for %s: %w", productID, err)
			}
			if remaining.Sign() <= 0 {
				break
			}
		}
		return nil
	})
}

// lockedLevels loads the product's levels in a stable location order, with
// FOR UPDATE row locks when forUpdate is set.
func (r *InventoryRepository) lockedLevels(tx *gorm.DB, productID entities.ProductID, locationID string, forUpdate bool) ([]InventoryLevelModel, error) {
	query := tx.Where("product_id = ?", string(productID))
	if locationID != "" {
		query = query.Where("location_id = ?", locationID)
	}
	if forUpdate {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var models []InventoryLevelModel
	if err := query.Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load inventory for %s: %w", productID, err)
	}
	if len(models) == 0 && forUpdate {
		m := InventoryLevelModel{ProductID: string(productID), LocationID: locationID}
		if err := tx.Create(&m).Error; err != nil {
			return nil, fmt.Errorf("failed to create inventory row for %s: %w", productID, err)
		}
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].LocationID < models[j].LocationID })
	return models, nil
}

func (r *InventoryRepository) saveAllocated(tx *gorm.DB, m *InventoryLevelModel) error {
	err := tx.Model(&InventoryLevelModel{}).
		Where("product_id = ? AND location_id = ?", m.ProductID, m.LocationID).
		Update("allocated", m.Allocated).Error
	if err != nil {
		return fmt.Errorf("failed to update allocation for %s: %w", m.ProductID, err)
	}
	return nil
}
