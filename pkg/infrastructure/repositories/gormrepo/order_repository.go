package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// ProductionOrderRepository persists production orders in Postgres with
// optimistic locking: every update carries the version it read, and a stale
// write touches zero rows.
type ProductionOrderRepository struct {
	db *gorm.DB
}

// NewProductionOrderRepository creates the repository.
func NewProductionOrderRepository(db *gorm.DB) *ProductionOrderRepository {
	return &ProductionOrderRepository{db: db}
}

// Verify interface compliance
var _ repositories.ProductionOrderRepository = (*ProductionOrderRepository)(nil)

// GetOrder loads one production order.
func (r *ProductionOrderRepository) GetOrder(ctx context.Context, id string) (*entities.ProductionOrder, error) {
	var model ProductionOrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("production order not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load production order %s: %w", id, err)
	}
	return model.toEntity(), nil
}

// SaveOrder inserts a new production order.
func (r *ProductionOrderRepository) SaveOrder(ctx context.Context, order *entities.ProductionOrder) error {
	if err := r.db.WithContext(ctx).Create(productionOrderModel(order)).Error; err != nil {
		return fmt.Errorf("failed to save production order %s: %w", order.ID, err)
	}
	return nil
}

// UpdateOrder writes the order guarded by its version. Zero affected rows
// means someone else got there first.
func (r *ProductionOrderRepository) UpdateOrder(ctx context.Context, order *entities.ProductionOrder) error {
	model := productionOrderModel(order)
	model.Version = order.Version + 1

	result := r.db.WithContext(ctx).
		Model(&ProductionOrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Select("*").
		Updates(model)
	if result.Error != nil {
		return fmt.Errorf("failed to update production order %s: %w", order.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return &entities.ConcurrencyConflictError{Resource: "production_order", Key: order.ID}
	}
	order.Version = model.Version
	return nil
}

// NextSequence bumps the (resource, day) counter under a row lock, creating
// it on first use.
func (r *ProductionOrderRepository) NextSequence(ctx context.Context, resourceID string, day time.Time) (int, error) {
	queueDay := day.UTC().Truncate(24 * time.Hour)

	var next int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq SequenceModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&seq, "resource_id = ? AND day = ?", resourceID, queueDay).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			seq = SequenceModel{ResourceID: resourceID, Day: queueDay, Last: 1}
			if err := tx.Create(&seq).Error; err != nil {
				return err
			}
			next = 1
			return nil
		}
		if err != nil {
			return err
		}
		seq.Last++
		next = seq.Last
		return tx.Model(&SequenceModel{}).
			Where("resource_id = ? AND day = ?", resourceID, queueDay).
			Update("last", seq.Last).Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to assign sequence on %s: %w", resourceID, err)
	}
	return next, nil
}

// PlannedOrderRepository persists planning-run output in Postgres.
type PlannedOrderRepository struct {
	db *gorm.DB
}

// NewPlannedOrderRepository creates the repository.
func NewPlannedOrderRepository(db *gorm.DB) *PlannedOrderRepository {
	return &PlannedOrderRepository{db: db}
}

// Verify interface compliance
var _ repositories.PlannedOrderRepository = (*PlannedOrderRepository)(nil)

// ReplaceOpen swaps the open planned orders for the given set in one
// transaction.
func (r *PlannedOrderRepository) ReplaceOpen(ctx context.Context, orders []entities.PlannedOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&PlannedOrderModel{}).Error; err != nil {
			return fmt.Errorf("failed to clear planned orders: %w", err)
		}
		for _, order := range orders {
			model := PlannedOrderModel{
				ID:             order.ID,
				ProductID:      string(order.ProductID),
				Quantity:       order.Quantity,
				OrderType:      int(order.Type),
				NeedBy:         order.NeedBy,
				SuggestedStart: order.SuggestedStart,
				LocationID:     order.LocationID,
				CustomerID:     order.CustomerID,
				SourceDemands:  strings.Join(order.SourceDemandIDs, ","),
				SourceChain:    joinChain(order.SourceChain),
			}
			if err := tx.Create(&model).Error; err != nil {
				return fmt.Errorf("failed to save planned order %s: %w", order.ID, err)
			}
		}
		return nil
	})
}

// GetOpen returns the open planned orders.
func (r *PlannedOrderRepository) GetOpen(ctx context.Context) ([]entities.PlannedOrder, error) {
	var models []PlannedOrderModel
	if err := r.db.WithContext(ctx).Order("need_by").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load planned orders: %w", err)
	}

	out := make([]entities.PlannedOrder, 0, len(models))
	for _, m := range models {
		out = append(out, entities.PlannedOrder{
			ID:              m.ID,
			ProductID:       entities.ProductID(m.ProductID),
			Quantity:        m.Quantity,
			Type:            entities.OrderType(m.OrderType),
			NeedBy:          m.NeedBy,
			SuggestedStart:  m.SuggestedStart,
			LocationID:      m.LocationID,
			CustomerID:      m.CustomerID,
			SourceDemandIDs: splitList(m.SourceDemands),
			SourceChain:     splitChain(m.SourceChain),
		})
	}
	return out, nil
}

func joinChain(chain []entities.ProductID) string {
	parts := make([]string, len(chain))
	for i, id := range chain {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

func splitChain(s string) []entities.ProductID {
	parts := splitList(s)
	if parts == nil {
		return nil
	}
	out := make([]entities.ProductID, len(parts))
	for i, p := range parts {
		out[i] = entities.ProductID(p)
	}
	return out
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
