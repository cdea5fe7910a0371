package gormrepo

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// ReservationRepository persists material reservations and lot consumptions
// in Postgres. Consumption rows are append-only.
type ReservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository creates the repository.
func NewReservationRepository(db *gorm.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// Verify interface compliance
var _ repositories.ReservationRepository = (*ReservationRepository)(nil)

// SaveReservations inserts the reservations in one transaction.
func (r *ReservationRepository) SaveReservations(ctx context.Context, reservations []entities.MaterialReservation) error {
	if len(reservations) == 0 {
		return nil
	}
	models := make([]ReservationModel, 0, len(reservations))
	for _, res := range reservations {
		models = append(models, ReservationModel{
			ID:               res.ID,
			OrderID:          res.OrderID,
			ComponentID:      string(res.ComponentID),
			LocationID:       res.LocationID,
			QuantityReserved: res.QuantityReserved,
			QuantityConsumed: res.QuantityConsumed,
			LotNumber:        res.LotNumber,
			CreatedAt:        res.CreatedAt,
		})
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("failed to save reservations: %w", err)
	}
	return nil
}

// GetReservations returns the order's reservations.
func (r *ReservationRepository) GetReservations(ctx context.Context, orderID string) ([]entities.MaterialReservation, error) {
	var models []ReservationModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load reservations for order %s: %w", orderID, err)
	}
	out := make([]entities.MaterialReservation, 0, len(models))
	for _, m := range models {
		out = append(out, m.toEntity())
	}
	return out, nil
}

// UpdateReservation writes back a mutated reservation.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation *entities.MaterialReservation) error {
	result := r.db.WithContext(ctx).
		Model(&ReservationModel{}).
		Where("id = ?", reservation.ID).
		Updates(map[string]interface{}{
			"quantity_reserved": reservation.QuantityReserved,
			"quantity_consumed": reservation.QuantityConsumed,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update reservation %s: %w", reservation.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("reservation not found: %s", reservation.ID)
	}
	return nil
}

// DeleteReservations removes every reservation of the order.
func (r *ReservationRepository) DeleteReservations(ctx context.Context, orderID string) error {
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&ReservationModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete reservations for order %s: %w", orderID, err)
	}
	return nil
}

// SaveLotConsumptions appends the consumption records.
func (r *ReservationRepository) SaveLotConsumptions(ctx context.Context, consumptions []entities.LotConsumption) error {
	if len(consumptions) == 0 {
		return nil
	}
	models := make([]LotConsumptionModel, 0, len(consumptions))
	for _, c := range consumptions {
		models = append(models, LotConsumptionModel{
			ID:          c.ID,
			OrderID:     c.OrderID,
			ComponentID: string(c.ComponentID),
			LotNumber:   c.LotNumber,
			Quantity:    c.Quantity,
			RecordedAt:  c.RecordedAt,
		})
	}
	if err := r.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("failed to save lot consumptions: %w", err)
	}
	return nil
}

// GetLotConsumptions returns the order's consumption records.
func (r *ReservationRepository) GetLotConsumptions(ctx context.Context, orderID string) ([]entities.LotConsumption, error) {
	var models []LotConsumptionModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("recorded_at").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to load lot consumptions for order %s: %w", orderID, err)
	}
	out := make([]entities.LotConsumption, 0, len(models))
	for _, m := range models {
		out = append(out, entities.LotConsumption{
			ID:          m.ID,
			OrderID:     m.OrderID,
			ComponentID: entities.ProductID(m.ComponentID),
			LotNumber:   m.LotNumber,
			Quantity:    m.Quantity,
			RecordedAt:  m.RecordedAt,
		})
	}
	return out, nil
}
