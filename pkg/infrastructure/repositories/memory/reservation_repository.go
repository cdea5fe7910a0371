package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/openmfg/planner/pkg/domain/entities"
	"github.com/openmfg/planner/pkg/domain/repositories"
)

// ReservationRepository is an in-memory store for material reservations and
// lot consumption records.
type ReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string][]entities.MaterialReservation
	consumptions map[string][]entities.LotConsumption
}

// NewReservationRepository creates an empty repository.
func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{
		reservations: make(map[string][]entities.MaterialReservation),
		consumptions: make(map[string][]entities.LotConsumption),
	}
}

// Verify interface compliance
var _ repositories.ReservationRepository = (*ReservationRepository)(nil)

// SaveReservations appends the reservations under their order.
func (r *ReservationRepository) SaveReservations(ctx context.Context, reservations []entities.MaterialReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, res := range reservations {
		r.reservations[res.OrderID] = append(r.reservations[res.OrderID], res)
	}
	return nil
}

// GetReservations returns a copy of the order's reservations.
func (r *ReservationRepository) GetReservations(ctx context.Context, orderID string) ([]entities.MaterialReservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.reservations[orderID]
	out := make([]entities.MaterialReservation, len(stored))
	copy(out, stored)
	return out, nil
}

// UpdateReservation replaces the stored reservation with the same id.
func (r *ReservationRepository) UpdateReservation(ctx context.Context, reservation *entities.MaterialReservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.reservations[reservation.OrderID]
	for i := range stored {
		if stored[i].ID == reservation.ID {
			stored[i] = *reservation
			return nil
		}
	}
	return fmt.Errorf("reservation not found: %s", reservation.ID)
}

// DeleteReservations removes every reservation of the order.
func (r *ReservationRepository) DeleteReservations(ctx context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.reservations, orderID)
	return nil
}

// SaveLotConsumptions appends the immutable consumption records.
func (r *ReservationRepository) SaveLotConsumptions(ctx context.Context, consumptions []entities.LotConsumption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range consumptions {
		r.consumptions[c.OrderID] = append(r.consumptions[c.OrderID], c)
	}
	return nil
}

// GetLotConsumptions returns a copy of the order's consumption records.
func (r *ReservationRepository) GetLotConsumptions(ctx context.Context, orderID string) ([]entities.LotConsumption, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.consumptions[orderID]
	out := make([]entities.LotConsumption, len(stored))
	copy(out, stored)
	return out, nil
}
