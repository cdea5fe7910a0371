package entities

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProductionOrder(t *testing.T) {
	needBy := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	order, err := NewProductionOrder("ord-1", "TABLE", decimal.NewFromInt(10), needBy)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, order.Status)
	assert.Equal(t, QCNone, order.QCStatus)
	assert.True(t, order.OpenQuantity().Equal(decimal.NewFromInt(10)))

	_, err = NewProductionOrder("", "TABLE", decimal.NewFromInt(10), needBy)
	assert.Error(t, err)

	_, err = NewProductionOrder("ord-2", "TABLE", decimal.Zero, needBy)
	assert.Error(t, err)
}

func TestProductionOrder_OpenQuantityAndShortfall(t *testing.T) {
	order := &ProductionOrder{
		QuantityOrdered:   decimal.NewFromInt(10),
		QuantityCompleted: decimal.NewFromInt(6),
		QuantityScrapped:  decimal.NewFromInt(1),
	}

	assert.True(t, order.OpenQuantity().Equal(decimal.NewFromInt(3)))
	// Not fully accounted yet: no shortfall reported.
	assert.True(t, order.Shortfall().IsZero())

	order.QuantityCompleted = decimal.NewFromInt(8)
	order.QuantityScrapped = decimal.NewFromInt(2)
	assert.True(t, order.OpenQuantity().IsZero())
	assert.True(t, order.Shortfall().Equal(decimal.NewFromInt(2)))
}

func TestProductionOrder_Started(t *testing.T) {
	tests := []struct {
		name     string
		status   OrderStatus
		heldFrom OrderStatus
		started  bool
	}{
		{"draft", StatusDraft, StatusDraft, false},
		{"released", StatusReleased, StatusDraft, false},
		{"scheduled", StatusScheduled, StatusDraft, false},
		{"in progress", StatusInProgress, StatusDraft, true},
		{"completed", StatusCompleted, StatusDraft, true},
		{"qc hold", StatusQCHold, StatusDraft, true},
		{"held before start", StatusOnHold, StatusScheduled, false},
		{"held after start", StatusOnHold, StatusInProgress, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &ProductionOrder{Status: tt.status, HeldFrom: tt.heldFrom}
			assert.Equal(t, tt.started, order.Started())
		})
	}

	// A set StartedAt outlives any hold/resume sequence: the order stays
	// started whatever status it carries now.
	startedAt := time.Date(2026, 2, 20, 8, 0, 0, 0, time.UTC)
	for _, status := range []OrderStatus{StatusReleased, StatusScheduled, StatusOnHold} {
		order := &ProductionOrder{Status: status, StartedAt: &startedAt}
		assert.True(t, order.Started(), "status %s with StartedAt set", status)
	}
}

func TestOrderStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusClosed.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.True(t, StatusScrapped.IsTerminal())
	assert.True(t, StatusSplit.IsTerminal())
	assert.False(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusOnHold.IsTerminal())
}

func TestFirmPlannedOrder(t *testing.T) {
	needBy := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

	planned, err := NewPlannedOrder("po-1", "TABLE", decimal.NewFromInt(10), OrderTypeProduction, needBy, needBy.AddDate(0, 0, -3))
	require.NoError(t, err)
	planned.LocationID = "MAIN"
	planned.CustomerID = "cust-1"

	order, err := FirmPlannedOrder("ord-1", planned, now)
	require.NoError(t, err)
	assert.Equal(t, StatusReleased, order.Status)
	assert.Equal(t, "MAIN", order.LocationID)
	assert.Equal(t, "cust-1", order.CustomerID)
	require.NotNil(t, order.ReleasedAt)
	assert.Equal(t, now, *order.ReleasedAt)

	purchase, err := NewPlannedOrder("po-2", "LEG", decimal.NewFromInt(4), OrderTypePurchase, needBy, needBy)
	require.NoError(t, err)
	_, err = FirmPlannedOrder("ord-2", purchase, now)
	assert.Error(t, err)
}
