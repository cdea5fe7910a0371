package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestInventorySnapshot_MergesDuplicateKeys(t *testing.T) {
	snapshot := NewInventorySnapshot([]InventoryLevel{
		{ProductID: "LEG", LocationID: "MAIN", OnHand: decimal.NewFromInt(10)},
		{ProductID: "LEG", LocationID: "MAIN", OnHand: decimal.NewFromInt(5)},
	})

	assert.True(t, snapshot.Available("LEG", "MAIN").Equal(decimal.NewFromInt(15)))
}

func TestInventorySnapshot_PooledAvailability(t *testing.T) {
	snapshot := NewInventorySnapshot([]InventoryLevel{
		{ProductID: "LEG", LocationID: "MAIN", OnHand: decimal.NewFromInt(10), Allocated: decimal.NewFromInt(2)},
		{ProductID: "LEG", LocationID: "EAST", OnHand: decimal.NewFromInt(6)},
	})

	assert.True(t, snapshot.Available("LEG", "MAIN").Equal(decimal.NewFromInt(8)))
	assert.True(t, snapshot.Available("LEG", "").Equal(decimal.NewFromInt(14)))
	assert.True(t, snapshot.Available("LEG", "WEST").IsZero())
	assert.True(t, snapshot.Available("TOP", "").IsZero())
}

func TestInventorySnapshot_ConsumeDrawsDown(t *testing.T) {
	snapshot := NewInventorySnapshot([]InventoryLevel{
		{ProductID: "LEG", LocationID: "EAST", OnHand: decimal.NewFromInt(6)},
		{ProductID: "LEG", LocationID: "MAIN", OnHand: decimal.NewFromInt(10)},
	})

	// Pooled consumption drains locations in a stable order: EAST first.
	consumed := snapshot.Consume("LEG", "", decimal.NewFromInt(8))
	assert.True(t, consumed.Equal(decimal.NewFromInt(8)))
	assert.True(t, snapshot.Available("LEG", "EAST").IsZero())
	assert.True(t, snapshot.Available("LEG", "MAIN").Equal(decimal.NewFromInt(8)))

	// A second consume only gets what is left.
	consumed = snapshot.Consume("LEG", "", decimal.NewFromInt(20))
	assert.True(t, consumed.Equal(decimal.NewFromInt(8)))
	assert.True(t, snapshot.Available("LEG", "").IsZero())
}
