package entity

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to accepted", StatusPending, StatusAccepted, true},
		{"accepted to in escrow", StatusAccepted, StatusInEscrow, true},
		{"accepted rollback to pending", StatusAccepted, StatusPending, true},
		{"pending straight to in escrow", StatusPending, StatusInEscrow, false},
		{"in escrow back to pending", StatusInEscrow, StatusPending, false},
		{"completed is terminal", StatusCompleted, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusAccepted, false},
		{"expired is terminal", StatusExpired, StatusPending, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to))
		})
	}
}

func TestValidCrop(t *testing.T) {
	assert.True(t, ValidCrop(CropWheat))
	assert.True(t, ValidCrop(CropSoy))
	assert.False(t, ValidCrop(CropType("BARLEY")))
	assert.False(t, ValidCrop(CropType("")))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusExpired))
	assert.False(t, ValidStatus(OrderStatus("SHIPPED")))
}

func TestOrderAmount(t *testing.T) {
	order := Order{
		Quantity: decimal.NewFromInt(10),
		Price:    decimal.RequireFromString("2.50"),
	}
	assert.Equal(t, "25", order.Amount().String())

	order = Order{
		Quantity: decimal.RequireFromString("0.1"),
		Price:    decimal.RequireFromString("0.2"),
	}
	// Exact decimal arithmetic, no float drift.
	assert.Equal(t, "0.02", order.Amount().String())
}
