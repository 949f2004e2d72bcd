package dto

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harvest-finance/harvest/internal/entity"
	"github.com/harvest-finance/harvest/pkg/errorbank"
)

func TestCreateOrderRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     CreateOrderRequest
		wantErr bool
	}{
		{
			name: "valid",
			req:  CreateOrderRequest{CropType: "WHEAT", Quantity: decimal.NewFromInt(100), Price: decimal.RequireFromString("12.5")},
		},
		{
			name:    "unsupported crop",
			req:     CreateOrderRequest{CropType: "BARLEY", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(1)},
			wantErr: true,
		},
		{
			name:    "empty crop",
			req:     CreateOrderRequest{Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(1)},
			wantErr: true,
		},
		{
			name:    "zero quantity",
			req:     CreateOrderRequest{CropType: "RICE", Quantity: decimal.Zero, Price: decimal.NewFromInt(1)},
			wantErr: true,
		},
		{
			name:    "fractional quantity below one",
			req:     CreateOrderRequest{CropType: "RICE", Quantity: decimal.RequireFromString("0.5"), Price: decimal.NewFromInt(1)},
			wantErr: true,
		},
		{
			name:    "zero price",
			req:     CreateOrderRequest{CropType: "SOY", Quantity: decimal.NewFromInt(1), Price: decimal.Zero},
			wantErr: true,
		},
		{
			name:    "negative price",
			req:     CreateOrderRequest{CropType: "SOY", Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(-2)},
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if tc.wantErr {
				assert.True(t, errorbank.IsKind(err, errorbank.KindBadRequest))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateOrderRequestAcceptsBareAndQuotedNumbers(t *testing.T) {
	var req CreateOrderRequest
	require.NoError(t, json.Unmarshal([]byte(`{"cropType":"WHEAT","quantity":10,"price":"2.5"}`), &req))

	assert.NoError(t, req.Validate())
	assert.Equal(t, "10", req.Quantity.String())
	assert.Equal(t, "2.5", req.Price.String())
}

func TestNewOrderResponse(t *testing.T) {
	order := &entity.Order{
		ID:              "o1",
		BuyerID:         "b1",
		BuyerName:       "Buyer One",
		CropType:        entity.CropWheat,
		Quantity:        decimal.NewFromInt(10),
		Price:           decimal.NewFromInt(2),
		Status:          entity.StatusInEscrow,
		EscrowReference: "tx-1",
	}

	resp := NewOrderResponse(order)

	assert.Equal(t, "o1", resp.ID)
	assert.Equal(t, "WHEAT", resp.CropType)
	assert.Equal(t, "IN_ESCROW", resp.Status)
	assert.Equal(t, "tx-1", resp.EscrowReference)
}

func TestNewOrderListResponseEmpty(t *testing.T) {
	items := NewOrderListResponse(nil)
	require.NotNil(t, items)
	assert.Len(t, items, 0)
}
