package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/harvest-finance/harvest/internal/entity"
	"github.com/harvest-finance/harvest/pkg/errorbank"
)

// CreateOrderRequest is the buyer-supplied order payload. Quantity and
// price accept both quoted and bare JSON numbers.
type CreateOrderRequest struct {
	CropType string          `json:"cropType"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Validate enforces the creation boundary rules: supported crop, quantity
// of at least one, strictly positive price.
func (r CreateOrderRequest) Validate() error {
	if !entity.ValidCrop(entity.CropType(r.CropType)) {
		return errorbank.BadRequest("unsupported crop type",
			errorbank.WithDetail("cropType", r.CropType))
	}
	if r.Quantity.LessThan(decimal.NewFromInt(1)) {
		return errorbank.BadRequest("quantity must be at least 1")
	}
	if !r.Price.IsPositive() {
		return errorbank.BadRequest("price must be positive")
	}
	return nil
}

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID              string          `json:"id"`
	BuyerID         string          `json:"buyerId"`
	BuyerName       string          `json:"buyerName"`
	CropType        string          `json:"cropType"`
	Quantity        decimal.Decimal `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	Status          string          `json:"status"`
	EscrowReference string          `json:"escrowTxHash,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewOrderResponse maps an order entity onto its transport shape.
func NewOrderResponse(order *entity.Order) OrderResponse {
	return OrderResponse{
		ID:              order.ID,
		BuyerID:         order.BuyerID,
		BuyerName:       order.BuyerName,
		CropType:        string(order.CropType),
		Quantity:        order.Quantity,
		Price:           order.Price,
		Status:          string(order.Status),
		EscrowReference: order.EscrowReference,
		CreatedAt:       order.CreatedAt,
		UpdatedAt:       order.UpdatedAt,
	}
}

// NewOrderListResponse maps a page of orders.
func NewOrderListResponse(orders []entity.Order) []OrderResponse {
	items := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, NewOrderResponse(&orders[i]))
	}
	return items
}
