package order

import (
	"time"

	"github.com/harvest-finance/harvest/internal/entity"
)

// Lifecycle event types published on the orders topic.
const (
	EventOrderCreated    = "order.created"
	EventOrderInEscrow   = "order.in_escrow"
	EventOrderRolledBack = "order.rolled_back"
)

// OrderEvent is emitted whenever the lifecycle manager changes an order.
type OrderEvent struct {
	Type            string             `json:"type"`
	ID              string             `json:"id"`
	BuyerID         string             `json:"buyer_id"`
	CropType        entity.CropType    `json:"crop_type"`
	Status          entity.OrderStatus `json:"status"`
	EscrowReference string             `json:"escrow_reference,omitempty"`
	OccurredAt      time.Time          `json:"occurred_at"`
}
