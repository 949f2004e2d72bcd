package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// OrderStatus enumerates the lifecycle states of a marketplace order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusAccepted  OrderStatus = "ACCEPTED"
	StatusInEscrow  OrderStatus = "IN_ESCROW"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusExpired   OrderStatus = "EXPIRED"
)

// transitions lists the edges the lifecycle manager is allowed to take.
// COMPLETED, CANCELLED and EXPIRED are reachable states with no outgoing
// edges; they are owned by out-of-band processes.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:  {StatusAccepted},
	StatusAccepted: {StatusInEscrow, StatusPending},
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInEscrow, StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// CropType enumerates the crops tradable on the marketplace.
type CropType string

const (
	CropWheat CropType = "WHEAT"
	CropMaize CropType = "MAIZE"
	CropRice  CropType = "RICE"
	CropSoy   CropType = "SOY"
)

// ValidCrop reports whether c is a supported crop.
func ValidCrop(c CropType) bool {
	switch c {
	case CropWheat, CropMaize, CropRice, CropSoy:
		return true
	}
	return false
}

// Order represents an agricultural purchase order.
//
// Identity fields (ID, BuyerID, BuyerName, CropType, Quantity, Price) are
// set once at creation and never change; only Status, EscrowReference and
// UpdatedAt are mutated afterwards, and only by the lifecycle service.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID              string          `bun:"id,pk"`
	BuyerID         string          `bun:"buyer_id"`
	BuyerName       string          `bun:"buyer_name"`
	CropType        CropType        `bun:"crop_type"`
	Quantity        decimal.Decimal `bun:"quantity,type:decimal(10,2)"`
	Price           decimal.Decimal `bun:"price,type:decimal(12,2)"`
	Status          OrderStatus     `bun:"status"`
	EscrowReference string          `bun:"escrow_tx_hash,nullzero"`
	CreatedAt       time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time       `bun:"updated_at,nullzero"`
}

// Amount is the total order value (price times quantity). It crosses the
// escrow boundary as a decimal string so no precision is lost.
func (o *Order) Amount() decimal.Decimal {
	return o.Price.Mul(o.Quantity)
}
