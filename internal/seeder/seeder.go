package seeder

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/entity"
	repo "github.com/harvest-finance/harvest/internal/repository/order"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder inserts sample data for local/dev setups.
type Seeder struct {
	store  repo.Store
	logger *zap.Logger
}

// New constructs a Seeder backed by the order store.
func New(store repo.Store, logger *zap.Logger) *Seeder {
	return &Seeder{store: store, logger: logger}
}

// Orders seeds example pending orders.
func (s *Seeder) Orders(ctx context.Context) error {
	samples := []entity.Order{
		{
			BuyerID:   "buyer-demo-1",
			BuyerName: "Amara Cooperative",
			CropType:  entity.CropWheat,
			Quantity:  decimal.NewFromInt(100),
			Price:     decimal.NewFromFloat(12.5),
		},
		{
			BuyerID:   "buyer-demo-2",
			BuyerName: "Delta Grain Traders",
			CropType:  entity.CropMaize,
			Quantity:  decimal.NewFromInt(250),
			Price:     decimal.NewFromFloat(8.75),
		},
		{
			BuyerID:   "buyer-demo-1",
			BuyerName: "Amara Cooperative",
			CropType:  entity.CropRice,
			Quantity:  decimal.NewFromInt(40),
			Price:     decimal.NewFromFloat(21.0),
		},
	}

	for i := range samples {
		if err := s.store.Create(ctx, &samples[i]); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}
