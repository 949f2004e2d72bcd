// Package escrow defines the settlement provider contract used during
// order acceptance. The shipped implementation only simulates settlement;
// a real ledger SDK can be swapped in behind the Provider interface.
package escrow

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/config"
)

// Provider creates an escrow holding funds between a buyer and a farmer.
// Amount is a decimal string of price times quantity; passing it as a
// string avoids floating-point loss at the boundary. The returned
// reference identifies the settlement and is opaque to callers.
type Provider interface {
	CreateEscrow(ctx context.Context, buyerID, farmerKey, amount string) (string, error)
}

// Module provides the escrow provider to Fx.
var Module = fx.Provide(NewProvider)

// NewProvider builds the configured provider. Both drivers simulate
// settlement today; "horizon" keeps the hook for a real Stellar
// integration and only changes the fabricated reference prefix.
func NewProvider(cfg config.Config, logger *zap.Logger) (Provider, error) {
	switch cfg.Escrow.Driver {
	case "simulated":
		return &simulatedProvider{prefix: "simulated-tx", logger: logger}, nil
	case "horizon":
		logger.Info("horizon escrow configured; settlement is still simulated",
			zap.String("horizon_url", cfg.Escrow.HorizonURL))
		return &simulatedProvider{prefix: "stellar-simulated", logger: logger}, nil
	default:
		return nil, fmt.Errorf("unsupported escrow driver: %s", cfg.Escrow.Driver)
	}
}

type simulatedProvider struct {
	prefix string
	logger *zap.Logger
}

func (p *simulatedProvider) CreateEscrow(ctx context.Context, buyerID, farmerKey, amount string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	reference := fmt.Sprintf("%s-%d", p.prefix, time.Now().UnixNano())
	if p.logger != nil {
		p.logger.Info("simulated escrow created",
			zap.String("reference", reference),
			zap.String("buyer_id", buyerID),
			zap.String("farmer_key", farmerKey),
			zap.String("amount", amount),
		)
	}
	return reference, nil
}
