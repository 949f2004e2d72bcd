package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/config"
	"github.com/harvest-finance/harvest/internal/messaging"
	ordersvc "github.com/harvest-finance/harvest/internal/service/order"
	"github.com/harvest-finance/harvest/internal/worker"
)

var workerTracer = otel.Tracer("github.com/harvest-finance/harvest/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewLifecycleEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewLifecycleEventHandler sets up a worker handler that processes order
// lifecycle events from the bus. Today it records them; notification
// fan-out hangs off this handler.
func NewLifecycleEventHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		switch event.Type {
		case ordersvc.EventOrderCreated:
			logger.Info("order created",
				zap.String("id", event.ID),
				zap.String("crop_type", string(event.CropType)),
				zap.String("buyer_id", event.BuyerID),
			)
		case ordersvc.EventOrderInEscrow:
			logger.Info("order entered escrow",
				zap.String("id", event.ID),
				zap.String("escrow_reference", event.EscrowReference),
			)
		case ordersvc.EventOrderRolledBack:
			logger.Warn("order acceptance rolled back",
				zap.String("id", event.ID),
			)
		default:
			logger.Warn("unknown order event", zap.String("type", event.Type), zap.String("id", event.ID))
		}

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
