package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/auth"
	"github.com/harvest-finance/harvest/internal/cache"
	"github.com/harvest-finance/harvest/internal/config"
	"github.com/harvest-finance/harvest/internal/entity"
	"github.com/harvest-finance/harvest/internal/escrow"
	"github.com/harvest-finance/harvest/internal/messaging"
	repo "github.com/harvest-finance/harvest/internal/repository/order"
	"github.com/harvest-finance/harvest/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/harvest-finance/harvest/service/order")

// CreateInput carries the buyer-supplied order fields. Validation happens
// at the DTO boundary; the service trusts these values.
type CreateInput struct {
	CropType entity.CropType
	Quantity decimal.Decimal
	Price    decimal.Decimal
}

// Service owns the order lifecycle state machine: creation, listing, and
// the accept-with-escrow transition including rollback.
type Service struct {
	store         repo.Store
	provider      escrow.Provider
	cache         cache.Store
	cacheTTL      time.Duration
	escrowTimeout time.Duration
	logger        *zap.Logger
	publisher     messaging.Client
	messaging     messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     repo.Store
	Provider  escrow.Provider
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:         p.Store,
		provider:      p.Provider,
		cache:         p.Cache,
		cacheTTL:      p.Config.Cache.DefaultTTL,
		escrowTimeout: p.Config.Escrow.Timeout,
		logger:        p.Logger,
		publisher:     p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// Create stores a new PENDING order for the buyer.
func (s *Service) Create(ctx context.Context, buyer auth.Identity, input CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(
		attribute.String("order.crop_type", string(input.CropType)),
		attribute.String("order.buyer_id", buyer.ID),
	))
	defer span.End()

	order := &entity.Order{
		BuyerID:   buyer.ID,
		BuyerName: buyer.Name,
		CropType:  input.CropType,
		Quantity:  input.Quantity,
		Price:     input.Price,
	}

	if err := s.store.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("id", order.ID), zap.Error(err))
	}

	s.publishEvent(ctx, EventOrderCreated, order)
	return order, nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id string) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.String("id", id), zap.Error(err))
	}

	order, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("id", id), zap.Error(err))
	}

	return order, nil
}

// List returns one page of orders matching the filter plus the total
// match count.
func (s *Service) List(ctx context.Context, f repo.Filter) ([]entity.Order, int, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, total, err := s.store.List(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, 0, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, total, nil
}

// Accept moves a PENDING order to IN_ESCROW on behalf of the farmer.
//
// The PENDING to ACCEPTED move is a conditional update, so concurrent
// accepts on the same order serialize: exactly one wins, the rest get a
// conflict. ACCEPTED is persisted before the escrow call as a durability
// checkpoint; a crash between the checkpoint and the outcome leaves the
// order ACCEPTED with no escrow reference and needs manual recovery.
func (s *Service) Accept(ctx context.Context, id string, farmer auth.Identity) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Accept", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.farmer_id", farmer.ID),
	))
	defer span.End()

	order, err := s.store.TransitionStatus(ctx, id, entity.StatusPending, entity.StatusAccepted)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, errorbank.NotFound("order not found")
		case errors.Is(err, repo.ErrStatusConflict):
			return nil, errorbank.Conflict("order not available for acceptance")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "store error")
			return nil, errorbank.Internal("failed to accept order", errorbank.WithCause(err))
		}
	}

	escrowCtx, cancel := context.WithTimeout(ctx, s.escrowTimeout)
	defer cancel()

	reference, escrowErr := s.provider.CreateEscrow(escrowCtx, order.BuyerID, farmer.PublicKey, order.Amount().String())
	if escrowErr != nil {
		// Provider failure or timeout: roll the acceptance back. The
		// underlying error stays in the logs, never in the response.
		s.logger.Error("escrow creation failed",
			zap.String("order_id", order.ID),
			zap.String("farmer_id", farmer.ID),
			zap.Error(escrowErr),
		)
		span.RecordError(escrowErr)
		span.SetStatus(codes.Error, "escrow failed")

		order.Status = entity.StatusPending
		order.EscrowReference = ""
		if saveErr := s.store.Save(ctx, order); saveErr != nil {
			s.logger.Error("escrow rollback persist failed", zap.String("order_id", order.ID), zap.Error(saveErr))
		}
		if cacheErr := s.storeInCache(ctx, order); cacheErr != nil {
			s.logger.Warn("orders cache write failed", zap.String("id", order.ID), zap.Error(cacheErr))
		}
		s.publishEvent(ctx, EventOrderRolledBack, order)

		return nil, errorbank.Unprocessable("escrow creation failed")
	}

	order.EscrowReference = reference
	order.Status = entity.StatusInEscrow
	if err := s.store.Save(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store error")
		return nil, errorbank.Internal("failed to persist escrow state", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.String("id", order.ID), zap.Error(err))
	}

	s.publishEvent(ctx, EventOrderInEscrow, order)
	return order, nil
}

func (s *Service) publishEvent(ctx context.Context, eventType string, order *entity.Order) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := OrderEvent{
		Type:            eventType,
		ID:              order.ID,
		BuyerID:         order.BuyerID,
		CropType:        order.CropType,
		Status:          order.Status,
		EscrowReference: order.EscrowReference,
		OccurredAt:      time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(fmt.Sprintf("order-%s", order.ID)), payload); err != nil {
		s.logger.Error("publish order event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *Service) cacheKey(id string) string {
	return fmt.Sprintf("orders:%s", id)
}

func (s *Service) getFromCache(ctx context.Context, id string) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, s.cacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, s.cacheKey(order.ID), bytes, s.cacheTTL)
}
