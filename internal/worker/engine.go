package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/config"
	"github.com/harvest-finance/harvest/internal/messaging"
)

const maxConsumeBackoff = 30 * time.Second

// HandlerRegistration binds a message topic to its handler. Handlers join
// the engine through the "worker.handlers" Fx group.
type HandlerRegistration struct {
	Topic   string
	Handler messaging.Handler
}

// Params collects engine dependencies via Fx.
type Params struct {
	fx.In

	Client        messaging.Client
	Logger        *zap.Logger
	Config        config.Config
	Registrations []HandlerRegistration `group:"worker.handlers"`
}

// Engine runs the background consumers that process lifecycle events.
type Engine struct {
	client   messaging.Client
	logger   *zap.Logger
	cfg      config.Config
	handlers map[string]messaging.Handler
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewEngine constructs the worker Engine from registered handlers.
func NewEngine(p Params) *Engine {
	handlers := make(map[string]messaging.Handler, len(p.Registrations))
	for _, r := range p.Registrations {
		if r.Topic == "" || r.Handler == nil {
			continue
		}
		handlers[r.Topic] = r.Handler
	}

	return &Engine{
		client:   p.Client,
		logger:   p.Logger,
		cfg:      p.Config,
		handlers: handlers,
	}
}

// Module wires the engine into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(NewEngine),
	fx.Invoke(func(lc fx.Lifecycle, engine *Engine) {
		lc.Append(fx.Hook{
			OnStart: engine.start,
			OnStop:  engine.stop,
		})
	}),
)

func (e *Engine) start(context.Context) error {
	if !e.cfg.Messaging.Enabled || !e.cfg.Messaging.Workers.Enabled {
		e.logger.Info("worker engine disabled")
		return nil
	}
	if len(e.handlers) == 0 {
		e.logger.Info("worker engine has no handlers; skipping")
		return nil
	}

	concurrency := e.cfg.Messaging.Workers.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	for i := 0; i < concurrency; i++ {
		id := i
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.run(runCtx, id)
		}()
	}

	e.logger.Info("worker engine started",
		zap.Int("workers", concurrency),
		zap.String("topic", e.client.Topic()),
	)
	return nil
}

func (e *Engine) stop(ctx context.Context) error {
	if e.cancel == nil {
		return nil
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("worker engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run consumes until the context is cancelled, backing off on broker
// errors.
func (e *Engine) run(ctx context.Context, workerID int) {
	backoff := time.Second
	for ctx.Err() == nil {
		err := e.client.Consume(ctx, func(msgCtx context.Context, msg messaging.Message) error {
			return e.dispatch(msgCtx, workerID, msg)
		})
		if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}

		e.logger.Error("consume loop error", zap.Int("worker", workerID), zap.Error(err))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < maxConsumeBackoff {
			backoff *= 2
		}
	}
}

func (e *Engine) dispatch(ctx context.Context, workerID int, msg messaging.Message) error {
	handler, ok := e.handlers[msg.Topic]
	if !ok {
		e.logger.Warn("no handler for topic", zap.String("topic", msg.Topic))
		return nil
	}

	e.logger.Debug("processing message",
		zap.String("topic", msg.Topic),
		zap.Int("worker", workerID),
		zap.Int64("offset", msg.Offset),
	)
	return handler(ctx, msg)
}
