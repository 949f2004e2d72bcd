package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/harvest-finance/harvest/internal/config"
)

// fetchRetryDelay spaces out reconnect attempts after a broker error.
const fetchRetryDelay = time.Second

// Message is a message consumed from the bus, decoupled from the broker
// library types.
type Message struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
	Offset  int64
	Time    time.Time
}

// Handler processes an inbound message. A returned error skips the offset
// commit so the message is redelivered.
type Handler func(context.Context, Message) error

// Client publishes and consumes lifecycle events.
type Client interface {
	Publish(ctx context.Context, key []byte, value []byte) error
	Consume(ctx context.Context, handler Handler) error
	Topic() string
}

// Module wires the messaging client.
var Module = fx.Provide(NewClient)

// NewClient builds a messaging client based on configuration. With
// messaging disabled the service still runs; publishes become no-ops and
// consumers block until shutdown.
func NewClient(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (Client, error) {
	if !cfg.Messaging.Enabled || cfg.Messaging.Driver == "noop" {
		logger.Info("messaging disabled; using noop client")
		return disabledClient{topic: cfg.Messaging.Kafka.Topic}, nil
	}

	switch cfg.Messaging.Driver {
	case "kafka":
		return newKafkaClient(lc, cfg.Messaging, logger)
	default:
		return nil, fmt.Errorf("unsupported messaging driver: %s", cfg.Messaging.Driver)
	}
}

type disabledClient struct {
	topic string
}

func (disabledClient) Publish(context.Context, []byte, []byte) error { return nil }

func (disabledClient) Consume(ctx context.Context, _ Handler) error {
	<-ctx.Done()
	return ctx.Err()
}

func (d disabledClient) Topic() string { return d.topic }

type kafkaClient struct {
	writer *kafka.Writer
	reader *kafka.Reader
	topic  string
	logger *zap.Logger
}

func newKafkaClient(lc fx.Lifecycle, cfg config.Messaging, logger *zap.Logger) (Client, error) {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Kafka.Brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Logger:       kafkaLogAdapter{logger},
		ErrorLogger:  kafkaLogAdapter{logger},
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.ConsumerGroup,
		Topic:          cfg.Kafka.Topic,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: cfg.Kafka.CommitInterval,
		Dialer: &kafka.Dialer{
			Timeout:  cfg.Kafka.ConnectTimeout,
			ClientID: cfg.Kafka.ClientID,
		},
	})

	client := &kafkaClient{
		writer: writer,
		reader: reader,
		topic:  cfg.Kafka.Topic,
		logger: logger,
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			logger.Info("closing kafka client")
			writerErr := writer.Close()
			readerErr := reader.Close()
			if writerErr != nil {
				return writerErr
			}
			return readerErr
		},
	})

	return client, nil
}

func (k *kafkaClient) Publish(ctx context.Context, key []byte, value []byte) error {
	return k.writer.WriteMessages(ctx, kafka.Message{Topic: k.topic, Key: key, Value: value})
}

func (k *kafkaClient) Consume(ctx context.Context, handler Handler) error {
	for {
		msg, err := k.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			k.logger.Error("kafka fetch failed", zap.Error(err))

			select {
			case <-time.After(fetchRetryDelay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if err := handler(ctx, convertMessage(msg)); err != nil {
			k.logger.Error("message handler failed",
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			// No commit; the group redelivers the message.
			continue
		}

		if err := k.reader.CommitMessages(ctx, msg); err != nil {
			k.logger.Warn("offset commit failed", zap.Error(err))
		}
	}
}

func (k *kafkaClient) Topic() string { return k.topic }

func convertMessage(msg kafka.Message) Message {
	out := Message{
		Topic:  msg.Topic,
		Key:    append([]byte(nil), msg.Key...),
		Value:  append([]byte(nil), msg.Value...),
		Offset: msg.Offset,
		Time:   msg.Time,
	}
	if len(msg.Headers) > 0 {
		out.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			out.Headers[h.Key] = string(h.Value)
		}
	}
	return out
}

type kafkaLogAdapter struct {
	logger *zap.Logger
}

func (a kafkaLogAdapter) Printf(format string, args ...interface{}) {
	a.logger.Sugar().Debugf(format, args...)
}
