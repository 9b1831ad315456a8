package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"kudos-controlplane/pkg/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNoBrokers = errors.New("kafka: at least one broker required")

var Module = fx.Module("kafka",
	fx.Provide(New),
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes messages to a single topic, retrying transient failures
// with capped exponential backoff.
type Producer struct {
	writer       messageWriter
	topic        string
	maxAttempts  int
	writeTimeout time.Duration
	backoff      time.Duration
}

func New(lc fx.Lifecycle, cfg *config.Config) (*Producer, error) {
	brokers := cfg.KafkaBrokers()
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        cfg.Kafka.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireAll,
	}
	p := newProducer(w, cfg.Kafka.Topic)

	zap.L().Info("[Kafka] producer ready", zap.Strings("brokers", brokers), zap.String("topic", cfg.Kafka.Topic))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.Close()
		},
	})
	return p, nil
}

func newProducer(w messageWriter, topic string) *Producer {
	return &Producer{
		writer:       w,
		topic:        topic,
		maxAttempts:  3,
		writeTimeout: 5 * time.Second,
		backoff:      100 * time.Millisecond,
	}
}

func (p *Producer) Topic() string { return p.topic }

// Produce writes one message.
func (p *Producer) Produce(ctx context.Context, key, value []byte) error {
	msg := kafka.Message{Key: key, Value: value, Time: time.Now().UTC()}
	backoff := p.backoff

	var lastErr error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
		err := p.writer.WriteMessages(attemptCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == p.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}

	return fmt.Errorf("produce failed after %d attempts: %w", p.maxAttempts, lastErr)
}

// ProduceJSON marshals v and produces it under key.
func (p *Producer) ProduceJSON(ctx context.Context, key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return p.Produce(ctx, key, b)
}

func (p *Producer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
