package repository

import (
	"context"

	"Conflux/internal/domain/models"
	"Conflux/internal/domain/repository"
	pkgkafka "Conflux/pkg/kafka"
)

// KafkaEventBus publishes decisions and closed trades for downstream
// consumers (notification services, dashboards). Keys are the symbol so one
// symbol's events stay ordered within a partition.
type KafkaEventBus struct {
	producer       *pkgkafka.Producer
	decisionsTopic string
	tradesTopic    string
}

func NewKafkaEventBus(producer *pkgkafka.Producer, decisionsTopic, tradesTopic string) repository.EventBus {
	return &KafkaEventBus{
		producer:       producer,
		decisionsTopic: decisionsTopic,
		tradesTopic:    tradesTopic,
	}
}

func (b *KafkaEventBus) PublishDecision(ctx context.Context, d models.ConfluenceDecision) error {
	return b.producer.Publish(ctx, b.decisionsTopic, []byte(d.Symbol), map[string]interface{}{
		"symbol":             d.Symbol,
		"direction":          d.Direction.String(),
		"score":              d.Score,
		"confidence":         d.Confidence,
		"rejected_by_regime": d.RejectedByRegime,
		"conflict_penalty":   d.ConflictPenalty,
		"state_changed":      d.StateChanged,
		"price":              d.Price,
		"ts":                 d.Timestamp.UnixMilli(),
	})
}

func (b *KafkaEventBus) PublishTrade(ctx context.Context, t models.Trade) error {
	return b.producer.Publish(ctx, b.tradesTopic, []byte(t.Symbol), map[string]interface{}{
		"symbol":      t.Symbol,
		"side":        t.Side.String(),
		"exit_reason": string(t.ExitReason),
		"entry":       t.EntryPrice,
		"exit":        t.ExitPrice,
		"size":        t.Size,
		"gross_pnl":   t.GrossPnL,
		"net_pnl":     t.NetPnL,
		"opened_at":   t.OpenedAt.UnixMilli(),
		"closed_at":   t.ClosedAt.UnixMilli(),
	})
}

func (b *KafkaEventBus) Close() error {
	if b.producer != nil {
		return b.producer.Close()
	}
	return nil
}

// NoopEventBus is the default when no broker is configured (backtests, local
// runs).
type NoopEventBus struct{}

func (NoopEventBus) PublishDecision(context.Context, models.ConfluenceDecision) error { return nil }
func (NoopEventBus) PublishTrade(context.Context, models.Trade) error                 { return nil }
func (NoopEventBus) Close() error                                                     { return nil }
