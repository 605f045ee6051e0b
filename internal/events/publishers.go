package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// RedisPublisher publishes events on a pub/sub channel
type RedisPublisher struct {
	rdb     *redis.Client
	channel string
}

func NewRedisPublisher(rdb *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event TransactionStatusChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return errors.Wrap(err, "redis publish")
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// KafkaPublisher writes events keyed by wallet so one wallet's events stay ordered
type KafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaWriter builds a writer for the status topic
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event TransactionStatusChanged) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.WalletID),
		Value: payload,
		Time:  event.OccurredAt,
	})
	return errors.Wrap(err, "kafka write")
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher writes events to the service log
type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(_ context.Context, event TransactionStatusChanged) error {
	p.log.Info("transaction status changed",
		zap.String("event_type", event.EventType),
		zap.String("transaction_id", event.TransactionID),
		zap.String("wallet_id", event.WalletID),
		zap.String("type", event.Type),
		zap.String("status", event.Status),
		zap.Int64("amount", event.Amount),
		zap.String("currency", event.Currency))
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, TransactionStatusChanged) error { return nil }

func (NopPublisher) Close() error { return nil }
