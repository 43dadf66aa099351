// Package kafka is the Engine's best-effort lifecycle stream: a
// separate publication path from the outbox, used for events where an
// occasional dropped message under broker pressure is an acceptable
// trade-off against blocking the matching loop.
package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

// Producer wraps a kafka-go writer for one topic.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer constructs a producer that batches briefly and requires
// all in-sync replicas to acknowledge.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

// Send publishes value under key, best-effort.
func (p *Producer) Send(ctx context.Context, key, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
	})
}

// Close flushes and releases the underlying connection.
func (p *Producer) Close() error {
	return p.writer.Close()
}
