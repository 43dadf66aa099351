// Package broadcaster drains the trade/lifecycle outbox and publishes
// each pending record to Kafka with a synchronous producer, retrying
// on the next tick whenever the broker is unreachable.
package broadcaster

import (
	"context"
	"log"
	"time"

	"github.com/IBM/sarama"

	"matchengine/internal/outbox"
)

// Broadcaster is the outbox's only consumer.
type Broadcaster struct {
	box      *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
}

// New dials brokers with a synchronous producer configured for
// durable acknowledgement.
func New(box *outbox.Outbox, brokers []string, topic string, interval time.Duration) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		box:      box,
		producer: producer,
		topic:    topic,
		interval: interval,
	}, nil
}

// Run drains the outbox on a fixed interval until ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	log.Println("[broadcaster] started")

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.drainOnce()
		}
	}
}

func (b *Broadcaster) drainOnce() {
	_ = b.box.ScanPending(func(rec outbox.Record) error {
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(rec.Payload),
		}

		_, _, err := b.producer.SendMessage(msg)
		if err != nil {
			_ = b.box.MarkFailed(rec.Seq, rec.Retries+1)
			return nil // keep scanning; retry this record next tick
		}

		return b.box.MarkAcked(rec.Seq, rec.Retries)
	})
}

// Close releases the underlying producer connection.
func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
