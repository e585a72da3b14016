// Package kafka provides a Kafka-backed audit sink. Events are produced
// synchronously from the audit worker goroutine, keyed by scheme id so one
// scheme's administrative history stays ordered within a partition.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"sahaya/internal/audit"
)

// Sink produces audit events to a Kafka topic.
type Sink struct {
	client *kgo.Client
	topic  string
}

// New connects to the given brokers. Returns nil when brokers is empty
// (Kafka not configured; the in-memory sink alone carries the trail).
func New(brokers []string, topic string) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.Lz4Compression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	key := event.SchemeID
	if key == "" {
		key = event.SessionID
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(key),
		Value: payload,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes and releases the client.
func (s *Sink) Close() {
	s.client.Close()
}
