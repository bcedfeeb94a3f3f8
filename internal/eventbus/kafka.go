// Package eventbus publishes stream and entry mutation events to
// Kafka, implementing engine.Notifier. It is never on the write path
// for correctness — the engine calls it only after a record has
// already been persisted — so a slow or unreachable broker degrades
// notifications, not writes.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// Config contains the configurable parameters of the Kafka-backed
// event bus.
type Config struct {
	// Brokers is the list of Kafka broker addresses (host:port).
	Brokers []string

	// Topic is the topic every event is written to.
	Topic string

	// MaxAttempts is how many write attempts are made per event before
	// the failure is logged and the event dropped. Defaults to 3 if <= 0.
	MaxAttempts int

	// WriteTimeout is the per-attempt timeout for Write operations.
	// Defaults to 10s if zero.
	WriteTimeout time.Duration
}

// KafkaBus is a lightweight wrapper over segmentio/kafka-go Writer
// offering simple, testable produce-with-retries behavior for
// stream/entry lifecycle events.
type KafkaBus struct {
	writer      *kafka.Writer
	maxAttempts int
}

// NewKafkaBus constructs a KafkaBus.
func NewKafkaBus(cfg Config) (*KafkaBus, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("eventbus: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("eventbus: topic required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: cfg.WriteTimeout,
		Async:        false,
	})

	return &KafkaBus{writer: w, maxAttempts: cfg.MaxAttempts}, nil
}

type event struct {
	Type      string `json:"type"`
	StreamID  string `json:"streamId"`
	EntryID   string `json:"entryId,omitempty"`
	Index     *int   `json:"index,omitempty"`
	Timestamp string `json:"timestamp"`
}

func (b *KafkaBus) produce(ctx context.Context, key string, v event) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("[eventbus] marshal %s event for stream %s: %v", v.Type, v.StreamID, err)
		return
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		lastErr = b.writer.WriteMessages(attemptCtx, kafka.Message{
			Key:   []byte(key),
			Value: payload,
			Time:  time.Now().UTC(),
		})
		cancel()
		if lastErr == nil {
			return
		}
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	log.Printf("[eventbus] publish %s event for stream %s failed after %d attempts: %v", v.Type, v.StreamID, b.maxAttempts, lastErr)
}

// StreamCreated implements engine.Notifier.
func (b *KafkaBus) StreamCreated(ctx context.Context, streamID string) {
	b.produce(ctx, streamID, event{Type: "stream.created", StreamID: streamID, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
}

// EntryCreated implements engine.Notifier.
func (b *KafkaBus) EntryCreated(ctx context.Context, streamID, entryID string, index int) {
	b.produce(ctx, streamID, event{Type: "entry.created", StreamID: streamID, EntryID: entryID, Index: &index, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
}

// EntryRemoved implements engine.Notifier.
func (b *KafkaBus) EntryRemoved(ctx context.Context, streamID, entryID string, index int) {
	b.produce(ctx, streamID, event{Type: "entry.removed", StreamID: streamID, EntryID: entryID, Index: &index, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)})
}

// Close shuts down the underlying writer.
func (b *KafkaBus) Close() error {
	if b == nil || b.writer == nil {
		return nil
	}
	return b.writer.Close()
}
