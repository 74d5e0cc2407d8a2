package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-storefront/internal/events"
)

const (
	HeaderEventType    = "x-event-type"
	HeaderEventVersion = "x-event-version"
	HeaderTraceID      = "x-trace-id"
)

// Bus routes envelopes to one Producer per topic.
type Bus struct {
	producers map[string]*Producer
}

func NewBus(brokers []string, topics []string, buf int, log *slog.Logger) *Bus {
	b := &Bus{producers: make(map[string]*Producer, len(topics))}
	for _, t := range topics {
		b.producers[t] = NewProducer(brokers, t, buf, log)
	}
	return b
}

func (b *Bus) Start(ctx context.Context) {
	for _, p := range b.producers {
		p.Start(ctx)
	}
}

func (b *Bus) Publish(_ context.Context, env events.Envelope) error {
	topic := events.TopicFor(env.EventType)
	p, ok := b.producers[topic]
	if !ok {
		return fmt.Errorf("no producer for event %q", env.EventType)
	}
	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	sent := p.Publish(events.PartitionKey(env.CorrelationID), value,
		kafka.Header{Key: HeaderEventType, Value: []byte(env.EventType)},
		kafka.Header{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(env.EventVersion))},
		kafka.Header{Key: HeaderTraceID, Value: []byte(env.TraceID)},
	)
	if !sent {
		return fmt.Errorf("producer for %s is closed", topic)
	}
	return nil
}

// Close flushes every producer and waits for them to finish.
func (b *Bus) Close() {
	for _, p := range b.producers {
		p.Close()
	}
	for _, p := range b.producers {
		p.WaitClosed()
	}
}

// DecodeEnvelope reads the envelope carried in a consumed message. Type and
// trace id fall back to the headers for producers that only set those.
func DecodeEnvelope(m kafka.Message) (events.Envelope, error) {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return env, fmt.Errorf("decode envelope at %s/%d@%d: %w", m.Topic, m.Partition, m.Offset, err)
	}
	if env.EventType == "" {
		env.EventType = headerValue(m, HeaderEventType)
	}
	if env.TraceID == "" {
		env.TraceID = headerValue(m, HeaderTraceID)
	}
	return env, nil
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
