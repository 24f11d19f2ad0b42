package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Sink is where drained outbox events go.
type Sink interface {
	Publish(ctx context.Context, event *Event) error
	Close()
}

// kafkaEnvelope is the wire format. Field names are part of the consumer
// contract; change them only with a topic version bump.
type kafkaEnvelope struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	OrderID   string          `json:"orderId"`
	ActorID   string          `json:"actorId,omitempty"`
	ActorType string          `json:"actorType,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
	ClientApp string          `json:"clientApp,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp string          `json:"timestamp"`
}

// KafkaSink publishes events to a single topic, keyed by order ID so all
// events for one order land on the same partition in order.
type KafkaSink struct {
	client *kgo.Client
	topic  string
}

// NewKafkaSink connects to the brokers and ensures the topic exists.
func NewKafkaSink(ctx context.Context, brokers []string, topic string) (*KafkaSink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RecordRetries(5),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 3, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			client.Close()
			return nil, fmt.Errorf("ensure topic %s: %w", topic, r.Err)
		}
	}

	return &KafkaSink{client: client, topic: topic}, nil
}

func (s *KafkaSink) Publish(ctx context.Context, event *Event) error {
	env := kafkaEnvelope{
		ID:        event.ID.String(),
		Action:    string(event.Action),
		OrderID:   event.OrderID.String(),
		ActorType: string(event.ActorType),
		RequestID: event.RequestID,
		ClientApp: event.ClientApp,
		Payload:   event.Payload,
		Timestamp: event.CreatedAt.Format(time.RFC3339Nano),
	}
	if !event.ActorID.IsNil() {
		env.ActorID = event.ActorID.String()
	}

	value, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.OrderID.String()),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce event %s: %w", event.ID, err)
	}
	return nil
}

func (s *KafkaSink) Close() {
	s.client.Close()
}

// LogSink is the fallback when no brokers are configured: events stay in the
// outbox table as an audit trail but are marked published immediately.
type LogSink struct{}

func (LogSink) Publish(context.Context, *Event) error { return nil }
func (LogSink) Close()                                {}

var (
	_ Sink = (*KafkaSink)(nil)
	_ Sink = LogSink{}
)
