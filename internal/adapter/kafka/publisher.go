// Package kafka publishes completed risk assessments for downstream
// consumers (dashboards, archives). Publishing is best-effort from the
// request path: a broker outage degrades to a logged warning, never a failed
// response.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

// Publisher produces assessment records to a Kafka topic.
// It implements orchestrator.Publisher.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the assessment topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishAssessment serializes and publishes one assessment record, keyed by
// session so a consumer can partition per conversation.
func (p *Publisher) PublishAssessment(ctx context.Context, rec domain.AssessmentRecord) error {
	msg, err := serializeToMessage(rec)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals an AssessmentRecord into a Kafka message.
func serializeToMessage(rec domain.AssessmentRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize assessment: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.SessionID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "intent_kind", Value: []byte(rec.IntentKind)},
			{Key: "event_type", Value: []byte(rec.EventType)},
			{Key: "generated_at", Value: []byte(rec.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
