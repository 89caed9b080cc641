//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/weather-insights-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

const testAssessmentTopic = "test-assessments"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve broker address")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// publishedRecord holds a deserialized message read back from the topic.
type publishedRecord struct {
	Record  domain.AssessmentRecord
	Key     string
	Headers map[string]string
}

func readPublished(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedRecord {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from assessment topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.AssessmentRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal assessment record")

	return publishedRecord{Record: rec, Key: string(msg.Key), Headers: headers}
}

// TestPublisherRoundTrip verifies that an assessment published through the
// adapter arrives on the topic with the session key, the standard headers, and
// an intact body.
func TestPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAssessmentTopic)

	publisher := kafka.NewPublisher([]string{broker}, testAssessmentTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	generated := time.Date(2026, time.August, 14, 18, 30, 0, 0, time.UTC)
	rec := domain.AssessmentRecord{
		SessionID:  "s-1755196200000-ab12cd34",
		IntentKind: domain.IntentRiskAnalysis,
		EventType:  "hurricane",
		Location:   "Miami, FL",
		PriorityList: domain.PriorityList{
			{Unit: domain.GeoUnit{ID: "12086001100", Name: "Tract 11", Population: 8500, InHazardPath: true}, Score: 7.65, Rank: 1},
			{Unit: domain.GeoUnit{ID: "12086002200", Name: "Tract 22", Population: 6200, InHazardPath: true}, Score: 7.46, Rank: 2},
		},
		ResourcePlan: domain.ResourcePlan{
			MedicalTransportUnits: 112,
			ShelterCount:          30,
			FirstResponderCount:   9,
		},
		GeneratedAt: generated,
	}
	require.NoError(t, publisher.PublishAssessment(ctx, rec))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAssessmentTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	pr := readPublished(ctx, t, consumer)
	assert.Equal(t, rec.SessionID, pr.Key)

	assert.Equal(t, "risk_analysis", pr.Headers["intent_kind"])
	assert.Equal(t, "hurricane", pr.Headers["event_type"])
	parsed, err := time.Parse(time.RFC3339, pr.Headers["generated_at"])
	require.NoError(t, err, "generated_at should be valid RFC3339")
	assert.True(t, parsed.Equal(generated))

	assert.Equal(t, rec.SessionID, pr.Record.SessionID)
	assert.Equal(t, "hurricane", pr.Record.EventType)
	assert.Equal(t, "Miami, FL", pr.Record.Location)
	require.Len(t, pr.Record.PriorityList, 2)
	assert.Equal(t, "12086001100", pr.Record.PriorityList[0].Unit.ID)
	assert.InDelta(t, 7.65, pr.Record.PriorityList[0].Score, 1e-9)
	assert.Equal(t, 112, pr.Record.ResourcePlan.MedicalTransportUnits)
	assert.Equal(t, 30, pr.Record.ResourcePlan.ShelterCount)
	assert.True(t, pr.Record.GeneratedAt.Equal(generated))
}

// TestPublisherSessionKeying verifies that records for different sessions
// carry different keys, so consumers can partition per conversation.
func TestPublisherSessionKeying(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAssessmentTopic)

	publisher := kafka.NewPublisher([]string{broker}, testAssessmentTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	sessions := []string{"s-100-aaaa0000", "s-200-bbbb1111", "s-100-aaaa0000"}
	for i, sid := range sessions {
		rec := domain.AssessmentRecord{
			SessionID:   sid,
			IntentKind:  domain.IntentRiskAnalysis,
			EventType:   "flood",
			Location:    fmt.Sprintf("Location %d", i),
			GeneratedAt: time.Now().UTC(),
		}
		require.NoError(t, publisher.PublishAssessment(ctx, rec))
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAssessmentTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	keys := make(map[string]int)
	for range sessions {
		pr := readPublished(ctx, t, consumer)
		keys[pr.Key]++
	}
	assert.Equal(t, 2, keys["s-100-aaaa0000"])
	assert.Equal(t, 1, keys["s-200-bbbb1111"])
}
