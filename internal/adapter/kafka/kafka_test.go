package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 8, 28, 15, 10, 0, 0, time.UTC)
	rec := domain.AssessmentRecord{
		SessionID:  "s-1756393800000-abcd1234",
		IntentKind: domain.IntentRiskAnalysis,
		EventType:  "hurricane",
		Location:   "Miami-Dade County",
		PriorityList: domain.PriorityList{
			{Unit: domain.GeoUnit{ID: "12086001100", Population: 8500}, Score: 7.65, Rank: 1},
		},
		GeneratedAt: now,
	}

	msg, err := serializeToMessage(rec)
	require.NoError(t, err)

	assert.Equal(t, []byte(rec.SessionID), msg.Key)
	assert.Contains(t, string(msg.Value), `"event_type":"hurricane"`)
	assert.Contains(t, string(msg.Value), `"12086001100"`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "intent_kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("risk_analysis"), msg.Headers[0].Value)
	assert.Equal(t, "event_type", msg.Headers[1].Key)
	assert.Equal(t, []byte("hurricane"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[2].Value)
}
