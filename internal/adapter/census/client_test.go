package census

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insights-service/internal/gateway"
)

const demographicsBody = `{
  "units": [
    {"id": "12086001100", "name": "Tract 11, Miami-Dade", "population": 8500, "vulnerablePct": 0.35},
    {"id": "12086001200", "name": "Tract 12, Miami-Dade", "population": 6200, "vulnerablePct": 0.42}
  ]
}`

const historicalBody = `{
  "units": [
    {"id": "12086001100", "historicalSeverity": 0.9, "inHazardPath": true},
    {"id": "12086001200", "historicalSeverity": 0.95, "inHazardPath": true, "partial": true}
  ],
  "partial": true,
  "note": "2 of 3 tracts matched the archive window"
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(srv.URL, 2*time.Second, logger)
}

func TestDemographics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demographics", r.URL.Path)
		assert.Equal(t, "25.7600", r.URL.Query().Get("lat"))
		assert.Equal(t, "-80.1900", r.URL.Query().Get("lng"))
		assert.Equal(t, "10.0", r.URL.Query().Get("radius_km"))
		io.WriteString(w, demographicsBody)
	})

	set, err := c.Demographics(context.Background(), 25.76, -80.19, 10)

	require.NoError(t, err)
	assert.False(t, set.Partial)
	require.Len(t, set.Units, 2)
	assert.Equal(t, "12086001100", set.Units[0].ID)
	assert.Equal(t, 8500, set.Units[0].Population)
	assert.Equal(t, 0.35, set.Units[0].VulnerablePct)
}

func TestHistoricalPartialCoverage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/historical", r.URL.Path)
		assert.Equal(t, "hurricane", r.URL.Query().Get("event_type"))
		assert.Equal(t, "30", r.URL.Query().Get("window_days"))
		io.WriteString(w, historicalBody)
	})

	set, err := c.Historical(context.Background(), 25.76, -80.19, "hurricane", 30)

	require.NoError(t, err)
	assert.True(t, set.Partial)
	assert.Contains(t, set.Note, "archive window")
	require.Len(t, set.Units, 2)
	assert.True(t, set.Units[1].Partial)
	assert.Equal(t, 0.95, set.Units[1].HistoricalSeverity)
}

func TestFetchUpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "dataset offline", http.StatusServiceUnavailable)
	})

	_, err := c.Demographics(context.Background(), 25.76, -80.19, 0)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestProvidersRequireCoordinates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})

	for _, p := range []gateway.Provider{NewDemographicsProvider(c), NewHistoricalProvider(c)} {
		_, err := p.Query(context.Background(), gateway.Query{Area: "Miami, FL"})
		var pe *gateway.ProviderError
		require.ErrorAs(t, err, &pe, p.Name())
		assert.Equal(t, gateway.KindInvalidQuery, pe.Kind)
	}
}

func TestProvidersPropagatePartialFlag(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, historicalBody)
	})
	p := NewHistoricalProvider(c)

	resp, err := p.Query(context.Background(), gateway.Query{Lat: 25.76, Lng: -80.19, HasCoords: true})

	require.NoError(t, err)
	assert.True(t, resp.Partial)
	assert.Len(t, resp.Units, 2)
}
