package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
	"github.com/couchcryptid/weather-insights-service/internal/observability"
)

type stubProvider struct {
	name  string
	calls atomic.Int32
	fn    func(ctx context.Context, q Query) (Response, error)
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Query(ctx context.Context, q Query) (Response, error) {
	p.calls.Add(1)
	if p.fn == nil {
		return Response{}, nil
	}
	return p.fn(ctx, q)
}

func newTestGateway(t *testing.T, timeout time.Duration) *Gateway {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(timeout, logger, observability.NewMetricsForTesting())
}

func TestCallSuccess(t *testing.T) {
	gw := newTestGateway(t, time.Second)
	p := &stubProvider{name: ProviderForecast, fn: func(_ context.Context, q Query) (Response, error) {
		assert.True(t, q.HasCoords)
		return Response{Forecast: &domain.Forecast{Location: "Miami"}}, nil
	}}
	gw.Register(p)

	resp, err := gw.Call(context.Background(), ProviderForecast, Query{Lat: 25.76, Lng: -80.19, HasCoords: true})

	require.NoError(t, err)
	assert.Equal(t, ProviderForecast, resp.Provider)
	require.NotNil(t, resp.Forecast)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCallUnregisteredProvider(t *testing.T) {
	gw := newTestGateway(t, time.Second)

	_, err := gw.Call(context.Background(), ProviderAlerts, Query{})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindUnavailable, pe.Kind)
}

func TestCallRetriesTransientFailureOnce(t *testing.T) {
	gw := newTestGateway(t, time.Second)
	p := &stubProvider{name: ProviderAlerts}
	p.fn = func(context.Context, Query) (Response, error) {
		if p.calls.Load() == 1 {
			return Response{}, errors.New("connection refused")
		}
		return Response{Alerts: []domain.Alert{{Event: "Flood Warning"}}}, nil
	}
	gw.Register(p)

	resp, err := gw.Call(context.Background(), ProviderAlerts, Query{})

	require.NoError(t, err)
	assert.Len(t, resp.Alerts, 1)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestCallDoesNotRetryInvalidQuery(t *testing.T) {
	gw := newTestGateway(t, time.Second)
	p := &stubProvider{name: ProviderHistorical, fn: func(context.Context, Query) (Response, error) {
		return Response{}, InvalidQuery(ProviderHistorical, errors.New("empty area"))
	}}
	gw.Register(p)

	_, err := gw.Call(context.Background(), ProviderHistorical, Query{})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindInvalidQuery, pe.Kind)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestCallEnforcesTimeout(t *testing.T) {
	gw := newTestGateway(t, 20*time.Millisecond)
	p := &stubProvider{name: ProviderForecast, fn: func(ctx context.Context, _ Query) (Response, error) {
		<-ctx.Done()
		return Response{}, ctx.Err()
	}}
	gw.Register(p)

	start := time.Now()
	_, err := gw.Call(context.Background(), ProviderForecast, Query{})

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, KindTimeout, pe.Kind)
	// One retry after the first timeout, both bounded.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(2), p.calls.Load())
}

func TestCallStopsRetryingOnCancelledContext(t *testing.T) {
	gw := newTestGateway(t, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	p := &stubProvider{name: ProviderForecast, fn: func(context.Context, Query) (Response, error) {
		cancel()
		return Response{}, errors.New("broken pipe")
	}}
	gw.Register(p)

	_, err := gw.Call(ctx, ProviderForecast, Query{})

	require.Error(t, err)
	assert.Equal(t, int32(1), p.calls.Load(), "no retry once the caller is gone")
}

func TestCallAllToleratesPartialFailure(t *testing.T) {
	gw := newTestGateway(t, time.Second)
	ok := &stubProvider{name: ProviderHistorical, fn: func(context.Context, Query) (Response, error) {
		return Response{Units: []domain.GeoUnit{{ID: "A"}}}, nil
	}}
	bad := &stubProvider{name: ProviderDemographics, fn: func(context.Context, Query) (Response, error) {
		return Response{}, errors.New("upstream 500")
	}}
	gw.Register(ok)
	gw.Register(bad)

	results := gw.CallAll(context.Background(), []string{ProviderHistorical, ProviderDemographics}, Query{})

	require.Len(t, results, 2)
	assert.NoError(t, results[ProviderHistorical].Err)
	assert.Len(t, results[ProviderHistorical].Response.Units, 1)
	assert.Error(t, results[ProviderDemographics].Err)
}

func TestCallAllRunsConcurrently(t *testing.T) {
	gw := newTestGateway(t, time.Second)
	release := make(chan struct{})
	slow := func(context.Context, Query) (Response, error) {
		<-release
		return Response{}, nil
	}
	gw.Register(&stubProvider{name: ProviderHistorical, fn: slow})
	gw.Register(&stubProvider{name: ProviderDemographics, fn: slow})

	done := make(chan map[string]Result, 1)
	go func() {
		done <- gw.CallAll(context.Background(), []string{ProviderHistorical, ProviderDemographics}, Query{})
	}()

	// Releasing once unblocks both in-flight calls only if they started
	// concurrently.
	close(release)
	select {
	case results := <-done:
		assert.Len(t, results, 2)
	case <-time.After(time.Second):
		t.Fatal("fan-out did not complete; calls were serialized or stuck")
	}
}

func TestCheckReadiness(t *testing.T) {
	gw := newTestGateway(t, time.Second)
	for _, name := range []string{ProviderLocation, ProviderForecast, ProviderAlerts, ProviderHistorical} {
		gw.Register(&stubProvider{name: name})
	}
	assert.Error(t, gw.CheckReadiness(context.Background()), "demographics missing")

	gw.Register(&stubProvider{name: ProviderDemographics})
	assert.NoError(t, gw.CheckReadiness(context.Background()))
}

func TestPartialResponsePassesThrough(t *testing.T) {
	gw := newTestGateway(t, time.Second)
	gw.Register(&stubProvider{name: ProviderDemographics, fn: func(context.Context, Query) (Response, error) {
		return Response{Partial: true, Note: "one tract missing", Units: []domain.GeoUnit{{ID: "A"}}}, nil
	}})

	resp, err := gw.Call(context.Background(), ProviderDemographics, Query{})

	require.NoError(t, err)
	assert.True(t, resp.Partial)
	assert.Equal(t, "one tract missing", resp.Note)
}
