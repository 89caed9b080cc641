// Package gateway is the uniform front to the specialist data providers:
// forecast, alerts, historical records, demographics, and location/resource
// services. Every call carries a bounded timeout; independent providers can
// be fanned out concurrently without one failure aborting the others.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
	"github.com/couchcryptid/weather-insights-service/internal/observability"
)

// Well-known provider names the orchestrator routes to.
const (
	ProviderLocation     = "location"
	ProviderForecast     = "forecast"
	ProviderAlerts       = "alerts"
	ProviderHistorical   = "historical"
	ProviderDemographics = "demographics"
	ProviderResources    = "resources"
	ProviderDirections   = "directions"
	ProviderTrack        = "track"
)

// DefaultCallTimeout bounds a single provider call.
const DefaultCallTimeout = 60 * time.Second

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindTimeout      ErrorKind = "timeout"
	KindUnavailable  ErrorKind = "unavailable"
	KindInvalidQuery ErrorKind = "invalid_query"
)

// ProviderError is a provider call failure with its classification.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Query is the structured parameter set a provider receives. Providers read
// the fields relevant to them and ignore the rest.
type Query struct {
	Raw            string  // unresolved location or free text
	Lat            float64
	Lng            float64
	HasCoords      bool
	Area           string // state or county scope
	EventType      string
	Category       string // resource search category: shelter, hospital
	Destination    string
	RadiusKm       float64
	TimeWindowDays int
	Hourly         bool
}

// Response is the typed result envelope. Exactly the fields a provider
// produces are set; Partial marks a success with incomplete data, which
// downstream consumers must reflect as reduced confidence rather than
// treating silently as complete.
type Response struct {
	Provider string
	Partial  bool
	Note     string // why the data is partial, for the narrative

	Location *domain.ResolvedLocation
	Forecast *domain.Forecast
	Alerts   []domain.Alert
	Units    []domain.GeoUnit
	Places   []domain.Place
	Route    *domain.Route
	Track    *domain.HurricaneTrack
}

// Provider is one independently-addressable specialist service.
type Provider interface {
	Name() string
	Query(ctx context.Context, q Query) (Response, error)
}

// Result pairs a provider response with its error for fan-out collection.
type Result struct {
	Response Response
	Err      error
}

// Gateway dispatches calls to registered providers with timeout enforcement
// and a retry-once policy for transient failures. Providers share no mutable
// state, so concurrent calls need no coordination here.
type Gateway struct {
	mu        sync.RWMutex
	providers map[string]Provider
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a gateway. A non-positive timeout means DefaultCallTimeout.
func New(timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Gateway {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Gateway{
		providers: make(map[string]Provider),
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Register adds a provider under its name, replacing any previous one.
func (g *Gateway) Register(p Provider) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.providers[p.Name()] = p
}

// CheckReadiness reports whether every named provider is registered.
func (g *Gateway) CheckReadiness(_ context.Context) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	required := []string{ProviderLocation, ProviderForecast, ProviderAlerts, ProviderHistorical, ProviderDemographics}
	for _, name := range required {
		if _, ok := g.providers[name]; !ok {
			return fmt.Errorf("provider %s not registered", name)
		}
	}
	return nil
}

// Call invokes one provider with the bounded timeout, retrying once on
// timeout or unavailability. The caller's context cancels in-flight calls
// promptly.
func (g *Gateway) Call(ctx context.Context, name string, q Query) (Response, error) {
	g.mu.RLock()
	p, ok := g.providers[name]
	g.mu.RUnlock()
	if !ok {
		return Response{}, &ProviderError{Provider: name, Kind: KindUnavailable, Err: errors.New("not registered")}
	}

	start := time.Now()
	resp, err := g.callOnce(ctx, p, q)
	if err != nil && retryable(err) && ctx.Err() == nil {
		if g.metrics != nil {
			g.metrics.ProviderRetries.Inc()
		}
		g.logger.Warn("provider call failed, retrying once", "provider", name, "error", err)
		resp, err = g.callOnce(ctx, p, q)
	}
	if g.metrics != nil {
		g.metrics.ProviderCallDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		g.metrics.ProviderCalls.WithLabelValues(name, outcomeLabel(resp, err)).Inc()
	}
	if err != nil {
		return Response{}, err
	}
	resp.Provider = name
	return resp, nil
}

// CallAll fans out one query to several providers concurrently and joins on
// all results, keyed by provider name. One provider's failure never aborts
// its siblings; the caller inspects each Result.
func (g *Gateway) CallAll(ctx context.Context, names []string, q Query) map[string]Result {
	results := make(map[string]Result, len(names))
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			resp, err := g.Call(ctx, name, q)
			mu.Lock()
			results[name] = Result{Response: resp, Err: err}
			mu.Unlock()
		}(name)
	}
	wg.Wait()
	return results
}

func (g *Gateway) callOnce(ctx context.Context, p Provider, q Query) (Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := p.Query(callCtx, q)
	if err == nil {
		return resp, nil
	}
	return Response{}, classify(p.Name(), callCtx, err)
}

// classify translates a raw provider error into the gateway taxonomy. The
// deadline check distinguishes our enforced timeout from other failures.
func classify(name string, ctx context.Context, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return err
	}
	kind := KindUnavailable
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &ProviderError{Provider: name, Kind: kind, Err: err}
}

func retryable(err error) bool {
	var pe *ProviderError
	if !errors.As(err, &pe) {
		return false
	}
	return pe.Kind == KindTimeout || pe.Kind == KindUnavailable
}

func outcomeLabel(resp Response, err error) string {
	if err == nil {
		if resp.Partial {
			return "partial"
		}
		return "success"
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return string(pe.Kind)
	}
	return string(KindUnavailable)
}

// InvalidQuery builds the error a provider returns for a malformed query.
// These are never retried.
func InvalidQuery(provider string, err error) error {
	return &ProviderError{Provider: provider, Kind: KindInvalidQuery, Err: err}
}
