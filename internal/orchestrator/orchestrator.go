// Package orchestrator routes classified requests across the specialist
// providers and into one of two analysis paths: a cheap qualitative
// assessment for minor hazard events, or the full data-driven risk
// correlation for major ones. Routing is deterministic: the tier comes from
// a fixed event-class table, never inferred per request.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
	"github.com/couchcryptid/weather-insights-service/internal/gateway"
	"github.com/couchcryptid/weather-insights-service/internal/observability"
	"github.com/couchcryptid/weather-insights-service/internal/session"
)

// Classifier turns raw request text into a structured intent.
type Classifier interface {
	Classify(rawText string, sessionState map[string]any) (domain.Intent, error)
}

// Publisher receives completed data-driven assessments, best-effort.
type Publisher interface {
	PublishAssessment(ctx context.Context, rec domain.AssessmentRecord) error
}

// Orchestrator is the core entry point behind handle()/resetSession().
type Orchestrator struct {
	sessions   *session.Store
	gateway    *gateway.Gateway
	classifier Classifier
	engine     *domain.Engine
	classes    *domain.EventClassTable
	assembler  *domain.Assembler
	publisher  Publisher // nil when publishing is disabled
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// New wires the orchestrator. publisher may be nil.
func New(
	sessions *session.Store,
	gw *gateway.Gateway,
	classifier Classifier,
	engine *domain.Engine,
	classes *domain.EventClassTable,
	publisher Publisher,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		sessions:   sessions,
		gateway:    gw,
		classifier: classifier,
		engine:     engine,
		classes:    classes,
		assembler:  domain.NewAssembler(),
		publisher:  publisher,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness delegates to the gateway's provider registry.
func (o *Orchestrator) CheckReadiness(ctx context.Context) error {
	return o.gateway.CheckReadiness(ctx)
}

// ResetSession is the user-initiated session reset for a caller.
func (o *Orchestrator) ResetSession(callerRef string) {
	o.sessions.ResetCaller(callerRef)
}

// Handle is the single entry point: validates/creates the session,
// classifies the text, routes to providers, and assembles a response.
// Failures come back as structured responses, never as raw errors.
func (o *Orchestrator) Handle(ctx context.Context, callerRef, rawText string) domain.AssembledResponse {
	start := time.Now()
	sess := o.sessions.GetOrCreate(callerRef)

	it, err := o.classifier.Classify(rawText, sess.State)
	if err != nil {
		if o.metrics != nil {
			o.metrics.ClassificationFailures.Inc()
			o.metrics.RequestsTotal.WithLabelValues("unknown", "error").Inc()
		}
		o.logger.Info("classification failed", "session_id", sess.ID, "error", err)
		return o.assembler.FailureResponse(sess.ID, domain.ErrClassification)
	}

	resp, err := o.route(ctx, sess.ID, it)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		resp = o.assembler.FailureResponse(sess.ID, err)
		o.logger.Warn("request failed", "session_id", sess.ID, "intent", it.Kind, "error", err)
	} else {
		// Activity refresh and display continuity happen only for
		// requests that produced a usable result.
		o.sessions.Touch(sess.ID)
		o.sessions.MergeState(sess.ID, "last_response", resp.Narrative)
		if it.Location.Raw != "" {
			o.sessions.MergeState(sess.ID, "location", it.Location.Raw)
		}
	}
	if o.metrics != nil {
		o.metrics.RequestsTotal.WithLabelValues(string(it.Kind), outcome).Inc()
		o.metrics.RequestDuration.Observe(time.Since(start).Seconds())
	}
	return resp
}

// route dispatches by intent kind. Every branch that needs coordinates
// resolves the location first and fails distinctly if resolution produced
// nothing.
func (o *Orchestrator) route(ctx context.Context, sessionID string, it domain.Intent) (domain.AssembledResponse, error) {
	rc := newRequestContext()

	switch it.Kind {
	case domain.IntentForecast:
		return o.handleForecast(ctx, rc, sessionID, it)
	case domain.IntentAlerts:
		return o.handleAlerts(ctx, rc, sessionID, it)
	case domain.IntentShelterSearch:
		return o.handlePlaces(ctx, rc, sessionID, it, "shelter", "shelters")
	case domain.IntentHospitalSearch:
		return o.handlePlaces(ctx, rc, sessionID, it, "hospital", "hospitals")
	case domain.IntentEvacuationRoute:
		return o.handleRoute(ctx, rc, sessionID, it)
	case domain.IntentHistoricalQuery:
		return o.handleHistorical(ctx, rc, sessionID, it)
	case domain.IntentRiskAnalysis:
		return o.handleRiskAnalysis(ctx, rc, sessionID, it)
	default:
		return domain.AssembledResponse{}, fmt.Errorf("%w: unhandled intent kind %q", domain.ErrInternalInconsistency, it.Kind)
	}
}

// resolveLocation fills the intent's coordinates via the location provider
// and records them in the request context for later steps.
func (o *Orchestrator) resolveLocation(ctx context.Context, rc *RequestContext, it *domain.Intent) error {
	if it.Location.Resolved() {
		return nil
	}
	if it.Location.Raw == "" {
		return domain.ErrLocationUnresolved
	}
	resp, err := o.gateway.Call(ctx, gateway.ProviderLocation, gateway.Query{Raw: it.Location.Raw})
	if err != nil {
		return o.requiredProviderError(gateway.ProviderLocation, err)
	}
	if resp.Location == nil {
		return domain.ErrLocationUnresolved
	}
	it.Location.Lat = &resp.Location.Lat
	it.Location.Lng = &resp.Location.Lng
	rc.Put("location.resolved", *resp.Location)
	return nil
}

func (o *Orchestrator) handleForecast(ctx context.Context, rc *RequestContext, sessionID string, it domain.Intent) (domain.AssembledResponse, error) {
	if err := o.resolveLocation(ctx, rc, &it); err != nil {
		return domain.AssembledResponse{}, err
	}
	lat, lng, err := it.Location.Coordinates()
	if err != nil {
		return domain.AssembledResponse{}, err
	}
	resp, err := o.gateway.Call(ctx, gateway.ProviderForecast, gateway.Query{
		Lat: lat, Lng: lng, HasCoords: true, Hourly: it.Hourly,
	})
	if err != nil {
		return domain.AssembledResponse{}, o.requiredProviderError(gateway.ProviderForecast, err)
	}
	if resp.Forecast == nil {
		return domain.AssembledResponse{}, fmt.Errorf("%w: forecast provider returned no forecast", domain.ErrInternalInconsistency)
	}
	rc.Put("forecast.data", *resp.Forecast)
	return o.assembler.ForecastResponse(sessionID, it.Location, *resp.Forecast), nil
}

func (o *Orchestrator) handleAlerts(ctx context.Context, rc *RequestContext, sessionID string, it domain.Intent) (domain.AssembledResponse, error) {
	q := gateway.Query{Area: it.Location.Raw, EventType: it.EventType}
	// Point-based alerts are more precise when the location resolves;
	// area-based lookup is the fallback for state-level questions.
	if err := o.resolveLocation(ctx, rc, &it); err == nil {
		q.Lat, q.Lng, _ = it.Location.Coordinates()
		q.HasCoords = true
	} else if !errors.Is(err, domain.ErrLocationUnresolved) {
		return domain.AssembledResponse{}, err
	}
	resp, err := o.gateway.Call(ctx, gateway.ProviderAlerts, q)
	if err != nil {
		return domain.AssembledResponse{}, o.requiredProviderError(gateway.ProviderAlerts, err)
	}
	rc.Put("alerts.active", resp.Alerts)
	return o.assembler.AlertsResponse(sessionID, it.Location, resp.Alerts), nil
}

func (o *Orchestrator) handlePlaces(ctx context.Context, rc *RequestContext, sessionID string, it domain.Intent, category, label string) (domain.AssembledResponse, error) {
	if err := o.resolveLocation(ctx, rc, &it); err != nil {
		return domain.AssembledResponse{}, err
	}
	lat, lng, err := it.Location.Coordinates()
	if err != nil {
		return domain.AssembledResponse{}, err
	}
	resp, err := o.gateway.Call(ctx, gateway.ProviderResources, gateway.Query{
		Lat: lat, Lng: lng, HasCoords: true,
		Category: category,
		RadiusKm: it.RadiusKm,
	})
	if err != nil {
		return domain.AssembledResponse{}, o.requiredProviderError(gateway.ProviderResources, err)
	}
	rc.Put("resources."+category, resp.Places)
	return o.assembler.PlacesResponse(sessionID, label, it.Location, resp.Places), nil
}

func (o *Orchestrator) handleRoute(ctx context.Context, rc *RequestContext, sessionID string, it domain.Intent) (domain.AssembledResponse, error) {
	if it.Destination == "" {
		return domain.AssembledResponse{}, fmt.Errorf("%w: no destination", domain.ErrLocationUnresolved)
	}
	if err := o.resolveLocation(ctx, rc, &it); err != nil {
		return domain.AssembledResponse{}, err
	}
	lat, lng, err := it.Location.Coordinates()
	if err != nil {
		return domain.AssembledResponse{}, err
	}
	resp, err := o.gateway.Call(ctx, gateway.ProviderDirections, gateway.Query{
		Lat: lat, Lng: lng, HasCoords: true,
		Destination: it.Destination,
	})
	if err != nil {
		return domain.AssembledResponse{}, o.requiredProviderError(gateway.ProviderDirections, err)
	}
	if resp.Route == nil {
		return domain.AssembledResponse{}, fmt.Errorf("%w: directions provider returned no route", domain.ErrInternalInconsistency)
	}
	rc.Put("route.selected", *resp.Route)
	return o.assembler.RouteResponse(sessionID, it.Location, it.Destination, *resp.Route), nil
}

func (o *Orchestrator) handleHistorical(ctx context.Context, rc *RequestContext, sessionID string, it domain.Intent) (domain.AssembledResponse, error) {
	if err := o.resolveLocation(ctx, rc, &it); err != nil {
		return domain.AssembledResponse{}, err
	}
	lat, lng, _ := it.Location.Coordinates()
	resp, err := o.gateway.Call(ctx, gateway.ProviderHistorical, gateway.Query{
		Lat: lat, Lng: lng, HasCoords: true,
		Area:           it.Location.Raw,
		EventType:      it.EventType,
		TimeWindowDays: it.TimeWindowDays,
	})
	if err != nil {
		return domain.AssembledResponse{}, o.requiredProviderError(gateway.ProviderHistorical, err)
	}
	rc.Put("historical.units", resp.Units)
	return o.assembler.HistoricalResponse(sessionID, it.Location, it.EventType, resp.Units), nil
}

// handleRiskAnalysis applies the two-tier policy: minor events take the
// simple assessment (no historical or demographic calls, by contract), major
// events take the full correlation path. A failure of the chosen path never
// silently degrades to the other.
func (o *Orchestrator) handleRiskAnalysis(ctx context.Context, rc *RequestContext, sessionID string, it domain.Intent) (domain.AssembledResponse, error) {
	if o.classes.Classify(it.EventType) == domain.EventMinor {
		return o.handleSimpleAssessment(ctx, rc, sessionID, it)
	}
	return o.handleCorrelation(ctx, rc, sessionID, it)
}

// handleSimpleAssessment answers a minor event qualitatively from live
// severity plus the static tables. It must complete without touching the
// historical or demographic providers; that cost contract is the reason the
// tiers exist.
func (o *Orchestrator) handleSimpleAssessment(ctx context.Context, rc *RequestContext, sessionID string, it domain.Intent) (domain.AssembledResponse, error) {
	q := gateway.Query{Area: it.Location.Raw, EventType: it.EventType}
	if err := o.resolveLocation(ctx, rc, &it); err == nil {
		q.Lat, q.Lng, _ = it.Location.Coordinates()
		q.HasCoords = true
	} else if !errors.Is(err, domain.ErrLocationUnresolved) {
		return domain.AssembledResponse{}, err
	}
	resp, err := o.gateway.Call(ctx, gateway.ProviderAlerts, q)
	if err != nil {
		return domain.AssembledResponse{}, o.requiredProviderError(gateway.ProviderAlerts, err)
	}
	rc.Put("alerts.active", resp.Alerts)
	assessment := domain.SimpleAssessment(it.EventType, domain.HighestSeverity(resp.Alerts))
	return o.assembler.AssessmentResponse(sessionID, assessment), nil
}

// handleCorrelation is the data-driven path: alerts are required; historical
// and demographics are fetched concurrently once the location is resolved
// and both tolerate partial data: affected units are flagged, never
// silently dropped.
func (o *Orchestrator) handleCorrelation(ctx context.Context, rc *RequestContext, sessionID string, it domain.Intent) (domain.AssembledResponse, error) {
	if err := o.resolveLocation(ctx, rc, &it); err != nil {
		return domain.AssembledResponse{}, err
	}
	lat, lng, err := it.Location.Coordinates()
	if err != nil {
		return domain.AssembledResponse{}, err
	}

	alertResp, err := o.gateway.Call(ctx, gateway.ProviderAlerts, gateway.Query{
		Lat: lat, Lng: lng, HasCoords: true, EventType: it.EventType,
	})
	if err != nil {
		return domain.AssembledResponse{}, o.requiredProviderError(gateway.ProviderAlerts, err)
	}
	rc.Put("alerts.active", alertResp.Alerts)

	// Historical and demographics have no dependency on each other: fan
	// out concurrently, join on both.
	q := gateway.Query{
		Lat: lat, Lng: lng, HasCoords: true,
		Area:           it.Location.Raw,
		EventType:      it.EventType,
		TimeWindowDays: it.TimeWindowDays,
	}
	results := o.gateway.CallAll(ctx, []string{gateway.ProviderHistorical, gateway.ProviderDemographics}, q)

	hist := results[gateway.ProviderHistorical]
	demo := results[gateway.ProviderDemographics]
	if hist.Err != nil && demo.Err != nil {
		return domain.AssembledResponse{}, o.requiredProviderError(gateway.ProviderDemographics, demo.Err)
	}
	// Either provider may fail alone: the survivor's units are kept and the
	// one-sided join below flags every merged unit partial.
	if hist.Err != nil {
		o.logger.Warn("historical provider failed, continuing with demographics only",
			"session_id", sessionID, "error", hist.Err)
		hist.Response = gateway.Response{Provider: gateway.ProviderHistorical}
	}
	if demo.Err != nil {
		o.logger.Warn("demographics provider failed, continuing with historical only",
			"session_id", sessionID, "error", demo.Err)
		demo.Response = gateway.Response{Provider: gateway.ProviderDemographics}
	}
	rc.Put("historical.units", hist.Response.Units)
	rc.Put("demographics.units", demo.Response.Units)

	units, err := mergeUnits(demo.Response, hist.Response)
	if err != nil {
		return domain.AssembledResponse{}, err
	}

	list := o.engine.Prioritize(units)
	plan := o.engine.DeriveResourcePlan(list)

	// Tropical events get advisory context. Best effort: the track summary
	// enriches the narrative but never blocks the assessment.
	var track *domain.HurricaneTrack
	if isTropical(it.EventType) {
		tr, err := o.gateway.Call(ctx, gateway.ProviderTrack, gateway.Query{EventType: it.EventType})
		switch {
		case err != nil:
			o.logger.Warn("hurricane track unavailable", "session_id", sessionID, "error", err)
		case tr.Track != nil:
			track = tr.Track
			rc.Put("hurricane.track", *tr.Track)
		}
	}

	if o.publisher != nil {
		rec := domain.AssessmentRecord{
			SessionID:    sessionID,
			IntentKind:   it.Kind,
			EventType:    it.EventType,
			Location:     it.Location.Raw,
			Partial:      domain.HasPartialUnits(list),
			PriorityList: list,
			ResourcePlan: plan,
			GeneratedAt:  time.Now().UTC(),
		}
		if err := o.publisher.PublishAssessment(ctx, rec); err != nil {
			o.logger.Warn("assessment publish failed", "session_id", sessionID, "error", err)
		} else if o.metrics != nil {
			o.metrics.AssessmentsPublished.Inc()
		}
	}

	return o.assembler.RiskResponse(sessionID, it.EventType, it.Location, list, plan, track), nil
}

// isTropical reports whether an event type warrants a hurricane track
// lookup.
func isTropical(eventType string) bool {
	lower := strings.ToLower(eventType)
	return strings.Contains(lower, "hurricane") || strings.Contains(lower, "tropical")
}

// mergeUnits joins the demographic and historical unit sets by id. A unit
// present in only one set, or flagged partial by its provider, keeps its
// known attributes and is marked partial so scoring reflects reduced
// confidence instead of omitting it. A unit with no id at all is an internal
// inconsistency.
func mergeUnits(demo, hist gateway.Response) ([]domain.GeoUnit, error) {
	byID := make(map[string]domain.GeoUnit)
	order := make([]string, 0, len(demo.Units)+len(hist.Units))

	for _, u := range demo.Units {
		if u.ID == "" {
			return nil, fmt.Errorf("%w: demographic unit without id", domain.ErrInternalInconsistency)
		}
		u.Partial = u.Partial || demo.Partial
		byID[u.ID] = u
		order = append(order, u.ID)
	}
	for _, h := range hist.Units {
		if h.ID == "" {
			return nil, fmt.Errorf("%w: historical unit without id", domain.ErrInternalInconsistency)
		}
		if u, ok := byID[h.ID]; ok {
			u.HistoricalSeverity = h.HistoricalSeverity
			u.InHazardPath = h.InHazardPath
			u.Partial = u.Partial || h.Partial || hist.Partial
			byID[h.ID] = u
			continue
		}
		// Historical-only unit: no demographics arrived for it.
		h.Partial = true
		byID[h.ID] = h
		order = append(order, h.ID)
	}
	// Demographic-only units never saw a historical record.
	histIDs := make(map[string]bool, len(hist.Units))
	for _, h := range hist.Units {
		histIDs[h.ID] = true
	}
	for id, u := range byID {
		if !histIDs[id] {
			u.Partial = true
			byID[id] = u
		}
	}

	units := make([]domain.GeoUnit, 0, len(byID))
	for _, id := range order {
		units = append(units, byID[id])
	}
	if err := domain.ValidateUnits(units); err != nil {
		return nil, err
	}
	return units, nil
}

// requiredProviderError translates gateway failures for a required provider
// into the core taxonomy.
func (o *Orchestrator) requiredProviderError(name string, err error) error {
	var pe *gateway.ProviderError
	if errors.As(err, &pe) {
		return &domain.ProviderUnavailableError{Provider: name, Err: err}
	}
	return err
}
