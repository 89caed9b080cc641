package domain

import (
	"time"
)

// IntentKind identifies what a classified request is asking for.
type IntentKind string

const (
	IntentForecast        IntentKind = "forecast"
	IntentAlerts          IntentKind = "alerts"
	IntentShelterSearch   IntentKind = "shelter_search"
	IntentHospitalSearch  IntentKind = "hospital_search"
	IntentEvacuationRoute IntentKind = "evacuation_route"
	IntentRiskAnalysis    IntentKind = "risk_analysis"
	IntentHistoricalQuery IntentKind = "historical_query"
)

// LocationRef is a location as the user named it, plus coordinates once a
// resolver has filled them in. Nil coordinates mean "not resolved yet";
// operations that need coordinates must check, never assume.
type LocationRef struct {
	Raw string   `json:"raw"`
	Lat *float64 `json:"lat,omitempty"`
	Lng *float64 `json:"lng,omitempty"`
}

// Resolved reports whether coordinates have been filled in.
func (l LocationRef) Resolved() bool {
	return l.Lat != nil && l.Lng != nil
}

// Coordinates returns the resolved pair or ErrLocationUnresolved. There is
// deliberately no fallback coordinate.
func (l LocationRef) Coordinates() (lat, lng float64, err error) {
	if !l.Resolved() {
		return 0, 0, ErrLocationUnresolved
	}
	return *l.Lat, *l.Lng, nil
}

// Intent is the structured form of a user request. Produced once by the
// classifier and consumed once by the orchestrator.
type Intent struct {
	Kind           IntentKind  `json:"kind"`
	Location       LocationRef `json:"location"`
	EventType      string      `json:"eventType,omitempty"`
	Destination    string      `json:"destination,omitempty"` // evacuation routes only
	RadiusKm       float64     `json:"radiusKm,omitempty"`
	TimeWindowDays int         `json:"timeWindowDays,omitempty"`
	Hourly         bool        `json:"hourly,omitempty"` // hour-by-hour rather than period forecast
}

// GeoUnit is the unit of risk ranking — a census tract or named area with the
// attributes the scoring formula consumes. Sourced from providers per request
// and never persisted past it.
type GeoUnit struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name,omitempty"`
	Population         int            `json:"population"`
	VulnerablePct      float64        `json:"vulnerablePct"` // fraction in [0,1]
	HistoricalSeverity float64        `json:"historicalSeverity"`
	InHazardPath       bool           `json:"inHazardPath"`
	Partial            bool           `json:"partial,omitempty"` // provider data incomplete for this unit
	Details            map[string]any `json:"details,omitempty"`
}

// RiskScore attaches a computed score and rank to a unit for one request.
// Scores are comparable only within the request that produced them.
type RiskScore struct {
	Unit  GeoUnit `json:"unit"`
	Score float64 `json:"score"`
	Rank  int     `json:"rank"`
}

// PriorityList is a deterministic ranking: strictly descending score, ties
// broken by population descending then unit id ascending.
type PriorityList []RiskScore

// UnitIDs returns the ranked unit ids in order.
func (p PriorityList) UnitIDs() []string {
	ids := make([]string, len(p))
	for i, rs := range p {
		ids[i] = rs.Unit.ID
	}
	return ids
}

// TimelineWindow assigns a ranked slice of units to an action window.
type TimelineWindow struct {
	Start   time.Time `json:"windowStart"`
	End     time.Time `json:"windowEnd"`
	UnitIDs []string  `json:"unitsToActOn"`
}

// ResourcePlan is derived purely from a PriorityList and recomputed every
// request.
type ResourcePlan struct {
	MedicalTransportUnits int              `json:"medicalTransportUnits"`
	ShelterCount          int              `json:"shelterCount"`
	FirstResponderCount   int              `json:"firstResponderCount"`
	Timeline              []TimelineWindow `json:"timeline"`
}

// MapMarker is a point the presentation layer can draw.
type MapMarker struct {
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Label string  `json:"label"`
}

// AssembledResponse is the outward response contract. Failures are shaped
// the same way with Error set, so the caller always has something to render.
type AssembledResponse struct {
	Narrative    string        `json:"narrative"`
	PriorityList PriorityList  `json:"priorityList,omitempty"`
	ResourcePlan *ResourcePlan `json:"resourcePlan,omitempty"`
	MapMarkers   []MapMarker   `json:"mapMarkers,omitempty"`
	SessionID    string        `json:"sessionId"`
	Error        string        `json:"error,omitempty"` // taxonomy kind, empty on success
}

// Forecast is a typed NWS forecast.
type Forecast struct {
	Location string           `json:"location"`
	Periods  []ForecastPeriod `json:"periods"`
	Updated  time.Time        `json:"updated"`
}

// ForecastPeriod is one named forecast window (e.g. "Tonight").
type ForecastPeriod struct {
	Name              string `json:"name"`
	Temperature       int    `json:"temperature"`
	TemperatureUnit   string `json:"temperatureUnit"`
	WindSpeed         string `json:"windSpeed"`
	WindDirection     string `json:"windDirection"`
	ShortForecast     string `json:"shortForecast"`
	DetailedForecast  string `json:"detailedForecast,omitempty"`
	PrecipProbability int    `json:"precipProbability,omitempty"`
}

// Alert is an active hazard warning, watch, or statement.
type Alert struct {
	Event       string    `json:"event"`
	Severity    string    `json:"severity"` // NWS scale: Minor, Moderate, Severe, Extreme
	Urgency     string    `json:"urgency,omitempty"`
	Certainty   string    `json:"certainty,omitempty"`
	Headline    string    `json:"headline"`
	Description string    `json:"description,omitempty"`
	Instruction string    `json:"instruction,omitempty"`
	Onset       time.Time `json:"onset,omitempty"`
	Expires     time.Time `json:"expires,omitempty"`
	SenderName  string    `json:"senderName,omitempty"`
}

// HurricaneTrack summarizes issued tropical-cyclone advisories. The public
// forecast API only exposes advisory products; the full projected track
// lives in National Hurricane Center data, so consumers must treat this as
// partial.
type HurricaneTrack struct {
	Advisories []string `json:"advisories"`
	Note       string   `json:"note"`
}

// HighestSeverity returns the most severe level among alerts, or "" when
// there are none.
func HighestSeverity(alerts []Alert) string {
	best := ""
	for _, a := range alerts {
		if severityOrdinal(a.Severity) > severityOrdinal(best) {
			best = a.Severity
		}
	}
	return best
}

func severityOrdinal(s string) int {
	switch s {
	case "Minor":
		return 1
	case "Moderate":
		return 2
	case "Severe":
		return 3
	case "Extreme":
		return 4
	default:
		return 0
	}
}

// ResolvedLocation is a geocoding result for a raw location string.
type ResolvedLocation struct {
	Name       string  `json:"name"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	Confidence float64 `json:"confidence"` // 0.0–1.0 provider confidence
}

// Place is an emergency resource near a point (shelter, hospital, ...).
type Place struct {
	Name       string  `json:"name"`
	Address    string  `json:"address,omitempty"`
	Lat        float64 `json:"lat"`
	Lng        float64 `json:"lng"`
	DistanceKm float64 `json:"distanceKm,omitempty"`
}

// Route is a driving route between two points.
type Route struct {
	Summary    string        `json:"summary"`
	DistanceKm float64       `json:"distanceKm"`
	Duration   time.Duration `json:"duration"`
	Steps      []string      `json:"steps,omitempty"`
}

// AssessmentRecord is the serialized form of a completed data-driven risk
// assessment, published for downstream consumers (dashboards, archives).
type AssessmentRecord struct {
	SessionID    string       `json:"session_id"`
	IntentKind   IntentKind   `json:"intent_kind"`
	EventType    string       `json:"event_type"`
	Location     string       `json:"location"`
	Partial      bool         `json:"partial"`
	PriorityList PriorityList `json:"priority_list"`
	ResourcePlan ResourcePlan `json:"resource_plan"`
	GeneratedAt  time.Time    `json:"generated_at"`
}
