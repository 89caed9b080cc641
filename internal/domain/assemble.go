package domain

import (
	"fmt"
	"strings"
)

// Assembler formats orchestration results into the outward response
// contract. Every outcome, including failures, becomes an AssembledResponse
// so the presentation layer always has something renderable.
type Assembler struct{}

// NewAssembler creates the response assembler.
func NewAssembler() *Assembler { return &Assembler{} }

const maxNarrativePeriods = 4

// ForecastResponse renders a typed forecast into prose.
func (a *Assembler) ForecastResponse(sessionID string, loc LocationRef, fc Forecast) AssembledResponse {
	var b strings.Builder
	fmt.Fprintf(&b, "Forecast for %s:", loc.Raw)
	for i, p := range fc.Periods {
		if i >= maxNarrativePeriods {
			break
		}
		fmt.Fprintf(&b, " %s: %d°%s, %s.", p.Name, p.Temperature, p.TemperatureUnit, p.ShortForecast)
	}
	if len(fc.Periods) == 0 {
		b.WriteString(" no forecast periods available.")
	}
	return AssembledResponse{
		Narrative:  b.String(),
		MapMarkers: locationMarker(loc),
		SessionID:  sessionID,
	}
}

// AlertsResponse renders active alerts, most severe first in the narrative.
func (a *Assembler) AlertsResponse(sessionID string, loc LocationRef, alerts []Alert) AssembledResponse {
	var b strings.Builder
	if len(alerts) == 0 {
		fmt.Fprintf(&b, "No active alerts for %s.", loc.Raw)
	} else {
		fmt.Fprintf(&b, "%d active alert(s) for %s:", len(alerts), loc.Raw)
		for _, al := range alerts {
			fmt.Fprintf(&b, " [%s] %s.", al.Severity, al.Headline)
		}
	}
	return AssembledResponse{
		Narrative:  b.String(),
		MapMarkers: locationMarker(loc),
		SessionID:  sessionID,
	}
}

// PlacesResponse renders nearby emergency resources with markers for each.
func (a *Assembler) PlacesResponse(sessionID, kind string, loc LocationRef, places []Place) AssembledResponse {
	var b strings.Builder
	markers := make([]MapMarker, 0, len(places))
	if len(places) == 0 {
		fmt.Fprintf(&b, "No %s found near %s.", kind, loc.Raw)
	} else {
		fmt.Fprintf(&b, "Found %d %s near %s:", len(places), kind, loc.Raw)
		for _, p := range places {
			fmt.Fprintf(&b, " %s (%s).", p.Name, p.Address)
			markers = append(markers, MapMarker{Lat: p.Lat, Lng: p.Lng, Label: p.Name})
		}
	}
	return AssembledResponse{
		Narrative:  b.String(),
		MapMarkers: markers,
		SessionID:  sessionID,
	}
}

// RouteResponse renders an evacuation route.
func (a *Assembler) RouteResponse(sessionID string, loc LocationRef, destination string, r Route) AssembledResponse {
	narrative := fmt.Sprintf("Evacuation route from %s to %s via %s: %.1f km, about %s.",
		loc.Raw, destination, r.Summary, r.DistanceKm, r.Duration.Round(1e9))
	return AssembledResponse{
		Narrative:  narrative,
		MapMarkers: locationMarker(loc),
		SessionID:  sessionID,
	}
}

// HistoricalResponse renders a historical severity summary over a unit set.
func (a *Assembler) HistoricalResponse(sessionID string, loc LocationRef, eventType string, units []GeoUnit) AssembledResponse {
	var b strings.Builder
	fmt.Fprintf(&b, "Historical %s record for %s covering %d area(s).", eventType, loc.Raw, len(units))
	worst := GeoUnit{}
	for _, u := range units {
		if u.HistoricalSeverity > worst.HistoricalSeverity {
			worst = u
		}
	}
	if worst.ID != "" {
		fmt.Fprintf(&b, " Highest historical severity: %s (%.2f).", unitLabel(worst), worst.HistoricalSeverity)
	}
	return AssembledResponse{
		Narrative:  b.String(),
		MapMarkers: locationMarker(loc),
		SessionID:  sessionID,
	}
}

// AssessmentResponse renders the simple-assessment (minor event) outcome.
func (a *Assembler) AssessmentResponse(sessionID string, as Assessment) AssembledResponse {
	return AssembledResponse{
		Narrative: as.Narrative,
		SessionID: sessionID,
	}
}

const maxNarrativeUnits = 5

// RiskResponse renders the data-driven outcome: ranked narrative, the full
// priority list, and the derived resource plan. Partial units are called out
// rather than silently presented as complete. track is optional and only
// arrives for tropical events.
func (a *Assembler) RiskResponse(sessionID, eventType string, loc LocationRef, list PriorityList, plan ResourcePlan, track *HurricaneTrack) AssembledResponse {
	var b strings.Builder
	fmt.Fprintf(&b, "Risk assessment for %s near %s.", eventType, loc.Raw)
	if len(list) == 0 {
		b.WriteString(" No geographic units matched the request; no prioritization is possible.")
	} else {
		b.WriteString(" Evacuation priority:")
		for i, rs := range list {
			if i >= maxNarrativeUnits {
				fmt.Fprintf(&b, " … and %d more.", len(list)-maxNarrativeUnits)
				break
			}
			fmt.Fprintf(&b, " %d. %s (risk %.1f/10)", rs.Rank, unitLabel(rs.Unit), rs.Score)
			if rs.Unit.Partial {
				b.WriteString(" [incomplete data, reduced confidence]")
			}
			b.WriteString(".")
		}
		fmt.Fprintf(&b, " Resources: %d medical transport units, %d shelters, %d first responders.",
			plan.MedicalTransportUnits, plan.ShelterCount, plan.FirstResponderCount)
	}
	if HasPartialUnits(list) {
		b.WriteString(" Some areas had incomplete historical or demographic records; their scores carry reduced confidence.")
	}
	if track != nil {
		fmt.Fprintf(&b, " %d tropical cyclone advisory product(s) issued.", len(track.Advisories))
		if track.Note != "" {
			fmt.Fprintf(&b, " %s.", track.Note)
		}
	}

	planCopy := plan
	return AssembledResponse{
		Narrative:    b.String(),
		PriorityList: list,
		ResourcePlan: &planCopy,
		MapMarkers:   locationMarker(loc),
		SessionID:    sessionID,
	}
}

// failureNarratives holds the user-facing text per taxonomy kind.
var failureNarratives = map[string]string{
	"classification_error":   "I could not understand that request. Try naming a place and what you need, e.g. \"active alerts in Miami, FL\".",
	"location_unresolved":    "I could not resolve that location to coordinates. Please name a city or address.",
	"provider_unavailable":   "A required data source is currently unavailable. Please try again shortly.",
	"session_expired":        "Your session expired and a new one was started. Please repeat the request.",
	"internal_inconsistency": "The request could not be completed because the retrieved data was inconsistent.",
}

// FailureResponse shapes any taxonomy error into a renderable response.
func (a *Assembler) FailureResponse(sessionID string, err error) AssembledResponse {
	kind := ErrorKind(err)
	narrative, ok := failureNarratives[kind]
	if !ok {
		narrative = failureNarratives["internal_inconsistency"]
	}
	return AssembledResponse{
		Narrative: narrative,
		SessionID: sessionID,
		Error:     kind,
	}
}

func locationMarker(loc LocationRef) []MapMarker {
	if !loc.Resolved() {
		return nil
	}
	return []MapMarker{{Lat: *loc.Lat, Lng: *loc.Lng, Label: loc.Raw}}
}

func unitLabel(u GeoUnit) string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
