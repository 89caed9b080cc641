// Package intent is the shipped request classifier: deterministic keyword
// rules mapping free text to a structured Intent. It satisfies the same
// contract an ML or LLM classifier would (classify(text, sessionState) or a
// classification error), so the orchestrator never depends on how intents
// are produced.
package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

// Classifier maps raw request text to an Intent.
type Classifier struct{}

// New creates the rule-based classifier.
func New() *Classifier { return &Classifier{} }

// Keyword rules, checked in order. Risk outranks alerts so "any risks from
// the rip current statement" lands on the analysis path, and routes outrank
// plain forecasts so "evacuation route" is never read as weather.
var kindRules = []struct {
	kind     domain.IntentKind
	keywords []string
}{
	{domain.IntentEvacuationRoute, []string{"evacuation route", "route from", "directions", "fastest route"}},
	{domain.IntentRiskAnalysis, []string{"risk", "danger", "evacuation priority", "vulnerable", "allocate", "impact analysis", "census tract", "elderly"}},
	{domain.IntentShelterSearch, []string{"shelter", "cooling center"}},
	{domain.IntentHospitalSearch, []string{"hospital", "medical center", "emergency room"}},
	{domain.IntentHistoricalQuery, []string{"historical", "on record", "history of", "worst", "past events"}},
	{domain.IntentAlerts, []string{"alert", "warning", "watch", "advisory", "statement"}},
	{domain.IntentForecast, []string{"forecast", "weather", "temperature", "conditions", "rain", "snow", "hourly"}},
}

// eventTypePhrases maps text phrases to canonical event-type strings, longest
// match wins. The canonical names are what the minor/major class table keys
// on.
var eventTypePhrases = []struct {
	phrase    string
	canonical string
}{
	{"rip current", "rip current"},
	{"beach hazard", "beach hazard"},
	{"coastal flood", "flood"},
	{"coastal hazard", "coastal hazard"},
	{"wind advisory", "wind advisory"},
	{"dense fog", "dense fog"},
	{"frost", "frost advisory"},
	{"small craft", "small craft"},
	{"hurricane", "hurricane"},
	{"tropical storm", "tropical storm"},
	{"storm surge", "storm surge"},
	{"flood", "flood"},
	{"heat wave", "extreme heat"},
	{"extreme heat", "extreme heat"},
	{"heat", "extreme heat"},
	{"tornado", "tornado"},
	{"winter storm", "winter storm"},
	{"blizzard", "winter storm"},
	{"wildfire", "wildfire"},
	{"fire", "wildfire"},
}

var (
	// locationRe captures the place name after a locating preposition. Place
	// tokens stay case-sensitive so the capture stops at the first lowercase
	// word and never crosses a sentence boundary:
	// "forecast for Miami, FL" -> "Miami, FL".
	locationRe = regexp.MustCompile(`\b(?i:in|for|to|near|around|approaching)\s+((?:downtown\s+)?[A-Z][A-Za-z'-]*(?:[\s,]+[A-Z][A-Za-z'-]*)*)`)

	// routeRe captures origin and destination: "route from Tampa to Orlando".
	routeRe = regexp.MustCompile(`\b(?i:from)\s+([A-Z][A-Za-z'-]*(?:[\s,]+[A-Z][A-Za-z'-]*)*)\s+(?i:to)\s+([A-Z][A-Za-z'-]*(?:[\s,]+[A-Z][A-Za-z'-]*)*)`)

	radiusRe     = regexp.MustCompile(`(?i)\bwithin\s+(\d+(?:\.\d+)?)\s*(miles?|mi|km|kilometers?)\b`)
	timeWindowRe = regexp.MustCompile(`(?i)\b(?:next|past|last)\s+(\d+)\s+days?\b|\b(\d+)-day\b`)
)

const milesToKm = 1.609344

// Classify derives the intent for a raw request. Session state supplies the
// location fallback when the text names none (conversation continuity: "what
// about the hourly forecast?"). Returns domain.ErrClassification when no
// rule matches.
func (c *Classifier) Classify(rawText string, sessionState map[string]any) (domain.Intent, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return domain.Intent{}, domain.ErrClassification
	}
	lower := strings.ToLower(text)

	kind, ok := matchKind(lower)
	if !ok {
		return domain.Intent{}, domain.ErrClassification
	}

	it := domain.Intent{
		Kind:      kind,
		EventType: matchEventType(lower),
		Hourly:    kind == domain.IntentForecast && strings.Contains(lower, "hourly"),
	}

	if kind == domain.IntentEvacuationRoute {
		if m := routeRe.FindStringSubmatch(text); m != nil {
			it.Location = domain.LocationRef{Raw: strings.TrimSpace(m[1])}
			it.Destination = strings.TrimSpace(m[2])
		}
	}
	if it.Location.Raw == "" {
		it.Location = domain.LocationRef{Raw: extractLocation(text)}
	}
	if it.Location.Raw == "" {
		if prev, ok := sessionState["location"].(string); ok {
			it.Location = domain.LocationRef{Raw: prev}
		}
	}

	if m := radiusRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			if strings.HasPrefix(strings.ToLower(m[2]), "k") {
				it.RadiusKm = v
			} else {
				it.RadiusKm = v * milesToKm
			}
		}
	}
	if m := timeWindowRe.FindStringSubmatch(text); m != nil {
		digits := m[1]
		if digits == "" {
			digits = m[2]
		}
		if v, err := strconv.Atoi(digits); err == nil {
			it.TimeWindowDays = v
		}
	}

	return it, nil
}

func matchKind(lower string) (domain.IntentKind, bool) {
	for _, rule := range kindRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.kind, true
			}
		}
	}
	return "", false
}

func matchEventType(lower string) string {
	best := ""
	bestLen := 0
	for _, e := range eventTypePhrases {
		if strings.Contains(lower, e.phrase) && len(e.phrase) > bestLen {
			best = e.canonical
			bestLen = len(e.phrase)
		}
	}
	return best
}

// stopWords are capitalized words the location regex may swallow that are
// never place names ("a Category 3 hurricane approaching ...").
var stopWords = map[string]bool{
	"Category": true,
	"Any":      true,
	"The":      true,
}

func extractLocation(text string) string {
	m := locationRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	loc := strings.TrimSpace(m[1])
	first := strings.FieldsFunc(loc, func(r rune) bool { return r == ' ' || r == ',' })
	if len(first) > 0 && stopWords[first[0]] {
		return ""
	}
	return loc
}
