package domain

import "strings"

// EventClass splits hazard event types into the two routing tiers: minor
// events get a cheap qualitative assessment, major events get the full
// data-driven correlation.
type EventClass string

const (
	EventMinor EventClass = "minor"
	EventMajor EventClass = "major"
)

// defaultEventClasses is the fixed minor/major lookup. Event types are
// matched after lowercasing and trimming, so "Rip Current Statement" and
// "rip current" land on the same row via prefix matching in Classify.
var defaultEventClasses = map[string]EventClass{
	"rip current":      EventMinor,
	"beach hazard":     EventMinor,
	"coastal hazard":   EventMinor,
	"wind advisory":    EventMinor,
	"dense fog":        EventMinor,
	"frost advisory":   EventMinor,
	"small craft":      EventMinor,
	"hurricane":        EventMajor,
	"tropical storm":   EventMajor,
	"flood":            EventMajor,
	"extreme heat":     EventMajor,
	"heat wave":        EventMajor,
	"tornado":          EventMajor,
	"winter storm":     EventMajor,
	"storm surge":      EventMajor,
	"wildfire":         EventMajor,
}

// EventClassTable classifies event-type strings deterministically. The
// defaults can be overridden through configuration but never inferred
// per-request.
type EventClassTable struct {
	classes map[string]EventClass
}

// NewEventClassTable builds the default table with optional overrides applied
// on top. Override keys are normalized the same way lookups are.
func NewEventClassTable(overrides map[string]EventClass) *EventClassTable {
	classes := make(map[string]EventClass, len(defaultEventClasses)+len(overrides))
	for k, v := range defaultEventClasses {
		classes[k] = v
	}
	for k, v := range overrides {
		classes[normalizeEventType(k)] = v
	}
	return &EventClassTable{classes: classes}
}

// Classify returns the tier for an event type. Unknown types classify as
// major: the expensive path over an understated risk.
func (t *EventClassTable) Classify(eventType string) EventClass {
	normalized := normalizeEventType(eventType)
	if c, ok := t.classes[normalized]; ok {
		return c
	}
	// Alert event names carry suffixes like "Warning" or "Statement"
	// ("Rip Current Statement", "Hurricane Warning"). Match on the longest
	// table key the name starts with or contains.
	bestLen := 0
	var best EventClass
	for key, c := range t.classes {
		if strings.Contains(normalized, key) && len(key) > bestLen {
			bestLen = len(key)
			best = c
		}
	}
	if bestLen > 0 {
		return best
	}
	return EventMajor
}

func normalizeEventType(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
