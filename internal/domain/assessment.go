package domain

import (
	"fmt"
	"strings"
)

// Static lookups for the simple-assessment path. Minor events are answered
// from these tables plus live severity; no historical or demographic
// provider is consulted, which is the entire point of the two-tier split.

// vulnerableGroups maps an event-type table key to the groups most at risk.
var vulnerableGroups = map[string][]string{
	"rip current":    {"tourists", "children", "inexperienced swimmers"},
	"beach hazard":   {"beachgoers", "children", "surfers"},
	"coastal hazard": {"boaters", "waterfront residents", "beachgoers"},
	"wind advisory":  {"high-profile vehicle drivers", "outdoor workers", "campers"},
	"dense fog":      {"drivers", "pilots", "boaters"},
	"frost advisory": {"growers", "outdoor pets", "sensitive plants"},
	"small craft":    {"boaters", "kayakers", "anglers"},
}

// recommendedActions maps the same keys to the standard advice list.
var recommendedActions = map[string][]string{
	"rip current": {
		"Swim near a lifeguard and heed posted flags",
		"If caught in a current, swim parallel to shore",
		"Keep children within arm's reach in the water",
	},
	"beach hazard": {
		"Check surf zone forecasts before entering the water",
		"Stay off jetties and exposed rocks",
	},
	"coastal hazard": {
		"Secure small vessels and waterfront property",
		"Avoid low-lying coastal roads at high tide",
	},
	"wind advisory": {
		"Secure loose outdoor objects",
		"Use caution driving high-profile vehicles",
	},
	"dense fog": {
		"Slow down and use low-beam headlights",
		"Allow extra distance between vehicles",
	},
	"frost advisory": {
		"Cover sensitive vegetation before nightfall",
		"Bring pets indoors overnight",
	},
	"small craft": {
		"Inexperienced mariners should remain in port",
		"Check marine forecasts before departure",
	},
}

var defaultVulnerableGroups = []string{"older adults", "children", "people outdoors"}

var defaultActions = []string{
	"Monitor local forecasts and alerts",
	"Follow instructions from local officials",
}

// Assessment is a qualitative risk narrative for a minor event: severity,
// the static vulnerable-group set, and standard advice. No ranking, no
// resource plan.
type Assessment struct {
	EventType        string   `json:"eventType"`
	Severity         string   `json:"severity"`
	VulnerableGroups []string `json:"vulnerableGroups"`
	Actions          []string `json:"actions"`
	Narrative        string   `json:"narrative"`
}

// SimpleAssessment builds the qualitative assessment for a minor event from
// the event type and the live severity level alone.
func SimpleAssessment(eventType, severity string) Assessment {
	key := lookupKey(eventType)
	groups := vulnerableGroups[key]
	if groups == nil {
		groups = defaultVulnerableGroups
	}
	actions := recommendedActions[key]
	if actions == nil {
		actions = defaultActions
	}
	if severity == "" {
		severity = "Minor"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s (severity %s). ", titleCase(eventType), severity)
	fmt.Fprintf(&b, "Most at risk: %s. ", strings.Join(groups, ", "))
	b.WriteString("Recommended actions: ")
	for i, a := range actions {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(a)
	}
	b.WriteString(".")

	return Assessment{
		EventType:        eventType,
		Severity:         severity,
		VulnerableGroups: groups,
		Actions:          actions,
		Narrative:        b.String(),
	}
}

// lookupKey matches an event-type string against the static tables the same
// way the class table does: longest contained key wins.
func lookupKey(eventType string) string {
	normalized := normalizeEventType(eventType)
	best := ""
	for key := range vulnerableGroups {
		if strings.Contains(normalized, key) && len(key) > len(best) {
			best = key
		}
	}
	return best
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
