package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDefaults(t *testing.T) {
	table := NewEventClassTable(nil)

	tests := []struct {
		eventType string
		want      EventClass
	}{
		{"rip current", EventMinor},
		{"Rip Current Statement", EventMinor},
		{"Beach Hazards Statement", EventMinor},
		{"Dense Fog Advisory", EventMinor},
		{"Small Craft Advisory", EventMinor},
		{"hurricane", EventMajor},
		{"Hurricane Warning", EventMajor},
		{"Tropical Storm Watch", EventMajor},
		{"Flash Flood Warning", EventMajor},
		{"Storm Surge Warning", EventMajor},
		{"Tornado Warning", EventMajor},
		{"Extreme Heat Warning", EventMajor},
		{"  TORNADO  ", EventMajor},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			assert.Equal(t, tt.want, table.Classify(tt.eventType))
		})
	}
}

func TestClassifyUnknownIsMajor(t *testing.T) {
	table := NewEventClassTable(nil)
	assert.Equal(t, EventMajor, table.Classify("volcanic ash"))
	assert.Equal(t, EventMajor, table.Classify(""))
}

func TestClassifyOverrides(t *testing.T) {
	table := NewEventClassTable(map[string]EventClass{
		"Wind Advisory": EventMajor,
		"dust storm":    EventMinor,
	})
	assert.Equal(t, EventMajor, table.Classify("wind advisory"))
	assert.Equal(t, EventMinor, table.Classify("Dust Storm Warning"))
	// Defaults not named by an override are untouched.
	assert.Equal(t, EventMinor, table.Classify("rip current"))
}
