package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimpleAssessment(t *testing.T) {
	as := SimpleAssessment("Rip Current Statement", "Moderate")

	assert.Equal(t, "Rip Current Statement", as.EventType)
	assert.Equal(t, "Moderate", as.Severity)
	assert.Contains(t, as.VulnerableGroups, "tourists")
	assert.NotEmpty(t, as.Actions)
	assert.Contains(t, as.Narrative, "Rip Current Statement")
	assert.Contains(t, as.Narrative, "Moderate")
	assert.Contains(t, as.Narrative, "swim parallel to shore")
}

func TestSimpleAssessmentDefaultSeverity(t *testing.T) {
	as := SimpleAssessment("dense fog", "")
	assert.Equal(t, "Minor", as.Severity)
}

func TestSimpleAssessmentUnknownEventType(t *testing.T) {
	as := SimpleAssessment("blowing dust", "Minor")
	assert.Equal(t, defaultVulnerableGroups, as.VulnerableGroups)
	assert.Equal(t, defaultActions, as.Actions)
	assert.Contains(t, as.Narrative, "Blowing Dust")
}
