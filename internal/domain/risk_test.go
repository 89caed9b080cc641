package domain

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zone(id string, pop int, vuln, hist float64, inPath bool) GeoUnit {
	return GeoUnit{
		ID:                 id,
		Name:               "Zone " + id,
		Population:         pop,
		VulnerablePct:      vuln,
		HistoricalSeverity: hist,
		InHazardPath:       inPath,
	}
}

func TestScore(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())

	tests := []struct {
		name string
		unit GeoUnit
		want float64
	}{
		{"all zero", zone("z", 0, 0, 0, false), 0},
		{"maximum", zone("z", 0, 1, 1, true), 10},
		{"coastal high risk", zone("A", 8500, 0.35, 0.9, true), 7.65},
		{"inland moderate", zone("B", 6200, 0.42, 0.8, true), 7.46},
		{"outside path", zone("C", 1200, 0.10, 0.2, false), 1.1},
		{"path only", zone("z", 0, 0, 0, true), 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, e.Score(tt.unit), 1e-9)
		})
	}
}

func TestScoreClampsOutOfRangeAttributes(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())
	assert.Equal(t, 10.0, e.Score(zone("z", 0, 3.0, 2.0, true)))
	assert.Equal(t, 0.0, e.Score(zone("z", 0, -1.0, -1.0, false)))
}

func TestScoreCustomWeights(t *testing.T) {
	e := NewEngine(Weights{Vulnerable: 1, Historical: 0, HazardPath: 0}, DefaultResourceConstants())
	assert.InDelta(t, 5.0, e.Score(zone("z", 0, 0.5, 0.99, true)), 1e-9)
}

func TestPrioritizeOrdering(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())
	units := []GeoUnit{
		zone("C", 1200, 0.10, 0.2, false),
		zone("A", 8500, 0.35, 0.9, true),
		zone("B", 6200, 0.42, 0.8, true),
	}

	list := e.Prioritize(units)

	require.Len(t, list, 3)
	assert.Equal(t, []string{"A", "B", "C"}, list.UnitIDs())
	for i, rs := range list {
		assert.Equal(t, i+1, rs.Rank)
	}
}

func TestPrioritizeTieBreaks(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())

	// Identical attributes: population descending, then id ascending.
	units := []GeoUnit{
		zone("delta", 500, 0.2, 0.5, true),
		zone("alpha", 500, 0.2, 0.5, true),
		zone("gamma", 900, 0.2, 0.5, true),
	}
	list := e.Prioritize(units)
	assert.Equal(t, []string{"gamma", "alpha", "delta"}, list.UnitIDs())
}

func TestPrioritizeDeterministic(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())
	units := []GeoUnit{
		zone("A", 8500, 0.35, 0.9, true),
		zone("B", 6200, 0.42, 0.8, true),
		zone("C", 1200, 0.10, 0.2, false),
		zone("D", 6200, 0.42, 0.8, true),
	}

	first := e.Prioritize(units)
	second := e.Prioritize(units)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("identical input produced different rankings (-first +second):\n%s", diff)
	}
}

func TestPrioritizeEmpty(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())
	assert.Empty(t, e.Prioritize(nil))
}

func TestDeriveResourcePlan(t *testing.T) {
	fake := clockwork.NewFakeClockAt(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
	SetClock(fake)
	defer SetClock(nil)

	e := NewEngine(DefaultWeights(), DefaultResourceConstants())
	list := e.Prioritize([]GeoUnit{
		zone("A", 8500, 0.35, 0.9, true),
		zone("B", 6200, 0.42, 0.8, true),
		zone("C", 1200, 0.10, 0.2, false),
	})

	plan := e.DeriveResourcePlan(list)

	// ceil((8500*0.35 + 6200*0.42)/50); C is outside the hazard path.
	assert.Equal(t, 112, plan.MedicalTransportUnits)
	// ceil((8500+6200)/500)
	assert.Equal(t, 30, plan.ShelterCount)
	// First window holds A only: ceil(8500/1000).
	assert.Equal(t, 9, plan.FirstResponderCount)

	require.Len(t, plan.Timeline, 3)
	start := fake.Now().UTC()
	for w, win := range plan.Timeline {
		assert.Equal(t, start.Add(time.Duration(w)*6*time.Hour), win.Start)
		assert.Equal(t, start.Add(time.Duration(w+1)*6*time.Hour), win.End)
	}
	assert.Equal(t, []string{"A"}, plan.Timeline[0].UnitIDs)
	assert.Equal(t, []string{"B"}, plan.Timeline[1].UnitIDs)
	assert.Equal(t, []string{"C"}, plan.Timeline[2].UnitIDs)
}

func TestDeriveResourcePlanPartition(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())

	tests := []struct {
		name  string
		n     int
		sizes [3]int
	}{
		{"one unit", 1, [3]int{1, 0, 0}},
		{"two units", 2, [3]int{1, 1, 0}},
		{"four units", 4, [3]int{2, 2, 0}},
		{"seven units", 7, [3]int{3, 3, 1}},
		{"nine units", 9, [3]int{3, 3, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			units := make([]GeoUnit, tt.n)
			for i := range units {
				units[i] = zone(string(rune('a'+i)), 100*(tt.n-i), 0.2, 0.5, true)
			}
			plan := e.DeriveResourcePlan(e.Prioritize(units))
			require.Len(t, plan.Timeline, 3)
			for w, want := range tt.sizes {
				assert.Len(t, plan.Timeline[w].UnitIDs, want, "window %d", w)
			}
		})
	}
}

func TestDeriveResourcePlanPopulationMonotonic(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())

	tests := []struct {
		name  string
		units []GeoUnit
	}{
		{"all in path", []GeoUnit{
			zone("A", 8500, 0.35, 0.9, true),
			zone("B", 6200, 0.42, 0.8, true),
		}},
		{"mixed path membership", []GeoUnit{
			zone("A", 8500, 0.35, 0.9, true),
			zone("B", 6200, 0.42, 0.8, true),
			zone("C", 1200, 0.10, 0.2, false),
		}},
		{"single small unit", []GeoUnit{
			zone("A", 37, 0.5, 0.5, true),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doubled := make([]GeoUnit, len(tt.units))
			copy(doubled, tt.units)
			for i := range doubled {
				doubled[i].Population *= 2
			}

			before := e.DeriveResourcePlan(e.Prioritize(tt.units))
			after := e.DeriveResourcePlan(e.Prioritize(doubled))

			assert.GreaterOrEqual(t, after.MedicalTransportUnits, before.MedicalTransportUnits)
			assert.GreaterOrEqual(t, after.ShelterCount, before.ShelterCount)
			assert.GreaterOrEqual(t, after.FirstResponderCount, before.FirstResponderCount)
		})
	}
}

func TestDeriveResourcePlanEmpty(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())
	plan := e.DeriveResourcePlan(nil)
	assert.Zero(t, plan.MedicalTransportUnits)
	assert.Zero(t, plan.ShelterCount)
	assert.Zero(t, plan.FirstResponderCount)
	assert.NotNil(t, plan.Timeline)
	assert.Empty(t, plan.Timeline)
}

func TestDeriveResourcePlanZeroPopulation(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())
	plan := e.DeriveResourcePlan(e.Prioritize([]GeoUnit{
		zone("A", 0, 0.5, 0.9, true),
	}))
	assert.Zero(t, plan.MedicalTransportUnits)
	assert.Zero(t, plan.ShelterCount)
	assert.Zero(t, plan.FirstResponderCount)
	require.Len(t, plan.Timeline, 3)
	assert.Equal(t, []string{"A"}, plan.Timeline[0].UnitIDs)
}

func TestValidateUnits(t *testing.T) {
	assert.NoError(t, ValidateUnits([]GeoUnit{zone("A", 1, 0.5, 0.5, true)}))
	assert.ErrorIs(t, ValidateUnits([]GeoUnit{{ID: ""}}), ErrInternalInconsistency)
	assert.ErrorIs(t, ValidateUnits([]GeoUnit{zone("A", 1, 1.5, 0.5, true)}), ErrInternalInconsistency)
	assert.ErrorIs(t, ValidateUnits([]GeoUnit{zone("A", 1, -0.1, 0.5, true)}), ErrInternalInconsistency)
}

func TestHasPartialUnits(t *testing.T) {
	e := NewEngine(DefaultWeights(), DefaultResourceConstants())
	complete := e.Prioritize([]GeoUnit{zone("A", 1, 0.5, 0.5, true)})
	assert.False(t, HasPartialUnits(complete))

	u := zone("B", 1, 0.5, 0.5, true)
	u.Partial = true
	assert.True(t, HasPartialUnits(e.Prioritize([]GeoUnit{u})))
}
