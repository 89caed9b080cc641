package domain

import (
	"math"
	"sort"
	"time"
)

// Weights are the scoring coefficients — the single tuning surface of the
// correlation engine. They must sum to 1.0 so the weighted sum stays in [0,1]
// before scaling.
type Weights struct {
	Vulnerable float64
	Historical float64
	HazardPath float64
}

// DefaultWeights returns the operational defaults: historical flooding and
// severity history weigh slightly more than the demographic share.
func DefaultWeights() Weights {
	return Weights{Vulnerable: 0.3, Historical: 0.4, HazardPath: 0.3}
}

// Sum returns the coefficient total, used by config validation.
func (w Weights) Sum() float64 {
	return w.Vulnerable + w.Historical + w.HazardPath
}

// ResourceConstants scale the derived counts. Defaults are tunable capacity
// assumptions; the formulas are the contract.
type ResourceConstants struct {
	TransportCapacity   float64 // vulnerable residents per medical transport unit
	ShelterCapacity     float64 // average residents per shelter
	RespondersPerCapita float64 // residents per first responder
}

// DefaultResourceConstants returns the planning defaults.
func DefaultResourceConstants() ResourceConstants {
	return ResourceConstants{
		TransportCapacity:   50,
		ShelterCapacity:     500,
		RespondersPerCapita: 1000,
	}
}

// Timeline window lengths. Units are partitioned by rank thirds across three
// fixed windows starting at plan generation time.
const (
	windowLength = 6 * time.Hour
	windowCount  = 3
)

// Engine computes risk scores, priority orderings, and resource plans. It is
// stateless; scores from different requests are never comparable because the
// weights may differ between them.
type Engine struct {
	weights   Weights
	constants ResourceConstants
}

// NewEngine creates an engine with the given tuning. Zero-value weights or
// constants fall back to the defaults.
func NewEngine(w Weights, c ResourceConstants) *Engine {
	if w == (Weights{}) {
		w = DefaultWeights()
	}
	if c == (ResourceConstants{}) {
		c = DefaultResourceConstants()
	}
	return &Engine{weights: w, constants: c}
}

// Score computes the weighted risk score for one unit, scaled to [0,10].
//
//	score = w_vuln*vulnerablePct + w_hist*historicalSeverity + w_path*inPath
//
// The weighted sum is naturally in [0,1] when the weights sum to 1; the ×10
// scaling presents it as "risk out of 10". Clamped defensively against
// out-of-range provider attributes.
func (e *Engine) Score(u GeoUnit) float64 {
	path := 0.0
	if u.InHazardPath {
		path = 1.0
	}
	s := e.weights.Vulnerable*u.VulnerablePct +
		e.weights.Historical*u.HistoricalSeverity +
		e.weights.HazardPath*path
	s *= 10
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

// Prioritize scores and ranks a unit set. Ordering is strictly descending by
// score, ties broken by population descending, then unit id ascending, so a
// fixed input always produces the identical list. An empty input yields an
// empty list, not an error.
func (e *Engine) Prioritize(units []GeoUnit) PriorityList {
	list := make(PriorityList, 0, len(units))
	for _, u := range units {
		list = append(list, RiskScore{Unit: u, Score: e.Score(u)})
	}
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Unit.Population != b.Unit.Population {
			return a.Unit.Population > b.Unit.Population
		}
		return a.Unit.ID < b.Unit.ID
	})
	for i := range list {
		list[i].Rank = i + 1
	}
	return list
}

// DeriveResourcePlan partitions a ranked list into three 6-hour action
// windows (top-ranked third first, rank order preserved within each window)
// and aggregates resource counts.
//
// The per-capita sums run over units in the hazard path: units ranked for
// historical relevance but outside the projected path contribute nothing to
// transport, shelter, or responder demand. A unit with zero population stays
// in the list and the windows but adds zero to every sum.
func (e *Engine) DeriveResourcePlan(list PriorityList) ResourcePlan {
	if len(list) == 0 {
		return ResourcePlan{Timeline: []TimelineWindow{}}
	}

	now := clock.Now().UTC()
	windows := make([]TimelineWindow, windowCount)
	perWindow := (len(list) + windowCount - 1) / windowCount
	for w := range windows {
		windows[w] = TimelineWindow{
			Start:   now.Add(time.Duration(w) * windowLength),
			End:     now.Add(time.Duration(w+1) * windowLength),
			UnitIDs: []string{},
		}
	}
	for i, rs := range list {
		w := i / perWindow
		if w >= windowCount {
			w = windowCount - 1
		}
		windows[w].UnitIDs = append(windows[w].UnitIDs, rs.Unit.ID)
	}

	var vulnerableSum, populationSum, firstWindowPop float64
	firstWindowEnd := perWindow
	if firstWindowEnd > len(list) {
		firstWindowEnd = len(list)
	}
	for i, rs := range list {
		u := rs.Unit
		if !u.InHazardPath {
			continue
		}
		vulnerableSum += float64(u.Population) * u.VulnerablePct
		populationSum += float64(u.Population)
		if i < firstWindowEnd {
			firstWindowPop += float64(u.Population)
		}
	}

	return ResourcePlan{
		MedicalTransportUnits: ceilDiv(vulnerableSum, e.constants.TransportCapacity),
		ShelterCount:          ceilDiv(populationSum, e.constants.ShelterCapacity),
		FirstResponderCount:   ceilDiv(firstWindowPop, e.constants.RespondersPerCapita),
		Timeline:              windows,
	}
}

// HasPartialUnits reports whether any ranked unit carries incomplete provider
// data, so the response can flag reduced confidence.
func HasPartialUnits(list PriorityList) bool {
	for _, rs := range list {
		if rs.Unit.Partial {
			return true
		}
	}
	return false
}

// ValidateUnits rejects unit sets the engine cannot score honestly: a unit
// without an id after the provider merge is an internal inconsistency and the
// request must abort rather than compute a misleading ranking.
func ValidateUnits(units []GeoUnit) error {
	for _, u := range units {
		if u.ID == "" {
			return ErrInternalInconsistency
		}
		if u.VulnerablePct < 0 || u.VulnerablePct > 1 {
			return ErrInternalInconsistency
		}
	}
	return nil
}

func ceilDiv(sum, capacity float64) int {
	if capacity <= 0 || sum <= 0 {
		return 0
	}
	return int(math.Ceil(sum / capacity))
}
