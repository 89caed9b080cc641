// Command scenario runs the risk correlation engine over a census-unit
// fixture and prints the resulting priority list and resource plan. It is
// used to vet engine tuning (score weights, resource capacities) against
// recorded unit data without standing up the full service.
//
// Usage:
//
//	go run ./cmd/scenario \
//	  -units data/fixtures/miami_tracts.json \
//	  -event hurricane \
//	  -at 2026-08-14T18:00:00Z
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

// scenarioResult is the machine-readable output for -json.
type scenarioResult struct {
	EventType    string              `json:"eventType"`
	UnitCount    int                 `json:"unitCount"`
	Partial      bool                `json:"partial"`
	PriorityList domain.PriorityList `json:"priorityList"`
	ResourcePlan domain.ResourcePlan `json:"resourcePlan"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	unitsPath := flag.String("units", "", "path to a JSON array of census units")
	eventType := flag.String("event", "hurricane", "event type label for the report")
	at := flag.String("at", "", "assessment time, RFC3339 (default: now)")
	weightsFlag := flag.String("weights", "", "score weights as vulnerable,historical,path (default 0.3,0.4,0.3)")
	jsonOut := flag.Bool("json", false, "emit JSON instead of a table")
	flag.Parse()

	if *unitsPath == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -units")
	}

	units, err := loadUnits(*unitsPath)
	if err != nil {
		return err
	}

	weights := domain.DefaultWeights()
	if *weightsFlag != "" {
		weights, err = parseWeights(*weightsFlag)
		if err != nil {
			return err
		}
	}

	// Pin the clock so timeline windows are reproducible across runs.
	if *at != "" {
		ts, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("parsing -at: %w", err)
		}
		domain.SetClock(clockwork.NewFakeClockAt(ts))
		defer domain.SetClock(nil)
	}

	engine := domain.NewEngine(weights, domain.DefaultResourceConstants())
	if err := domain.ValidateUnits(units); err != nil {
		return fmt.Errorf("fixture %s: %w", *unitsPath, err)
	}

	list := engine.Prioritize(units)
	plan := engine.DeriveResourcePlan(list)

	result := scenarioResult{
		EventType:    *eventType,
		UnitCount:    len(units),
		Partial:      domain.HasPartialUnits(list),
		PriorityList: list,
		ResourcePlan: plan,
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	printTable(result)
	return nil
}

func loadUnits(path string) ([]domain.GeoUnit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading units fixture: %w", err)
	}
	var units []domain.GeoUnit
	if err := json.Unmarshal(data, &units); err != nil {
		return nil, fmt.Errorf("parsing units fixture: %w", err)
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("units fixture %s is empty", path)
	}
	return units, nil
}

func parseWeights(s string) (domain.Weights, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return domain.Weights{}, fmt.Errorf("-weights wants three comma-separated values, got %q", s)
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.Weights{}, fmt.Errorf("parsing -weights: %w", err)
		}
		vals[i] = v
	}
	w := domain.Weights{Vulnerable: vals[0], Historical: vals[1], HazardPath: vals[2]}
	if diff := w.Sum() - 1.0; diff > 1e-6 || diff < -1e-6 {
		return domain.Weights{}, fmt.Errorf("-weights must sum to 1.0, got %v", w.Sum())
	}
	return w, nil
}

func printTable(r scenarioResult) {
	fmt.Printf("event: %s   units: %d", r.EventType, r.UnitCount)
	if r.Partial {
		fmt.Print("   (partial data)")
	}
	fmt.Println()
	fmt.Println()

	fmt.Println("rank  score  population  unit")
	for _, s := range r.PriorityList {
		name := s.Unit.Name
		if name == "" {
			name = s.Unit.ID
		}
		fmt.Printf("%4d  %5.2f  %10d  %s\n", s.Rank, s.Score, s.Unit.Population, name)
	}
	fmt.Println()

	fmt.Printf("medical transport units: %d\n", r.ResourcePlan.MedicalTransportUnits)
	fmt.Printf("shelters:                %d\n", r.ResourcePlan.ShelterCount)
	fmt.Printf("first responders:        %d\n", r.ResourcePlan.FirstResponderCount)
	fmt.Println()

	fmt.Println("timeline:")
	for _, w := range r.ResourcePlan.Timeline {
		fmt.Printf("  %s - %s  %s\n",
			w.Start.Format("15:04"), w.End.Format("15:04 MST"), strings.Join(w.UnitIDs, ", "))
	}
}
