package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	SessionIdleTimeout time.Duration
	ProviderTimeout    time.Duration

	// National Weather Service API. The NWS requires an identifying
	// user agent on every request.
	NWSBaseURL   string
	NWSUserAgent string

	// Census demographics and historical-records API.
	CensusBaseURL string

	// Mapbox geocoding, place search, and directions.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Optional assessment publishing.
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaAssessmentTopic string

	// Risk engine tuning.
	RiskWeights        domain.Weights
	ResourceConstants  domain.ResourceConstants
	EventClassOverride map[string]domain.EventClass
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	idleTimeout, err := parseDuration("SESSION_IDLE_TIMEOUT", "30m")
	if err != nil {
		return nil, err
	}
	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parseDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	weights, err := parseWeights()
	if err != nil {
		return nil, err
	}
	constants, err := parseResourceConstants()
	if err != nil {
		return nil, err
	}
	overrides, err := parseEventClassOverrides(os.Getenv("EVENT_CLASS_OVERRIDES"))
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}
	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SessionIdleTimeout: idleTimeout,
		ProviderTimeout:    providerTimeout,

		NWSBaseURL:   envOrDefault("NWS_BASE_URL", "https://api.weather.gov"),
		NWSUserAgent: envOrDefault("NWS_USER_AGENT", "weather-insights-service (ops@couchcryptid.dev)"),

		CensusBaseURL: envOrDefault("CENSUS_BASE_URL", "http://localhost:8091"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseCacheSize(),

		KafkaEnabled:         kafkaEnabled,
		KafkaBrokers:         parseBrokers(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaAssessmentTopic: envOrDefault("KAFKA_ASSESSMENT_TOPIC", "risk-assessments"),

		RiskWeights:        weights,
		ResourceConstants:  constants,
		EventClassOverride: overrides,
	}

	if cfg.NWSBaseURL == "" {
		return nil, errors.New("NWS_BASE_URL is required")
	}
	if cfg.NWSUserAgent == "" {
		return nil, errors.New("NWS_USER_AGENT is required")
	}
	if cfg.CensusBaseURL == "" {
		return nil, errors.New("CENSUS_BASE_URL is required")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func parseCacheSize() int {
	if s := os.Getenv("GEOCODE_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

// parseWeights reads the three scoring coefficients. All three must be set
// together; they must be non-negative and sum to 1.0 within a small epsilon.
func parseWeights() (domain.Weights, error) {
	vs := os.Getenv("RISK_WEIGHT_VULNERABLE")
	hs := os.Getenv("RISK_WEIGHT_HISTORICAL")
	ps := os.Getenv("RISK_WEIGHT_PATH")
	if vs == "" && hs == "" && ps == "" {
		return domain.DefaultWeights(), nil
	}
	if vs == "" || hs == "" || ps == "" {
		return domain.Weights{}, errors.New("RISK_WEIGHT_VULNERABLE, RISK_WEIGHT_HISTORICAL, and RISK_WEIGHT_PATH must be set together")
	}

	w := domain.Weights{}
	for _, f := range []struct {
		key string
		raw string
		dst *float64
	}{
		{"RISK_WEIGHT_VULNERABLE", vs, &w.Vulnerable},
		{"RISK_WEIGHT_HISTORICAL", hs, &w.Historical},
		{"RISK_WEIGHT_PATH", ps, &w.HazardPath},
	} {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil || v < 0 {
			return domain.Weights{}, fmt.Errorf("invalid %s", f.key)
		}
		*f.dst = v
	}
	if math.Abs(w.Sum()-1.0) > 1e-6 {
		return domain.Weights{}, fmt.Errorf("risk weights must sum to 1.0, got %g", w.Sum())
	}
	return w, nil
}

func parseResourceConstants() (domain.ResourceConstants, error) {
	c := domain.DefaultResourceConstants()
	for _, f := range []struct {
		key string
		dst *float64
	}{
		{"TRANSPORT_CAPACITY", &c.TransportCapacity},
		{"SHELTER_CAPACITY", &c.ShelterCapacity},
		{"RESPONDERS_PER_CAPITA", &c.RespondersPerCapita},
	} {
		s := os.Getenv(f.key)
		if s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return domain.ResourceConstants{}, fmt.Errorf("invalid %s", f.key)
		}
		*f.dst = v
	}
	return c, nil
}

// parseEventClassOverrides parses "event type=class" pairs, e.g.
// "dust storm=minor,wind advisory=major".
func parseEventClassOverrides(s string) (map[string]domain.EventClass, error) {
	if s == "" {
		return nil, nil
	}
	out := make(map[string]domain.EventClass)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, val, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid EVENT_CLASS_OVERRIDES entry %q", pair)
		}
		switch domain.EventClass(val) {
		case domain.EventMinor, domain.EventMajor:
			out[key] = domain.EventClass(val)
		default:
			return nil, fmt.Errorf("invalid event class %q in EVENT_CLASS_OVERRIDES", val)
		}
	}
	return out, nil
}
