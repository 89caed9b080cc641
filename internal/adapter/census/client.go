// Package census adapts the internal census-records service that fronts the
// demographic and historical hazard datasets. Responses carry an explicit
// partial flag when the service could not cover every tract in scope; that
// flag is propagated, never swallowed.
package census

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

// Client talks to the census-records HTTP service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a census-records client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UnitSet is a set of geographic units plus the coverage flag.
type UnitSet struct {
	Units   []domain.GeoUnit
	Partial bool
	Note    string
}

// Demographics fetches population and vulnerable-share data for the tracts
// around a coordinate.
func (c *Client) Demographics(ctx context.Context, lat, lng, radiusKm float64) (UnitSet, error) {
	params := url.Values{
		"lat": {formatCoord(lat)},
		"lng": {formatCoord(lng)},
	}
	if radiusKm > 0 {
		params.Set("radius_km", strconv.FormatFloat(radiusKm, 'f', 1, 64))
	}
	return c.fetch(ctx, "/demographics", params)
}

// Historical fetches historical hazard severity and projected-path membership
// for the tracts around a coordinate.
func (c *Client) Historical(ctx context.Context, lat, lng float64, eventType string, windowDays int) (UnitSet, error) {
	params := url.Values{
		"lat": {formatCoord(lat)},
		"lng": {formatCoord(lng)},
	}
	if eventType != "" {
		params.Set("event_type", eventType)
	}
	if windowDays > 0 {
		params.Set("window_days", strconv.Itoa(windowDays))
	}
	return c.fetch(ctx, "/historical", params)
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) (UnitSet, error) {
	u := c.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return UnitSet{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UnitSet{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return UnitSet{}, fmt.Errorf("census API error: status %d: %s", resp.StatusCode, body)
	}

	var body unitSetResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return UnitSet{}, fmt.Errorf("decode response: %w", err)
	}

	out := UnitSet{Partial: body.Partial, Note: body.Note}
	for _, u := range body.Units {
		out.Units = append(out.Units, domain.GeoUnit{
			ID:                 u.ID,
			Name:               u.Name,
			Population:         u.Population,
			VulnerablePct:      u.VulnerablePct,
			HistoricalSeverity: u.HistoricalSeverity,
			InHazardPath:       u.InHazardPath,
			Partial:            u.Partial,
			Details:            u.Details,
		})
	}
	return out, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

type unitSetResponse struct {
	Units []struct {
		ID                 string         `json:"id"`
		Name               string         `json:"name"`
		Population         int            `json:"population"`
		VulnerablePct      float64        `json:"vulnerablePct"`
		HistoricalSeverity float64        `json:"historicalSeverity"`
		InHazardPath       bool           `json:"inHazardPath"`
		Partial            bool           `json:"partial"`
		Details            map[string]any `json:"details"`
	} `json:"units"`
	Partial bool   `json:"partial"`
	Note    string `json:"note"`
}
