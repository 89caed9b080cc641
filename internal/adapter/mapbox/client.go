// Package mapbox adapts the Mapbox APIs for location resolution, nearby
// emergency-resource search, and evacuation routing.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

// Resolver turns a free-text location into coordinates.
type Resolver interface {
	Resolve(ctx context.Context, query string) (domain.ResolvedLocation, error)
}

// Client implements location resolution, place search, and directions over
// the Mapbox geocoding and directions APIs.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a Mapbox client.
func NewClient(token string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    "https://api.mapbox.com",
		logger:     logger,
	}
}

// Resolve forward-geocodes a location name. A query Mapbox finds nothing for
// returns a zero ResolvedLocation and no error; the caller decides whether
// that is fatal.
func (c *Client) Resolve(ctx context.Context, query string) (domain.ResolvedLocation, error) {
	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json", c.baseURL, url.PathEscape(query))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"1"},
		"types":        {"place,locality,region,address,neighborhood"},
	}

	var resp geocodeResponse
	if err := c.get(ctx, u+"?"+params.Encode(), &resp); err != nil {
		return domain.ResolvedLocation{}, fmt.Errorf("resolve %q: %w", query, err)
	}
	if len(resp.Features) == 0 {
		return domain.ResolvedLocation{}, nil
	}

	f := resp.Features[0]
	out := domain.ResolvedLocation{
		Name:       f.PlaceName,
		Confidence: f.Relevance,
	}
	if len(f.Center) == 2 {
		out.Lng = f.Center[0]
		out.Lat = f.Center[1]
	}
	return out, nil
}

// SearchNearby finds points of interest for a category (shelter, hospital)
// around a coordinate.
func (c *Client) SearchNearby(ctx context.Context, category string, lat, lng, radiusKm float64) ([]domain.Place, error) {
	u := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json", c.baseURL, url.PathEscape(category))
	params := url.Values{
		"access_token": {c.token},
		"limit":        {"5"},
		"types":        {"poi"},
		"proximity":    {fmt.Sprintf("%.6f,%.6f", lng, lat)},
	}

	var resp geocodeResponse
	if err := c.get(ctx, u+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("search %q: %w", category, err)
	}

	var out []domain.Place
	for _, f := range resp.Features {
		if len(f.Center) != 2 {
			continue
		}
		p := domain.Place{
			Name:    f.Text,
			Address: f.PlaceName,
			Lng:     f.Center[0],
			Lat:     f.Center[1],
		}
		p.DistanceKm = haversineKm(lat, lng, p.Lat, p.Lng)
		if radiusKm > 0 && p.DistanceKm > radiusKm {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// Directions computes a driving route between two coordinates.
func (c *Client) Directions(ctx context.Context, fromLat, fromLng, toLat, toLng float64) (domain.Route, error) {
	// Mapbox uses lng,lat order.
	u := fmt.Sprintf("%s/directions/v5/mapbox/driving/%.6f,%.6f;%.6f,%.6f",
		c.baseURL, fromLng, fromLat, toLng, toLat)
	params := url.Values{
		"access_token": {c.token},
		"overview":     {"simplified"},
		"steps":        {"true"},
	}

	var resp directionsResponse
	if err := c.get(ctx, u+"?"+params.Encode(), &resp); err != nil {
		return domain.Route{}, fmt.Errorf("directions: %w", err)
	}
	if len(resp.Routes) == 0 {
		return domain.Route{}, fmt.Errorf("no route found")
	}

	r := resp.Routes[0]
	out := domain.Route{
		DistanceKm: r.Distance / 1000,
		Duration:   time.Duration(r.Duration * float64(time.Second)),
	}
	if len(r.Legs) > 0 {
		out.Summary = r.Legs[0].Summary
		for _, s := range r.Legs[0].Steps {
			out.Steps = append(out.Steps, s.Maneuver.Instruction)
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, fullURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mapbox API error: status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

const earthRadiusKm = 6371

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Mapbox API response types.

type geocodeResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lng, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

type directionsResponse struct {
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
		Legs     []struct {
			Summary string `json:"summary"`
			Steps   []struct {
				Maneuver struct {
					Instruction string `json:"instruction"`
				} `json:"maneuver"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}
