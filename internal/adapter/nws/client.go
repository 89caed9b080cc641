// Package nws adapts the National Weather Service API. Forecasts are a
// two-step lookup: /points/{lat},{lng} resolves the gridpoint forecast URL,
// which is then fetched for the period data. Alerts come from
// /alerts/active, by point or by state area.
package nws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
)

// Client talks to the NWS API. The NWS requires an identifying User-Agent
// header on every request.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an NWS API client.
func NewClient(baseURL, userAgent string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Forecast fetches the gridpoint forecast for a coordinate. Set hourly for
// the hour-by-hour product instead of the half-day periods.
func (c *Client) Forecast(ctx context.Context, lat, lng float64, hourly bool) (domain.Forecast, error) {
	var point pointResponse
	u := fmt.Sprintf("%s/points/%.4f,%.4f", c.baseURL, lat, lng)
	if err := c.get(ctx, u, &point); err != nil {
		return domain.Forecast{}, fmt.Errorf("resolve gridpoint: %w", err)
	}

	forecastURL := point.Properties.Forecast
	if hourly {
		forecastURL = point.Properties.ForecastHourly
	}
	if forecastURL == "" {
		return domain.Forecast{}, fmt.Errorf("gridpoint %.4f,%.4f has no forecast URL", lat, lng)
	}

	var fc forecastResponse
	if err := c.get(ctx, forecastURL, &fc); err != nil {
		return domain.Forecast{}, fmt.Errorf("fetch forecast: %w", err)
	}

	out := domain.Forecast{
		Location: relativeLocationName(point),
		Updated:  fc.Properties.Updated,
	}
	for _, p := range fc.Properties.Periods {
		out.Periods = append(out.Periods, domain.ForecastPeriod{
			Name:              p.Name,
			Temperature:       p.Temperature,
			TemperatureUnit:   p.TemperatureUnit,
			WindSpeed:         p.WindSpeed,
			WindDirection:     p.WindDirection,
			ShortForecast:     p.ShortForecast,
			DetailedForecast:  p.DetailedForecast,
			PrecipProbability: p.ProbabilityOfPrecipitation.IntValue(),
		})
	}
	return out, nil
}

// AlertsByPoint fetches active alerts covering a coordinate.
func (c *Client) AlertsByPoint(ctx context.Context, lat, lng float64) ([]domain.Alert, error) {
	u := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f", c.baseURL, lat, lng)
	return c.alerts(ctx, u)
}

// AlertsByArea fetches active alerts for a two-letter state or marine area
// code.
func (c *Client) AlertsByArea(ctx context.Context, area string) ([]domain.Alert, error) {
	u := fmt.Sprintf("%s/alerts/active?area=%s", c.baseURL, url.QueryEscape(area))
	return c.alerts(ctx, u)
}

func (c *Client) alerts(ctx context.Context, u string) ([]domain.Alert, error) {
	var resp alertResponse
	if err := c.get(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("fetch alerts: %w", err)
	}

	out := make([]domain.Alert, 0, len(resp.Features))
	for _, f := range resp.Features {
		out = append(out, domain.Alert{
			Event:       f.Properties.Event,
			Severity:    f.Properties.Severity,
			Urgency:     f.Properties.Urgency,
			Certainty:   f.Properties.Certainty,
			Headline:    f.Properties.Headline,
			Description: f.Properties.Description,
			Instruction: f.Properties.Instruction,
			Onset:       f.Properties.Onset,
			Expires:     f.Properties.Expires,
			SenderName:  f.Properties.SenderName,
		})
	}
	return out, nil
}

const maxTrackAdvisories = 5

// HurricaneTrack fetches issued tropical cyclone forecast/advisory (TCM)
// products. The public API carries no projected track, so the summary is
// inherently partial; full tracks live in National Hurricane Center data.
func (c *Client) HurricaneTrack(ctx context.Context) (domain.HurricaneTrack, error) {
	var products productsResponse
	u := fmt.Sprintf("%s/products/types/TCM", c.baseURL)
	if err := c.get(ctx, u, &products); err != nil {
		return domain.HurricaneTrack{}, fmt.Errorf("fetch tropical cyclone products: %w", err)
	}

	advisories := make([]string, 0, maxTrackAdvisories)
	for _, p := range products.Graph {
		if len(advisories) == maxTrackAdvisories {
			break
		}
		advisories = append(advisories, fmt.Sprintf("%s issued %s by %s",
			p.ProductName, p.IssuanceTime, p.IssuingOffice))
	}
	return domain.HurricaneTrack{
		Advisories: advisories,
		Note:       "Full projected track requires National Hurricane Center data",
	}, nil
}

func (c *Client) get(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("nws API error: status %d: %s", resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

func relativeLocationName(p pointResponse) string {
	rel := p.Properties.RelativeLocation.Properties
	if rel.City == "" {
		return ""
	}
	if rel.State == "" {
		return rel.City
	}
	return rel.City + ", " + rel.State
}

// NWS API response types.

type pointResponse struct {
	Properties struct {
		Forecast         string `json:"forecast"`
		ForecastHourly   string `json:"forecastHourly"`
		RelativeLocation struct {
			Properties struct {
				City  string `json:"city"`
				State string `json:"state"`
			} `json:"properties"`
		} `json:"relativeLocation"`
	} `json:"properties"`
}

type forecastResponse struct {
	Properties struct {
		Updated time.Time `json:"updated"`
		Periods []struct {
			Name                       string      `json:"name"`
			Temperature                int         `json:"temperature"`
			TemperatureUnit            string      `json:"temperatureUnit"`
			WindSpeed                  string      `json:"windSpeed"`
			WindDirection              string      `json:"windDirection"`
			ShortForecast              string      `json:"shortForecast"`
			DetailedForecast           string      `json:"detailedForecast"`
			ProbabilityOfPrecipitation nullableInt `json:"probabilityOfPrecipitation"`
		} `json:"periods"`
	} `json:"properties"`
}

// nullableInt handles the NWS quantitative value wrapper, whose value is
// null when no probability is forecast.
type nullableInt struct {
	Value *int `json:"value"`
}

func (n nullableInt) IntValue() int {
	if n.Value == nil {
		return 0
	}
	return *n.Value
}

type alertResponse struct {
	Features []struct {
		Properties struct {
			Event       string    `json:"event"`
			Severity    string    `json:"severity"`
			Urgency     string    `json:"urgency"`
			Certainty   string    `json:"certainty"`
			Headline    string    `json:"headline"`
			Description string    `json:"description"`
			Instruction string    `json:"instruction"`
			Onset       time.Time `json:"onset"`
			Expires     time.Time `json:"expires"`
			SenderName  string    `json:"senderName"`
		} `json:"properties"`
	} `json:"features"`
}

type productsResponse struct {
	Graph []struct {
		ProductName   string `json:"productName"`
		IssuanceTime  string `json:"issuanceTime"`
		IssuingOffice string `json:"issuingOffice"`
	} `json:"@graph"`
}
