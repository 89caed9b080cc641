package nws

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
	"github.com/couchcryptid/weather-insights-service/internal/gateway"
)

// ForecastProvider serves gateway forecast queries from the NWS client.
type ForecastProvider struct {
	client *Client
}

// NewForecastProvider wraps an NWS client as the forecast provider.
func NewForecastProvider(client *Client) *ForecastProvider {
	return &ForecastProvider{client: client}
}

func (p *ForecastProvider) Name() string { return gateway.ProviderForecast }

func (p *ForecastProvider) Query(ctx context.Context, q gateway.Query) (gateway.Response, error) {
	if !q.HasCoords {
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("forecast query requires coordinates"))
	}
	fc, err := p.client.Forecast(ctx, q.Lat, q.Lng, q.Hourly)
	if err != nil {
		return gateway.Response{}, err
	}
	return gateway.Response{Forecast: &fc}, nil
}

// AlertsProvider serves gateway alert queries: by point when coordinates are
// known, by state area otherwise.
type AlertsProvider struct {
	client *Client
}

// NewAlertsProvider wraps an NWS client as the alerts provider.
func NewAlertsProvider(client *Client) *AlertsProvider {
	return &AlertsProvider{client: client}
}

func (p *AlertsProvider) Name() string { return gateway.ProviderAlerts }

func (p *AlertsProvider) Query(ctx context.Context, q gateway.Query) (gateway.Response, error) {
	var (
		alerts []domain.Alert
		err    error
	)
	switch {
	case q.HasCoords:
		alerts, err = p.client.AlertsByPoint(ctx, q.Lat, q.Lng)
	case q.Area != "":
		area, ok := stateCode(q.Area)
		if !ok {
			return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("area is not a recognized state"))
		}
		alerts, err = p.client.AlertsByArea(ctx, area)
	default:
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("alerts query requires coordinates or an area"))
	}
	if err != nil {
		return gateway.Response{}, err
	}

	if q.EventType != "" {
		alerts = filterByEvent(alerts, q.EventType)
	}
	return gateway.Response{Alerts: alerts}, nil
}

func filterByEvent(alerts []domain.Alert, eventType string) []domain.Alert {
	want := strings.ToLower(eventType)
	out := alerts[:0:0]
	for _, a := range alerts {
		if strings.Contains(strings.ToLower(a.Event), want) {
			out = append(out, a)
		}
	}
	return out
}

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID",
	"illinois": "IL", "indiana": "IN", "iowa": "IA", "kansas": "KS",
	"kentucky": "KY", "louisiana": "LA", "maine": "ME", "maryland": "MD",
	"massachusetts": "MA", "michigan": "MI", "minnesota": "MN", "mississippi": "MS",
	"missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK",
	"oregon": "OR", "pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC",
	"south dakota": "SD", "tennessee": "TN", "texas": "TX", "utah": "UT",
	"vermont": "VT", "virginia": "VA", "washington": "WA", "west virginia": "WV",
	"wisconsin": "WI", "wyoming": "WY",
}

var stateCodeRe = regexp.MustCompile(`^[A-Z]{2}$`)

// stateCode maps an area string to the two-letter code the alerts endpoint
// expects: either already a code ("CA", possibly trailing a city name:
// "Miami, FL") or a full state name ("California").
func stateCode(area string) (string, bool) {
	area = strings.TrimSpace(area)
	if code, ok := stateNames[strings.ToLower(area)]; ok {
		return code, true
	}
	upper := strings.ToUpper(area)
	if stateCodeRe.MatchString(upper) {
		return upper, true
	}
	if _, suffix, ok := strings.Cut(area, ","); ok {
		return stateCode(suffix)
	}
	return "", false
}

// TrackProvider serves tropical-cyclone advisory summaries. Every response
// is partial: the advisory products carry no projected track.
type TrackProvider struct {
	client *Client
}

// NewTrackProvider wraps an NWS client as the hurricane track provider.
func NewTrackProvider(client *Client) *TrackProvider {
	return &TrackProvider{client: client}
}

func (p *TrackProvider) Name() string { return gateway.ProviderTrack }

func (p *TrackProvider) Query(ctx context.Context, _ gateway.Query) (gateway.Response, error) {
	track, err := p.client.HurricaneTrack(ctx)
	if err != nil {
		return gateway.Response{}, err
	}
	return gateway.Response{
		Provider: gateway.ProviderTrack,
		Partial:  true,
		Note:     track.Note,
		Track:    &track,
	}, nil
}
