package census

import (
	"context"
	"errors"

	"github.com/couchcryptid/weather-insights-service/internal/gateway"
)

// DemographicsProvider serves population and vulnerability queries.
type DemographicsProvider struct {
	client *Client
}

// NewDemographicsProvider wraps a census client as the demographics provider.
func NewDemographicsProvider(client *Client) *DemographicsProvider {
	return &DemographicsProvider{client: client}
}

func (p *DemographicsProvider) Name() string { return gateway.ProviderDemographics }

func (p *DemographicsProvider) Query(ctx context.Context, q gateway.Query) (gateway.Response, error) {
	if !q.HasCoords {
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("demographics query requires coordinates"))
	}
	set, err := p.client.Demographics(ctx, q.Lat, q.Lng, q.RadiusKm)
	if err != nil {
		return gateway.Response{}, err
	}
	return gateway.Response{Units: set.Units, Partial: set.Partial, Note: set.Note}, nil
}

// HistoricalProvider serves historical hazard record queries.
type HistoricalProvider struct {
	client *Client
}

// NewHistoricalProvider wraps a census client as the historical provider.
func NewHistoricalProvider(client *Client) *HistoricalProvider {
	return &HistoricalProvider{client: client}
}

func (p *HistoricalProvider) Name() string { return gateway.ProviderHistorical }

func (p *HistoricalProvider) Query(ctx context.Context, q gateway.Query) (gateway.Response, error) {
	if !q.HasCoords {
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("historical query requires coordinates"))
	}
	set, err := p.client.Historical(ctx, q.Lat, q.Lng, q.EventType, q.TimeWindowDays)
	if err != nil {
		return gateway.Response{}, err
	}
	return gateway.Response{Units: set.Units, Partial: set.Partial, Note: set.Note}, nil
}
