package mapbox

import (
	"context"
	"errors"

	"github.com/couchcryptid/weather-insights-service/internal/gateway"
)

// LocationProvider serves location resolution through a Resolver, normally
// the cached one.
type LocationProvider struct {
	resolver Resolver
}

// NewLocationProvider wraps a resolver as the location provider.
func NewLocationProvider(resolver Resolver) *LocationProvider {
	return &LocationProvider{resolver: resolver}
}

func (p *LocationProvider) Name() string { return gateway.ProviderLocation }

func (p *LocationProvider) Query(ctx context.Context, q gateway.Query) (gateway.Response, error) {
	if q.Raw == "" {
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("location query requires text"))
	}
	loc, err := p.resolver.Resolve(ctx, q.Raw)
	if err != nil {
		return gateway.Response{}, err
	}
	if loc.Name == "" {
		// Unresolvable is a successful lookup with no result; the
		// orchestrator maps the nil location to its own failure kind.
		return gateway.Response{}, nil
	}
	return gateway.Response{Location: &loc}, nil
}

// ResourcesProvider serves nearby shelter and hospital searches.
type ResourcesProvider struct {
	client *Client
}

// NewResourcesProvider wraps a Mapbox client as the resources provider.
func NewResourcesProvider(client *Client) *ResourcesProvider {
	return &ResourcesProvider{client: client}
}

func (p *ResourcesProvider) Name() string { return gateway.ProviderResources }

func (p *ResourcesProvider) Query(ctx context.Context, q gateway.Query) (gateway.Response, error) {
	if !q.HasCoords {
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("resource search requires coordinates"))
	}
	if q.Category == "" {
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("resource search requires a category"))
	}
	places, err := p.client.SearchNearby(ctx, q.Category, q.Lat, q.Lng, q.RadiusKm)
	if err != nil {
		return gateway.Response{}, err
	}
	return gateway.Response{Places: places}, nil
}

// DirectionsProvider serves evacuation routing. The destination arrives as
// text and is resolved before the route is computed.
type DirectionsProvider struct {
	client   *Client
	resolver Resolver
}

// NewDirectionsProvider wraps a Mapbox client as the directions provider.
func NewDirectionsProvider(client *Client, resolver Resolver) *DirectionsProvider {
	return &DirectionsProvider{client: client, resolver: resolver}
}

func (p *DirectionsProvider) Name() string { return gateway.ProviderDirections }

func (p *DirectionsProvider) Query(ctx context.Context, q gateway.Query) (gateway.Response, error) {
	if !q.HasCoords {
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("directions require origin coordinates"))
	}
	if q.Destination == "" {
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("directions require a destination"))
	}

	dest, err := p.resolver.Resolve(ctx, q.Destination)
	if err != nil {
		return gateway.Response{}, err
	}
	if dest.Name == "" {
		return gateway.Response{}, gateway.InvalidQuery(p.Name(), errors.New("destination could not be resolved"))
	}

	route, err := p.client.Directions(ctx, q.Lat, q.Lng, dest.Lat, dest.Lng)
	if err != nil {
		return gateway.Response{}, err
	}
	return gateway.Response{Route: &route}, nil
}
