package mapbox

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-insights-service/internal/domain"
	"github.com/couchcryptid/weather-insights-service/internal/observability"
)

// --- mock for cache tests ---

type countingResolver struct {
	calls  int
	result domain.ResolvedLocation
}

func (m *countingResolver) Resolve(_ context.Context, _ string) (domain.ResolvedLocation, error) {
	m.calls++
	return m.result, nil
}

// --- CachedResolver tests ---

func TestCachedResolver_CacheHit(t *testing.T) {
	inner := &countingResolver{
		result: domain.ResolvedLocation{Name: "Miami, Florida", Lat: 25.77, Lng: -80.19, Confidence: 0.9},
	}
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	r1, err := cached.Resolve(context.Background(), "Miami, FL")
	require.NoError(t, err)
	assert.Equal(t, "Miami, Florida", r1.Name)

	r2, err := cached.Resolve(context.Background(), "Miami, FL")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.calls, "should only call inner once")
}

func TestCachedResolver_KeyIsNormalized(t *testing.T) {
	inner := &countingResolver{result: domain.ResolvedLocation{Name: "Miami, Florida"}}
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Resolve(context.Background(), "Miami, FL")
	require.NoError(t, err)
	_, err = cached.Resolve(context.Background(), "  MIAMI, fl ")
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedResolver_DoesNotCacheEmptyResults(t *testing.T) {
	inner := &countingResolver{} // zero result: unresolvable
	cached := NewCachedResolver(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Resolve(context.Background(), "Nowhereville")
	require.NoError(t, err)
	_, err = cached.Resolve(context.Background(), "Nowhereville")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls, "unresolved lookups are retried")
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", domain.ResolvedLocation{Name: "A"})
	c.put("b", domain.ResolvedLocation{Name: "B"})

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := c.get("a")
	require.True(t, ok)

	c.put("c", domain.ResolvedLocation{Name: "C"})

	_, ok = c.get("b")
	assert.False(t, ok, "least recently used entry evicted")
	_, ok = c.get("a")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestLRUCache_UpdateExistingKey(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", domain.ResolvedLocation{Name: "A"})
	c.put("a", domain.ResolvedLocation{Name: "A2"})

	got, ok := c.get("a")
	require.True(t, ok)
	assert.Equal(t, "A2", got.Name)
	assert.Len(t, c.entries, 1)
}

func TestLRUCache_ConcurrentAccess(t *testing.T) {
	c := newLRUCache(16)
	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", (i+j)%32)
				c.put(key, domain.ResolvedLocation{Name: key})
				c.get(key)
			}
		}(i)
	}
	for i := 0; i < 8; i++ {
		<-done
	}
}
