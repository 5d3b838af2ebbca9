package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/hazard-intel-service/internal/domain"
	"github.com/couchcryptid/hazard-intel-service/internal/observability"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPrimaryClient_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "Marina Beach.json")
		assert.Equal(t, "test-token", r.URL.Query().Get("access_token"))

		_, _ = w.Write([]byte(`{
			"features": [{
				"center": [80.2833, 13.0500],
				"place_name": "Marina Beach, Chennai, Tamil Nadu, India",
				"text": "Marina Beach",
				"relevance": 0.98
			}]
		}`))
	}))
	defer srv.Close()

	client := NewPrimaryClient(srv.URL, "test-token", time.Second, discardLogger(), observability.NewMetricsForTesting())
	result, err := client.Geocode(context.Background(), "Marina Beach")
	require.NoError(t, err)

	assert.Equal(t, 13.05, result.Lat)
	assert.Equal(t, 80.2833, result.Lon)
	assert.Equal(t, "Marina Beach", result.PlaceName)
	assert.Equal(t, 0.98, result.Confidence)
}

func TestPrimaryClient_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features": []}`))
	}))
	defer srv.Close()

	client := NewPrimaryClient(srv.URL, "test-token", time.Second, discardLogger(), observability.NewMetricsForTesting())
	result, err := client.Geocode(context.Background(), "nowhere at all")
	require.NoError(t, err)
	assert.Empty(t, result.FormattedAddress)
}

func TestPrimaryClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewPrimaryClient(srv.URL, "bad-token", time.Second, discardLogger(), observability.NewMetricsForTesting())
	_, err := client.Geocode(context.Background(), "Marina Beach")
	require.Error(t, err)
}

func TestFallbackClient_Geocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Kochi", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		_, _ = w.Write([]byte(`[{
			"lat": "9.9312",
			"lon": "76.2673",
			"display_name": "Kochi, Ernakulam, Kerala, India",
			"name": "Kochi",
			"importance": 0.72
		}]`))
	}))
	defer srv.Close()

	client := NewFallbackClient(srv.URL, time.Second, discardLogger(), observability.NewMetricsForTesting())
	result, err := client.Geocode(context.Background(), "Kochi")
	require.NoError(t, err)

	assert.Equal(t, 9.9312, result.Lat)
	assert.Equal(t, 76.2673, result.Lon)
	assert.Equal(t, "Kochi", result.PlaceName)
}

func TestFallbackClient_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	client := NewFallbackClient(srv.URL, time.Second, discardLogger(), observability.NewMetricsForTesting())
	result, err := client.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	assert.Empty(t, result.FormattedAddress)
}

type stubGeocoder struct {
	result domain.GeocodingResult
	err    error
	calls  atomic.Int32
}

func (s *stubGeocoder) Geocode(_ context.Context, _ string) (domain.GeocodingResult, error) {
	s.calls.Add(1)
	return s.result, s.err
}

func TestChain_PrimaryWins(t *testing.T) {
	primary := &stubGeocoder{result: domain.GeocodingResult{Lat: 13.05, Lon: 80.28, FormattedAddress: "Chennai"}}
	fallback := &stubGeocoder{result: domain.GeocodingResult{Lat: 1, Lon: 1, FormattedAddress: "Wrong"}}

	chain := NewChain(discardLogger(), primary, fallback)
	result, err := chain.Geocode(context.Background(), "Chennai")
	require.NoError(t, err)

	assert.Equal(t, "Chennai", result.FormattedAddress)
	assert.Equal(t, int32(0), fallback.calls.Load())
}

func TestChain_FallsBackOnError(t *testing.T) {
	primary := &stubGeocoder{err: errors.New("quota exceeded")}
	fallback := &stubGeocoder{result: domain.GeocodingResult{Lat: 9.93, Lon: 76.26, FormattedAddress: "Kochi"}}

	chain := NewChain(discardLogger(), primary, fallback)
	result, err := chain.Geocode(context.Background(), "Kochi")
	require.NoError(t, err)
	assert.Equal(t, "Kochi", result.FormattedAddress)
}

func TestChain_FallsBackOnEmptyResult(t *testing.T) {
	primary := &stubGeocoder{}
	fallback := &stubGeocoder{result: domain.GeocodingResult{Lat: 9.93, Lon: 76.26, FormattedAddress: "Kochi"}}

	chain := NewChain(discardLogger(), primary, fallback)
	result, err := chain.Geocode(context.Background(), "Kochi")
	require.NoError(t, err)
	assert.Equal(t, "Kochi", result.FormattedAddress)
}

func TestChain_AllProvidersFail(t *testing.T) {
	primary := &stubGeocoder{err: errors.New("down")}
	fallback := &stubGeocoder{err: errors.New("also down")}

	chain := NewChain(discardLogger(), primary, fallback)
	_, err := chain.Geocode(context.Background(), "Chennai")
	require.Error(t, err)
}

func TestChain_SkipsNilProviders(t *testing.T) {
	fallback := &stubGeocoder{result: domain.GeocodingResult{FormattedAddress: "Kochi", Lat: 9.93, Lon: 76.26}}

	chain := NewChain(discardLogger(), nil, fallback)
	result, err := chain.Geocode(context.Background(), "Kochi")
	require.NoError(t, err)
	assert.Equal(t, "Kochi", result.FormattedAddress)
}

func TestCachedGeocoder(t *testing.T) {
	inner := &stubGeocoder{result: domain.GeocodingResult{Lat: 13.05, Lon: 80.28, FormattedAddress: "Chennai"}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	for i := 0; i < 3; i++ {
		result, err := cached.Geocode(context.Background(), "Chennai")
		require.NoError(t, err)
		assert.Equal(t, "Chennai", result.FormattedAddress)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedGeocoder_KeyIsCaseInsensitive(t *testing.T) {
	inner := &stubGeocoder{result: domain.GeocodingResult{FormattedAddress: "Chennai", Lat: 13.05, Lon: 80.28}}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Geocode(context.Background(), "Chennai")
	require.NoError(t, err)
	_, err = cached.Geocode(context.Background(), "  chennai ")
	require.NoError(t, err)

	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedGeocoder_DoesNotCacheEmptyResults(t *testing.T) {
	inner := &stubGeocoder{}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, err := cached.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)
	_, err = cached.Geocode(context.Background(), "nowhere")
	require.NoError(t, err)

	assert.Equal(t, int32(2), inner.calls.Load())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := newLRUCache(2)
	a := domain.GeocodingResult{FormattedAddress: "A"}
	b := domain.GeocodingResult{FormattedAddress: "B"}
	c := domain.GeocodingResult{FormattedAddress: "C"}

	cache.put("a", a)
	cache.put("b", b)

	// Touch "a" so "b" becomes least recently used.
	_, ok := cache.get("a")
	require.True(t, ok)

	cache.put("c", c)

	_, ok = cache.get("b")
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = cache.get("a")
	assert.True(t, ok)
	_, ok = cache.get("c")
	assert.True(t, ok)
}
