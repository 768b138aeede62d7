package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoogleGeocode_Rooftop(t *testing.T) {
	var req capture
	srv := jsonServer(t, `{
		"status": "OK",
		"results": [{
			"geometry": {
				"location": {"lat": 38.8977, "lng": -77.0365},
				"location_type": "ROOFTOP"
			},
			"formatted_address": "1600 Pennsylvania Avenue NW, Washington, DC 20500"
		}]
	}`, &req)

	p := newGoogleProvider(newTestTransport(srv, googleGeocodeURL), "test-key")
	result, err := p.Geocode(context.Background(), "1600 Pennsylvania Ave NW, Washington, DC 20500")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.InDelta(t, 38.8977, result.Latitude, 0.0001)
	assert.InDelta(t, -77.0365, result.Longitude, 0.0001)
	assert.Equal(t, "google", result.Source)
	assert.Equal(t, "rooftop", result.Quality)
	assert.Equal(t, "1600 Pennsylvania Avenue NW, Washington, DC 20500", result.MatchedAddress)
	assert.Equal(t, "test-key", req.last().URL.Query().Get("key"))
}

func TestGoogleGeocode_ZeroResults(t *testing.T) {
	srv := jsonServer(t, `{"status": "ZERO_RESULTS", "results": []}`, nil)

	p := newGoogleProvider(newTestTransport(srv, googleGeocodeURL), "test-key")
	result, err := p.Geocode(context.Background(), "000 Nonexistent, Nowhere, XX")
	require.NoError(t, err)
	assert.False(t, result.Matched)
}

func TestGoogleGeocode_RequestDenied(t *testing.T) {
	srv := jsonServer(t, `{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid.", "results": []}`, nil)

	p := newGoogleProvider(newTestTransport(srv, googleGeocodeURL), "bad-key")
	_, err := p.Geocode(context.Background(), "123 Main St, Test, CA")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED: The provided API key is invalid.")
}

func TestGoogleGeocode_OverQueryLimitRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"status": "OVER_QUERY_LIMIT", "results": []}`))
			return
		}
		_, _ = w.Write([]byte(`{"status": "OK", "results": [{"geometry": {"location": {"lat": 1, "lng": 2}, "location_type": "APPROXIMATE"}}]}`))
	}))
	defer srv.Close()

	p := newGoogleProvider(newTestTransport(srv, googleGeocodeURL), "test-key")
	result, err := p.Geocode(context.Background(), "123 Main St")
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, "approximate", result.Quality)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGoogleGeocode_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := newGoogleProvider(newTestTransport(srv, googleGeocodeURL), "test-key")
	_, err := p.Geocode(context.Background(), "123 Main St, Test, CA")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestGoogleGeocode_NoKey(t *testing.T) {
	p := newGoogleProvider(&transport{client: http.DefaultClient}, "")
	assert.False(t, p.Available())

	_, err := p.Geocode(context.Background(), "123 Main St, Test, CA")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}

func TestGoogleLocationTypeToQuality(t *testing.T) {
	tests := []struct {
		locType  string
		expected string
	}{
		{"ROOFTOP", "rooftop"},
		{"RANGE_INTERPOLATED", "range"},
		{"GEOMETRIC_CENTER", "centroid"},
		{"APPROXIMATE", "approximate"},
		{"UNKNOWN", "approximate"},
		{"", "approximate"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, googleLocationTypeToQuality(tt.locType), "location_type=%s", tt.locType)
	}
}
