package geocode

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCensusGeocode_Match(t *testing.T) {
	var req capture
	srv := jsonServer(t, `{
		"result": {
			"addressMatches": [{
				"coordinates": {"x": -77.0365, "y": 38.8977},
				"matchedAddress": "1600 PENNSYLVANIA AVE NW, WASHINGTON, DC, 20500"
			}]
		}
	}`, &req)

	p := newCensusProvider(newTestTransport(srv, censusOneLineURL))
	result, err := p.Geocode(context.Background(), "1600 Pennsylvania Ave NW, Washington, DC 20500")
	require.NoError(t, err)

	assert.True(t, result.Matched)
	assert.InDelta(t, 38.8977, result.Latitude, 0.0001)
	assert.InDelta(t, -77.0365, result.Longitude, 0.0001)
	assert.Equal(t, "census", result.Source)
	assert.Equal(t, "range", result.Quality)
	assert.Equal(t, "1600 PENNSYLVANIA AVE NW, WASHINGTON, DC, 20500", result.MatchedAddress)

	q := req.last().URL.Query()
	assert.Equal(t, "1600 Pennsylvania Ave NW, Washington, DC 20500", q.Get("address"))
	assert.Equal(t, censusBenchmark, q.Get("benchmark"))
	assert.Equal(t, "json", q.Get("format"))
}

func TestCensusGeocode_NoMatch(t *testing.T) {
	srv := jsonServer(t, `{"result": {"addressMatches": []}}`, nil)

	p := newCensusProvider(newTestTransport(srv, censusOneLineURL))
	result, err := p.Geocode(context.Background(), "000 Nonexistent, Nowhere, XX")
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Equal(t, "census", result.Source)
}

func TestCensusGeocode_BadJSON(t *testing.T) {
	srv := jsonServer(t, `not json`, nil)

	p := newCensusProvider(newTestTransport(srv, censusOneLineURL))
	_, err := p.Geocode(context.Background(), "1 Main St")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "census parse response")
}
