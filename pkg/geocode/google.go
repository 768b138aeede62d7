package geocode

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bov-engine/internal/resilience"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// googleGeocodeResponse is the JSON response from the Google Geocoding API.
type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// GoogleProvider geocodes via the Google Geocoding API.
type GoogleProvider struct {
	t   *transport
	key string
}

// newGoogleProvider creates a GoogleProvider with the given API key.
func newGoogleProvider(t *transport, key string) *GoogleProvider {
	return &GoogleProvider{t: t, key: key}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string { return ProviderGoogle }

// Available implements Provider. It is false without an API key.
func (p *GoogleProvider) Available() bool { return p.key != "" }

// Geocode implements Provider.
func (p *GoogleProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if p.key == "" {
		return nil, eris.New("geocode: google api key not configured")
	}
	if blank(address) {
		return &Result{Matched: false, Source: ProviderGoogle}, nil
	}

	params := url.Values{
		"address": {address},
		"key":     {p.key},
	}

	var resp googleGeocodeResponse
	err := p.t.do(ctx, ProviderGoogle, func(ctx context.Context) error {
		resp = googleGeocodeResponse{}
		if err := p.t.getJSON(ctx, ProviderGoogle, googleGeocodeURL, params, &resp); err != nil {
			return err
		}
		switch resp.Status {
		case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
			return resilience.NewTransientError(eris.Errorf("geocode: google status %s", resp.Status), 0)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
	case "ZERO_RESULTS":
		return &Result{Matched: false, Source: ProviderGoogle}, nil
	default:
		if resp.ErrorMessage != "" {
			return nil, eris.Errorf("geocode: google status %s: %s", resp.Status, resp.ErrorMessage)
		}
		return nil, eris.Errorf("geocode: google status %s", resp.Status)
	}
	if len(resp.Results) == 0 {
		return &Result{Matched: false, Source: ProviderGoogle}, nil
	}

	result := resp.Results[0]
	return &Result{
		Latitude:       result.Geometry.Location.Lat,
		Longitude:      result.Geometry.Location.Lng,
		Source:         ProviderGoogle,
		Quality:        googleLocationTypeToQuality(result.Geometry.LocationType),
		MatchedAddress: result.FormattedAddress,
		Matched:        true,
	}, nil
}

// googleLocationTypeToQuality maps Google's location_type to our quality taxonomy.
func googleLocationTypeToQuality(locType string) string {
	switch strings.ToUpper(locType) {
	case "ROOFTOP":
		return "rooftop"
	case "RANGE_INTERPOLATED":
		return "range"
	case "GEOMETRIC_CENTER":
		return "centroid"
	default:
		return "approximate"
	}
}
