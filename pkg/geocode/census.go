package geocode

import (
	"context"
	"net/url"
)

const (
	censusOneLineURL = "https://geocoding.geo.census.gov/geocoder/locations/onelineaddress"
	censusBenchmark  = "Public_AR_Current"
)

// censusOneLineResponse is the JSON response from the Census single-address API.
type censusOneLineResponse struct {
	Result struct {
		AddressMatches []censusAddressMatch `json:"addressMatches"`
	} `json:"result"`
}

type censusAddressMatch struct {
	Coordinates struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"coordinates"`
	MatchedAddress string `json:"matchedAddress"`
}

// CensusProvider geocodes US addresses via the Census Bureau one-line API.
type CensusProvider struct {
	t *transport
}

// newCensusProvider creates a CensusProvider.
func newCensusProvider(t *transport) *CensusProvider {
	return &CensusProvider{t: t}
}

// Name implements Provider.
func (p *CensusProvider) Name() string { return ProviderCensus }

// Available implements Provider.
func (p *CensusProvider) Available() bool { return true }

// Geocode implements Provider.
func (p *CensusProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if blank(address) {
		return &Result{Matched: false, Source: ProviderCensus}, nil
	}

	params := url.Values{
		"address":   {address},
		"benchmark": {censusBenchmark},
		"format":    {"json"},
	}

	var resp censusOneLineResponse
	err := p.t.do(ctx, ProviderCensus, func(ctx context.Context) error {
		return p.t.getJSON(ctx, ProviderCensus, censusOneLineURL, params, &resp)
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Result.AddressMatches) == 0 {
		return &Result{Matched: false, Source: ProviderCensus}, nil
	}

	match := resp.Result.AddressMatches[0]
	return &Result{
		Latitude:       match.Coordinates.Y,
		Longitude:      match.Coordinates.X,
		Source:         ProviderCensus,
		Quality:        "range", // interpolated along the TIGER street segment
		MatchedAddress: match.MatchedAddress,
		Matched:        true,
	}, nil
}
