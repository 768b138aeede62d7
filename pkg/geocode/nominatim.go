package geocode

import (
	"context"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/text/language"
)

const nominatimSearchURL = "https://nominatim.openstreetmap.org/search"

// nominatimResult is one entry of the jsonv2 search response. Coordinates
// are sent as strings.
type nominatimResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
	PlaceRank   int    `json:"place_rank"`
}

// NominatimProvider geocodes via OpenStreetMap Nominatim. The public
// instance requires an identifying User-Agent and at most one request per
// second.
type NominatimProvider struct {
	t    *transport
	lang language.Tag
}

// newNominatimProvider creates a NominatimProvider asking for US English
// display names.
func newNominatimProvider(t *transport) *NominatimProvider {
	return &NominatimProvider{t: t, lang: language.AmericanEnglish}
}

// Name implements Provider.
func (p *NominatimProvider) Name() string { return ProviderNominatim }

// Available implements Provider.
func (p *NominatimProvider) Available() bool { return true }

// Geocode implements Provider.
func (p *NominatimProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if blank(address) {
		return &Result{Matched: false, Source: ProviderNominatim}, nil
	}

	params := url.Values{
		"q":               {address},
		"format":          {"jsonv2"},
		"limit":           {"1"},
		"accept-language": {p.lang.String()},
	}

	var results []nominatimResult
	err := p.t.do(ctx, ProviderNominatim, func(ctx context.Context) error {
		return p.t.getJSON(ctx, ProviderNominatim, nominatimSearchURL, params, &results)
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &Result{Matched: false, Source: ProviderNominatim}, nil
	}

	r := results[0]
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse latitude")
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: nominatim parse longitude")
	}

	return &Result{
		Latitude:       lat,
		Longitude:      lon,
		Source:         ProviderNominatim,
		Quality:        nominatimRankToQuality(r.PlaceRank),
		MatchedAddress: r.DisplayName,
		Matched:        true,
	}, nil
}

// nominatimRankToQuality maps an OSM place_rank to our quality taxonomy:
// 30 is a building or house number, 26-27 a street.
func nominatimRankToQuality(rank int) string {
	switch {
	case rank >= 30:
		return "rooftop"
	case rank >= 26:
		return "range"
	case rank >= 16:
		return "centroid"
	default:
		return "approximate"
	}
}
