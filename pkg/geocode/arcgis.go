package geocode

import (
	"context"
	"net/url"

	"github.com/rotisserie/eris"
)

const arcgisFindURL = "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer/findAddressCandidates"

// arcgisResponse is the JSON response from findAddressCandidates. Service
// errors arrive with status 200 and an "error" object.
type arcgisResponse struct {
	Candidates []arcgisCandidate `json:"candidates"`
	Error      *arcgisError      `json:"error"`
}

type arcgisCandidate struct {
	Address  string `json:"address"`
	Location struct {
		X float64 `json:"x"` // longitude
		Y float64 `json:"y"` // latitude
	} `json:"location"`
	Score      float64 `json:"score"`
	Attributes struct {
		AddrType string `json:"Addr_type"`
	} `json:"attributes"`
}

type arcgisError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

// ArcGISProvider geocodes via the Esri World Geocoding Service.
type ArcGISProvider struct {
	t     *transport
	token string
}

// newArcGISProvider creates an ArcGISProvider. token may be empty.
func newArcGISProvider(t *transport, token string) *ArcGISProvider {
	return &ArcGISProvider{t: t, token: token}
}

// Name implements Provider.
func (p *ArcGISProvider) Name() string { return ProviderArcGIS }

// Available implements Provider.
func (p *ArcGISProvider) Available() bool { return true }

// Geocode implements Provider. The best-ranked candidate is taken as-is.
func (p *ArcGISProvider) Geocode(ctx context.Context, address string) (*Result, error) {
	if blank(address) {
		return &Result{Matched: false, Source: ProviderArcGIS}, nil
	}

	params := url.Values{
		"SingleLine":   {address},
		"f":            {"json"},
		"maxLocations": {"1"},
		"outFields":    {"Addr_type"},
	}
	if p.token != "" {
		params.Set("token", p.token)
	}

	var resp arcgisResponse
	err := p.t.do(ctx, ProviderArcGIS, func(ctx context.Context) error {
		return p.t.getJSON(ctx, ProviderArcGIS, arcgisFindURL, params, &resp)
	})
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, eris.Errorf("geocode: arcgis error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 {
		return &Result{Matched: false, Source: ProviderArcGIS}, nil
	}

	c := resp.Candidates[0]
	return &Result{
		Latitude:       c.Location.Y,
		Longitude:      c.Location.X,
		Source:         ProviderArcGIS,
		Quality:        arcgisAddrTypeToQuality(c.Attributes.AddrType),
		MatchedAddress: c.Address,
		Matched:        true,
	}, nil
}

// arcgisAddrTypeToQuality maps Esri's Addr_type to our quality taxonomy.
func arcgisAddrTypeToQuality(addrType string) string {
	switch addrType {
	case "PointAddress", "Subaddress":
		return "rooftop"
	case "StreetAddress", "StreetAddressExt", "StreetInt":
		return "range"
	case "StreetName", "PostalExt", "Postal", "Locality", "POI":
		return "centroid"
	default:
		return "approximate"
	}
}
