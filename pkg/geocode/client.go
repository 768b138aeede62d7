// Package geocode resolves free-text street addresses to WGS84 coordinates
// through public geocoding services (ArcGIS, US Census, Google, Nominatim).
package geocode

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bov-engine/internal/resilience"
)

// Provider names accepted by WithProviders.
const (
	ProviderArcGIS    = "arcgis"
	ProviderCensus    = "census"
	ProviderGoogle    = "google"
	ProviderNominatim = "nominatim"
)

// DefaultUserAgent identifies requests to services that require one.
const DefaultUserAgent = "bov-engine/1.0"

// Client geocodes a single free-text address.
type Client interface {
	// Geocode returns Matched=false (and no error) when the service has no
	// location for the address.
	Geocode(ctx context.Context, address string) (*Result, error)
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude       float64
	Longitude      float64
	Source         string // provider name
	Quality        string // "rooftop", "range", "centroid", "approximate"
	MatchedAddress string
	Matched        bool
}

// Option configures the client built by NewClient.
type Option func(*settings)

type settings struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	retry       resilience.Policy
	googleKey   string
	arcgisToken string
	userAgent   string
	providers   []string
}

// WithHTTPClient sets the HTTP client shared by all providers.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *settings) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit caps outgoing requests per second across all providers.
// rps <= 0 disables the limit.
func WithRateLimit(rps float64) Option {
	return func(s *settings) {
		if rps <= 0 {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithRetry sets the retry policy for transient HTTP failures.
func WithRetry(p resilience.Policy) Option {
	return func(s *settings) {
		s.retry = p
	}
}

// WithGoogleAPIKey sets the key for the Google provider.
func WithGoogleAPIKey(key string) Option {
	return func(s *settings) {
		s.googleKey = key
	}
}

// WithArcGISToken sets an optional ArcGIS Platform token. Without one the
// public World Geocoding Service is used anonymously.
func WithArcGISToken(token string) Option {
	return func(s *settings) {
		s.arcgisToken = token
	}
}

// WithUserAgent sets the User-Agent header sent to every provider.
func WithUserAgent(ua string) Option {
	return func(s *settings) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// WithProviders selects providers by name, in the order they are tried.
func WithProviders(names ...string) Option {
	return func(s *settings) {
		s.providers = names
	}
}

// NewClient builds a CascadeClient over the selected providers. It fails on
// an unknown provider name or a provider missing required credentials.
func NewClient(opts ...Option) (*CascadeClient, error) {
	s := &settings{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(5, 1),
		retry:      resilience.DefaultPolicy(),
		userAgent:  DefaultUserAgent,
		providers:  []string{ProviderArcGIS},
	}
	for _, opt := range opts {
		opt(s)
	}

	t := &transport{
		client:    s.httpClient,
		limiter:   s.limiter,
		retry:     s.retry,
		userAgent: s.userAgent,
	}

	seen := make(map[string]bool, len(s.providers))
	var providers []Provider
	for _, raw := range s.providers {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case ProviderArcGIS:
			providers = append(providers, newArcGISProvider(t, s.arcgisToken))
		case ProviderCensus:
			providers = append(providers, newCensusProvider(t))
		case ProviderGoogle:
			if s.googleKey == "" {
				return nil, eris.New("geocode: google provider requires an API key")
			}
			providers = append(providers, newGoogleProvider(t, s.googleKey))
		case ProviderNominatim:
			providers = append(providers, newNominatimProvider(t))
		default:
			return nil, eris.Errorf("geocode: unknown provider %q", raw)
		}
	}
	if len(providers) == 0 {
		return nil, eris.New("geocode: no providers configured")
	}
	return NewCascadeClient(providers...), nil
}
