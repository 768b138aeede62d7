package geocode

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Provider represents a single geocoding backend.
type Provider interface {
	Name() string
	Geocode(ctx context.Context, address string) (*Result, error)
	Available() bool
}

// CascadeClient tries providers in order until one matches. Providers are
// called one at a time; the first match wins.
type CascadeClient struct {
	providers []Provider
}

// NewCascadeClient creates a CascadeClient that tries providers in order.
func NewCascadeClient(providers ...Provider) *CascadeClient {
	return &CascadeClient{providers: providers}
}

// Providers returns the provider names in cascade order.
func (c *CascadeClient) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

// Geocode implements Client. A miss from every provider is an unmatched
// result. An error is returned only when every provider that was tried
// failed, so a miss from one service is never hidden by another's outage.
func (c *CascadeClient) Geocode(ctx context.Context, address string) (*Result, error) {
	log := zap.L().With(zap.String("address", address))

	var (
		tried      int
		failed     int
		lastErr    error
		lastResult *Result
	)
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		tried++

		result, err := p.Geocode(ctx, address)
		if err != nil {
			failed++
			lastErr = err
			log.Debug("cascade: provider error, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if result != nil && result.Matched {
			return result, nil
		}
		if result != nil {
			lastResult = result
		}
	}

	switch {
	case tried == 0:
		return nil, eris.New("geocode: no provider available")
	case failed == tried && tried == 1:
		return nil, lastErr
	case failed == tried:
		return nil, eris.Wrapf(lastErr, "geocode: all %d providers failed", tried)
	}

	noMatch := &Result{Matched: false, Source: "cascade"}
	if lastResult != nil && lastResult.Source != "" {
		noMatch.Source = lastResult.Source
	}
	return noMatch, nil
}

// blank reports whether there is nothing worth sending to a service.
func blank(address string) bool {
	return strings.Trim(address, " ,\t\n") == ""
}
