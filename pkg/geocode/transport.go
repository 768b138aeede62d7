package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/bov-engine/internal/resilience"
)

// transport is the HTTP plumbing shared by the providers: one client, one
// rate limiter and one retry policy for the whole cascade.
type transport struct {
	client    *http.Client
	limiter   *rate.Limiter
	retry     resilience.Policy
	userAgent string
}

// do runs fn under the retry policy, logging each retry against service.
func (t *transport) do(ctx context.Context, service string, fn func(ctx context.Context) error) error {
	p := t.retry
	if p.OnRetry == nil {
		p.OnRetry = resilience.LogRetries(service)
	}
	return resilience.Do(ctx, p, fn)
}

// getJSON performs one rate-limited GET and decodes the JSON body into out.
// 429 and 5xx responses come back as resilience.TransientError.
func (t *transport) getJSON(ctx context.Context, service, endpoint string, params url.Values, out any) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "geocode: %s rate limit", service)
	}

	reqURL := endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s build request", service)
	}
	req.Header.Set("Accept", "application/json")
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s request", service)
	}
	defer resp.Body.Close() //nolint:errcheck

	if err := resilience.CheckStatus("geocode: "+service, resp.StatusCode); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrapf(err, "geocode: %s read body", service)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "geocode: %s parse response", service)
	}
	return nil
}
