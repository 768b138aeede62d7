package geocode

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/sells-group/bov-engine/internal/resilience"
)

// newTestTransport returns a transport whose requests to targetPrefix land
// on srv, with no rate limit and fast retries.
func newTestTransport(srv *httptest.Server, targetPrefix string) *transport {
	return &transport{
		client:    newRewriteClient(srv.URL, targetPrefix),
		limiter:   rate.NewLimiter(rate.Inf, 1),
		retry:     resilience.Policy{Attempts: 2, Backoff: time.Millisecond, MaxBackoff: time.Millisecond},
		userAgent: DefaultUserAgent,
	}
}

// capture records the last request a test server saw.
type capture struct {
	mu  sync.Mutex
	req *http.Request
}

func (c *capture) set(r *http.Request) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.req = r
}

func (c *capture) last() *http.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.req
}

// jsonServer answers every request with body, recording it in c if set.
func jsonServer(t *testing.T, body string, c *capture) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c != nil {
			c.set(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newRewriteClient creates an HTTP client that rewrites requests to a test server URL.
// All requests matching the target prefix are redirected to the test server.
func newRewriteClient(testServerURL, targetPrefix string) *http.Client {
	return &http.Client{
		Transport: &rewriteTransport{
			base:         http.DefaultTransport,
			testServer:   testServerURL,
			targetPrefix: targetPrefix,
		},
	}
}

type rewriteTransport struct {
	base         http.RoundTripper
	testServer   string
	targetPrefix string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	origURL := req.URL.String()
	if !strings.HasPrefix(origURL, t.targetPrefix) {
		return t.base.RoundTrip(req)
	}
	parsed, err := req.URL.Parse(t.testServer + origURL[len(t.targetPrefix):])
	if err != nil {
		return nil, err
	}
	newReq := req.Clone(req.Context())
	newReq.URL = parsed
	newReq.Host = parsed.Host
	return t.base.RoundTrip(newReq)
}
