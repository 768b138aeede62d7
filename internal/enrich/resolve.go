package enrich

import (
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bov-engine/pkg/geocode"
)

// DefaultDelay is the pause after every resolver call. Free geocoding
// services ask for well under one request per second from batch clients.
const DefaultDelay = 500 * time.Millisecond

// Resolver turns free-text addresses into coordinates. A nil result or a
// result with Matched=false is a valid "not found" answer, not an error.
type Resolver interface {
	Geocode(ctx context.Context, address string) (*geocode.Result, error)
}

// Coordinates is a WGS84 point rounded to 6 decimal places (about 0.11 m).
type Coordinates struct {
	Latitude  float64 `json:"latitude" yaml:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
}

// NewCoordinates validates the ranges and rounds both values to 6 decimals.
func NewCoordinates(lat, lon float64) (Coordinates, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinates{}, eris.Errorf("coordinates out of range: (%v, %v)", lat, lon)
	}
	return Coordinates{Latitude: round6(lat), Longitude: round6(lon)}, nil
}

func round6(v float64) float64 {
	r := math.Round(v*1e6) / 1e6
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// Pair returns the coordinates as a [latitude, longitude] pair.
func (c Coordinates) Pair() [2]float64 {
	return [2]float64{c.Latitude, c.Longitude}
}

// JSON renders the pair the way it is stored in the document: [lat,lon].
func (c Coordinates) JSON() string {
	return "[" + formatFloat(c.Latitude) + "," + formatFloat(c.Longitude) + "]"
}

func (c Coordinates) String() string {
	return "[" + formatFloat(c.Latitude) + ", " + formatFloat(c.Longitude) + "]"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Status classifies an Outcome.
type Status string

// Outcome statuses.
const (
	StatusResolved Status = "resolved"
	StatusNotFound Status = "not_found"
	StatusFailed   Status = "failed"
)

// Outcome is the result of resolving one AddressEntry. Coordinates is set
// only when Status is StatusResolved; Error only when it is StatusFailed.
type Outcome struct {
	Entry       AddressEntry `json:"entry" yaml:"entry"`
	Status      Status       `json:"status" yaml:"status"`
	Coordinates *Coordinates `json:"coordinates,omitempty" yaml:"coordinates,omitempty"`
	Source      string       `json:"source,omitempty" yaml:"source,omitempty"`
	Quality     string       `json:"quality,omitempty" yaml:"quality,omitempty"`
	Error       string       `json:"error,omitempty" yaml:"error,omitempty"`
}

// Resolved reports whether the outcome carries coordinates.
func (o Outcome) Resolved() bool {
	return o.Status == StatusResolved && o.Coordinates != nil
}

// Summary tallies outcomes by status.
type Summary struct {
	Total    int `json:"total" yaml:"total"`
	Resolved int `json:"resolved" yaml:"resolved"`
	NotFound int `json:"not_found" yaml:"not_found"`
	Failed   int `json:"failed" yaml:"failed"`
}

// Summarize counts outcomes by status.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		switch o.Status {
		case StatusResolved:
			s.Resolved++
		case StatusNotFound:
			s.NotFound++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

// Orchestrator resolves entries strictly one after another on the calling
// goroutine, pausing after every call.
type Orchestrator struct {
	resolver Resolver
	delay    time.Duration
	progress io.Writer
	sleep    func(time.Duration)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDelay sets the pause after each resolver call.
func WithDelay(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d >= 0 {
			o.delay = d
		}
	}
}

// WithProgress sets where progress and summary lines are written.
func WithProgress(w io.Writer) Option {
	return func(o *Orchestrator) {
		if w != nil {
			o.progress = w
		}
	}
}

// WithSleep replaces time.Sleep, mainly for tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.sleep = fn
		}
	}
}

// NewOrchestrator creates an Orchestrator around r.
func NewOrchestrator(r Resolver, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver: r,
		delay:    DefaultDelay,
		progress: io.Discard,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ResolveAll resolves every entry and returns one outcome per entry in the
// same order. A failing entry is recorded and the batch moves on; nothing
// here aborts the run early.
func (o *Orchestrator) ResolveAll(ctx context.Context, entries []AddressEntry) ([]Outcome, Summary) {
	log := zap.L().With(zap.String("component", "enrich"))
	writeHeader(o.progress, len(entries))

	outcomes := make([]Outcome, 0, len(entries))
	for _, e := range entries {
		out := o.resolveOne(ctx, e)
		outcomes = append(outcomes, out)
		writeLine(o.progress, out)

		log.Debug("address resolved",
			zap.String("label", e.Label),
			zap.String("status", string(out.Status)),
			zap.String("source", out.Source),
			zap.String("error", out.Error),
		)

		if o.delay > 0 {
			o.sleep(o.delay)
		}
	}

	summary := Summarize(outcomes)
	writeSummary(o.progress, summary)
	return outcomes, summary
}

// resolveOne converts every way a resolver call can end, including a
// panic, into an Outcome.
func (o *Orchestrator) resolveOne(ctx context.Context, e AddressEntry) (out Outcome) {
	out = Outcome{Entry: e}
	defer func() {
		if r := recover(); r != nil {
			out = Outcome{Entry: e, Status: StatusFailed, Error: fmt.Sprintf("resolver panic: %v", r)}
		}
	}()

	res, err := o.resolver.Geocode(ctx, e.Address)
	if err != nil {
		out.Status = StatusFailed
		out.Error = err.Error()
		return out
	}
	if res == nil || !res.Matched {
		out.Status = StatusNotFound
		if res != nil {
			out.Source = res.Source
		}
		return out
	}

	coords, err := NewCoordinates(res.Latitude, res.Longitude)
	if err != nil {
		out.Status = StatusFailed
		out.Source = res.Source
		out.Error = err.Error()
		return out
	}
	out.Status = StatusResolved
	out.Coordinates = &coords
	out.Source = res.Source
	out.Quality = res.Quality
	return out
}
