// Package store persists geocode run history in SQLite or Postgres.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/bov-engine/internal/config"
	"github.com/sells-group/bov-engine/internal/model"
)

// DefaultSQLitePath is used when the sqlite driver has no database_url.
const DefaultSQLitePath = "bov-history.db"

// ErrNotFound is returned when a run does not exist. Check with errors.Is.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status   model.RunStatus `json:"status,omitempty"`
	Document string          `json:"document,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Offset   int             `json:"offset,omitempty"`
}

// Store records geocode runs and their per-address outcomes.
type Store interface {
	// CreateRun inserts a running run and returns it with ID and timestamps set.
	CreateRun(ctx context.Context, document string, mode model.RunMode, providers []string) (*model.Run, error)
	// SaveOutcomes appends outcomes to a run. Seq numbers are taken from
	// the records.
	SaveOutcomes(ctx context.Context, runID string, outcomes []model.OutcomeRecord) error
	// FinishRun stores the result and moves the run to status.
	FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error
	// GetRun returns a run with its outcomes in seq order.
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	// ListRuns returns runs newest first, without outcomes.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Enabled reports whether cfg turns run history on.
func Enabled(cfg config.StoreConfig) bool {
	d := strings.ToLower(strings.TrimSpace(cfg.Driver))
	return d != "" && d != "none"
}

// Open connects to the configured store and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "sqlite":
		path := cfg.DatabaseURL
		if path == "" {
			path = DefaultSQLitePath
		}
		st, err = NewSQLite(path)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	case "", "none":
		return nil, eris.New("store: run history is disabled (store.driver is none)")
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

// listLimit applies the default page size.
func listLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
