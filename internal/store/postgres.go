package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/bov-engine/internal/db"
	"github.com/sells-group/bov-engine/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// A CLI run holds at most a couple of connections.
	maxConns := int32(4)
	minConns := int32(0)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	document   TEXT NOT NULL,
	mode       TEXT NOT NULL,
	providers  JSONB NOT NULL DEFAULT '[]',
	status     TEXT NOT NULL DEFAULT 'running',
	result     JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	seq       INTEGER NOT NULL,
	label     TEXT NOT NULL,
	address   TEXT NOT NULL,
	path      TEXT NOT NULL,
	status    TEXT NOT NULL,
	latitude  DOUBLE PRECISION,
	longitude DOUBLE PRECISION,
	source    TEXT NOT NULL DEFAULT '',
	quality   TEXT NOT NULL DEFAULT '',
	error     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, document string, mode model.RunMode, providers []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	if providers == nil {
		providers = []string{}
	}
	providersJSON, err := json.Marshal(providers)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal providers")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, document, mode, providers, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, document, string(mode), providersJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Document:  document,
		Mode:      mode,
		Providers: providers,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// SaveOutcomes bulk-loads the outcomes with COPY.
func (s *PostgresStore) SaveOutcomes(ctx context.Context, runID string, outcomes []model.OutcomeRecord) error {
	rows := make([][]any, 0, len(outcomes))
	for _, o := range outcomes {
		rows = append(rows, outcomeArgs(runID, o))
	}
	return eris.Wrapf(db.CopyRows(ctx, s.pool, "run_outcomes", outcomeColumns, rows), "postgres: save outcomes for run %s", runID)
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal result")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET result = $1, status = $2, updated_at = $3 WHERE id = $4`,
		resultJSON, string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	r, err := scanPostgresRun(s.pool.QueryRow(ctx,
		`SELECT id, document, mode, providers, status, result, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT seq, label, address, path, status, latitude, longitude, source, quality, error
		 FROM run_outcomes WHERE run_id = $1 ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list outcomes %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		var o model.OutcomeRecord
		if err := rows.Scan(&o.Seq, &o.Label, &o.Address, &o.Path, &o.Status, &o.Latitude, &o.Longitude, &o.Source, &o.Quality, &o.Error); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outcome")
		}
		r.Outcomes = append(r.Outcomes, o)
	}
	return r, eris.Wrap(rows.Err(), "postgres: list outcomes iterate")
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, document, mode, providers, status, result, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	if filter.Document != "" {
		query += fmt.Sprintf(` AND document = $%d`, argIdx)
		args = append(args, filter.Document)
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var r model.Run
	var mode, status string
	var providersJSON []byte
	var resultJSON *[]byte

	if err := row.Scan(&r.ID, &r.Document, &mode, &providersJSON, &status, &resultJSON, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.Mode = model.RunMode(mode)
	r.Status = model.RunStatus(status)

	if len(providersJSON) > 0 {
		if err := json.Unmarshal(providersJSON, &r.Providers); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal providers")
		}
	}
	if resultJSON != nil && string(*resultJSON) != "null" {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal(*resultJSON, r.Result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal result")
		}
	}
	return &r, nil
}
