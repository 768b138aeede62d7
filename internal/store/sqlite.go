package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/bov-engine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	document   TEXT NOT NULL,
	mode       TEXT NOT NULL,
	providers  TEXT NOT NULL DEFAULT '[]',
	status     TEXT NOT NULL DEFAULT 'running',
	result     TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS run_outcomes (
	run_id    TEXT NOT NULL REFERENCES runs(id),
	seq       INTEGER NOT NULL,
	label     TEXT NOT NULL,
	address   TEXT NOT NULL,
	path      TEXT NOT NULL,
	status    TEXT NOT NULL,
	latitude  REAL,
	longitude REAL,
	source    TEXT NOT NULL DEFAULT '',
	quality   TEXT NOT NULL DEFAULT '',
	error     TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_document ON runs(document);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, document string, mode model.RunMode, providers []string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	if providers == nil {
		providers = []string{}
	}
	providersJSON, err := json.Marshal(providers)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal providers")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, document, mode, providers, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, document, string(mode), string(providersJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
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

func (s *SQLiteStore) SaveOutcomes(ctx context.Context, runID string, outcomes []model.OutcomeRecord) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin outcomes")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_outcomes (run_id, seq, label, address, path, status, latitude, longitude, source, quality, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare outcome insert")
	}
	defer stmt.Close()

	for _, o := range outcomes {
		if _, err := stmt.ExecContext(ctx, outcomeArgs(runID, o)...); err != nil {
			return eris.Wrapf(err, "sqlite: insert outcome %d for run %s", o.Seq, runID)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit outcomes")
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, result *model.RunResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal result")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET result = ?, status = ?, updated_at = ? WHERE id = ?`,
		string(resultJSON), string(status), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, document, mode, providers, status, result, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, label, address, path, status, latitude, longitude, source, quality, error
		 FROM run_outcomes WHERE run_id = ? ORDER BY seq`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list outcomes %s", runID)
	}
	defer rows.Close()

	for rows.Next() {
		o, err := scanOutcome(rows)
		if err != nil {
			return nil, err
		}
		r.Outcomes = append(r.Outcomes, *o)
	}
	return r, eris.Wrap(rows.Err(), "sqlite: list outcomes iterate")
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, document, mode, providers, status, result, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Document != "" {
		query += ` AND document = ?`
		args = append(args, filter.Document)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var providersJSON string
	var resultJSON sql.NullString

	err := row.Scan(&r.ID, &r.Document, &r.Mode, &providersJSON, &r.Status, &resultJSON, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(providersJSON), &r.Providers); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal providers")
	}
	if resultJSON.Valid && resultJSON.String != "null" {
		r.Result = &model.RunResult{}
		if err := json.Unmarshal([]byte(resultJSON.String), r.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal result")
		}
	}
	return &r, nil
}

func scanOutcome(row scannable) (*model.OutcomeRecord, error) {
	var o model.OutcomeRecord
	var lat, lon sql.NullFloat64
	if err := row.Scan(&o.Seq, &o.Label, &o.Address, &o.Path, &o.Status, &lat, &lon, &o.Source, &o.Quality, &o.Error); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan outcome")
	}
	if lat.Valid && lon.Valid {
		o.Latitude = &lat.Float64
		o.Longitude = &lon.Float64
	}
	return &o, nil
}

// outcomeArgs orders an outcome's columns for insert, shared by the SQLite
// insert and the Postgres COPY.
func outcomeArgs(runID string, o model.OutcomeRecord) []any {
	return []any{
		runID, o.Seq, o.Label, o.Address, o.Path, o.Status,
		o.Latitude, o.Longitude, o.Source, o.Quality, o.Error,
	}
}

var outcomeColumns = []string{
	"run_id", "seq", "label", "address", "path", "status",
	"latitude", "longitude", "source", "quality", "error",
}
