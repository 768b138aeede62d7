// Package model defines the records kept in run history.
package model

import "time"

// RunStatus represents the current state of a geocode run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunMode says whether a run wrote its coordinates back to the document.
type RunMode string

const (
	RunModeDryRun RunMode = "dry_run"
	RunModeUpdate RunMode = "update"
)

// Run is one invocation of the geocode command against a data file.
type Run struct {
	ID        string          `json:"id" yaml:"id"`
	Document  string          `json:"document" yaml:"document"`
	Mode      RunMode         `json:"mode" yaml:"mode"`
	Providers []string        `json:"providers" yaml:"providers"`
	Status    RunStatus       `json:"status" yaml:"status"`
	Result    *RunResult      `json:"result,omitempty" yaml:"result,omitempty"`
	Outcomes  []OutcomeRecord `json:"outcomes,omitempty" yaml:"outcomes,omitempty"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" yaml:"updated_at"`
}

// RunResult holds the tallies of a finished run.
type RunResult struct {
	Total    int  `json:"total" yaml:"total"`
	Resolved int  `json:"resolved" yaml:"resolved"`
	NotFound int  `json:"not_found" yaml:"not_found"`
	Failed   int  `json:"failed" yaml:"failed"`
	Written  bool `json:"written" yaml:"written"`
	// Error is set when the run stopped before finishing, e.g. a merge or
	// write failure.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// OutcomeRecord is the stored form of one address resolution.
type OutcomeRecord struct {
	Seq       int      `json:"seq" yaml:"seq"`
	Label     string   `json:"label" yaml:"label"`
	Address   string   `json:"address" yaml:"address"`
	Path      string   `json:"path" yaml:"path"`
	Status    string   `json:"status" yaml:"status"`
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Source    string   `json:"source,omitempty" yaml:"source,omitempty"`
	Quality   string   `json:"quality,omitempty" yaml:"quality,omitempty"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}
