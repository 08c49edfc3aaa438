package domain

import (
	"time"

	"github.com/google/uuid"
)

// Mode is the kind of work a run performs.
type Mode string

const (
	// ModeEncrypt encrypts legacy plaintext values in place.
	ModeEncrypt Mode = "encrypt"
	// ModeAudit strictly decrypts every envelope and counts failures.
	ModeAudit Mode = "audit"
)

// Run records one execution over one target.
//
// Counter meaning depends on the mode:
//   - encrypt: Encrypted rows were (or, on a dry run, would be) rewritten; Skipped rows
//     were NULL, empty, already envelopes, or changed concurrently.
//   - audit: Encrypted rows hold envelopes that decrypt; Legacy rows still hold
//     plaintext; Failed rows hold envelopes that do not decrypt; Skipped rows were
//     NULL or empty.
type Run struct {
	ID         uuid.UUID
	Mode       Mode
	Table      string
	IDColumn   string
	Column     string
	DryRun     bool
	Scanned    int64
	Encrypted  int64
	Skipped    int64
	Legacy     int64
	Failed     int64
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// NewRun starts a run for target.
func NewRun(mode Mode, target Target, dryRun bool) *Run {
	return &Run{
		ID:        uuid.Must(uuid.NewV7()),
		Mode:      mode,
		Table:     target.Table,
		IDColumn:  target.IDColumn,
		Column:    target.Column,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
}

// Target returns the target the run processed.
func (r *Run) Target() Target {
	return Target{Table: r.Table, IDColumn: r.IDColumn, Column: r.Column}
}

// Add merges batch counters into the run.
func (r *Run) Add(c Counters) {
	r.Scanned += c.Scanned
	r.Encrypted += c.Encrypted
	r.Skipped += c.Skipped
	r.Legacy += c.Legacy
	r.Failed += c.Failed
}

// Finish stamps the run as finished, recording err when not nil.
func (r *Run) Finish(err error) {
	now := time.Now().UTC()
	r.FinishedAt = &now
	if err != nil {
		r.Error = err.Error()
	}
}

// Healthy reports whether an audit run found no undecryptable values.
func (r *Run) Healthy() bool {
	return r.Error == "" && r.Failed == 0
}

// Counters accumulate per batch before being merged into a Run, so a rolled back
// batch does not inflate the totals.
type Counters struct {
	Scanned   int64
	Encrypted int64
	Skipped   int64
	Legacy    int64
	Failed    int64
}

// Row is one (id, value) pair read from a target. Null is set for SQL NULL values.
type Row struct {
	ID    string
	Value string
	Null  bool
}
