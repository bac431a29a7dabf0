package store

import (
	"database/sql"
	"fmt"
	"time"
)

// RunStore records indexing runs
type RunStore struct {
	db *DB
}

// NewRunStore creates a new run store
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// Start inserts a run in the running state
func (r *RunStore) Start(run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	run.Status = RunRunning
	_, err := r.db.sqlDB.Exec(`
		INSERT INTO runs (id, fasta_path, model, encoder, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.FastaPath, run.Model, run.Encoder, run.Status, run.StartedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	return nil
}

// Finish marks a run as succeeded, or failed when runErr is non-nil
func (r *RunStore) Finish(run *Run, runErr error) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	run.Status = RunSucceeded
	run.Error = ""
	if runErr != nil {
		run.Status = RunFailed
		run.Error = runErr.Error()
	}

	_, err := r.db.sqlDB.Exec(`
		UPDATE runs SET sequence_count = ?, dimension = ?, status = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		run.SequenceCount, run.Dimension, run.Status, run.Error, now.Format(time.RFC3339Nano), run.ID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// Latest returns the most recently started run
func (r *RunStore) Latest() (*Run, error) {
	row := r.db.sqlDB.QueryRow(`
		SELECT id, fasta_path, model, encoder, sequence_count, dimension, status, error, started_at, finished_at
		FROM runs ORDER BY started_at DESC LIMIT 1`)

	var run Run
	var started, finished any
	err := row.Scan(&run.ID, &run.FastaPath, &run.Model, &run.Encoder, &run.SequenceCount,
		&run.Dimension, &run.Status, &run.Error, &started, &finished)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("latest run: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	if run.StartedAt, err = parseTimeValue(started); err != nil {
		return nil, err
	}
	if finished != nil {
		ts, err := parseTimeValue(finished)
		if err != nil {
			return nil, err
		}
		run.FinishedAt = &ts
	}
	return &run, nil
}
