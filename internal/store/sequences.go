package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SequenceStore persists protein records
type SequenceStore struct {
	db *DB
}

// NewSequenceStore creates a new sequence store
func NewSequenceStore(db *DB) *SequenceStore {
	return &SequenceStore{db: db}
}

const upsertSequence = `
	INSERT INTO sequences (id, description, residues, length, source, ordinal, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		description = excluded.description,
		residues    = excluded.residues,
		length      = excluded.length,
		source      = excluded.source,
		ordinal     = excluded.ordinal
`

// UpsertBatch inserts or updates sequences in a single transaction
func (s *SequenceStore) UpsertBatch(seqs []*Sequence) error {
	if len(seqs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertSequence)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, seq := range seqs {
		if seq.ID == "" {
			return fmt.Errorf("sequence at ordinal %d has no id", seq.Ordinal)
		}
		if _, err := stmt.Exec(seq.ID, seq.Description, seq.Residues, len(seq.Residues), seq.Source, seq.Ordinal, now); err != nil {
			return fmt.Errorf("failed to upsert sequence %s: %w", seq.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Get retrieves a sequence by id
func (s *SequenceStore) Get(id string) (*Sequence, error) {
	row := s.db.sqlDB.QueryRow(
		"SELECT id, description, residues, length, source, ordinal, created_at FROM sequences WHERE id = ?", id)
	seq, err := scanSequence(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("sequence %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence: %w", err)
	}
	return seq, nil
}

// List returns all sequences in source order
func (s *SequenceStore) List() ([]*Sequence, error) {
	rows, err := s.db.sqlDB.Query(
		"SELECT id, description, residues, length, source, ordinal, created_at FROM sequences ORDER BY source, ordinal")
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	defer rows.Close()

	var out []*Sequence
	for rows.Next() {
		seq, err := scanSequence(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sequence: %w", err)
		}
		out = append(out, seq)
	}
	return out, rows.Err()
}

// Count returns the number of stored sequences
func (s *SequenceStore) Count() (int, error) {
	var count int
	if err := s.db.sqlDB.QueryRow("SELECT COUNT(*) FROM sequences").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sequences: %w", err)
	}
	return count, nil
}

func scanSequence(row rowScanner) (*Sequence, error) {
	var seq Sequence
	var created any
	if err := row.Scan(&seq.ID, &seq.Description, &seq.Residues, &seq.Length, &seq.Source, &seq.Ordinal, &created); err != nil {
		return nil, err
	}
	ts, err := parseTimeValue(created)
	if err != nil {
		return nil, err
	}
	seq.CreatedAt = ts
	return &seq, nil
}
