package store

import "time"

// Sequence is a protein record as persisted in the index
type Sequence struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Residues    string    `json:"residues"`
	Length      int       `json:"length"`
	Source      string    `json:"source"`  // FASTA file the record came from
	Ordinal     int       `json:"ordinal"` // Position within the source file
	CreatedAt   time.Time `json:"created_at"`
}

// StoredVector is a whole-sequence vector with its provenance
type StoredVector struct {
	SequenceID string    `json:"sequence_id"`
	Values     []float32 `json:"-"`
	Dimension  int       `json:"dimension"`
	Model      string    `json:"model"`
	Encoder    string    `json:"encoder"`
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Run status values
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run records one indexing pipeline execution
type Run struct {
	ID            string     `json:"id"`
	FastaPath     string     `json:"fasta_path"`
	Model         string     `json:"model"`
	Encoder       string     `json:"encoder"`
	SequenceCount int        `json:"sequence_count"`
	Dimension     int        `json:"dimension"`
	Status        string     `json:"status"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}
