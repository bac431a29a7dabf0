package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/DreamCats/protindex/internal/embedding"
)

// Metric selects how vectors are compared
type Metric string

const (
	MetricCosine Metric = "cosine"
	MetricL2     Metric = "l2"
)

// VectorStore provides vector storage and similarity search operations
type VectorStore struct {
	db *DB
}

// NewVectorStore creates a new vector store
func NewVectorStore(db *DB) *VectorStore {
	return &VectorStore{db: db}
}

// ScoredResult represents a search result with similarity score
type ScoredResult struct {
	SequenceID string    `json:"sequence_id"`
	Score      float32   `json:"score"`
	Distance   float32   `json:"distance"`
	Sequence   *Sequence `json:"sequence,omitempty"`
}

// InsertBatch inserts or replaces vectors in a transaction
func (v *VectorStore) InsertBatch(vectors []*StoredVector) error {
	if len(vectors) == 0 {
		return nil
	}

	tx, err := v.db.BeginTx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT OR REPLACE INTO vectors (sequence_id, vector, dimension, model, encoder, run_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)

	for i, vec := range vectors {
		if len(vec.Values) == 0 {
			return fmt.Errorf("vector %d (%s) is empty", i, vec.SequenceID)
		}

		blob := vectorToBlob(vec.Values)
		if _, err := stmt.Exec(vec.SequenceID, blob, len(vec.Values), vec.Model, vec.Encoder, vec.RunID, now); err != nil {
			return fmt.Errorf("failed to insert vector %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}

	return nil
}

// Get retrieves the vector for a sequence
func (v *VectorStore) Get(sequenceID string) ([]float32, error) {
	var blob []byte
	var dimension int

	err := v.db.sqlDB.QueryRow("SELECT vector, dimension FROM vectors WHERE sequence_id = ?", sequenceID).Scan(&blob, &dimension)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("vector for %s: %w", sequenceID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get vector: %w", err)
	}

	vector, err := blobToVector(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to convert blob to vector: %w", err)
	}

	if len(vector) != dimension {
		return nil, fmt.Errorf("vector dimension mismatch: expected %d, got %d", dimension, len(vector))
	}

	return vector, nil
}

// All returns every stored vector in sequence source order
func (v *VectorStore) All() ([]*StoredVector, error) {
	rows, err := v.db.sqlDB.Query(`
		SELECT v.sequence_id, v.vector, v.dimension, v.model, v.encoder, v.run_id, v.created_at
		FROM vectors v JOIN sequences s ON s.id = v.sequence_id
		ORDER BY s.source, s.ordinal
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	var out []*StoredVector
	for rows.Next() {
		var sv StoredVector
		var blob []byte
		var created any
		if err := rows.Scan(&sv.SequenceID, &blob, &sv.Dimension, &sv.Model, &sv.Encoder, &sv.RunID, &created); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if sv.Values, err = blobToVector(blob); err != nil {
			return nil, fmt.Errorf("vector %s: %w", sv.SequenceID, err)
		}
		if sv.CreatedAt, err = parseTimeValue(created); err != nil {
			return nil, fmt.Errorf("vector %s: %w", sv.SequenceID, err)
		}
		out = append(out, &sv)
	}
	return out, rows.Err()
}

// Search ranks every stored vector against the query.
// Brute force; the tutorial datasets hold at most a few thousand proteins.
func (v *VectorStore) Search(queryVector []float32, topK int, metric Metric, sequences *SequenceStore) ([]ScoredResult, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("query vector is empty")
	}
	if metric != MetricCosine && metric != MetricL2 {
		return nil, fmt.Errorf("unsupported metric: %s", metric)
	}

	rows, err := v.db.sqlDB.Query("SELECT sequence_id, vector FROM vectors")
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}
	defer rows.Close()

	results := make([]ScoredResult, 0, topK)
	otherDims := make(map[int]int)

	for rows.Next() {
		var sequenceID string
		var blob []byte

		if err := rows.Scan(&sequenceID, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		vector, err := blobToVector(blob)
		if err != nil {
			continue
		}
		if len(vector) != len(queryVector) {
			otherDims[len(vector)]++
			continue
		}

		var score, distance float32
		if metric == MetricCosine {
			score = embedding.Similarity(queryVector, vector)
			distance = 1 - score
		} else {
			distance = embedding.L2Distance(queryVector, vector)
			score = 1 / (1 + distance)
		}

		results = append(results, ScoredResult{
			SequenceID: sequenceID,
			Score:      score,
			Distance:   distance,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	if len(results) == 0 && len(otherDims) > 0 {
		return nil, fmt.Errorf("%w: query has %d dimensions, stored vectors have %v",
			ErrDimensionMismatch, len(queryVector), otherDims)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].SequenceID < results[j].SequenceID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}

	if sequences != nil {
		for i := range results {
			if seq, err := sequences.Get(results[i].SequenceID); err == nil {
				results[i].Sequence = seq
			}
		}
	}

	return results, nil
}

// Count returns the number of vectors stored
func (v *VectorStore) Count() (int, error) {
	var count int
	err := v.db.sqlDB.QueryRow("SELECT COUNT(*) FROM vectors").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count vectors: %w", err)
	}
	return count, nil
}

// vectorToBlob converts a float32 slice to a little-endian blob
func vectorToBlob(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:i*4+4], math.Float32bits(v))
	}
	return blob
}

// blobToVector converts a binary blob to a float32 slice
func blobToVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("blob size %d is not a multiple of 4", len(blob))
	}

	vector := make([]float32, len(blob)/4)
	for i := 0; i < len(vector); i++ {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}

	return vector, nil
}
