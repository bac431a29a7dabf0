// Package vectordb turns FASTA files into whole-sequence vectors, either by
// pooling language model embeddings in process or by running an external
// encoder tool that writes a NumPy .npz archive.
package vectordb

import (
	"context"
	"errors"
	"fmt"

	"github.com/DreamCats/protindex/internal/fasta"
)

var (
	// ErrLengthMismatch is returned when vectors and records cannot be paired by position
	ErrLengthMismatch = errors.New("vector and record counts differ")
	// ErrFieldNotFound is returned when an archive lacks the requested array
	ErrFieldNotFound = errors.New("field not found in archive")
)

// Vector is a fixed-length whole-sequence summary paired with its source record
type Vector struct {
	Record fasta.Record
	Values []float32
}

// Encoder produces one vector per record of a FASTA file, in file order
type Encoder interface {
	Encode(ctx context.Context, fastaPath string) ([]Vector, error)
	Name() string
}

// Zip pairs records with vectors by position
func Zip(records []fasta.Record, vectors [][]float32) ([]Vector, error) {
	if len(records) != len(vectors) {
		return nil, fmt.Errorf("%w: %d records, %d vectors", ErrLengthMismatch, len(records), len(vectors))
	}
	out := make([]Vector, len(records))
	for i := range records {
		out[i] = Vector{Record: records[i], Values: vectors[i]}
	}
	return out, nil
}
