package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/fasta"
)

// ErrEmptySequence is returned when a record without residues is submitted
var ErrEmptySequence = errors.New("cannot embed empty sequence")

// Embedding is a per-residue embedding paired with its source record
type Embedding struct {
	Record   fasta.Record
	Residues [][]float32 // one row per residue
}

// Dimensions returns the width of each residue row
func (e Embedding) Dimensions() int {
	if len(e.Residues) == 0 {
		return 0
	}
	return len(e.Residues[0])
}

// Service provides embedding generation functionality
type Service struct {
	batchSize int
	client    Client
}

// Client is the interface for protein language model clients
type Client interface {
	EmbedResidues(ctx context.Context, seqs []string) ([][][]float32, error)
	Model() string
}

// NewService creates a new embedding service
func NewService(cfg *config.EmbeddingConfig) (*Service, error) {
	var client Client
	var err error

	switch cfg.Provider {
	case "http":
		client, err = NewHTTPClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	return NewServiceWithClient(client, cfg.BatchSize), nil
}

// NewServiceWithClient wraps an existing client
func NewServiceWithClient(client Client, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 8
	}
	return &Service{batchSize: batchSize, client: client}
}

// Model returns the model identifier of the underlying client
func (s *Service) Model() string {
	return s.client.Model()
}

// BatchSize returns the number of sequences sent per request
func (s *Service) BatchSize() int {
	return s.batchSize
}

// Embed generates the per-residue embedding for a single record
func (s *Service) Embed(ctx context.Context, rec fasta.Record) (Embedding, error) {
	out, err := s.EmbedBatch(ctx, []fasta.Record{rec})
	if err != nil {
		return Embedding{}, err
	}
	return out[0], nil
}

// EmbedBatch generates embeddings for multiple records, in input order
func (s *Service) EmbedBatch(ctx context.Context, recs []fasta.Record) ([]Embedding, error) {
	if len(recs) == 0 {
		return nil, nil
	}

	for _, rec := range recs {
		if rec.Len() == 0 {
			return nil, fmt.Errorf("%w: %s", ErrEmptySequence, rec.ID)
		}
	}

	results := make([]Embedding, 0, len(recs))

	for i := 0; i < len(recs); i += s.batchSize {
		end := i + s.batchSize
		if end > len(recs) {
			end = len(recs)
		}

		seqs := make([]string, 0, end-i)
		for _, rec := range recs[i:end] {
			seqs = append(seqs, string(rec.Seq))
		}

		matrices, err := s.client.EmbedResidues(ctx, seqs)
		if err != nil {
			return nil, fmt.Errorf("failed to embed batch %d-%d: %w", i, end, err)
		}
		if len(matrices) != end-i {
			return nil, fmt.Errorf("batch %d-%d: expected %d embeddings, got %d", i, end, end-i, len(matrices))
		}

		for j, m := range matrices {
			results = append(results, Embedding{Record: recs[i+j], Residues: m})
		}
	}

	return results, nil
}

// Similarity computes cosine similarity between two vectors
func Similarity(a, b []float32) float32 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("vector dimension mismatch: %d vs %d", len(a), len(b)))
	}

	var dotProduct float32
	var normA float32
	var normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}

// L2Distance computes L2 (Euclidean) distance between two vectors
func L2Distance(a, b []float32) float32 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("vector dimension mismatch: %d vs %d", len(a), len(b)))
	}

	var sum float32
	for i := 0; i < len(a); i++ {
		diff := a[i] - b[i]
		sum += diff * diff
	}

	return float32(math.Sqrt(float64(sum)))
}
