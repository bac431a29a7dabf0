package vectordb

import (
	"context"
	"fmt"

	"github.com/DreamCats/protindex/internal/embedding"
	"github.com/DreamCats/protindex/internal/fasta"
)

// PoolingEncoder embeds each record through the language model service and
// pools the residue rows into one vector. Records are streamed, so only one
// batch of per-residue matrices is alive at a time.
type PoolingEncoder struct {
	svc  *embedding.Service
	mode embedding.PoolMode

	// OnVector, when set, is called after each record is encoded
	OnVector func(Vector)
}

// NewPoolingEncoder creates an in-process pooling encoder
func NewPoolingEncoder(svc *embedding.Service, mode embedding.PoolMode) *PoolingEncoder {
	return &PoolingEncoder{svc: svc, mode: mode}
}

func (p *PoolingEncoder) Name() string {
	return string(p.mode) + "-pool"
}

// Encode streams the FASTA file and returns one pooled vector per record
func (p *PoolingEncoder) Encode(ctx context.Context, fastaPath string) ([]Vector, error) {
	r, err := fasta.Open(fastaPath)
	if err != nil {
		return nil, fmt.Errorf("open fasta: %w", err)
	}
	defer r.Close()

	var out []Vector
	stream := embedding.NewStream(p.svc, r)
	err = stream.Each(ctx, func(emb embedding.Embedding) error {
		values, err := embedding.Pool(emb.Residues, p.mode)
		if err != nil {
			return fmt.Errorf("pool %s: %w", emb.Record.ID, err)
		}
		v := Vector{Record: emb.Record, Values: values}
		out = append(out, v)
		if p.OnVector != nil {
			p.OnVector(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w in %s", fasta.ErrNoRecords, fastaPath)
	}
	return out, nil
}
