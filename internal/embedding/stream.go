package embedding

import (
	"context"
	"io"

	"github.com/DreamCats/protindex/internal/fasta"
)

// RecordSource yields FASTA records one at a time; *fasta.Reader satisfies it.
type RecordSource interface {
	Next() (fasta.Record, error)
}

// Stream lazily embeds records pulled from a source. Records are read and
// sent to the service one batch at a time, so at most BatchSize embeddings
// are held in memory. A Stream is single-use: after io.EOF or an error every
// later call returns the same.
type Stream struct {
	svc    *Service
	src    RecordSource
	buf    []Embedding
	srcErr error // source error to surface once buf drains
	err    error
}

// NewStream creates a lazy embedding stream over src
func NewStream(svc *Service, src RecordSource) *Stream {
	return &Stream{svc: svc, src: src}
}

// Next returns the next embedding, or io.EOF when the source is exhausted
func (s *Stream) Next(ctx context.Context) (Embedding, error) {
	if len(s.buf) == 0 && s.err == nil {
		s.fill(ctx)
	}
	if len(s.buf) > 0 {
		emb := s.buf[0]
		s.buf[0] = Embedding{}
		s.buf = s.buf[1:]
		return emb, nil
	}
	return Embedding{}, s.err
}

// fill reads up to one batch of records and embeds them in a single request
func (s *Stream) fill(ctx context.Context) {
	if s.srcErr != nil {
		s.err = s.srcErr
		return
	}

	recs := make([]fasta.Record, 0, s.svc.BatchSize())
	for len(recs) < s.svc.BatchSize() {
		rec, err := s.src.Next()
		if err != nil {
			s.srcErr = err
			break
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		s.err = s.srcErr
		return
	}

	embs, err := s.svc.EmbedBatch(ctx, recs)
	if err != nil {
		s.err = err
		return
	}
	s.buf = embs
}

// Each drains the stream, calling fn for every embedding
func (s *Stream) Each(ctx context.Context, fn func(Embedding) error) error {
	for {
		emb, err := s.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(emb); err != nil {
			return err
		}
	}
}
