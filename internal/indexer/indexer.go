package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/embedding"
	"github.com/DreamCats/protindex/internal/fasta"
	"github.com/DreamCats/protindex/internal/progress"
	"github.com/DreamCats/protindex/internal/runlog"
	"github.com/DreamCats/protindex/internal/store"
	"github.com/DreamCats/protindex/internal/textindex"
	"github.com/DreamCats/protindex/internal/vectordb"
)

// ErrDuplicateID is returned when two records in one file share an ID
var ErrDuplicateID = errors.New("duplicate record id")

// Indexer handles the complete indexing pipeline
type Indexer struct {
	db       *store.DB
	encoder  vectordb.Encoder
	model    string
	textDir  string
	progress progress.Reporter

	sequenceStore *store.SequenceStore
	vectorStore   *store.VectorStore
	runStore      *store.RunStore
}

// Options tunes a pipeline built with New
type Options struct {
	// TextIndexDir is where the bleve keyword index lives; empty disables it
	TextIndexDir string
	// Progress receives one step per encoded record
	Progress progress.Reporter
}

// NewIndexer opens the database named by cfg and builds the configured encoder
func NewIndexer(cfg *config.Config, showProgress bool) (*Indexer, error) {
	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	bar := progress.New(showProgress, "embedding")
	encoder, model, err := BuildEncoder(cfg, bar)
	if err != nil {
		db.Close()
		return nil, err
	}

	return New(db, encoder, model, Options{
		TextIndexDir: TextIndexDir(cfg.Database.Path),
		Progress:     bar,
	}), nil
}

// New assembles an indexer from an open database and an encoder
func New(db *store.DB, encoder vectordb.Encoder, model string, opts Options) *Indexer {
	rep := opts.Progress
	if rep == nil {
		rep = progress.New(false, "")
	}
	return &Indexer{
		db:            db,
		encoder:       encoder,
		model:         model,
		textDir:       opts.TextIndexDir,
		progress:      rep,
		sequenceStore: store.NewSequenceStore(db),
		vectorStore:   store.NewVectorStore(db),
		runStore:      store.NewRunStore(db),
	}
}

// BuildEncoder returns the whole-sequence encoder selected by cfg.Encoder and
// the model name recorded with its vectors. Pooling encoders tick rep once per record.
func BuildEncoder(cfg *config.Config, rep progress.Reporter) (vectordb.Encoder, string, error) {
	switch cfg.Encoder.Kind {
	case "external":
		enc, err := vectordb.NewExternalEncoder(cfg.Encoder, "")
		if err != nil {
			return nil, "", err
		}
		return enc, cfg.Embedding.Model, nil
	case "mean", "max":
		svc, err := embedding.NewService(&cfg.Embedding)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create embedding service: %w", err)
		}
		enc := vectordb.NewPoolingEncoder(svc, embedding.PoolMode(cfg.Encoder.Kind))
		if rep != nil {
			enc.OnVector = func(vectordb.Vector) { rep.Increment() }
		}
		return enc, svc.Model(), nil
	default:
		return nil, "", fmt.Errorf("unsupported encoder kind: %s", cfg.Encoder.Kind)
	}
}

// TextIndexDir places the keyword index next to the database file
func TextIndexDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), filepath.Base(dbPath)+".bleve")
}

// IndexFile encodes every record of a FASTA file and persists sequences,
// vectors and the keyword index under a new run.
func (idx *Indexer) IndexFile(ctx context.Context, fastaPath string) (*store.Run, error) {
	startTime := time.Now()

	run := &store.Run{
		ID:        uuid.NewString(),
		FastaPath: fastaPath,
		Model:     idx.model,
		Encoder:   idx.encoder.Name(),
	}
	if err := idx.runStore.Start(run); err != nil {
		return nil, err
	}
	runlog.LogInfo("index run started", map[string]interface{}{
		"run":     run.ID,
		"fasta":   fastaPath,
		"encoder": run.Encoder,
		"model":   run.Model,
	})

	err := idx.index(ctx, fastaPath, run)
	if finishErr := idx.runStore.Finish(run, err); finishErr != nil && err == nil {
		err = finishErr
	}
	if err != nil {
		runlog.LogError("index run failed", map[string]interface{}{"run": run.ID, "error": err.Error()})
		return run, err
	}

	runlog.LogInfo("index run finished", map[string]interface{}{
		"run":       run.ID,
		"sequences": run.SequenceCount,
		"dimension": run.Dimension,
		"duration":  time.Since(startTime).String(),
	})
	log.Printf("Indexed %d sequences (dim %d) in %v", run.SequenceCount, run.Dimension, time.Since(startTime).Round(time.Millisecond))
	return run, nil
}

func (idx *Indexer) index(ctx context.Context, fastaPath string, run *store.Run) error {
	total, err := countRecords(ctx, fastaPath)
	if err != nil {
		return err
	}
	if total == 0 {
		return fmt.Errorf("%w in %s", fasta.ErrNoRecords, fastaPath)
	}

	// Step 1: Encode
	log.Printf("Encoding %d sequences with %s", total, run.Encoder)
	idx.progress.Start(total)
	vectors, err := idx.encoder.Encode(ctx, fastaPath)
	idx.progress.Finish()
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", fastaPath, err)
	}
	if len(vectors) != total {
		return fmt.Errorf("%w: %d records, %d vectors", vectordb.ErrLengthMismatch, total, len(vectors))
	}

	dim, err := checkDimensions(vectors)
	if err != nil {
		return err
	}

	// Step 2: Store sequences
	seqs := make([]*store.Sequence, len(vectors))
	stored := make([]*store.StoredVector, len(vectors))
	docs := make([]textindex.Doc, len(vectors))
	source := filepath.Base(fastaPath)
	for i, v := range vectors {
		seqs[i] = &store.Sequence{
			ID:          v.Record.ID,
			Description: v.Record.Description,
			Residues:    string(v.Record.Seq),
			Source:      source,
			Ordinal:     i,
		}
		stored[i] = &store.StoredVector{
			SequenceID: v.Record.ID,
			Values:     v.Values,
			Model:      run.Model,
			Encoder:    run.Encoder,
			RunID:      run.ID,
		}
		docs[i] = textindex.Doc{
			ID:          v.Record.ID,
			Description: v.Record.Description,
			Source:      source,
			Length:      v.Record.Len(),
		}
	}

	log.Printf("Storing sequences in database")
	if err := idx.sequenceStore.UpsertBatch(seqs); err != nil {
		return fmt.Errorf("failed to store sequences: %w", err)
	}

	// Step 3: Store vectors
	log.Printf("Storing vectors in database")
	if err := idx.vectorStore.InsertBatch(stored); err != nil {
		return fmt.Errorf("failed to store vectors: %w", err)
	}

	// Step 4: Keyword index
	if idx.textDir != "" {
		log.Printf("Building text index")
		if err := idx.rebuildTextIndex(docs); err != nil {
			return err
		}
	}

	run.SequenceCount = len(vectors)
	run.Dimension = dim
	return nil
}

// rebuildTextIndex indexes every stored sequence, not just this run's docs,
// so earlier files stay searchable.
func (idx *Indexer) rebuildTextIndex(fresh []textindex.Doc) error {
	all, err := idx.sequenceStore.List()
	if err != nil {
		return fmt.Errorf("failed to list sequences: %w", err)
	}
	docs := make([]textindex.Doc, 0, len(all))
	for _, s := range all {
		docs = append(docs, textindex.Doc{
			ID:          s.ID,
			Description: s.Description,
			Source:      s.Source,
			Length:      s.Length,
		})
	}
	if len(docs) == 0 {
		docs = fresh
	}

	ix, err := textindex.Create(idx.textDir)
	if err != nil {
		return err
	}
	defer ix.Close()
	if err := ix.IndexDocs(docs); err != nil {
		return fmt.Errorf("failed to index text: %w", err)
	}
	return nil
}

// countRecords also rejects files whose record IDs repeat, since the
// stores key rows by ID.
func countRecords(ctx context.Context, path string) (int, error) {
	r, err := fasta.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open fasta: %w", err)
	}
	defer r.Close()

	seen := make(map[string]int)
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		rec, err := r.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if first, ok := seen[rec.ID]; ok {
			return n, fmt.Errorf("%w %q: records %d and %d", ErrDuplicateID, rec.ID, first+1, n+1)
		}
		seen[rec.ID] = n
		n++
	}
}

func checkDimensions(vectors []vectordb.Vector) (int, error) {
	dim := len(vectors[0].Values)
	for _, v := range vectors {
		if len(v.Values) == 0 {
			return 0, fmt.Errorf("empty vector for %s", v.Record.ID)
		}
		if len(v.Values) != dim {
			return 0, fmt.Errorf("dimension mismatch for %s: expected %d, got %d", v.Record.ID, dim, len(v.Values))
		}
	}
	return dim, nil
}

// Clear removes all indexed data and the keyword index
func (idx *Indexer) Clear() error {
	if err := idx.db.Clear(); err != nil {
		return err
	}
	if idx.textDir == "" {
		return nil
	}
	ix, err := textindex.Create(idx.textDir)
	if err != nil {
		return err
	}
	return ix.Close()
}

// Close closes the indexer and releases resources
func (idx *Indexer) Close() error {
	return idx.db.Close()
}

// DB returns the underlying database
func (idx *Indexer) DB() *store.DB {
	return idx.db
}
