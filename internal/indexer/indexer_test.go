package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DreamCats/protindex/internal/embedding"
	"github.com/DreamCats/protindex/internal/fasta"
	"github.com/DreamCats/protindex/internal/store"
	"github.com/DreamCats/protindex/internal/textindex"
	"github.com/DreamCats/protindex/internal/vectordb"
)

// residueClient returns a 2-wide row per residue: (code, 1)
type residueClient struct{}

func (residueClient) Model() string { return "test-model" }

func (residueClient) EmbedResidues(_ context.Context, seqs []string) ([][][]float32, error) {
	out := make([][][]float32, len(seqs))
	for i, s := range seqs {
		out[i] = make([][]float32, len(s))
		for p := range s {
			out[i][p] = []float32{float32(s[p]), 1}
		}
	}
	return out, nil
}

// shortEncoder drops the last vector
type shortEncoder struct{ inner vectordb.Encoder }

func (s shortEncoder) Name() string { return "short" }

func (s shortEncoder) Encode(ctx context.Context, path string) ([]vectordb.Vector, error) {
	v, err := s.inner.Encode(ctx, path)
	if err != nil {
		return nil, err
	}
	return v[:len(v)-1], nil
}

const tutorialFasta = `>sp|P69905|HBA_HUMAN Hemoglobin subunit alpha
MVLSPADKTNVKAAWGKVGAHAGEY
>sp|P68871|HBB_HUMAN Hemoglobin subunit beta
MVHLTPEEKSAVTALWGKV
>sp|P00698|LYSC_CHICK Lysozyme C
KVFGRCELAAAMKRHGLDNYRGYSLGNWVCAAKFESNFNTQATNRNTDGSTDYGILQINSRWWCNDG
`

func setup(t *testing.T, wrap func(vectordb.Encoder) vectordb.Encoder) (*Indexer, string) {
	t.Helper()
	dir := t.TempDir()
	fastaPath := filepath.Join(dir, "tutorial.fasta")
	require.NoError(t, os.WriteFile(fastaPath, []byte(tutorialFasta), 0o644))

	dbPath := filepath.Join(dir, "db", "index.db")
	db, err := store.Open(dbPath)
	require.NoError(t, err)

	svc := embedding.NewServiceWithClient(residueClient{}, 2)
	var enc vectordb.Encoder = vectordb.NewPoolingEncoder(svc, embedding.PoolMean)
	if wrap != nil {
		enc = wrap(enc)
	}

	idx := New(db, enc, svc.Model(), Options{TextIndexDir: TextIndexDir(dbPath)})
	t.Cleanup(func() { idx.Close() })
	return idx, fastaPath
}

func TestIndexFile(t *testing.T) {
	idx, fastaPath := setup(t, nil)

	run, err := idx.IndexFile(context.Background(), fastaPath)
	require.NoError(t, err)
	assert.Equal(t, store.RunSucceeded, run.Status)
	assert.Equal(t, 3, run.SequenceCount)
	assert.Equal(t, 2, run.Dimension)
	assert.Equal(t, "mean-pool", run.Encoder)
	assert.NotEmpty(t, run.ID)

	stats, err := idx.DB().Stats()
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.SequenceCount)
	assert.EqualValues(t, 3, stats.VectorCount)
	assert.EqualValues(t, 1, stats.RunCount)

	vectors, err := store.NewVectorStore(idx.DB()).All()
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, "sp|P69905|HBA_HUMAN", vectors[0].SequenceID)
	assert.Equal(t, run.ID, vectors[0].RunID)
	assert.InDelta(t, 1.0, vectors[0].Values[1], 1e-6)

	latest, err := store.NewRunStore(idx.DB()).Latest()
	require.NoError(t, err)
	assert.Equal(t, run.ID, latest.ID)

	ix, err := textindex.Open(idx.textDir)
	require.NoError(t, err)
	defer ix.Close()
	hits, err := ix.Search("lysozyme", 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "sp|P00698|LYSC_CHICK", hits[0].ID)
}

func TestIndexFileRecordsFailedRun(t *testing.T) {
	idx, fastaPath := setup(t, func(e vectordb.Encoder) vectordb.Encoder { return shortEncoder{e} })

	run, err := idx.IndexFile(context.Background(), fastaPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, vectordb.ErrLengthMismatch))
	assert.Equal(t, store.RunFailed, run.Status)

	latest, err := store.NewRunStore(idx.DB()).Latest()
	require.NoError(t, err)
	assert.Equal(t, store.RunFailed, latest.Status)
	assert.Contains(t, latest.Error, "counts differ")

	n, err := store.NewVectorStore(idx.DB()).Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestIndexFileRejectsDuplicateIDs(t *testing.T) {
	idx, fastaPath := setup(t, nil)
	require.NoError(t, os.WriteFile(fastaPath, []byte(">a first\nMKV\n>b\nWW\n>a second\nMK\n"), 0o644))

	run, err := idx.IndexFile(context.Background(), fastaPath)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateID)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Equal(t, store.RunFailed, run.Status)

	stats, err := idx.DB().Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.SequenceCount)
	assert.Zero(t, stats.VectorCount)
}

func TestIndexEmptyFile(t *testing.T) {
	idx, fastaPath := setup(t, nil)
	require.NoError(t, os.WriteFile(fastaPath, []byte("\n"), 0o644))

	_, err := idx.IndexFile(context.Background(), fastaPath)
	assert.ErrorIs(t, err, fasta.ErrNoRecords)
}

func TestClear(t *testing.T) {
	idx, fastaPath := setup(t, nil)
	_, err := idx.IndexFile(context.Background(), fastaPath)
	require.NoError(t, err)

	require.NoError(t, idx.Clear())
	stats, err := idx.DB().Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.SequenceCount)
	assert.Zero(t, stats.VectorCount)
}
