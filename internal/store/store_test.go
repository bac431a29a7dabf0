package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "nested", "index.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedSequences(t *testing.T, db *DB) {
	t.Helper()
	err := NewSequenceStore(db).UpsertBatch([]*Sequence{
		{ID: "b", Residues: "MKT", Source: "x.fa", Ordinal: 1},
		{ID: "a", Description: "first", Residues: "MK", Source: "x.fa", Ordinal: 0},
		{ID: "c", Residues: "W", Source: "x.fa", Ordinal: 2},
	})
	require.NoError(t, err)
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	version, err := db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)
}

func TestSequenceStore(t *testing.T) {
	db := openTestDB(t)
	seedSequences(t, db)
	seqs := NewSequenceStore(db)

	got, err := seqs.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "first", got.Description)
	assert.Equal(t, 2, got.Length)
	assert.False(t, got.CreatedAt.IsZero())

	list, err := seqs.List()
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{list[0].ID, list[1].ID, list[2].ID})

	_, err = seqs.Get("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	// upsert replaces in place
	require.NoError(t, seqs.UpsertBatch([]*Sequence{{ID: "a", Residues: "MKV", Source: "x.fa"}}))
	got, err = seqs.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "MKV", got.Residues)
	n, err := seqs.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestVectorStoreSearch(t *testing.T) {
	db := openTestDB(t)
	seedSequences(t, db)
	vectors := NewVectorStore(db)

	require.NoError(t, vectors.InsertBatch([]*StoredVector{
		{SequenceID: "a", Values: []float32{1, 0}, Model: "m", Encoder: "mean-pool", RunID: "r"},
		{SequenceID: "b", Values: []float32{0.8, 0.6}, Model: "m", Encoder: "mean-pool", RunID: "r"},
		{SequenceID: "c", Values: []float32{0, 1}, Model: "m", Encoder: "mean-pool", RunID: "r"},
	}))

	got, err := vectors.Get("b")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.8, 0.6}, got)

	results, err := vectors.Search([]float32{1, 0}, 2, MetricCosine, NewSequenceStore(db))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].SequenceID)
	assert.Equal(t, "b", results[1].SequenceID)
	assert.InDelta(t, 0.8, results[1].Score, 1e-6)
	require.NotNil(t, results[0].Sequence)
	assert.Equal(t, "MK", results[0].Sequence.Residues)

	results, err = vectors.Search([]float32{0, 1}, 1, MetricL2, nil)
	require.NoError(t, err)
	assert.Equal(t, "c", results[0].SequenceID)
	assert.InDelta(t, 0, results[0].Distance, 1e-6)

	all, err := vectors.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].SequenceID)
	assert.Equal(t, 2, all[2].Dimension)

	_, err = vectors.Search([]float32{1, 0}, 1, Metric("dot"), nil)
	assert.Error(t, err)
}

func TestVectorStoreSearchDimensionMismatch(t *testing.T) {
	db := openTestDB(t)
	seedSequences(t, db)
	vectors := NewVectorStore(db)

	results, err := vectors.Search([]float32{1, 0, 0}, 3, MetricCosine, nil)
	require.NoError(t, err, "an empty store is not a mismatch")
	assert.Empty(t, results)

	require.NoError(t, vectors.InsertBatch([]*StoredVector{
		{SequenceID: "a", Values: []float32{1, 0}, Model: "m", Encoder: "mean-pool", RunID: "r"},
		{SequenceID: "b", Values: []float32{0, 1}, Model: "m", Encoder: "mean-pool", RunID: "r"},
	}))

	_, err = vectors.Search([]float32{1, 0, 0}, 3, MetricCosine, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	// mixed dimensions still rank the vectors that match
	require.NoError(t, vectors.InsertBatch([]*StoredVector{
		{SequenceID: "c", Values: []float32{1, 0, 0}, Model: "m", Encoder: "mean-pool", RunID: "r"},
	}))
	results, err = vectors.Search([]float32{1, 0, 0}, 3, MetricCosine, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "c", results[0].SequenceID)
}

func TestVectorRequiresSequence(t *testing.T) {
	db := openTestDB(t)
	err := NewVectorStore(db).InsertBatch([]*StoredVector{
		{SequenceID: "ghost", Values: []float32{1}, Model: "m", Encoder: "e", RunID: "r"},
	})
	assert.Error(t, err, "foreign key should reject vectors without a sequence")
}

func TestRunStoreAndClear(t *testing.T) {
	db := openTestDB(t)
	runs := NewRunStore(db)

	run := &Run{ID: "run-1", FastaPath: "x.fa", Model: "m", Encoder: "mean-pool"}
	require.NoError(t, runs.Start(run))
	run.SequenceCount = 3
	run.Dimension = 2
	require.NoError(t, runs.Finish(run, nil))

	latest, err := runs.Latest()
	require.NoError(t, err)
	assert.Equal(t, RunSucceeded, latest.Status)
	assert.Equal(t, 3, latest.SequenceCount)
	require.NotNil(t, latest.FinishedAt)

	seedSequences(t, db)
	require.NoError(t, db.Clear())
	stats, err := db.Stats()
	require.NoError(t, err)
	assert.Zero(t, stats.SequenceCount)
	assert.Zero(t, stats.RunCount)

	_, err = runs.Latest()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlobRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, 3.25}
	out, err := blobToVector(vectorToBlob(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = blobToVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
