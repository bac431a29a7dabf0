package textindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexSearch(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "text")
	ix, err := Create(dir)
	require.NoError(t, err)

	require.NoError(t, ix.IndexDocs([]Doc{
		{ID: "P69905", Description: "Hemoglobin subunit alpha", Source: "a.fa", Length: 142},
		{ID: "P68871", Description: "Hemoglobin subunit beta", Source: "a.fa", Length: 147},
		{ID: "P02144", Description: "Myoglobin", Source: "a.fa", Length: 154},
	}))

	n, err := ix.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	hits, err := ix.Search("hemoglobin", 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	hits, err = ix.Search("P02144", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "P02144", hits[0].ID)
	assert.Equal(t, 154, hits[0].Length)
	assert.Equal(t, "Myoglobin", hits[0].Description)
	require.NoError(t, ix.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer reopened.Close()
	hits, err = reopened.Search("", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
