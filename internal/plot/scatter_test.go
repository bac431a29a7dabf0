package plot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DreamCats/protindex/internal/metadata"
)

func TestScatterWritesFile(t *testing.T) {
	points := []metadata.Point{
		{ID: "a", Coords: []float64{0, 1}, Category: "globin"},
		{ID: "b", Coords: []float64{1, 0}, Category: "lysozyme"},
		{ID: "c", Coords: []float64{0.5, 0.5}, Category: "globin"},
		{ID: "d", Coords: []float64{2}},
	}

	for _, name := range []string{"out.png", "nested/out.svg"} {
		path := filepath.Join(t.TempDir(), name)
		err := Scatter(points, path, Options{Title: "test"})
		require.NoError(t, err, name)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}
}

func TestScatterRejectsInput(t *testing.T) {
	dir := t.TempDir()
	assert.ErrorIs(t, Scatter(nil, filepath.Join(dir, "x.png"), Options{}), ErrNoPoints)

	err := Scatter([]metadata.Point{{ID: "a", Coords: []float64{1, 2}}}, filepath.Join(dir, "x.bmp"), Options{})
	assert.ErrorContains(t, err, "unsupported plot format")
}

func TestAxisLabel(t *testing.T) {
	assert.Equal(t, "PC1 (42.5%)", AxisLabel(0, 0.425))
	assert.Equal(t, "PC2", AxisLabel(1, 0))
}
