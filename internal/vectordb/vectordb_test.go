package vectordb

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DreamCats/protindex/internal/config"
	"github.com/DreamCats/protindex/internal/fasta"
)

// npyBytes encodes a little-endian float32 array in NPY v1.0 format
func npyBytes(shape []int, values []float32, fortran bool) []byte {
	dims := make([]string, len(shape))
	for i, d := range shape {
		dims[i] = fmt.Sprint(d)
	}
	tuple := strings.Join(dims, ", ")
	if len(shape) == 1 {
		tuple += ","
	}
	order := "False"
	if fortran {
		order = "True"
	}
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': %s, 'shape': (%s), }", order, tuple)
	for (10+len(header)+1)%64 != 0 {
		header += " "
	}
	header += "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	for _, v := range values {
		_ = binary.Write(&buf, binary.LittleEndian, math.Float32bits(v))
	}
	return buf.Bytes()
}

func writeNPZ(t *testing.T, path string, arrays map[string][]byte) {
	t.Helper()
	fh, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(fh)
	for name, data := range arrays {
		w, err := zw.Create(name + ".npy")
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, fh.Close())
}

func TestLoadArchiveRowMajor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.npz")
	writeNPZ(t, path, map[string][]byte{
		"embeddings": npyBytes([]int{2, 3}, []float32{1, 2, 3, 4, 5, 6}, false),
	})

	rows, err := LoadArchive(path, "embeddings")
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, rows)
}

func TestLoadArchiveFortranOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.npz")
	writeNPZ(t, path, map[string][]byte{
		"embeddings": npyBytes([]int{2, 3}, []float32{1, 4, 2, 5, 3, 6}, true),
	})

	rows, err := LoadArchive(path, "embeddings")
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2, 3}, {4, 5, 6}}, rows)
}

func TestLoadArchiveMissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.npz")
	writeNPZ(t, path, map[string][]byte{
		"other": npyBytes([]int{2}, []float32{1, 2}, false),
	})

	_, err := LoadArchive(path, "embeddings")
	assert.ErrorIs(t, err, ErrFieldNotFound)
	assert.Contains(t, err.Error(), "other")
}

func TestZip(t *testing.T) {
	recs := []fasta.Record{{ID: "a"}, {ID: "b"}}

	out, err := Zip(recs, [][]float32{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, "b", out[1].Record.ID)
	assert.Equal(t, []float32{2}, out[1].Values)

	_, err = Zip(recs, [][]float32{{1}})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestExternalEncoder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell fixture")
	}
	dir := t.TempDir()

	fastaPath := filepath.Join(dir, "in.fa")
	require.NoError(t, os.WriteFile(fastaPath, []byte(">a\nMKT\n>b\nAV\n"), 0o644))

	src := filepath.Join(dir, "prebuilt.npz")
	writeNPZ(t, src, map[string][]byte{
		"embeddings": npyBytes([]int{2, 2}, []float32{0.1, 0.2, 0.3, 0.4}, false),
	})

	// mimics tools that append .npz to the requested output name
	script := filepath.Join(dir, "encoder.sh")
	body := fmt.Sprintf("#!/bin/sh\n[ \"$1\" = \"--input-fasta\" ] || exit 3\ncp %q \"$4.npz\"\n", src)
	require.NoError(t, os.WriteFile(script, []byte(body), 0o755))

	enc, err := NewExternalEncoder(config.EncoderConfig{
		Kind:       "external",
		Command:    []string{"/bin/sh", script},
		InputFlag:  "--input-fasta",
		OutputFlag: "--output",
		Field:      "embeddings",
	}, filepath.Join(dir, "work"))
	require.NoError(t, err)

	vecs, err := enc.Encode(context.Background(), fastaPath)
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, "a", vecs[0].Record.ID)
	assert.Equal(t, []float32{0.3, 0.4}, vecs[1].Values)
}

func TestExternalEncoderFailureIncludesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell fixture")
	}
	dir := t.TempDir()
	fastaPath := filepath.Join(dir, "in.fa")
	require.NoError(t, os.WriteFile(fastaPath, []byte(">a\nMKT\n"), 0o644))

	script := filepath.Join(dir, "fail.sh")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho 'model weights missing' >&2\nexit 2\n"), 0o755))

	enc, err := NewExternalEncoder(config.EncoderConfig{
		Command: []string{"/bin/sh", script}, InputFlag: "-i", OutputFlag: "-o", Field: "embeddings",
	}, "")
	require.NoError(t, err)

	_, err = enc.Encode(context.Background(), fastaPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model weights missing")
}
