package vectordb

import (
	"archive/zip"
	"fmt"
	"strings"

	"github.com/sbinet/npyio"
)

// LoadArchive reads the 2-D array named field from a .npz archive and
// returns its rows in file order. A 1-D array is returned as a single row.
func LoadArchive(path, field string) ([][]float32, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer zr.Close()

	var entry *zip.File
	for _, f := range zr.File {
		if f.Name == field || f.Name == field+".npy" {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%w: %q in %s (have %s)", ErrFieldNotFound, field, path, strings.Join(archiveKeys(zr), ", "))
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", entry.Name, err)
	}
	defer rc.Close()

	r, err := npyio.NewReader(rc)
	if err != nil {
		return nil, fmt.Errorf("read npy header %s: %w", entry.Name, err)
	}

	shape := r.Header.Descr.Shape
	var flat []float32
	switch r.Header.Descr.Type {
	case "<f4", "f4":
		if err := r.Read(&flat); err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name, err)
		}
	case "<f8", "f8":
		var wide []float64
		if err := r.Read(&wide); err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name, err)
		}
		flat = make([]float32, len(wide))
		for i, v := range wide {
			flat[i] = float32(v)
		}
	default:
		return nil, fmt.Errorf("unsupported dtype %q in %s", r.Header.Descr.Type, entry.Name)
	}

	return reshape(flat, shape, r.Header.Descr.Fortran)
}

func reshape(flat []float32, shape []int, fortran bool) ([][]float32, error) {
	switch len(shape) {
	case 1:
		return [][]float32{flat}, nil
	case 2:
	default:
		return nil, fmt.Errorf("expected a 1-D or 2-D array, got shape %v", shape)
	}

	rows, cols := shape[0], shape[1]
	if rows*cols != len(flat) {
		return nil, fmt.Errorf("shape %v does not match %d values", shape, len(flat))
	}

	out := make([][]float32, rows)
	for i := range out {
		row := make([]float32, cols)
		for j := range row {
			if fortran {
				row[j] = flat[j*rows+i]
			} else {
				row[j] = flat[i*cols+j]
			}
		}
		out[i] = row
	}
	return out, nil
}

func archiveKeys(zr *zip.ReadCloser) []string {
	keys := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		keys = append(keys, strings.TrimSuffix(f.Name, ".npy"))
	}
	return keys
}
