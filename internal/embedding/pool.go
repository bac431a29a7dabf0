package embedding

import "fmt"

// PoolMode selects how residue rows are reduced to one vector
type PoolMode string

const (
	PoolMean PoolMode = "mean"
	PoolMax  PoolMode = "max"
)

// Pool reduces a per-residue embedding to a single whole-sequence vector
func Pool(residues [][]float32, mode PoolMode) ([]float32, error) {
	if len(residues) == 0 {
		return nil, fmt.Errorf("cannot pool empty embedding")
	}
	dim := len(residues[0])
	if dim == 0 {
		return nil, fmt.Errorf("cannot pool zero-width embedding")
	}

	out := make([]float32, dim)
	switch mode {
	case PoolMean:
		for i, row := range residues {
			if len(row) != dim {
				return nil, fmt.Errorf("residue %d: width %d, want %d", i, len(row), dim)
			}
			for j, v := range row {
				out[j] += v
			}
		}
		n := float32(len(residues))
		for j := range out {
			out[j] /= n
		}
	case PoolMax:
		copy(out, residues[0])
		for i, row := range residues[1:] {
			if len(row) != dim {
				return nil, fmt.Errorf("residue %d: width %d, want %d", i+1, len(row), dim)
			}
			for j, v := range row {
				if v > out[j] {
					out[j] = v
				}
			}
		}
	default:
		return nil, fmt.Errorf("unsupported pool mode: %s", mode)
	}
	return out, nil
}
