// Package ordination projects sample vectors into a low-dimensional space
// with principal coordinates analysis (classical multidimensional scaling).
package ordination

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrTooFewSamples is returned when fewer than two samples are supplied
var ErrTooFewSamples = errors.New("ordination needs at least two samples")

// Metric selects the pairwise distance
type Metric string

const (
	Cosine    Metric = "cosine"
	Euclidean Metric = "l2"
)

// DistanceMatrix is a symmetric matrix of pairwise sample distances
type DistanceMatrix struct {
	IDs  []string
	Data *mat.SymDense
}

// Result is a row-per-sample coordinate table
type Result struct {
	IDs                 []string
	Coords              [][]float64 // Coords[i][k] is sample i on axis k
	Eigenvalues         []float64
	ProportionExplained []float64
}

// Axis returns the column of coordinates for axis k
func (r *Result) Axis(k int) []float64 {
	out := make([]float64, len(r.Coords))
	for i, row := range r.Coords {
		out[i] = row[k]
	}
	return out
}

// NewDistanceMatrix computes pairwise distances between vectors
func NewDistanceMatrix(ids []string, vectors [][]float32, metric Metric) (*DistanceMatrix, error) {
	n := len(vectors)
	if len(ids) != n {
		return nil, fmt.Errorf("%d ids for %d vectors", len(ids), n)
	}
	if n < 2 {
		return nil, ErrTooFewSamples
	}

	rows := make([][]float64, n)
	for i, v := range vectors {
		if len(v) != len(vectors[0]) {
			return nil, fmt.Errorf("vector %s has dimension %d, want %d", ids[i], len(v), len(vectors[0]))
		}
		rows[i] = make([]float64, len(v))
		for j, x := range v {
			rows[i][j] = float64(x)
		}
	}

	dm := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			var d float64
			switch metric {
			case Cosine:
				d = cosineDistance(rows[i], rows[j])
			case Euclidean:
				d = floats.Distance(rows[i], rows[j], 2)
			default:
				return nil, fmt.Errorf("unsupported metric: %s", metric)
			}
			dm.SetSym(i, j, d)
		}
	}
	return &DistanceMatrix{IDs: ids, Data: dm}, nil
}

func cosineDistance(a, b []float64) float64 {
	na, nb := floats.Norm(a, 2), floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 1
	}
	sim := floats.Dot(a, b) / (na * nb)
	// clamp rounding noise so identical vectors sit at exactly zero
	return math.Max(0, 1-math.Min(1, sim))
}

// PCoA runs principal coordinates analysis and keeps up to dims axes with
// positive eigenvalues, largest first.
func PCoA(dm *DistanceMatrix, dims int) (*Result, error) {
	n, _ := dm.Data.Dims()
	if n < 2 {
		return nil, ErrTooFewSamples
	}
	if dims <= 0 {
		dims = 2
	}

	// Gower centering: B = -1/2 * J * D^2 * J
	sq := mat.NewSymDense(n, nil)
	rowMean := make([]float64, n)
	var grandMean float64
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			d := dm.Data.At(i, j)
			sq.SetSym(i, j, d*d)
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			rowMean[i] += sq.At(i, j)
		}
		grandMean += rowMean[i]
		rowMean[i] /= float64(n)
	}
	grandMean /= float64(n * n)

	centered := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			centered.SetSym(i, j, -0.5*(sq.At(i, j)-rowMean[i]-rowMean[j]+grandMean))
		}
	}

	var eig mat.EigenSym
	if ok := eig.Factorize(centered, true); !ok {
		return nil, fmt.Errorf("eigen decomposition did not converge")
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	var positiveSum float64
	for _, v := range values {
		if v > 0 {
			positiveSum += v
		}
	}

	res := &Result{IDs: dm.IDs, Coords: make([][]float64, n)}
	for i := range res.Coords {
		res.Coords[i] = make([]float64, 0, dims)
	}
	for _, k := range order {
		if len(res.Eigenvalues) == dims || values[k] <= 1e-12 {
			break
		}
		scale := math.Sqrt(values[k])
		for i := 0; i < n; i++ {
			res.Coords[i] = append(res.Coords[i], vecs.At(i, k)*scale)
		}
		res.Eigenvalues = append(res.Eigenvalues, values[k])
		res.ProportionExplained = append(res.ProportionExplained, values[k]/positiveSum)
	}

	// pad missing axes with zeros so every row has dims columns
	for len(res.Eigenvalues) < dims {
		for i := range res.Coords {
			res.Coords[i] = append(res.Coords[i], 0)
		}
		res.Eigenvalues = append(res.Eigenvalues, 0)
		res.ProportionExplained = append(res.ProportionExplained, 0)
	}
	return res, nil
}
