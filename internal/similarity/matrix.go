// Package similarity builds the pairwise cosine similarity matrix over
// document vectors.
//
// A Matrix is built once and never mutated afterwards. Rows are computed by
// a bounded pool of goroutines; every cell is written by exactly one worker,
// so the result does not depend on scheduling.
package similarity

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/iishyfishyy/yehdekho/internal/logging"
	"github.com/iishyfishyy/yehdekho/internal/textvec"
	"golang.org/x/sync/errgroup"
)

// ErrDimensionMismatch is returned when vectors have different lengths
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Matrix is a read-only square similarity matrix stored row-major
type Matrix struct {
	n    int
	data []float64
}

// Size returns the number of rows (and columns)
func (m *Matrix) Size() int {
	return m.n
}

// At returns sim(i, j)
func (m *Matrix) At(i, j int) float64 {
	return m.data[i*m.n+j]
}

// Row returns a copy of row i
func (m *Matrix) Row(i int) []float64 {
	row := make([]float64, m.n)
	copy(row, m.data[i*m.n:(i+1)*m.n])
	return row
}

// FromRows assembles a matrix from previously computed rows, e.g. a cache entry.
// Every row must have exactly len(rows) entries.
func FromRows(rows [][]float64) (*Matrix, error) {
	n := len(rows)
	data := make([]float64, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: row %d has %d entries, want %d", ErrDimensionMismatch, i, len(row), n)
		}
		copy(data[i*n:], row)
	}
	return &Matrix{n: n, data: data}, nil
}

// Cosine returns dot(a, b) / (|a| * |b|), or 0 when either norm is 0.
// Vectors of different length have similarity 0. The result is clamped to
// [0, 1] so rounding never lifts identical vectors above 1.
func Cosine(a, b textvec.Vector) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dotProduct / math.Sqrt(normA*normB)
	if sim > 1 {
		sim = 1
	}
	if sim < 0 {
		sim = 0
	}
	return sim
}

// Build computes sim(i, j) for every pair of vectors. The diagonal is exactly
// 1 for non-zero vectors and 0 for zero vectors.
func Build(vectors []textvec.Vector) (*Matrix, error) {
	n := len(vectors)
	if n == 0 {
		return &Matrix{}, nil
	}

	dims := len(vectors[0])
	for i, v := range vectors {
		if len(v) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d", ErrDimensionMismatch, i, len(v), dims)
		}
	}

	logging.Debug().
		Str("component", "similarity").
		Int("vectors", n).
		Int("dimensions", dims).
		Msg("building similarity matrix")

	m := &Matrix{n: n, data: make([]float64, n*n)}

	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			// row i owns cells (i, j) and (j, i) for j >= i
			if vectors[i].IsZero() {
				return nil
			}
			m.data[i*n+i] = 1
			for j := i + 1; j < n; j++ {
				s := Cosine(vectors[i], vectors[j])
				m.data[i*n+j] = s
				m.data[j*n+i] = s
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return m, nil
}
