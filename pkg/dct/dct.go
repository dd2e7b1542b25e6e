/*
Package dct implements the orthogonal type-II discrete cosine transform used by
the fingerprint builders: a separable 2D form for square image blocks and a
direct 1D form for feature vectors.
*/
package dct

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
)

// ErrShape is returned when a block does not match the basis size.
var ErrShape = errors.New("dct: block shape does not match basis")

// Basis is an N×N orthogonal DCT-II basis matrix C. Row 0 is constant 1/sqrt(N),
// row i>0 column j is sqrt(2/N)*cos(i*pi*(j+0.5)/N).
type Basis struct {
	n int
	c *mat.Dense
}

var bases sync.Map // int -> *Basis

// NewBasis returns the basis of size n. Bases are immutable and shared.
func NewBasis(n int) *Basis {
	if b, ok := bases.Load(n); ok {
		return b.(*Basis)
	}

	data := make([]float64, n*n)
	dc := 1.0 / math.Sqrt(float64(n))
	scale := math.Sqrt(2.0 / float64(n))
	for j := 0; j < n; j++ {
		data[j] = dc
	}
	for i := 1; i < n; i++ {
		for j := 0; j < n; j++ {
			data[i*n+j] = scale * math.Cos(float64(i)*math.Pi*(float64(j)+0.5)/float64(n))
		}
	}

	b, _ := bases.LoadOrStore(n, &Basis{n: n, c: mat.NewDense(n, n, data)})
	return b.(*Basis)
}

// Size returns N.
func (b *Basis) Size() int { return b.n }

// At returns the basis entry C[i][j].
func (b *Basis) At(i, j int) float64 { return b.c.At(i, j) }

// Transform2D computes C·P·Cᵗ for an N×N block. No rounding is applied.
func (b *Basis) Transform2D(p [][]float64) ([][]float64, error) {
	if len(p) != b.n {
		return nil, fmt.Errorf("%w: %d rows, basis is %d", ErrShape, len(p), b.n)
	}
	data := make([]float64, 0, b.n*b.n)
	for i, row := range p {
		if len(row) != b.n {
			return nil, fmt.Errorf("%w: row %d has %d values, basis is %d", ErrShape, i, len(row), b.n)
		}
		data = append(data, row...)
	}

	var tmp, out mat.Dense
	tmp.Mul(b.c, mat.NewDense(b.n, b.n, data))
	out.Mul(&tmp, b.c.T())

	result := make([][]float64, b.n)
	for i := range result {
		result[i] = mat.Row(nil, i, &out)
	}
	return result, nil
}

// Transform1D returns the first m DCT-II coefficients of r, evaluated by direct
// summation: sum_n r[n]*cos(pi*(2n+1)*k/(2N)), scaled by 1/sqrt(N) for k=0 and
// sqrt(2)/sqrt(N) otherwise. m is clamped to [0, len(r)].
func Transform1D(r []float64, m int) []float64 {
	n := len(r)
	if m > n {
		m = n
	}
	if m < 0 {
		m = 0
	}

	out := make([]float64, m)
	if n == 0 {
		return out
	}
	norm := math.Sqrt(float64(n))
	for k := 0; k < m; k++ {
		sum := 0.0
		for i, v := range r {
			sum += v * math.Cos(math.Pi*float64(2*i+1)*float64(k)/float64(2*n))
		}
		if k == 0 {
			out[k] = sum / norm
		} else {
			out[k] = sum * math.Sqrt2 / norm
		}
	}
	return out
}
