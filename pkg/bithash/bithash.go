/*
Package bithash builds a boolean perceptual hash from the low-frequency block
of a 2D DCT: a bit is set when its coefficient exceeds the average of the
block's AC coefficients.
*/
package bithash

import (
	"errors"
	"fmt"
	"strings"

	"github.com/menta2k/image-dedup/pkg/dct"
	"github.com/menta2k/image-dedup/pkg/types"
)

// DefaultSize is the default number of low-frequency coefficients per axis.
const DefaultSize = 8

var (
	// ErrNotSquare is returned for fields that are not N×N.
	ErrNotSquare = errors.New("bithash: intensity field must be square")

	// ErrHashSize is returned when the hash size is below 2 or exceeds the field.
	ErrHashSize = errors.New("bithash: invalid hash size")
)

// HashMatrix is an immutable K×K bit matrix.
type HashMatrix struct {
	size int
	bits []bool
}

// NewHashMatrix wraps rows of bits into a matrix. Rows must all have the same
// length as the number of rows.
func NewHashMatrix(rows [][]bool) (HashMatrix, error) {
	k := len(rows)
	bits := make([]bool, 0, k*k)
	for i, row := range rows {
		if len(row) != k {
			return HashMatrix{}, fmt.Errorf("%w: row %d has %d bits, expected %d", ErrHashSize, i, len(row), k)
		}
		bits = append(bits, row...)
	}
	return HashMatrix{size: k, bits: bits}, nil
}

// Size returns K.
func (h HashMatrix) Size() int { return h.size }

// Bit returns the bit at row r, column c.
func (h HashMatrix) Bit(r, c int) bool { return h.bits[r*h.size+c] }

// String renders the matrix as rows of 0 and 1 separated by '/'.
func (h HashMatrix) String() string {
	var sb strings.Builder
	for r := 0; r < h.size; r++ {
		if r > 0 {
			sb.WriteByte('/')
		}
		for c := 0; c < h.size; c++ {
			if h.Bit(r, c) {
				sb.WriteByte('1')
			} else {
				sb.WriteByte('0')
			}
		}
	}
	return sb.String()
}

// Uint64 packs the bits row by row, most significant bit first. It is only
// meaningful for matrices of at most 64 bits.
func (h HashMatrix) Uint64() uint64 {
	var v uint64
	for _, b := range h.bits {
		v <<= 1
		if b {
			v |= 1
		}
	}
	return v
}

// Build hashes a square intensity field using the k×k lowest DCT frequencies.
//
// The field is transformed as pix[x][y], coefficients are truncated to
// integers and the bit at [j][i] records coef[i][j] > average. The transpose is
// the same for every image, so only its consistency matters.
func Build(field *types.IntensityField, k int) (HashMatrix, error) {
	n := field.Width()
	if n != field.Height() || n == 0 {
		return HashMatrix{}, fmt.Errorf("%w: got %dx%d", ErrNotSquare, field.Width(), field.Height())
	}
	if k < 2 || k > n {
		return HashMatrix{}, fmt.Errorf("%w: %d for a %dx%d field", ErrHashSize, k, n, n)
	}

	coefs, err := dct.NewBasis(n).Transform2D(field.Columns())
	if err != nil {
		return HashMatrix{}, fmt.Errorf("failed to transform field: %w", err)
	}

	low := make([][]int, k)
	sum := 0
	for i := 0; i < k; i++ {
		low[i] = make([]int, k)
		for j := 0; j < k; j++ {
			low[i][j] = int(coefs[i][j])
			sum += low[i][j]
		}
	}
	// The DC coefficient only carries overall brightness.
	sum -= low[0][0]
	average := sum / (k*k - 1)

	bits := make([]bool, k*k)
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			bits[j*k+i] = low[i][j] > average
		}
	}
	return HashMatrix{size: k, bits: bits}, nil
}
