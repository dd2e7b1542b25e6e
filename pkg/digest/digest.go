/*
Package digest turns Radon projections into a normalized per-angle feature
vector and quantizes its low-frequency DCT coefficients into a byte digest.
*/
package digest

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/menta2k/image-dedup/pkg/dct"
	"github.com/menta2k/image-dedup/pkg/radon"
)

// DefaultLength is the default number of digest coefficients.
const DefaultLength = 40

// FeatureVector holds one normalized energy value per projection angle.
type FeatureVector []float64

// Digest is the quantized DCT of a feature vector.
type Digest []byte

// Bounds selects how the quantization range is seeded.
type Bounds int

const (
	// BoundsFromCoefficients seeds min and max with the first coefficient, so
	// the range is exactly the span of the coefficients.
	BoundsFromCoefficients Bounds = iota

	// BoundsZeroAnchored seeds min and max with zero, so the range always
	// contains zero.
	BoundsZeroAnchored
)

// String implements fmt.Stringer.
func (b Bounds) String() string {
	if b == BoundsZeroAnchored {
		return "zero-anchored"
	}
	return "coefficients"
}

// Features computes the variance of every projection line and normalizes the
// result to zero mean and unit variance across angles. Lines without samples
// contribute 0. A profile with no variance across angles normalizes to all
// zeros.
func Features(p *radon.Projections) FeatureVector {
	n := p.Lines()
	features := make(FeatureVector, n)
	if n == 0 {
		return features
	}

	for k, row := range p.Region {
		count := float64(p.PixelCount[k])
		if count > 0 {
			lineSum, lineSumSqd := 0.0, 0.0
			for _, v := range row {
				lineSum += v
				lineSumSqd += v * v
			}
			features[k] = lineSumSqd/count - (lineSum*lineSum)/(count*count)
		}
	}

	mean, variance := stat.PopMeanVariance(features, nil)
	if !(variance > 0) {
		for k := range features {
			features[k] = 0
		}
		return features
	}

	std := math.Sqrt(variance)
	for k := range features {
		features[k] = (features[k] - mean) / std
	}
	return features
}

// Quantize maps coefficients linearly onto [0,255], truncating toward zero.
// When every coefficient is equal the mapping is undefined and the digest is
// all zeros.
func Quantize(coeffs []float64, bounds Bounds) Digest {
	out := make(Digest, len(coeffs))
	if len(coeffs) == 0 {
		return out
	}

	lo, hi := coeffs[0], coeffs[0]
	if bounds == BoundsZeroAnchored {
		lo, hi = 0, 0
	}
	for _, v := range coeffs {
		if v > hi {
			hi = v
		}
		if v < lo {
			lo = v
		}
	}
	if hi == lo {
		return out
	}

	for i, v := range coeffs {
		out[i] = byte(math.MaxUint8 * (v - lo) / (hi - lo))
	}
	return out
}

// Build computes the digest of length m for the given projections.
func Build(p *radon.Projections, m int, bounds Bounds) Digest {
	return Quantize(dct.Transform1D(Features(p), m), bounds)
}

// IsZero reports whether every byte of the digest is zero, which is the case
// for degenerate inputs.
func (d Digest) IsZero() bool {
	for _, b := range d {
		if b != 0 {
			return false
		}
	}
	return true
}
