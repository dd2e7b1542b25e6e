package digest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-dedup/pkg/radon"
	"github.com/menta2k/image-dedup/pkg/types"
)

func createPatternField(width, height int) *types.IntensityField {
	field := types.NewIntensityField(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := 0.0
			if x > width/3 && x < 2*width/3 && y > height/4 {
				v = 255
			} else {
				v = float64((x * 128) / width)
			}
			field.Set(x, y, v)
		}
	}
	return field
}

func createUniformField(width, height int, v float64) *types.IntensityField {
	field := types.NewIntensityField(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			field.Set(x, y, v)
		}
	}
	return field
}

func TestFeaturesAreNormalized(t *testing.T) {
	p, err := radon.Project(createPatternField(32, 32), radon.DefaultAngles)
	require.NoError(t, err)

	features := Features(p)
	require.Len(t, features, radon.DefaultAngles)

	sum, sumSqd := 0.0, 0.0
	for _, v := range features {
		sum += v
		sumSqd += v * v
	}
	mean := sum / float64(len(features))
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, sumSqd/float64(len(features))-mean*mean, 1e-9)
}

func TestFeaturesLineVariance(t *testing.T) {
	p := &radon.Projections{
		Region:     [][]float64{{2, 4, 0, 0}, {0, 0, 0, 0}, {1, 1, 1, 1}, {0, 6, 0, 0}},
		PixelCount: []int{2, 0, 4, 2},
		Width:      4,
	}
	// Raw variances: 1, 0, 0, 9 -> mean 2.5, std sqrt(14.25).
	features := Features(p)
	std := math.Sqrt(14.25)
	assert.InDeltaSlice(t, []float64{-1.5 / std, -2.5 / std, -2.5 / std, 6.5 / std}, features, 1e-12)
}

func TestFeaturesUniformField(t *testing.T) {
	p, err := radon.Project(createUniformField(32, 32, 128), radon.DefaultAngles)
	require.NoError(t, err)

	for _, v := range Features(p) {
		assert.Equal(t, 0.0, v)
		assert.False(t, math.IsNaN(v))
	}
}

func TestQuantize(t *testing.T) {
	d := Quantize([]float64{-1, 0, 1, 3}, BoundsFromCoefficients)
	assert.Equal(t, Digest{0, 63, 127, 255}, d)
}

func TestQuantizeBounds(t *testing.T) {
	coeffs := []float64{2, 3, 4}

	assert.Equal(t, Digest{0, 127, 255}, Quantize(coeffs, BoundsFromCoefficients))
	// Zero-anchored keeps 0 inside the range, compressing positive-only spans.
	assert.Equal(t, Digest{127, 191, 255}, Quantize(coeffs, BoundsZeroAnchored))
}

func TestQuantizeDegenerate(t *testing.T) {
	d := Quantize([]float64{5, 5, 5}, BoundsFromCoefficients)
	assert.Equal(t, Digest{0, 0, 0}, d)
	assert.True(t, d.IsZero())

	assert.True(t, Quantize([]float64{0, 0}, BoundsZeroAnchored).IsZero())
	assert.Empty(t, Quantize(nil, BoundsFromCoefficients))
}

func TestBuildUniformFieldFallsBackToZeroDigest(t *testing.T) {
	p, err := radon.Project(createUniformField(32, 32, 200), radon.DefaultAngles)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		d := Build(p, DefaultLength, BoundsFromCoefficients)
		assert.Len(t, d, DefaultLength)
		assert.True(t, d.IsZero())
	})
}

func TestBuildLengthIndependentOfResolution(t *testing.T) {
	for _, size := range [][2]int{{32, 32}, {64, 48}, {17, 90}} {
		p, err := radon.Project(createPatternField(size[0], size[1]), radon.DefaultAngles)
		require.NoError(t, err)

		d := Build(p, DefaultLength, BoundsFromCoefficients)
		assert.Len(t, d, DefaultLength, "size %v", size)
		assert.False(t, d.IsZero(), "size %v", size)
	}
}

func TestBoundsString(t *testing.T) {
	assert.Equal(t, "coefficients", BoundsFromCoefficients.String())
	assert.Equal(t, "zero-anchored", BoundsZeroAnchored.String())
}
