package matcher

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// NCC returns the rotation-robust normalized cross-correlation of two digests.
//
// Both digests are cut to the shorter length L. For every circular shift d the
// score is num²/(denx·deny) with num = Σ(x_i-mx)(y_{(i-d) mod L}-my). Shifts
// with negative num or a zero denominator are ignored; the result is the
// square root of the best remaining score, or 0 if none remains.
func NCC(x, y []byte) float64 {
	xs, ys, denx, deny, ok := centered(x, y)
	if !ok {
		return 0
	}
	n := len(xs)

	best := 0.0
	for d := 0; d < n; d++ {
		num := 0.0
		for i := 0; i < n; i++ {
			num += xs[i] * ys[(n+i-d)%n]
		}
		if r, ok := score(num, denx, deny); ok && r > best {
			best = r
		}
	}
	return math.Sqrt(best)
}

// NCCFFT computes the same value as NCC using a real FFT for the circular
// correlation. Results agree with NCC up to floating point rounding.
func NCCFFT(x, y []byte) float64 {
	xs, ys, denx, deny, ok := centered(x, y)
	if !ok {
		return 0
	}
	n := len(xs)

	fft := fourier.NewFFT(n)
	fx := fft.Coefficients(nil, xs)
	fy := fft.Coefficients(nil, ys)
	for i := range fx {
		fx[i] *= complex(real(fy[i]), -imag(fy[i]))
	}
	// corr[d] = Σ x[j+d]·y[j]; the inverse transform is unnormalized.
	corr := fft.Sequence(nil, fx)

	best := 0.0
	for d := 0; d < n; d++ {
		// Shift d in NCC pairs x[i] with y[i-d], i.e. corr[d].
		num := corr[d] / float64(n)
		if r, ok := score(num, denx, deny); ok && r > best {
			best = r
		}
	}
	return math.Sqrt(best)
}

// centered returns both digests cut to the shorter length with their means
// removed, along with their sums of squares. ok is false for empty input or a
// constant digest, where no shift can score.
func centered(x, y []byte) (xs, ys []float64, denx, deny float64, ok bool) {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	if n == 0 {
		return nil, nil, 0, 0, false
	}

	sumx, sumy := 0.0, 0.0
	for i := 0; i < n; i++ {
		sumx += float64(x[i])
		sumy += float64(y[i])
	}
	meanx := sumx / float64(n)
	meany := sumy / float64(n)

	xs = make([]float64, n)
	ys = make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = float64(x[i]) - meanx
		ys[i] = float64(y[i]) - meany
		denx += xs[i] * xs[i]
		deny += ys[i] * ys[i]
	}
	if denx == 0 || deny == 0 {
		return nil, nil, 0, 0, false
	}
	return xs, ys, denx, deny, true
}

func score(num, denx, deny float64) (float64, bool) {
	if num < 0 {
		return 0, false
	}
	r := num * num / (denx * deny)
	if r > 1 {
		// Cauchy-Schwarz bound; only exceeded through rounding.
		r = 1
	}
	return r, true
}
