/*
Package radon samples an intensity field along straight lines through its
center at evenly spaced angles between 0 and 180 degrees.
*/
package radon

import (
	"errors"
	"fmt"
	"math"

	"github.com/menta2k/image-dedup/pkg/types"
)

// DefaultAngles is the default number of projection lines.
const DefaultAngles = 180

// ErrAngleCount is returned when the line count is not a positive multiple of 4.
var ErrAngleCount = errors.New("radon: angle count must be a positive multiple of 4")

// Projections holds the sampled intensities of every line. Region[k][x] is the
// sample taken at step x of line k (zero where the line left the field) and
// PixelCount[k] is the number of samples that fell inside the field.
type Projections struct {
	Region     [][]float64
	PixelCount []int
	Width      int
}

func newProjections(lines, width int) *Projections {
	p := &Projections{
		Region:     make([][]float64, lines),
		PixelCount: make([]int, lines),
		Width:      width,
	}
	for k := range p.Region {
		p.Region[k] = make([]float64, width)
	}
	return p
}

// Lines returns the number of angles.
func (p *Projections) Lines() int { return len(p.PixelCount) }

func (p *Projections) store(line, step int, v float64) {
	p.Region[line][step] = v
	p.PixelCount[line]++
}

// round computes floor(v + 0.5*sign(v)) with sign(0) = +1. For negative v this
// is one below the nearest integer; line placement depends on the exact form.
func round(v float64) int {
	if v >= 0 {
		return int(math.Floor(v + 0.5))
	}
	return int(math.Floor(v - 0.5))
}

// Project samples field along lines angled k*pi/lines for k in [0, lines).
// Only the first and last quarter of the angles are traced; the remaining
// lines are read from the same steps reflected across the diagonals.
func Project(field *types.IntensityField, lines int) (*Projections, error) {
	if lines <= 0 || lines%4 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrAngleCount, lines)
	}

	width, height := field.Width(), field.Height()
	d := width
	if height > d {
		d = height
	}
	xOff := round(float64(width) / 2)
	yOff := round(float64(height) / 2)

	p := newProjections(lines, d)
	quarter := lines / 4

	for k := 0; k <= quarter; k++ {
		alpha := math.Tan(float64(k) * math.Pi / float64(lines))
		for x := 0; x < d; x++ {
			yd := round(alpha * float64(x-xOff))
			if field.In(x, yd+yOff) {
				p.store(k, x, field.At(x, yd+yOff))
			}
			if k == quarter {
				continue
			}
			// Steep complement: swap the roles of the axes.
			xd := round(alpha * float64(x-yOff))
			if field.In(xd+xOff, x) {
				p.store(lines/2-k, x, field.At(xd+xOff, x))
			}
		}
	}

	for k := 3 * quarter; k < lines; k++ {
		alpha := math.Tan(float64(k) * math.Pi / float64(lines))
		for x := 0; x < d; x++ {
			yd := round(alpha * float64(x-xOff))
			if field.In(x, yd+yOff) {
				p.store(k, x, field.At(x, yd+yOff))
			}
			if k == 3*quarter {
				continue
			}
			// Reflection across the anti-diagonal.
			xd := round(alpha * float64(x-yOff))
			if field.In(xOff-xd, 2*yOff-x) {
				p.store(3*lines/2-k, x, field.At(xOff-xd, 2*yOff-x))
			}
		}
	}

	return p, nil
}
