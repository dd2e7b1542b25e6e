package types

import "fmt"

// IntensityField is a single-channel brightness grid of fixed size. Values are
// stored row-major; At(x, y) addresses column x of row y.
type IntensityField struct {
	width  int
	height int
	pix    []float64
}

// NewIntensityField creates a zero-filled field of the given dimensions
func NewIntensityField(width, height int) *IntensityField {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &IntensityField{
		width:  width,
		height: height,
		pix:    make([]float64, width*height),
	}
}

// IntensityFieldFromRows builds a field from a slice of equally long rows
func IntensityFieldFromRows(rows [][]float64) (*IntensityField, error) {
	if len(rows) == 0 {
		return NewIntensityField(0, 0), nil
	}
	width := len(rows[0])
	field := NewIntensityField(width, len(rows))
	for y, row := range rows {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d values, expected %d", y, len(row), width)
		}
		copy(field.pix[y*width:(y+1)*width], row)
	}
	return field, nil
}

// Width returns the number of columns
func (f *IntensityField) Width() int { return f.width }

// Height returns the number of rows
func (f *IntensityField) Height() int { return f.height }

// At returns the intensity at column x, row y
func (f *IntensityField) At(x, y int) float64 {
	return f.pix[y*f.width+x]
}

// Set stores the intensity at column x, row y
func (f *IntensityField) Set(x, y int, v float64) {
	f.pix[y*f.width+x] = v
}

// In reports whether (x, y) lies inside the field
func (f *IntensityField) In(x, y int) bool {
	return x >= 0 && x < f.width && y >= 0 && y < f.height
}

// Columns returns a copy of the field indexed as [x][y]
func (f *IntensityField) Columns() [][]float64 {
	cols := make([][]float64, f.width)
	for x := range cols {
		cols[x] = make([]float64, f.height)
		for y := 0; y < f.height; y++ {
			cols[x][y] = f.pix[y*f.width+x]
		}
	}
	return cols
}
