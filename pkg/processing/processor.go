package processing

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-dedup/pkg/types"
)

// DefaultThumbnailSize is the edge length images are reduced to before
// fingerprinting.
const DefaultThumbnailSize = 32

// Processor handles image decoding and thumbnail preparation
type Processor struct {
	filter imaging.ResampleFilter
}

// DefaultFilter names the resampling filter used by NewProcessor
const DefaultFilter = "lanczos"

var filters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"box":        imaging.Box,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

// ParseFilter looks up a resampling filter by name
func ParseFilter(name string) (imaging.ResampleFilter, error) {
	f, ok := filters[strings.ToLower(name)]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unknown resample filter: %q", name)
	}
	return f, nil
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{filter: imaging.Lanczos}
}

// NewProcessorWithFilter creates a processor with a custom resampling filter
func NewProcessorWithFilter(filter imaging.ResampleFilter) *Processor {
	return &Processor{filter: filter}
}

// LoadImage loads an image from a file path, honouring EXIF orientation.
// WebP files the registered decoder rejects are retried with the libwebp
// decoder.
func (p *Processor) LoadImage(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err == nil {
		return img, nil
	}
	if !strings.EqualFold(filepath.Ext(path), ".webp") {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	f, openErr := os.Open(path)
	if openErr != nil {
		return nil, fmt.Errorf("failed to open image file: %w", openErr)
	}
	defer f.Close()

	img, webpErr := webp.Decode(f)
	if webpErr != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return img, nil
}

// Thumbnail reduces an image to size×size grayscale, ignoring aspect ratio
func (p *Processor) Thumbnail(img image.Image, size int) *image.NRGBA {
	return imaging.Grayscale(imaging.Resize(img, size, size, p.filter))
}

// IntensityField converts an image into a size×size brightness field. The
// value of every cell is the green channel of the grayscale thumbnail.
func (p *Processor) IntensityField(img image.Image, size int) (*types.IntensityField, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size: %d", size)
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	thumb := p.Thumbnail(img, size)
	field := types.NewIntensityField(size, size)
	for y := 0; y < size; y++ {
		i := y * thumb.Stride
		for x := 0; x < size; x++ {
			field.Set(x, y, float64(thumb.Pix[i+1]))
			i += 4
		}
	}
	return field, nil
}

// LoadIntensityField decodes the file at path and converts it to a field
func (p *Processor) LoadIntensityField(path string, size int) (*types.IntensityField, error) {
	img, err := p.LoadImage(path)
	if err != nil {
		return nil, err
	}
	return p.IntensityField(img, size)
}
