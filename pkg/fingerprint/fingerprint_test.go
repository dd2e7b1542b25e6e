package fingerprint

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-dedup/pkg/bithash"
	"github.com/menta2k/image-dedup/pkg/digest"
	"github.com/menta2k/image-dedup/pkg/types"
)

// createTestImage creates an image with a bright subject on a gradient
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 && y > height/3 && y < 2*height/3 {
				img.Set(x, y, color.RGBA{255, 255, 255, 255})
			} else {
				img.Set(x, y, color.RGBA{uint8((x * 128) / width), uint8((y * 128) / height), 64, 255})
			}
		}
	}
	return img
}

func createField(size int) *types.IntensityField {
	field := types.NewIntensityField(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			field.Set(x, y, float64((x*x+3*y)%256))
		}
	}
	return field
}

func TestFromField(t *testing.T) {
	e := NewExtractor()
	record, err := e.FromField("/photos/a.jpg", createField(32))
	require.NoError(t, err)

	assert.Equal(t, "/photos/a.jpg", record.ID)
	assert.Equal(t, "a.jpg", record.Name)
	assert.Equal(t, bithash.DefaultSize, record.Hash.Size())
	assert.Len(t, record.Digest, digest.DefaultLength)
}

func TestFromFieldInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Angles = 30
	_, err := NewExtractorWithConfig(cfg, nil, nil).FromField("x", createField(32))
	assert.Error(t, err)

	_, err = NewExtractor().FromField("x", types.NewIntensityField(32, 16))
	assert.ErrorIs(t, err, bithash.ErrNotSquare)
}

func TestExtractAllSkipsUndecodableFiles(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "one.png"),
		filepath.Join(dir, "broken.jpg"),
		filepath.Join(dir, "two.bmp"),
	}
	require.NoError(t, imaging.Save(createTestImage(120, 90), paths[0]))
	require.NoError(t, os.WriteFile(paths[1], []byte("garbage"), 0o644))
	require.NoError(t, imaging.Save(createTestImage(60, 60), paths[2]))

	logger, hook := test.NewNullLogger()
	cfg := DefaultConfig()
	cfg.Workers = 2
	e := NewExtractorWithConfig(cfg, nil, logger)

	records, failures, err := e.ExtractAll(context.Background(), paths)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, paths[0], records[0].ID)
	assert.Equal(t, paths[2], records[1].ID)

	require.Len(t, failures, 1)
	assert.Equal(t, paths[1], failures[0].Path)
	assert.Error(t, failures[0].Err)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, paths[1], hook.LastEntry().Data["file"])
}

func TestExtractAllCancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.png")
	require.NoError(t, imaging.Save(createTestImage(40, 40), path))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewExtractor().ExtractAll(ctx, []string{path})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractFileSameImageSameRecord(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	img := createTestImage(100, 80)
	require.NoError(t, imaging.Save(img, a))
	require.NoError(t, imaging.Save(img, b))

	e := NewExtractor()
	ra, err := e.ExtractFile(a)
	require.NoError(t, err)
	rb, err := e.ExtractFile(b)
	require.NoError(t, err)

	assert.Equal(t, ra.Hash, rb.Hash)
	assert.Equal(t, ra.Digest, rb.Digest)
}

func BenchmarkFromField(b *testing.B) {
	e := NewExtractor()
	field := createField(32)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.FromField("bench", field)
	}
}
