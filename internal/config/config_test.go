package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menta2k/image-dedup/pkg/digest"
	"github.com/menta2k/image-dedup/pkg/matcher"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Empty(t, c.Sanitize())

	assert.Equal(t, 0.75, c.Matcher.SimilarityThreshold)
	assert.Equal(t, 15, c.Matcher.DistanceThreshold)
	assert.Equal(t, 32, c.Fingerprint.ThumbnailSize)
	assert.Equal(t, 8, c.Fingerprint.HashSize)
	assert.Equal(t, 180, c.Fingerprint.AngleCount)
	assert.Equal(t, 40, c.Fingerprint.DigestLength)
	assert.Equal(t, []string{"jpg", "jpeg", "bmp", "png"}, c.Input.SupportedFormats)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.json")
	c := Default()
	c.Matcher.Mode = string(matcher.ModeHash)
	c.Matcher.NCCMethod = string(matcher.MethodFFT)
	c.Workers = 3
	require.NoError(t, c.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestLoadKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"matcher":{"similarity_threshold":0.9}}`), 0644))

	c, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, c.Matcher.SimilarityThreshold)
	assert.Equal(t, 15, c.Matcher.DistanceThreshold)
	assert.Equal(t, 180, c.Fingerprint.AngleCount)
}

func TestLoadMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"matcher":`), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}

func TestSanitize(t *testing.T) {
	c := Default()
	c.Matcher.SimilarityThreshold = 1.5
	c.Matcher.DistanceThreshold = -1
	c.Matcher.Mode = "fuzzy"
	c.Matcher.NCCMethod = "magic"
	c.Fingerprint.AngleCount = 90
	c.Fingerprint.DigestLength = 0
	c.Fingerprint.ResampleFilter = "bicubic"
	c.Input.SupportedFormats = nil
	c.Workers = -4

	warnings := c.Sanitize()
	assert.Len(t, warnings, 9)
	assert.Equal(t, Default(), c)
	require.NoError(t, c.Validate())
}

func TestSanitizeThresholdBounds(t *testing.T) {
	tests := []struct {
		name         string
		similarity   float64
		distance     int
		wantSim      float64
		wantDist     int
		wantWarnings int
	}{
		{"zero kept", 0, 0, 0, 0, 0},
		{"upper bounds kept", 1, 64, 1, 64, 0},
		{"distance above max", 0.5, 65, 0.5, 15, 1},
		{"far out of range", -0.5, 100, 0.75, 15, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.Matcher.SimilarityThreshold = tt.similarity
			c.Matcher.DistanceThreshold = tt.distance

			warnings := c.Sanitize()
			assert.Len(t, warnings, tt.wantWarnings)
			assert.Equal(t, tt.wantSim, c.Matcher.SimilarityThreshold)
			assert.Equal(t, tt.wantDist, c.Matcher.DistanceThreshold)
			assert.NoError(t, c.Validate())
		})
	}
}

func TestSanitizeClampsToThumbnail(t *testing.T) {
	c := Default()
	c.Fingerprint.ThumbnailSize = 4
	c.Fingerprint.AngleCount = 8

	warnings := c.Sanitize()
	assert.Len(t, warnings, 2)
	assert.Equal(t, 4, c.Fingerprint.HashSize)
	assert.Equal(t, 8, c.Fingerprint.DigestLength)
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative similarity", func(c *Config) { c.Matcher.SimilarityThreshold = -0.1 }},
		{"similarity above one", func(c *Config) { c.Matcher.SimilarityThreshold = 1.1 }},
		{"negative distance", func(c *Config) { c.Matcher.DistanceThreshold = -1 }},
		{"distance above max", func(c *Config) { c.Matcher.DistanceThreshold = 65 }},
		{"hash size", func(c *Config) { c.Fingerprint.HashSize = 64 }},
		{"angles", func(c *Config) { c.Fingerprint.AngleCount = 30 }},
		{"digest length", func(c *Config) { c.Fingerprint.DigestLength = 181 }},
		{"resample filter", func(c *Config) { c.Fingerprint.ResampleFilter = "bicubic" }},
		{"formats", func(c *Config) { c.Input.SupportedFormats = []string{} }},
		{"output dir", func(c *Config) { c.Output.OutputDir = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.modify(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("IMAGEDEDUP_SIMILARITY_THRESHOLD", "0.8")
	t.Setenv("IMAGEDEDUP_DISTANCE_THRESHOLD", "not a number")
	t.Setenv("IMAGEDEDUP_MODE", "hash")
	t.Setenv("IMAGEDEDUP_SUPPORTED_FORMATS", "jpg, webp ,")
	t.Setenv("IMAGEDEDUP_RECURSIVE", "1")
	t.Setenv("IMAGEDEDUP_ZERO_ANCHORED_QUANTIZATION", "true")
	t.Setenv("IMAGEDEDUP_WORKERS", "6")
	t.Setenv("IMAGEDEDUP_RESAMPLE_FILTER", "box")

	c := Default()
	c.ApplyEnv()

	assert.Equal(t, 0.8, c.Matcher.SimilarityThreshold)
	assert.Equal(t, 15, c.Matcher.DistanceThreshold)
	assert.Equal(t, "hash", c.Matcher.Mode)
	assert.Equal(t, []string{"jpg", "webp"}, c.Input.SupportedFormats)
	assert.True(t, c.Input.Recursive)
	assert.True(t, c.Fingerprint.ZeroAnchoredQuantization)
	assert.Equal(t, 6, c.Workers)
	assert.Equal(t, "box", c.Fingerprint.ResampleFilter)
}

func TestConversions(t *testing.T) {
	c := Default()
	c.Fingerprint.ZeroAnchoredQuantization = true
	c.Workers = 2
	c.Output.ShowProgress = true

	fc := c.FingerprintConfig()
	assert.Equal(t, digest.BoundsZeroAnchored, fc.Bounds)
	assert.Equal(t, 2, fc.Workers)
	assert.True(t, fc.ShowProgress)
	assert.Equal(t, 40, fc.DigestLength)

	th := c.Thresholds()
	assert.Equal(t, matcher.DefaultThresholds(), th)

	c.Fingerprint.ResampleFilter = "nearest"
	assert.NotNil(t, c.Processor())
	c.Fingerprint.ResampleFilter = "bicubic"
	assert.NotNil(t, c.Processor())
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.json", filepath.Base(GetConfigPath()))
}
