package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/menta2k/image-dedup/internal/utils"
	"github.com/menta2k/image-dedup/pkg/bithash"
	"github.com/menta2k/image-dedup/pkg/digest"
	"github.com/menta2k/image-dedup/pkg/fingerprint"
	"github.com/menta2k/image-dedup/pkg/matcher"
	"github.com/menta2k/image-dedup/pkg/processing"
	"github.com/menta2k/image-dedup/pkg/radon"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "IMAGEDEDUP_"

// MaxDistanceThreshold is the largest accepted bit hash distance threshold
const MaxDistanceThreshold = 64

// Config holds the application configuration
type Config struct {
	Matcher     MatcherConfig     `json:"matcher"`
	Fingerprint FingerprintConfig `json:"fingerprint"`
	Input       InputConfig       `json:"input"`
	Output      OutputConfig      `json:"output"`
	Workers     int               `json:"workers"`
}

// MatcherConfig holds the match thresholds
type MatcherConfig struct {
	SimilarityThreshold float64 `json:"similarity_threshold"`
	DistanceThreshold   int     `json:"distance_threshold"`
	Mode                string  `json:"mode"`
	NCCMethod           string  `json:"ncc_method"`
}

// FingerprintConfig holds the fingerprint parameters
type FingerprintConfig struct {
	ThumbnailSize            int    `json:"thumbnail_size"`
	HashSize                 int    `json:"hash_size"`
	AngleCount               int    `json:"angle_count"`
	DigestLength             int    `json:"digest_length"`
	ZeroAnchoredQuantization bool   `json:"zero_anchored_quantization"`
	ResampleFilter           string `json:"resample_filter"`
}

// InputConfig holds configuration for file enumeration
type InputConfig struct {
	SupportedFormats []string `json:"supported_formats"`
	Recursive        bool     `json:"recursive"`
}

// OutputConfig holds configuration for output generation
type OutputConfig struct {
	OutputDir    string `json:"output_dir"`
	ReportFile   string `json:"report_file"`
	ShowProgress bool   `json:"show_progress"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Matcher: MatcherConfig{
			SimilarityThreshold: matcher.DefaultSimilarity,
			DistanceThreshold:   matcher.DefaultDistance,
			Mode:                string(matcher.ModeCombined),
			NCCMethod:           string(matcher.MethodDirect),
		},
		Fingerprint: FingerprintConfig{
			ThumbnailSize:  processing.DefaultThumbnailSize,
			HashSize:       bithash.DefaultSize,
			AngleCount:     radon.DefaultAngles,
			DigestLength:   digest.DefaultLength,
			ResampleFilter: processing.DefaultFilter,
		},
		Input: InputConfig{
			SupportedFormats: append([]string(nil), utils.DefaultImageFormats...),
		},
		Output: OutputConfig{
			OutputDir:  "./duplicates",
			ReportFile: "report.json",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Fields missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides fields from IMAGEDEDUP_* environment variables
func (c *Config) ApplyEnv() {
	c.Matcher.SimilarityThreshold = getEnvFloat("SIMILARITY_THRESHOLD", c.Matcher.SimilarityThreshold)
	c.Matcher.DistanceThreshold = getEnvInt("DISTANCE_THRESHOLD", c.Matcher.DistanceThreshold)
	c.Matcher.Mode = getEnv("MODE", c.Matcher.Mode)
	c.Matcher.NCCMethod = getEnv("NCC_METHOD", c.Matcher.NCCMethod)

	c.Fingerprint.ThumbnailSize = getEnvInt("THUMBNAIL_SIZE", c.Fingerprint.ThumbnailSize)
	c.Fingerprint.HashSize = getEnvInt("HASH_SIZE", c.Fingerprint.HashSize)
	c.Fingerprint.AngleCount = getEnvInt("ANGLE_COUNT", c.Fingerprint.AngleCount)
	c.Fingerprint.DigestLength = getEnvInt("DIGEST_LENGTH", c.Fingerprint.DigestLength)
	c.Fingerprint.ZeroAnchoredQuantization = getEnvBool("ZERO_ANCHORED_QUANTIZATION", c.Fingerprint.ZeroAnchoredQuantization)
	c.Fingerprint.ResampleFilter = getEnv("RESAMPLE_FILTER", c.Fingerprint.ResampleFilter)

	c.Input.SupportedFormats = getEnvList("SUPPORTED_FORMATS", c.Input.SupportedFormats)
	c.Input.Recursive = getEnvBool("RECURSIVE", c.Input.Recursive)

	c.Output.OutputDir = getEnv("OUTPUT_DIR", c.Output.OutputDir)
	c.Output.ReportFile = getEnv("REPORT_FILE", c.Output.ReportFile)
	c.Output.ShowProgress = getEnvBool("SHOW_PROGRESS", c.Output.ShowProgress)

	c.Workers = getEnvInt("WORKERS", c.Workers)
}

// Sanitize replaces out-of-range values with their defaults and returns one
// warning per replaced field.
func (c *Config) Sanitize() []string {
	def := Default()
	var warnings []string
	replace := func(field string, bad, good any) {
		warnings = append(warnings, fmt.Sprintf("%s: invalid value %v, using %v", field, bad, good))
	}

	if s := c.Matcher.SimilarityThreshold; s < 0 || s > 1 {
		replace("matcher.similarity_threshold", s, def.Matcher.SimilarityThreshold)
		c.Matcher.SimilarityThreshold = def.Matcher.SimilarityThreshold
	}
	if d := c.Matcher.DistanceThreshold; d < 0 || d > MaxDistanceThreshold {
		replace("matcher.distance_threshold", d, def.Matcher.DistanceThreshold)
		c.Matcher.DistanceThreshold = def.Matcher.DistanceThreshold
	}
	switch matcher.Mode(c.Matcher.Mode) {
	case matcher.ModeCombined, matcher.ModeHash, matcher.ModeDigest:
	default:
		replace("matcher.mode", c.Matcher.Mode, def.Matcher.Mode)
		c.Matcher.Mode = def.Matcher.Mode
	}
	switch matcher.Method(c.Matcher.NCCMethod) {
	case matcher.MethodDirect, matcher.MethodFFT:
	default:
		replace("matcher.ncc_method", c.Matcher.NCCMethod, def.Matcher.NCCMethod)
		c.Matcher.NCCMethod = def.Matcher.NCCMethod
	}

	fp := &c.Fingerprint
	if fp.ThumbnailSize < 2 {
		replace("fingerprint.thumbnail_size", fp.ThumbnailSize, def.Fingerprint.ThumbnailSize)
		fp.ThumbnailSize = def.Fingerprint.ThumbnailSize
	}
	if fp.HashSize < 2 || fp.HashSize > fp.ThumbnailSize {
		good := def.Fingerprint.HashSize
		if good > fp.ThumbnailSize {
			good = fp.ThumbnailSize
		}
		replace("fingerprint.hash_size", fp.HashSize, good)
		fp.HashSize = good
	}
	if fp.AngleCount <= 0 || fp.AngleCount%4 != 0 {
		replace("fingerprint.angle_count", fp.AngleCount, def.Fingerprint.AngleCount)
		fp.AngleCount = def.Fingerprint.AngleCount
	}
	if fp.DigestLength <= 0 || fp.DigestLength > fp.AngleCount {
		good := def.Fingerprint.DigestLength
		if good > fp.AngleCount {
			good = fp.AngleCount
		}
		replace("fingerprint.digest_length", fp.DigestLength, good)
		fp.DigestLength = good
	}
	if _, err := processing.ParseFilter(fp.ResampleFilter); err != nil {
		replace("fingerprint.resample_filter", fp.ResampleFilter, def.Fingerprint.ResampleFilter)
		fp.ResampleFilter = def.Fingerprint.ResampleFilter
	}

	if len(c.Input.SupportedFormats) == 0 {
		replace("input.supported_formats", c.Input.SupportedFormats, def.Input.SupportedFormats)
		c.Input.SupportedFormats = def.Input.SupportedFormats
	}
	if c.Output.OutputDir == "" {
		replace("output.output_dir", `""`, def.Output.OutputDir)
		c.Output.OutputDir = def.Output.OutputDir
	}
	if c.Workers < 0 {
		replace("workers", c.Workers, 0)
		c.Workers = 0
	}

	return warnings
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Matcher.SimilarityThreshold < 0 || c.Matcher.SimilarityThreshold > 1 {
		return fmt.Errorf("matcher.similarity_threshold must be between 0 and 1")
	}

	if c.Matcher.DistanceThreshold < 0 || c.Matcher.DistanceThreshold > MaxDistanceThreshold {
		return fmt.Errorf("matcher.distance_threshold must be between 0 and %d", MaxDistanceThreshold)
	}

	if c.Fingerprint.HashSize < 2 || c.Fingerprint.HashSize > c.Fingerprint.ThumbnailSize {
		return fmt.Errorf("fingerprint.hash_size must be between 2 and thumbnail_size")
	}

	if c.Fingerprint.AngleCount <= 0 || c.Fingerprint.AngleCount%4 != 0 {
		return fmt.Errorf("fingerprint.angle_count must be a positive multiple of 4")
	}

	if c.Fingerprint.DigestLength <= 0 || c.Fingerprint.DigestLength > c.Fingerprint.AngleCount {
		return fmt.Errorf("fingerprint.digest_length must be between 1 and angle_count")
	}

	if _, err := processing.ParseFilter(c.Fingerprint.ResampleFilter); err != nil {
		return fmt.Errorf("fingerprint.resample_filter: %w", err)
	}

	if len(c.Input.SupportedFormats) == 0 {
		return fmt.Errorf("input.supported_formats cannot be empty")
	}

	if c.Output.OutputDir == "" {
		return fmt.Errorf("output.output_dir cannot be empty")
	}

	return nil
}

// FingerprintConfig converts the configuration for the extractor
func (c *Config) FingerprintConfig() fingerprint.Config {
	bounds := digest.BoundsFromCoefficients
	if c.Fingerprint.ZeroAnchoredQuantization {
		bounds = digest.BoundsZeroAnchored
	}
	return fingerprint.Config{
		ThumbnailSize: c.Fingerprint.ThumbnailSize,
		HashSize:      c.Fingerprint.HashSize,
		Angles:        c.Fingerprint.AngleCount,
		DigestLength:  c.Fingerprint.DigestLength,
		Bounds:        bounds,
		Workers:       c.Workers,
		ShowProgress:  c.Output.ShowProgress,
	}
}

// Processor builds the image processor for the configured resampling filter.
// An unknown filter falls back to the default one.
func (c *Config) Processor() *processing.Processor {
	filter, err := processing.ParseFilter(c.Fingerprint.ResampleFilter)
	if err != nil {
		return processing.NewProcessor()
	}
	return processing.NewProcessorWithFilter(filter)
}

// Thresholds converts the configuration for the scanner
func (c *Config) Thresholds() matcher.Thresholds {
	return matcher.Thresholds{
		Similarity: c.Matcher.SimilarityThreshold,
		Distance:   c.Matcher.DistanceThreshold,
		Mode:       matcher.Mode(c.Matcher.Mode),
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-dedup", "config.json")
}

func getEnv(key, def string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if t := strings.TrimSpace(p); t != "" {
				result = append(result, t)
			}
		}
		return result
	}
	return def
}
