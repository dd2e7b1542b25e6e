/*
Package fingerprint builds the per-image record compared by the matcher: a
block-DCT bit hash and a Radon projection digest computed from one grayscale
thumbnail.
*/
package fingerprint

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/image-dedup/pkg/bithash"
	"github.com/menta2k/image-dedup/pkg/digest"
	"github.com/menta2k/image-dedup/pkg/processing"
	"github.com/menta2k/image-dedup/pkg/radon"
	"github.com/menta2k/image-dedup/pkg/types"
)

// Record pairs the two fingerprints of one image. Records are never modified
// after extraction.
type Record struct {
	ID     string
	Name   string
	Hash   bithash.HashMatrix
	Digest digest.Digest
}

// Config holds the fingerprint parameters. All images of a run must share
// them for their records to be comparable.
type Config struct {
	ThumbnailSize int
	HashSize      int
	Angles        int
	DigestLength  int
	Bounds        digest.Bounds
	Workers       int
	ShowProgress  bool
}

// DefaultConfig returns the default fingerprint parameters
func DefaultConfig() Config {
	return Config{
		ThumbnailSize: processing.DefaultThumbnailSize,
		HashSize:      bithash.DefaultSize,
		Angles:        radon.DefaultAngles,
		DigestLength:  digest.DefaultLength,
		Bounds:        digest.BoundsFromCoefficients,
	}
}

// Failure describes a file that could not be fingerprinted
type Failure struct {
	Path string
	Err  error
}

// Extractor computes records from images
type Extractor struct {
	processor *processing.Processor
	config    Config
	log       logrus.FieldLogger
}

// NewExtractor creates an extractor with default parameters
func NewExtractor() *Extractor {
	return NewExtractorWithConfig(DefaultConfig(), nil, nil)
}

// NewExtractorWithConfig creates an extractor. Nil processor and logger fall
// back to defaults.
func NewExtractorWithConfig(config Config, processor *processing.Processor, log logrus.FieldLogger) *Extractor {
	if processor == nil {
		processor = processing.NewProcessor()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if config.Workers <= 0 {
		config.Workers = runtime.GOMAXPROCS(0)
	}
	return &Extractor{processor: processor, config: config, log: log}
}

// Config returns the extractor parameters
func (e *Extractor) Config() Config { return e.config }

// FromField fingerprints an already prepared thumbnail
func (e *Extractor) FromField(id string, field *types.IntensityField) (*Record, error) {
	hash, err := bithash.Build(field, e.config.HashSize)
	if err != nil {
		return nil, fmt.Errorf("bit hash: %w", err)
	}

	projections, err := radon.Project(field, e.config.Angles)
	if err != nil {
		return nil, fmt.Errorf("radon projections: %w", err)
	}

	return &Record{
		ID:     id,
		Name:   filepath.Base(id),
		Hash:   hash,
		Digest: digest.Build(projections, e.config.DigestLength, e.config.Bounds),
	}, nil
}

// ExtractFile decodes and fingerprints a single image file
func (e *Extractor) ExtractFile(path string) (*Record, error) {
	field, err := e.processor.LoadIntensityField(path, e.config.ThumbnailSize)
	if err != nil {
		return nil, err
	}
	record, err := e.FromField(path, field)
	if err != nil {
		return nil, fmt.Errorf("fingerprint %s: %w", path, err)
	}
	if record.Digest.IsZero() {
		e.log.WithField("file", path).Debug("degenerate digest, image has no projection contrast")
	}
	return record, nil
}

// ExtractAll fingerprints every path on a bounded worker pool. Records keep
// the order of paths; files that fail are skipped and reported as failures.
// Only cancellation of ctx produces an error.
func (e *Extractor) ExtractAll(ctx context.Context, paths []string) ([]*Record, []Failure, error) {
	results := make([]*Record, len(paths))
	errs := make([]error, len(paths))

	var bar *pb.ProgressBar
	if e.config.ShowProgress {
		bar = pb.StartNew(len(paths))
		defer bar.Finish()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i], errs[i] = e.ExtractFile(path)
			if bar != nil {
				bar.Increment()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	records := make([]*Record, 0, len(paths))
	var failures []Failure
	for i, path := range paths {
		if errs[i] != nil {
			e.log.WithError(errs[i]).WithField("file", path).Warn("skipping image")
			failures = append(failures, Failure{Path: path, Err: errs[i]})
			continue
		}
		records = append(records, results[i])
	}
	return records, failures, nil
}
