// Package imagededup finds near-duplicate images in a folder.
//
// Every image is reduced to a small grayscale thumbnail and fingerprinted
// twice: a bit hash taken from the low-frequency block of its 2D DCT, and a
// digest built from Radon projections, which survives rotation. All pairs of
// fingerprints are then compared. Pairs that pass both the Hamming distance
// and the cross-correlation thresholds are copied into a new numbered group
// directory; pairs within a wider margin are only logged and reported.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		imagededup "github.com/menta2k/image-dedup"
//	)
//
//	func main() {
//		d := imagededup.New()
//
//		result, err := d.Run(context.Background(), "./photos", "./duplicates")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		log.Printf("%d images, %d groups", result.Images, len(result.Groups))
//	}
//
// The package consists of these components:
//
// 1. Processing (pkg/processing): decoding and thumbnail preparation
// 2. Fingerprint (pkg/fingerprint): bit hash and Radon digest per image
// 3. Matcher (pkg/matcher): pairwise Hamming and NCC comparison
// 4. Output (pkg/output): numbered group directories
// 5. Report (pkg/report): JSON summary of a run
//
// No clustering is performed. An image confirmed against several others is
// copied into one group per confirmed pair.
package imagededup

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/image-dedup/internal/config"
	"github.com/menta2k/image-dedup/internal/utils"
	"github.com/menta2k/image-dedup/pkg/fingerprint"
	"github.com/menta2k/image-dedup/pkg/matcher"
	"github.com/menta2k/image-dedup/pkg/output"
	"github.com/menta2k/image-dedup/pkg/report"
)

// Version of the image dedup library
const Version = "1.0.0"

// Deduper runs the full enumerate, fingerprint, match and materialize
// pipeline
type Deduper struct {
	config    *config.Config
	extractor *fingerprint.Extractor
	scanner   *matcher.Scanner
	log       logrus.FieldLogger
}

// New creates a Deduper with default configuration
func New() *Deduper {
	return NewWithConfig(config.Default(), nil)
}

// NewWithConfig creates a Deduper from cfg. cfg should have been sanitized;
// a nil logger uses the logrus standard logger.
func NewWithConfig(cfg *config.Config, log logrus.FieldLogger) *Deduper {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Deduper{
		config:    cfg,
		extractor: fingerprint.NewExtractorWithConfig(cfg.FingerprintConfig(), cfg.Processor(), log),
		scanner:   matcher.NewWithConfig(cfg.Thresholds(), matcher.Method(cfg.Matcher.NCCMethod), cfg.Workers, log),
		log:       log,
	}
}

// Config returns the configuration the Deduper was built with
func (d *Deduper) Config() *config.Config { return d.config }

// Run deduplicates the images in inputDir into numbered groups below
// outputDir. An empty outputDir uses the configured one. The returned report
// has also been written to outputDir when a report file is configured.
func (d *Deduper) Run(ctx context.Context, inputDir, outputDir string) (*report.Report, error) {
	if outputDir == "" {
		outputDir = d.config.Output.OutputDir
	}
	rep := report.New(inputDir, outputDir, d.settings())

	files, err := utils.ListImageFiles(inputDir, d.config.Input.SupportedFormats, d.config.Input.Recursive)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	d.log.WithFields(logrus.Fields{
		"dir":   inputDir,
		"files": len(files),
	}).Info("fingerprinting images")

	records, failures, err := d.extractor.ExtractAll(ctx, files)
	if err != nil {
		return nil, fmt.Errorf("fingerprinting aborted: %w", err)
	}
	for _, f := range failures {
		rep.AddSkipped(f.Path, f.Err)
	}
	rep.Images = len(records)

	pairs, err := d.scanner.Scan(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("matching aborted: %w", err)
	}

	materializer := output.NewMaterializer(outputDir, d.log)
	for _, p := range pairs {
		a, b := records[p.I], records[p.J]
		rep.AddMatch(report.Match{
			First:      a.ID,
			Second:     b.ID,
			Distance:   p.Distance,
			Similarity: p.Similarity,
			Tier:       p.Tier.String(),
		})

		if p.Tier != matcher.TierConfirmed {
			d.log.WithFields(logrus.Fields{
				"first":      a.Name,
				"second":     b.Name,
				"distance":   p.Distance,
				"similarity": fmt.Sprintf("%.4f", p.Similarity),
			}).Info("possible duplicate")
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		group, err := materializer.Materialize(
			output.Source{Path: a.ID, Name: a.Name},
			output.Source{Path: b.ID, Name: b.Name},
		)
		if err != nil {
			return nil, fmt.Errorf("failed to materialize %s and %s: %w", a.Name, b.Name, err)
		}
		rep.AddGroup(group)
	}

	rep.Finish()
	if d.config.Output.ReportFile != "" {
		path := filepath.Join(outputDir, d.config.Output.ReportFile)
		if err := rep.Write(path); err != nil {
			return rep, err
		}
		d.log.WithField("path", path).Debug("wrote report")
	}

	d.log.WithFields(logrus.Fields{
		"images":     rep.Images,
		"skipped":    len(rep.Skipped),
		"candidates": len(rep.Candidates),
		"groups":     materializer.Count(),
		"duration":   rep.Duration,
	}).Info("done")
	return rep, nil
}

func (d *Deduper) settings() report.Settings {
	fc := d.extractor.Config()
	th := d.scanner.Thresholds()
	return report.Settings{
		SimilarityThreshold: th.Similarity,
		DistanceThreshold:   th.Distance,
		Mode:                string(th.Mode),
		NCCMethod:           d.config.Matcher.NCCMethod,
		ThumbnailSize:       fc.ThumbnailSize,
		HashSize:            fc.HashSize,
		AngleCount:          fc.Angles,
		DigestLength:        fc.DigestLength,
		Quantization:        fc.Bounds.String(),
		ResampleFilter:      d.config.Fingerprint.ResampleFilter,
		Workers:             fc.Workers,
	}
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
