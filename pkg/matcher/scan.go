/*
Package matcher compares fingerprints: Hamming distance between bit hashes,
rotation-robust normalized cross-correlation between digests, and an
exhaustive pairwise scan that sorts pairs into candidate and confirmed tiers.
*/
package matcher

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/menta2k/image-dedup/pkg/fingerprint"
)

// Default thresholds
const (
	DefaultSimilarity = 0.75
	DefaultDistance   = 15

	// CandidateSimilarityMargin and CandidateDistanceMargin widen the
	// confirmed thresholds into the candidate tier.
	CandidateSimilarityMargin = 0.1
	CandidateDistanceMargin   = 10
)

// Mode selects which measures decide a match.
type Mode string

// Supported modes
const (
	ModeCombined Mode = "combined"
	ModeHash     Mode = "hash"
	ModeDigest   Mode = "digest"
)

// Method selects the NCC implementation.
type Method string

// Supported NCC methods
const (
	MethodDirect Method = "direct"
	MethodFFT    Method = "fft"
)

// Tier is the classification of a compared pair.
type Tier int

const (
	TierNone Tier = iota
	TierCandidate
	TierConfirmed
)

// String implements fmt.Stringer.
func (t Tier) String() string {
	switch t {
	case TierCandidate:
		return "candidate"
	case TierConfirmed:
		return "confirmed"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// Thresholds holds the match thresholds.
type Thresholds struct {
	Similarity float64
	Distance   int
	Mode       Mode
}

// DefaultThresholds returns the default thresholds in combined mode.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Similarity: DefaultSimilarity,
		Distance:   DefaultDistance,
		Mode:       ModeCombined,
	}
}

// Classify sorts a distance/similarity pair into a tier. Confirmed pairs are a
// strict subset of candidates.
func (t Thresholds) Classify(distance int, similarity float64) Tier {
	simCandidate := similarity > t.Similarity-CandidateSimilarityMargin
	simConfirmed := similarity > t.Similarity
	distCandidate := distance < t.Distance+CandidateDistanceMargin
	distConfirmed := distance < t.Distance

	switch t.Mode {
	case ModeHash:
		simCandidate, simConfirmed = true, true
	case ModeDigest:
		distCandidate, distConfirmed = true, true
	}

	switch {
	case simConfirmed && distConfirmed:
		return TierConfirmed
	case simCandidate && distCandidate:
		return TierCandidate
	default:
		return TierNone
	}
}

// Pair is the outcome of comparing records I and J (I < J).
type Pair struct {
	I          int
	J          int
	Distance   int
	Similarity float64
	Tier       Tier
}

// Scanner runs the exhaustive pairwise comparison.
type Scanner struct {
	thresholds Thresholds
	method     Method
	workers    int
	log        logrus.FieldLogger
}

// New creates a Scanner with default thresholds, direct NCC and one worker per
// CPU.
func New() *Scanner {
	return NewWithConfig(DefaultThresholds(), MethodDirect, 0, nil)
}

// NewWithConfig creates a Scanner. workers <= 0 uses GOMAXPROCS; a nil logger
// uses the logrus standard logger.
func NewWithConfig(thresholds Thresholds, method Method, workers int, log logrus.FieldLogger) *Scanner {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	if thresholds.Mode == "" {
		thresholds.Mode = ModeCombined
	}
	return &Scanner{
		thresholds: thresholds,
		method:     method,
		workers:    workers,
		log:        log,
	}
}

// Thresholds returns the scanner thresholds.
func (s *Scanner) Thresholds() Thresholds { return s.thresholds }

// Similarity returns the NCC of two digests using the configured method.
func (s *Scanner) Similarity(x, y []byte) float64 {
	if s.method == MethodFFT {
		return NCCFFT(x, y)
	}
	return NCC(x, y)
}

// Compare measures one pair of records. Measures the mode ignores are left at
// their zero value.
func (s *Scanner) Compare(a, b *fingerprint.Record) (int, float64, error) {
	var distance int
	var similarity float64
	if s.thresholds.Mode != ModeDigest {
		d, err := Hamming(a.Hash, b.Hash)
		if err != nil {
			return 0, 0, fmt.Errorf("compare %s with %s: %w", a.Name, b.Name, err)
		}
		distance = d
	}
	if s.thresholds.Mode != ModeHash {
		similarity = s.Similarity(a.Digest, b.Digest)
	}
	return distance, similarity, nil
}

// Scan compares every unordered pair of records exactly once and returns the
// candidate and confirmed pairs ordered by (I, J). Rows are spread across the
// workers; cancelling ctx stops handing out rows.
func (s *Scanner) Scan(ctx context.Context, records []*fingerprint.Record) ([]Pair, error) {
	n := len(records)
	rows := make([][]Pair, n)
	var next atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < s.workers && w < n; w++ {
		g.Go(func() error {
			for {
				if err := ctx.Err(); err != nil {
					return err
				}
				i := int(next.Add(1)) - 1
				if i >= n {
					return nil
				}
				row, err := s.scanRow(records, i)
				if err != nil {
					return err
				}
				rows[i] = row
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pairs []Pair
	for _, row := range rows {
		pairs = append(pairs, row...)
	}
	return pairs, nil
}

func (s *Scanner) scanRow(records []*fingerprint.Record, i int) ([]Pair, error) {
	var row []Pair
	for j := i + 1; j < len(records); j++ {
		distance, similarity, err := s.Compare(records[i], records[j])
		if err != nil {
			return nil, err
		}
		tier := s.thresholds.Classify(distance, similarity)
		if tier == TierNone {
			continue
		}
		s.log.WithFields(logrus.Fields{
			"first":      records[i].Name,
			"second":     records[j].Name,
			"distance":   distance,
			"similarity": similarity,
			"tier":       tier.String(),
		}).Debug("pair matched")
		row = append(row, Pair{I: i, J: j, Distance: distance, Similarity: similarity, Tier: tier})
	}
	return row, nil
}
