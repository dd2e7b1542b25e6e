// Package report collects the outcome of a deduplication run and writes it as
// JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/menta2k/image-dedup/pkg/output"
)

// Settings records the parameters a run used
type Settings struct {
	SimilarityThreshold float64 `json:"similarity_threshold"`
	DistanceThreshold   int     `json:"distance_threshold"`
	Mode                string  `json:"mode"`
	NCCMethod           string  `json:"ncc_method"`
	ThumbnailSize       int     `json:"thumbnail_size"`
	HashSize            int     `json:"hash_size"`
	AngleCount          int     `json:"angle_count"`
	DigestLength        int     `json:"digest_length"`
	Quantization        string  `json:"quantization"`
	ResampleFilter      string  `json:"resample_filter"`
	Workers             int     `json:"workers"`
}

// Skipped is a file that could not be fingerprinted
type Skipped struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Match is a candidate or confirmed pair
type Match struct {
	First      string  `json:"first"`
	Second     string  `json:"second"`
	Distance   int     `json:"distance"`
	Similarity float64 `json:"similarity"`
	Tier       string  `json:"tier"`
}

// Report is the JSON document written at the end of a run
type Report struct {
	RunID      string         `json:"run_id"`
	InputDir   string         `json:"input_dir"`
	OutputDir  string         `json:"output_dir"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Duration   string         `json:"duration"`
	Settings   Settings       `json:"settings"`
	Images     int            `json:"images"`
	Skipped    []Skipped      `json:"skipped"`
	Candidates []Match        `json:"candidates"`
	Groups     []output.Group `json:"groups"`
}

// New starts a report for a run over inputDir
func New(inputDir, outputDir string, settings Settings) *Report {
	return &Report{
		RunID:      uuid.NewString(),
		InputDir:   inputDir,
		OutputDir:  outputDir,
		StartedAt:  time.Now(),
		Settings:   settings,
		Skipped:    []Skipped{},
		Candidates: []Match{},
		Groups:     []output.Group{},
	}
}

// AddSkipped records a file that was not fingerprinted
func (r *Report) AddSkipped(path string, err error) {
	r.Skipped = append(r.Skipped, Skipped{Path: path, Reason: err.Error()})
}

// AddMatch records a candidate or confirmed pair
func (r *Report) AddMatch(m Match) {
	r.Candidates = append(r.Candidates, m)
}

// AddGroup records a materialized group
func (r *Report) AddGroup(g output.Group) {
	r.Groups = append(r.Groups, g)
}

// Finish stamps the end time
func (r *Report) Finish() {
	r.FinishedAt = time.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt).String()
}

// Write saves the report as indented JSON, creating parent directories
func (r *Report) Write(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// Load reads a report written by Write
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &r, nil
}
