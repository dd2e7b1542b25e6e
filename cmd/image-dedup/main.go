package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	imagededup "github.com/menta2k/image-dedup"
	"github.com/menta2k/image-dedup/internal/config"
	"github.com/menta2k/image-dedup/internal/utils"
)

var (
	outDir     = pflag.StringP("out", "o", "", "output directory for match groups")
	similarity = pflag.Float64P("similarity", "s", 0, "digest similarity threshold [0..1]")
	distance   = pflag.IntP("distance", "d", 0, "bit hash distance threshold [0..64]")
	configPath = pflag.StringP("config", "c", "", "JSON config file (default "+config.GetConfigPath()+" if present)")
	workers    = pflag.IntP("workers", "w", 0, "worker count, 0 uses all CPUs")
	recursive  = pflag.BoolP("recursive", "r", false, "descend into subdirectories")
	mode       = pflag.String("mode", "", "match mode: combined|hash|digest")
	nccMethod  = pflag.String("ncc", "", "cross-correlation method: direct|fft")
	formats    = pflag.StringSlice("formats", nil, "image extensions to scan")
	reportFile = pflag.String("report", "", "report file name inside the output directory, empty disables")
	progress   = pflag.Bool("progress", false, "show a progress bar while fingerprinting")
	verbose    = pflag.BoolP("verbose", "v", false, "log every matched pair")
	writeConf  = pflag.String("write-config", "", "write the effective config to this path and exit")
	version    = pflag.Bool("version", false, "print the version and exit")
)

func main() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <input dir>\n", filepath.Base(os.Args[0]))
		pflag.PrintDefaults()
	}
	pflag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if *version {
		fmt.Println(imagededup.GetVersion())
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		logrus.Fatalf("Error loading config: %v", err)
	}
	for _, w := range cfg.Sanitize() {
		logrus.Warn(w)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid config: %v", err)
	}

	if *writeConf != "" {
		if err := cfg.SaveToFile(*writeConf); err != nil {
			logrus.Fatalf("Error writing config: %v", err)
		}
		logrus.Infof("Wrote config to %s", *writeConf)
		return
	}

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	inputDir := pflag.Arg(0)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := imagededup.NewWithConfig(cfg, logrus.StandardLogger()).Run(ctx, inputDir, cfg.Output.OutputDir)
	if err != nil {
		logrus.Fatalf("Error: %v", err)
	}
	logrus.Printf("Found %d groups and %d candidate pairs among %d images",
		len(rep.Groups), len(rep.Candidates), rep.Images)
}

// loadConfig layers defaults, the config file, the environment and flags,
// in that order.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	path := *configPath
	if path == "" && utils.FileExists(config.GetConfigPath()) {
		path = config.GetConfigPath()
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
		logrus.WithField("path", path).Debug("loaded config")
	}

	cfg.ApplyEnv()

	flags := pflag.CommandLine
	if flags.Changed("out") {
		cfg.Output.OutputDir = *outDir
	}
	if flags.Changed("similarity") {
		cfg.Matcher.SimilarityThreshold = *similarity
	}
	if flags.Changed("distance") {
		cfg.Matcher.DistanceThreshold = *distance
	}
	if flags.Changed("workers") {
		cfg.Workers = *workers
	}
	if flags.Changed("recursive") {
		cfg.Input.Recursive = *recursive
	}
	if flags.Changed("mode") {
		cfg.Matcher.Mode = *mode
	}
	if flags.Changed("ncc") {
		cfg.Matcher.NCCMethod = *nccMethod
	}
	if flags.Changed("formats") {
		cfg.Input.SupportedFormats = *formats
	}
	if flags.Changed("report") {
		cfg.Output.ReportFile = *reportFile
	}
	if flags.Changed("progress") {
		cfg.Output.ShowProgress = *progress
	}
	return cfg, nil
}
