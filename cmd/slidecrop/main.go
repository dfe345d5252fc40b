// Command slidecrop extracts rectangular regions of interest from
// multi-channel whole-slide images. For each .ndpis slide set in the input
// directory it segments the template channel once, then crops every channel
// with the same bounding boxes and writes one grayscale TIFF per crop.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"slidecrop/internal/batch"
	"slidecrop/internal/config"
	"slidecrop/internal/roi"
	"slidecrop/internal/version"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML run configuration file")
		input      = flag.String("input", "", "Directory containing .ndpis slide sets")
		template   = flag.String("template", "", "Substring identifying the template channel filename (e.g. 'DAPI')")
		level      = flag.Int("level", 0, "Pyramid level to decode (0 = highest resolution, 1 = second highest)")
		blur       = flag.Int("blur", config.DefaultBlurRadius, "Gaussian blur radius in pixels (0 disables smoothing)")
		minSize    = flag.Int("min-size", 0, "Strict minimum ROI area in pixels squared (0 = default for the level)")
		mode       = flag.String("threshold", string(roi.ThresholdFixed), "Binarization mode: fixed or otsu")
		outDir     = flag.String("output-dir", config.DefaultOutputDir, "Output subdirectory name under the input directory")
		skipFailed = flag.Bool("continue-on-error", false, "Skip slide sets that fail instead of aborting the run")
		debugMode  = flag.Bool("debug", false, "Enable debug logging")
		showVer    = flag.Bool("version", false, "Print version information and exit")
	)
	flag.Parse()

	if *showVer {
		fmt.Printf("slidecrop %s (commit %s, built %s)\n",
			version.Version, version.GitCommit, version.BuildTime)
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	// Flags set on the command line override the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.InputDir = *input
		case "template":
			cfg.TemplateChannel = *template
		case "level":
			cfg.Level = *level
		case "blur":
			cfg.BlurRadius = *blur
		case "min-size":
			cfg.SizeThreshold = *minSize
		case "threshold":
			cfg.ThresholdMode = roi.ThresholdMode(*mode)
		case "output-dir":
			cfg.OutputDirName = *outDir
		case "continue-on-error":
			cfg.ContinueOnError = *skipFailed
		}
	})

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		fmt.Fprintln(os.Stderr, "Usage: slidecrop -input <dir> -template <name> [-level 0|1] [options]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	logger := initLogger(*debugMode)
	logger.WithFields(logrus.Fields{
		"version":  version.Version,
		"input":    cfg.InputDir,
		"template": cfg.TemplateChannel,
		"level":    cfg.Level,
		"minSize":  cfg.EffectiveSizeThreshold(),
	}).Info("starting batch run")

	if err := batch.New(cfg, logger).Run(); err != nil {
		logger.WithError(err).Fatal("batch run failed")
	}
}

// initLogger configures logrus: human-readable debug output with -debug,
// JSON records otherwise.
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	return logger
}
