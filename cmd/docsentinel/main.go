package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/codec"
	"github.com/raaihank/doc-sentinel/internal/config"
	"github.com/raaihank/doc-sentinel/internal/logger"
	"github.com/raaihank/doc-sentinel/internal/pipeline"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		inputPath   = flag.String("input", "", "Path to the document to redact")
		outputPath  = flag.String("output", "", "Path for the redacted output (default: <input>.redacted.<ext>)")
		reportPath  = flag.String("report", "", "Path for the JSON report (default: stdout)")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("Doc-Sentinel %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: docsentinel -input <document> [-output <path>] [-report <path>] [-config <path>]")
		os.Exit(2)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Optional crash reporting. Events carry stage metadata only; document
	// content is never attached.
	if cfg.Sentry.Enabled {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			Release:     "doc-sentinel@" + version,
		}); err != nil {
			log.Warn("Failed to initialize sentry", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	log.Info("Starting Doc-Sentinel",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("build_date", date),
		zap.String("input", *inputPath),
	)

	if err := run(cfg, log, *inputPath, *outputPath, *reportPath); err != nil {
		if cfg.Sentry.Enabled {
			sentry.CaptureException(err)
		}
		log.Error("Redaction failed, no output written", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger, inputPath, outputPath, reportPath string) error {
	format, err := codec.DetectFormat(inputPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	doc, err := codec.Decode(data, format, filepath.Base(inputPath))
	if err != nil {
		return err
	}

	p, err := pipeline.New(cfg, log)
	if err != nil {
		return err
	}

	result, err := p.Run(context.Background(), doc)
	if err != nil {
		return err
	}

	out, ext, err := codec.Encode(result.Document, data)
	if err != nil {
		return err
	}

	if outputPath == "" {
		outputPath = defaultOutputPath(inputPath, ext)
	}
	if err := os.WriteFile(outputPath, out, 0644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Info("Redacted document written",
		zap.String("path", outputPath),
		zap.Int("redactions", result.Report.TotalRedactions),
	)

	reportJSON, err := json.MarshalIndent(result.Report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	reportJSON = append(reportJSON, '\n')
	if reportPath == "" {
		if _, err := os.Stdout.Write(reportJSON); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	} else {
		if err := os.WriteFile(reportPath, reportJSON, 0644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info("Report written", zap.String("path", reportPath))
	}

	return nil
}

// defaultOutputPath derives <name>.redacted<ext> next to the input. The
// extension comes from the encoder, not the input: a TIFF input comes back as
// a lossless PNG.
func defaultOutputPath(inputPath, ext string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
	return base + ".redacted" + ext
}
