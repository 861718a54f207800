package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/config"
	"github.com/raaihank/doc-sentinel/internal/detect"
	"github.com/raaihank/doc-sentinel/internal/eval"
	"github.com/raaihank/doc-sentinel/internal/logger"
	"github.com/raaihank/doc-sentinel/internal/ner"
)

func main() {
	var (
		configPath = flag.String("config", "", "Configuration file path")
		inputFile  = flag.String("input", "", "Labeled dataset file (CSV, Parquet, or JSON lines)")
		batchSize  = flag.Int("batch-size", 1000, "Batch size for streaming the dataset")
		withNER    = flag.Bool("ner", false, "Include the statistical entity recognizer")
	)
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --input dataset.csv --batch-size 500\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --input dataset.parquet --ner\n", os.Args[0])
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting Doc-Sentinel detector evaluation",
		zap.String("version", "0.1.0"),
		zap.String("input", *inputFile))

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, cancelling evaluation...")
		cancel()
	}()

	if _, err := os.Stat(*inputFile); os.IsNotExist(err) {
		log.Fatal("Input file does not exist", zap.String("file", *inputFile))
	}

	enabled, err := detect.NewCategorySet(cfg.Privacy.Categories)
	if err != nil {
		log.Fatal("Invalid category configuration", zap.Error(err))
	}

	detectors := []detect.TextDetector{
		detect.NewPatternMatcher(cfg.Privacy.CustomLabels, log),
		detect.NewTitleDetector(log),
	}
	if *withNER {
		backend := ner.NewBackend(log.Logger, ner.Config{
			ModelPath:     cfg.NER.ModelPath,
			TokenizerPath: cfg.NER.TokenizerPath,
			LabelsPath:    cfg.NER.LabelsPath,
			Timeout:       cfg.NER.Timeout,
		})
		recognizer := detect.NewEntityRecognizer(backend, cfg.NER.Threshold, log)
		if !recognizer.Ready() {
			log.Warn("Entity recognizer unavailable, evaluating without it")
		} else {
			detectors = append(detectors, recognizer)
		}
	}

	evalConfig := &eval.Config{
		BatchSize:      *batchSize,
		ValidateData:   true,
		ProgressReport: 1000,
	}

	pipeline := eval.NewPipeline(detectors, enabled, evalConfig, log.Logger)
	result, err := pipeline.EvaluateFile(ctx, *inputFile)
	if err != nil {
		log.Fatal("Evaluation failed", zap.Error(err))
	}

	printResult(result)

	if len(result.Errors) > 0 {
		log.Warn("Evaluation completed with errors", zap.Strings("errors", result.Errors))
	}
	log.Info("Evaluation completed successfully")
}

// printResult displays the evaluation outcome
func printResult(result *eval.Result) {
	fmt.Printf("\n=== Doc-Sentinel Detector Evaluation ===\n")
	fmt.Printf("Total Samples:      %d\n", result.TotalSamples)
	fmt.Printf("Positive Samples:   %d\n", result.Positives)
	if result.Positives > 0 {
		fmt.Printf("Detected:           %d (%.1f%%)\n", result.Detected,
			float64(result.Detected)/float64(result.Positives)*100)
		fmt.Printf("Missed:             %d (%.1f%%)\n", result.Missed,
			float64(result.Missed)/float64(result.Positives)*100)
	}
	fmt.Printf("False Positives:    %d\n", result.FalsePositives)
	fmt.Printf("Skipped:            %d\n", result.Skipped)
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.ByCategory) > 0 {
		fmt.Printf("\n=== Recall by Category ===\n")
		categories := make([]string, 0, len(result.ByCategory))
		for c := range result.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			stats := result.ByCategory[c]
			fmt.Printf("%-16s %d/%d (%.1f%%)\n", c, stats.Detected, stats.Samples, stats.Recall()*100)
		}
	}
}
