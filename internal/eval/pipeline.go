package eval

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/detect"
	"github.com/raaihank/doc-sentinel/internal/document"
)

// Pipeline replays labeled PII datasets through the text detectors and
// measures what they catch. It exercises exactly the detectors the redaction
// pipeline uses, so its recall numbers transfer directly.
type Pipeline struct {
	detectors []detect.TextDetector
	enabled   detect.CategorySet
	config    *Config
	logger    *zap.Logger
}

// NewPipeline creates an evaluation pipeline over the given detectors.
func NewPipeline(detectors []detect.TextDetector, enabled detect.CategorySet, config *Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		detectors: detectors,
		enabled:   enabled,
		config:    config,
		logger:    logger,
	}
}

// EvaluateFile streams a dataset file (CSV, Parquet, or JSON lines) and
// returns aggregate detection statistics.
func (p *Pipeline) EvaluateFile(ctx context.Context, filePath string) (*Result, error) {
	p.logger.Info("Starting evaluation",
		zap.String("file", filePath),
		zap.Int("batch_size", p.config.BatchSize),
		zap.Int("detectors", len(p.detectors)))

	start := time.Now()
	result := &Result{ByCategory: make(map[string]*CategoryStats)}

	format := DetectFileFormat(filePath)
	p.logger.Info("Detected file format", zap.String("format", string(format)))

	var err error
	switch format {
	case FormatCSV:
		err = p.evaluateCSV(ctx, filePath, result)
	case FormatParquet:
		err = p.evaluateParquet(ctx, filePath, result)
	case FormatJSON:
		err = p.evaluateJSON(ctx, filePath, result)
	default:
		err = fmt.Errorf("unsupported file format: %s", format)
	}
	if err != nil {
		return result, err
	}

	result.Duration = time.Since(start)

	p.logger.Info("Evaluation completed",
		zap.Int64("total_samples", result.TotalSamples),
		zap.Int64("detected", result.Detected),
		zap.Int64("missed", result.Missed),
		zap.Int64("false_positives", result.FalsePositives),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// evaluateCSV streams a CSV dataset with columns text, category, label.
func (p *Pipeline) evaluateCSV(ctx context.Context, filePath string, result *Result) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 3 // text, category, label

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read CSV header: %w", err)
	}
	p.logger.Info("CSV header detected", zap.Strings("columns", header))

	return p.evaluateBatches(ctx, func() ([]*Sample, error) {
		var batch []*Sample
		for len(batch) < p.config.BatchSize {
			record, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read CSV record", zap.Error(err))
				continue
			}
			if len(record) != 3 {
				p.logger.Warn("Invalid CSV record length", zap.Int("length", len(record)))
				continue
			}

			label, err := strconv.Atoi(strings.TrimSpace(record[2]))
			if err != nil {
				label = 0
			}
			sample := &Sample{
				Text:     strings.TrimSpace(record[0]),
				Category: strings.TrimSpace(record[1]),
				Label:    label,
			}
			if p.validateSample(sample, result) {
				batch = append(batch, sample)
			}
		}
		return batch, nil
	}, result)
}

// evaluateParquet streams a Parquet dataset.
func (p *Pipeline) evaluateParquet(ctx context.Context, filePath string, result *Result) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer file.Close()

	reader := parquet.NewReader(file)
	defer reader.Close()

	return p.evaluateBatches(ctx, func() ([]*Sample, error) {
		var batch []*Sample
		for len(batch) < p.config.BatchSize {
			var sample Sample
			err := reader.Read(&sample)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read Parquet record", zap.Error(err))
				continue
			}
			s := sample
			if p.validateSample(&s, result) {
				batch = append(batch, &s)
			}
		}
		return batch, nil
	}, result)
}

// evaluateJSON streams a dataset with one JSON object per line.
func (p *Pipeline) evaluateJSON(ctx context.Context, filePath string, result *Result) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)

	return p.evaluateBatches(ctx, func() ([]*Sample, error) {
		var batch []*Sample
		for len(batch) < p.config.BatchSize {
			var sample Sample
			err := decoder.Decode(&sample)
			if err == io.EOF {
				break
			}
			if err != nil {
				p.logger.Warn("Failed to read JSON record", zap.Error(err))
				continue
			}
			s := sample
			if p.validateSample(&s, result) {
				batch = append(batch, &s)
			}
		}
		return batch, nil
	}, result)
}

// evaluateBatches pulls batches from the reader function until the dataset is
// exhausted.
func (p *Pipeline) evaluateBatches(ctx context.Context, readBatch func() ([]*Sample, error), result *Result) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch, err := readBatch()
		if err != nil {
			return fmt.Errorf("failed to read batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, sample := range batch {
			if err := p.evaluateSample(ctx, sample, result); err != nil {
				result.Errors = append(result.Errors, err.Error())
			}
			result.TotalSamples++

			if result.TotalSamples%int64(p.config.ProgressReport) == 0 {
				p.reportProgress(result)
			}
		}
	}
	return nil
}

// evaluateSample runs every detector over one sample and scores the outcome.
func (p *Pipeline) evaluateSample(ctx context.Context, sample *Sample, result *Result) error {
	matched := make(map[document.Category]bool)
	for _, d := range p.detectors {
		matches, err := d.Detect(ctx, sample.Text, p.enabled)
		if err != nil {
			if errors.Is(err, detect.ErrUnavailable) {
				continue
			}
			return fmt.Errorf("detector %s: %w", d.Name(), err)
		}
		for _, m := range matches {
			matched[m.Category] = true
		}
	}

	if sample.Label == 0 {
		if len(matched) > 0 {
			result.FalsePositives++
		}
		return nil
	}

	result.Positives++
	stats, ok := result.ByCategory[sample.Category]
	if !ok {
		stats = &CategoryStats{}
		result.ByCategory[sample.Category] = stats
	}
	stats.Samples++

	if matched[document.Category(sample.Category)] {
		result.Detected++
		stats.Detected++
	} else {
		result.Missed++
		stats.Missed++
	}
	return nil
}

// validateSample checks a sample before scoring it. Invalid samples are
// counted as skipped, never as misses.
func (p *Pipeline) validateSample(sample *Sample, result *Result) bool {
	if !p.config.ValidateData {
		return true
	}

	if strings.TrimSpace(sample.Text) == "" {
		p.logger.Debug("Invalid sample: empty text")
		result.Skipped++
		return false
	}
	if sample.Label != 0 && sample.Label != 1 {
		p.logger.Debug("Invalid sample: invalid label", zap.Int("label", sample.Label))
		result.Skipped++
		return false
	}
	if sample.Label == 1 && !document.Category(sample.Category).Valid() {
		p.logger.Debug("Invalid sample: unknown category", zap.String("category", sample.Category))
		result.Skipped++
		return false
	}
	if len(sample.Text) > 10000 {
		p.logger.Debug("Invalid sample: text too long", zap.Int("length", len(sample.Text)))
		result.Skipped++
		return false
	}
	return true
}

// reportProgress reports current evaluation progress
func (p *Pipeline) reportProgress(result *Result) {
	p.logger.Info("Evaluation progress",
		zap.Int64("samples", result.TotalSamples),
		zap.Int64("detected", result.Detected),
		zap.Int64("missed", result.Missed),
		zap.Int64("false_positives", result.FalsePositives))
}
