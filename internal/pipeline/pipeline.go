package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/raaihank/doc-sentinel/internal/codec"
	"github.com/raaihank/doc-sentinel/internal/config"
	"github.com/raaihank/doc-sentinel/internal/detect"
	"github.com/raaihank/doc-sentinel/internal/document"
	"github.com/raaihank/doc-sentinel/internal/logger"
	"github.com/raaihank/doc-sentinel/internal/ner"
	"github.com/raaihank/doc-sentinel/internal/ocr"
	"github.com/raaihank/doc-sentinel/internal/redact"
	"github.com/raaihank/doc-sentinel/internal/region"
	"github.com/raaihank/doc-sentinel/internal/report"
)

// Pipeline sequences decode -> detect -> merge -> redact -> report for one
// document at a time. Pages of a multi-page document are processed by
// independent workers; the only state shared between them is the read-only
// OCR engine and NER model handles, both lazily initialized once and never
// mutated per call.
type Pipeline struct {
	cfg     *config.Config
	enabled detect.CategorySet
	logger  *logger.Logger

	pattern *detect.PatternMatcher
	titles  *detect.TitleDetector
	entity  *detect.EntityRecognizer

	localizer *ocr.Localizer
	region    *region.Detector
	applier   *redact.Applier
	limiter   *rate.Limiter

	engineInit sync.Once
}

// New creates a pipeline. Engine handles (OCR, NER) are not touched until the
// first document actually needs them.
func New(cfg *config.Config, log *logger.Logger) (*Pipeline, error) {
	enabled, err := detect.NewCategorySet(cfg.Privacy.Categories)
	if err != nil {
		return nil, fmt.Errorf("failed to configure categories: %w", err)
	}

	p := &Pipeline{
		cfg:     cfg,
		enabled: enabled,
		logger:  log.WithComponent("pipeline"),
		pattern: detect.NewPatternMatcher(cfg.Privacy.CustomLabels, log),
		titles:  detect.NewTitleDetector(log),
		region:  region.New(cfg.Region, log),
		applier: redact.New(cfg.Redaction, log),
	}
	if cfg.Pipeline.EngineRatePerSecond > 0 {
		burst := cfg.Pipeline.EngineBurst
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.Pipeline.EngineRatePerSecond), burst)
	}

	p.logger.Info("Pipeline created",
		zap.Int("enabled_categories", len(enabled)),
		zap.Int("page_workers", cfg.Pipeline.PageWorkers),
	)
	return p, nil
}

// ensureEngines performs the one-time engine initialization. Both handles are
// read-only afterwards and shared by every subsequent run.
func (p *Pipeline) ensureEngines() {
	p.engineInit.Do(func() {
		var backend ner.Backend
		if p.cfg.NER.Enabled {
			backend = ner.NewBackend(p.logger.Logger, ner.Config{
				ModelPath:     p.cfg.NER.ModelPath,
				TokenizerPath: p.cfg.NER.TokenizerPath,
				LabelsPath:    p.cfg.NER.LabelsPath,
				Timeout:       p.cfg.NER.Timeout,
			})
		}
		p.entity = detect.NewEntityRecognizer(backend, p.cfg.NER.Threshold, p.logger)

		var engine ocr.Engine
		if p.cfg.OCR.Enabled {
			engine = ocr.NewEngine(p.logger.Logger)
		}
		p.localizer = ocr.NewLocalizer(engine, p.cfg.OCR.Languages, p.cfg.OCR.DPI, p.cfg.OCR.MinConfidence, p.logger)
	})
}

// SetEntityRecognizer replaces the statistical recognizer. Intended for tests
// and for callers embedding their own model runtime; must be called before the
// first Run.
func (p *Pipeline) SetEntityRecognizer(r *detect.EntityRecognizer) {
	p.engineInit.Do(func() {})
	p.entity = r
	if p.localizer == nil {
		p.localizer = ocr.NewLocalizer(nil, p.cfg.OCR.Languages, p.cfg.OCR.DPI, p.cfg.OCR.MinConfidence, p.logger)
	}
}

// SetOCREngine replaces the OCR engine; same constraints as SetEntityRecognizer.
func (p *Pipeline) SetOCREngine(engine ocr.Engine) {
	p.engineInit.Do(func() {})
	p.localizer = ocr.NewLocalizer(engine, p.cfg.OCR.Languages, p.cfg.OCR.DPI, p.cfg.OCR.MinConfidence, p.logger)
	if p.entity == nil {
		p.entity = detect.NewEntityRecognizer(nil, p.cfg.NER.Threshold, p.logger)
	}
}

// Run processes one decoded document and returns the redacted copy plus the
// report. Nothing derived from the document outlives the call.
func (p *Pipeline) Run(ctx context.Context, doc *document.Document) (*Result, error) {
	p.ensureEngines()

	runID := uuid.NewString()
	log := p.logger.WithRunID(runID)
	builder := report.NewBuilder(runID)

	stage := StageDecoded
	advance := func(next Stage) {
		log.Debug("Stage transition", zap.String("from", string(stage)), zap.String("to", string(next)))
		stage = next
	}

	var result *Result
	var err error
	switch doc.Format {
	case document.FormatText, document.FormatDocx:
		result, err = p.runText(ctx, log, doc, builder, advance)
	case document.FormatImage, document.FormatPages:
		result, err = p.runPages(ctx, log, doc, builder, advance)
	default:
		err = fmt.Errorf("%w: %s", codec.ErrUnsupportedFormat, doc.Format)
	}
	if err != nil {
		advance(StageFailed)
		log.Error("Pipeline failed", zap.String("stage", string(stage)), zap.Error(err))
		return nil, err
	}

	advance(StageDone)
	log.Info("Pipeline completed",
		zap.Int("redactions", result.Report.TotalRedactions),
		zap.Bool("ocr_skipped", result.Report.OCRSkipped),
		zap.Bool("ner_skipped", result.Report.NERSkipped),
		zap.Duration("duration", result.Report.Duration),
	)
	return result, nil
}

// runText is the text-addressable path: plain text and word-processing runs.
func (p *Pipeline) runText(ctx context.Context, log *logger.Logger, doc *document.Document, builder *report.Builder, advance func(Stage)) (*Result, error) {
	advance(StageDetecting)
	matches, nerSkipped := p.detectText(ctx, doc.Text)
	if nerSkipped {
		builder.SetNERSkipped()
	}

	advance(StageMerging)
	// Merging happens inside the applier so masks can never overlap.

	advance(StageRedacting)
	redacted := &document.Document{Format: doc.Format, Source: doc.Source}
	var records []document.RedactionRecord
	var err error
	if doc.Format == document.FormatDocx {
		redacted.RunTexts, records, err = p.applier.RedactRuns(doc.Text, doc.Runs, doc.RunTexts, matches)
		if err != nil {
			return nil, err
		}
		redacted.Text, redacted.Runs = spliceRunTexts(doc, redacted.RunTexts)
	} else {
		redacted.Text, records, err = p.applier.RedactText(doc.Text, matches)
		if err != nil {
			return nil, err
		}
	}
	builder.Add(records...)

	advance(StageReported)
	return &Result{Document: redacted, Records: records, Report: builder.Build()}, nil
}

// spliceRunTexts rebuilds the full document text from redacted run contents,
// keeping the separators (paragraph breaks) that sit between runs. The
// returned run spans index into the rebuilt text so the redacted document is
// itself a valid pipeline input.
func spliceRunTexts(doc *document.Document, runTexts []string) (string, []document.Span) {
	var out []byte
	runs := make([]document.Span, len(runTexts))
	cursor := 0
	for i, run := range doc.Runs {
		out = append(out, doc.Text[cursor:run.Start]...)
		start := len(out)
		out = append(out, runTexts[i]...)
		runs[i] = document.Span{Start: start, End: len(out)}
		cursor = run.End
	}
	out = append(out, doc.Text[cursor:]...)
	return string(out), runs
}

// runPages is the coordinate-addressable path: raster images and page
// collections. Pages are detected in parallel and reassembled by index.
func (p *Pipeline) runPages(ctx context.Context, log *logger.Logger, doc *document.Document, builder *report.Builder, advance func(Stage)) (*Result, error) {
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages to process", codec.ErrCorrupt)
	}

	advance(StageDetecting)
	results, err := p.detectPages(ctx, log, doc.Pages)
	if err != nil {
		return nil, err
	}

	advance(StageMerging)
	for _, r := range results {
		if r.ocrSkipped {
			builder.SetOCRSkipped()
		}
		if r.nerSkipped {
			builder.SetNERSkipped()
		}
	}

	advance(StageRedacting)
	redacted := &document.Document{Format: doc.Format, Source: doc.Source, Pages: make([]document.Page, len(doc.Pages))}
	var records []document.RedactionRecord
	for i, page := range doc.Pages {
		newPage, pageRecords, err := p.applier.RedactPage(page, results[i].matches)
		if err != nil {
			return nil, err
		}
		redacted.Pages[i] = newPage
		records = append(records, pageRecords...)
	}
	builder.Add(records...)

	advance(StageReported)
	return &Result{Document: redacted, Records: records, Report: builder.Build()}, nil
}

// detectPages fans pages out to workers. Worker count is bounded by
// configuration; zero means sequential.
func (p *Pipeline) detectPages(ctx context.Context, log *logger.Logger, pages []document.Page) ([]pageResult, error) {
	workers := p.cfg.Pipeline.PageWorkers
	if workers <= 1 || len(pages) == 1 {
		results := make([]pageResult, len(pages))
		for i, page := range pages {
			results[i] = p.detectPage(ctx, log, page)
		}
		return results, nil
	}

	results := make([]pageResult, len(pages))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = p.detectPage(ctx, log, pages[i])
			}
		}()
	}
	for i := range pages {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return results, nil
}

// detectPage runs OCR-backed text detection plus the geometric fallback on
// one page. Every match leaves here as a box match in page pixel space.
func (p *Pipeline) detectPage(ctx context.Context, log *logger.Logger, page document.Page) pageResult {
	res := pageResult{index: page.Index}
	plog := log.WithPage(page.Index)

	if p.localizer.Ready() {
		if err := p.waitEngine(ctx); err == nil {
			ocrCtx, cancel := context.WithTimeout(ctx, p.cfg.OCR.Timeout)
			pageText, err := p.localizer.Localize(ocrCtx, page.Image)
			cancel()
			switch {
			case err == nil:
				spanMatches, nerSkipped := p.detectText(ctx, pageText.Text)
				res.nerSkipped = nerSkipped
				for _, m := range spanMatches {
					for _, box := range pageText.BoxesForSpan(*m.Span) {
						res.matches = append(res.matches, document.PIIMatch{
							Category:   m.Category,
							Box:        &box,
							Page:       page.Index,
							Confidence: m.Confidence,
							Origin:     "ocr:" + m.Origin,
						})
					}
				}
			case errors.Is(err, detect.ErrUnavailable):
				res.ocrSkipped = true
			default:
				plog.Warn("OCR detection failed, degrading to region fallback", zap.Error(err))
				res.ocrSkipped = true
			}
		} else {
			res.ocrSkipped = true
		}
	} else {
		res.ocrSkipped = true
	}

	// Geometric fallback is additive: header band and contours are proposed
	// regardless of OCR status.
	regionMatches, err := p.region.Detect(ctx, page.Image)
	if err != nil {
		plog.Warn("Region detection failed", zap.Error(err))
	}
	for _, m := range regionMatches {
		if !p.enabled.Enabled(m.Category) {
			continue
		}
		m.Page = page.Index
		res.matches = append(res.matches, m)
	}

	return res
}

// detectText runs every text detector over the text and pools the matches.
// A down entity recognizer is absorbed: detection continues with the pattern
// and heuristic detectors and the degradation is reported, not raised.
func (p *Pipeline) detectText(ctx context.Context, text string) ([]document.PIIMatch, bool) {
	var matches []document.PIIMatch

	patternMatches, _ := p.pattern.Detect(ctx, text, p.enabled)
	matches = append(matches, patternMatches...)

	titleMatches, _ := p.titles.Detect(ctx, text, p.enabled)
	matches = append(matches, titleMatches...)

	nerSkipped := false
	if err := p.waitEngine(ctx); err != nil {
		nerSkipped = true
	} else {
		nerCtx, cancel := context.WithTimeout(ctx, p.cfg.NER.Timeout)
		entityMatches, err := p.entity.Detect(nerCtx, text, p.enabled)
		cancel()
		if err != nil {
			nerSkipped = true
		} else {
			matches = append(matches, entityMatches...)
		}
	}

	return matches, nerSkipped
}

// waitEngine applies the shared engine rate limit, when configured, before an
// OCR or NER invocation.
func (p *Pipeline) waitEngine(ctx context.Context) error {
	if p.limiter == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
