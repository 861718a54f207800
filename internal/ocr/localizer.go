package ocr

import (
	"context"
	"fmt"
	"image"
	"strings"

	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/detect"
	"github.com/raaihank/doc-sentinel/internal/document"
	"github.com/raaihank/doc-sentinel/internal/logger"
)

// placedWord ties one recognized word to its byte range in the rebuilt page
// text and to its pixel box on the page.
type placedWord struct {
	span document.Span
	box  document.BoundingBox
}

// PageText is the text view of a raster page: the recognized text with a
// positionally stable mapping from any byte span back to the pixel boxes of
// the words covering it.
type PageText struct {
	Text  string
	words []placedWord
}

// BoxesForSpan returns the pixel boxes covering the given span of the page
// text. Intersecting words that sit on the same line are unioned into one box;
// a span that crosses lines yields one box per line.
func (p *PageText) BoxesForSpan(span document.Span) []document.BoundingBox {
	var boxes []document.BoundingBox
	for _, w := range p.words {
		if w.span.End <= span.Start || w.span.Start >= span.End {
			continue
		}
		if n := len(boxes); n > 0 && sameLine(boxes[n-1], w.box) {
			boxes[n-1] = boxes[n-1].Union(w.box)
			continue
		}
		boxes = append(boxes, w.box)
	}
	return boxes
}

// sameLine reports whether two word boxes overlap vertically by more than half
// of the smaller height, i.e. they share a text line.
func sameLine(a, b document.BoundingBox) bool {
	top := a.Y0
	if b.Y0 > top {
		top = b.Y0
	}
	bottom := a.Y1
	if b.Y1 < bottom {
		bottom = b.Y1
	}
	overlap := bottom - top
	smaller := a.Height()
	if b.Height() < smaller {
		smaller = b.Height()
	}
	return smaller > 0 && float64(overlap) > 0.5*float64(smaller)
}

// Localizer extracts page text plus word geometry from raster pages so the
// text detectors can run over scanned content.
type Localizer struct {
	engine        Engine
	languages     []string
	dpi           int
	minConfidence float64
	logger        *logger.Logger
}

// NewLocalizer wraps an engine, which may be nil when the build carries no
// OCR support.
func NewLocalizer(engine Engine, languages []string, dpi int, minConfidence float64, log *logger.Logger) *Localizer {
	l := &Localizer{
		engine:        engine,
		languages:     languages,
		dpi:           dpi,
		minConfidence: minConfidence,
		logger:        log.WithComponent("text_localizer"),
	}
	l.logger.Info("Text localizer initialized", zap.Bool("engine_available", l.Ready()))
	return l
}

// Ready reports whether an OCR engine is available.
func (l *Localizer) Ready() bool { return l.engine != nil }

// Localize recognizes the page and rebuilds its text with single spaces
// between words, recording each word's byte range. Returns
// detect.ErrUnavailable when the engine is missing or fails, so the pipeline
// can degrade to the geometric fallback.
func (l *Localizer) Localize(ctx context.Context, img image.Image) (*PageText, error) {
	if !l.Ready() {
		return nil, detect.ErrUnavailable
	}

	words, err := l.engine.Recognize(ctx, img, Options{Languages: l.languages, DPI: l.dpi})
	if err != nil {
		l.logger.Warn("OCR failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", detect.ErrUnavailable, err)
	}

	var sb strings.Builder
	page := &PageText{}
	for _, w := range words {
		if w.Text == "" || w.Confidence < l.minConfidence {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		start := sb.Len()
		sb.WriteString(w.Text)
		page.words = append(page.words, placedWord{
			span: document.Span{Start: start, End: sb.Len()},
			box:  w.Box,
		})
	}
	page.Text = sb.String()

	l.logger.Debug("Page localized", zap.Int("words", len(page.words)))
	return page, nil
}
