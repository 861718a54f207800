package detect

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/document"
	"github.com/raaihank/doc-sentinel/internal/logger"
	"github.com/raaihank/doc-sentinel/internal/ner"
)

// entityLabels maps model output labels to PII categories. Covers the common
// CoNLL-style and PII-specialized label sets.
var entityLabels = map[string]document.Category{
	"PER":          document.CategoryPersonName,
	"PERSON":       document.CategoryPersonName,
	"GIVENNAME":    document.CategoryPersonName,
	"SURNAME":      document.CategoryPersonName,
	"LOC":          document.CategoryLocation,
	"LOCATION":     document.CategoryLocation,
	"GPE":          document.CategoryLocation,
	"CITY":         document.CategoryLocation,
	"STREET":       document.CategoryLocation,
	"ORG":          document.CategoryOrganization,
	"ORGANIZATION": document.CategoryOrganization,
}

// EntityRecognizer detects unstructured PII (person names, locations,
// organizations) through a statistical NER backend. The backend is optional:
// when it is absent or fails, Detect returns ErrUnavailable so the pipeline
// degrades to the pattern and heuristic detectors instead of aborting.
type EntityRecognizer struct {
	backend   ner.Backend
	threshold float64
	logger    *logger.Logger
}

// NewEntityRecognizer wraps a backend, which may be nil.
func NewEntityRecognizer(backend ner.Backend, threshold float64, log *logger.Logger) *EntityRecognizer {
	r := &EntityRecognizer{
		backend:   backend,
		threshold: threshold,
		logger:    log.WithComponent("entity_recognizer"),
	}
	r.logger.Info("Entity recognizer initialized",
		zap.Bool("backend_available", r.Ready()),
		zap.Float64("threshold", threshold),
	)
	return r
}

// Name identifies this detector in match origins.
func (r *EntityRecognizer) Name() string { return "entity" }

// Ready reports whether the underlying model can serve inference now.
func (r *EntityRecognizer) Ready() bool {
	return r.backend != nil && r.backend.Ready()
}

// Detect maps model entities into the match model. Matches below the
// confidence threshold are dropped here and never surfaced downstream.
func (r *EntityRecognizer) Detect(ctx context.Context, text string, enabled CategorySet) ([]document.PIIMatch, error) {
	if !r.Ready() {
		return nil, ErrUnavailable
	}

	entities, err := r.backend.Recognize(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			r.logger.Warn("NER inference timed out", zap.Error(err))
		} else {
			r.logger.Warn("NER inference failed", zap.Error(err))
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var matches []document.PIIMatch
	for _, e := range entities {
		category, known := entityLabels[strings.ToUpper(e.Label)]
		if !known || !enabled.Enabled(category) {
			continue
		}
		if e.Confidence < r.threshold {
			continue
		}
		if e.Start < 0 || e.End > len(text) || e.Start >= e.End {
			continue
		}
		matches = append(matches, document.PIIMatch{
			Category:   category,
			Span:       &document.Span{Start: e.Start, End: e.End},
			Confidence: e.Confidence,
			Origin:     r.Name(),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Span.Start < matches[j].Span.Start
	})

	if len(matches) > 0 {
		r.logger.Debug("Entities detected", zap.Int("count", len(matches)))
	}
	return matches, nil
}
