package detect

import (
	"context"
	"errors"
	"fmt"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// ErrUnavailable signals that a detector's underlying engine (OCR, NER model)
// is missing, failed, or timed out. It is non-fatal: the pipeline absorbs it,
// continues with the detectors that succeeded, and records the degradation in
// the report.
var ErrUnavailable = errors.New("detector unavailable")

// TextDetector locates PII inside page text and reports character-offset spans.
// Implementations must be deterministic for the same text and enabled set, and
// safe for concurrent use by multiple page workers.
type TextDetector interface {
	// Name identifies the detector in logs and match origins.
	Name() string
	// Ready reports whether the detector can produce results right now.
	Ready() bool
	// Detect returns matches ordered by ascending start offset. A detector
	// whose engine is down returns ErrUnavailable and no matches.
	Detect(ctx context.Context, text string, enabled CategorySet) ([]document.PIIMatch, error)
}

// CategorySet holds the categories enabled for one pipeline invocation. It is
// immutable during the invocation.
type CategorySet map[document.Category]bool

// NewCategorySet builds a set from configured category names. The name "all"
// enables every known category.
func NewCategorySet(names []string) (CategorySet, error) {
	set := make(CategorySet)
	for _, name := range names {
		if name == "all" {
			for _, c := range document.AllCategories() {
				set[c] = true
			}
			continue
		}
		c := document.Category(name)
		if !c.Valid() {
			return nil, fmt.Errorf("unknown category: %s", name)
		}
		set[c] = true
	}
	return set, nil
}

// Enabled reports whether the category is selected.
func (s CategorySet) Enabled(c document.Category) bool { return s[c] }
