package redact

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/config"
	"github.com/raaihank/doc-sentinel/internal/document"
	"github.com/raaihank/doc-sentinel/internal/logger"
)

// ErrRedactionFailure is fatal: the document could not be fully masked or
// re-assembled. No partial output is ever returned behind it.
var ErrRedactionFailure = errors.New("redaction failure")

// Applier irreversibly destroys located PII. Two disjoint paths, selected once
// per document format: a text splice for text-addressable formats and an
// opaque pixel overwrite for coordinate-addressable ones. Overlapping matches
// are merged before any mask is applied, so masks never overlap.
type Applier struct {
	cfg    config.RedactionConfig
	logger *logger.Logger
}

// New creates a redaction applier.
func New(cfg config.RedactionConfig, log *logger.Logger) *Applier {
	return &Applier{cfg: cfg, logger: log.WithComponent("redaction_applier")}
}

// RedactText splices the placeholder over every merged span of the text.
// Surrounding bytes, including newlines and tabs, are preserved verbatim.
func (a *Applier) RedactText(text string, matches []document.PIIMatch) (string, []document.RedactionRecord, error) {
	merged := MergeSpans(matches)
	if len(merged) == 0 {
		return text, nil, nil
	}

	var sb strings.Builder
	records := make([]document.RedactionRecord, 0, len(merged))
	cursor := 0
	for _, m := range merged {
		if m.Span.Start < cursor || m.Span.End > len(text) {
			return "", nil, fmt.Errorf("%w: span %d-%d outside text bounds", ErrRedactionFailure, m.Span.Start, m.Span.End)
		}
		sb.WriteString(text[cursor:m.Span.Start])
		sb.WriteString(a.cfg.Placeholder)
		cursor = m.Span.End

		records = append(records, document.RedactionRecord{
			Category: m.Category,
			MaskKind: document.MaskTextReplacement,
			Location: fmt.Sprintf("chars %d-%d", m.Span.Start, m.Span.End),
			Merged:   m.Merged,
		})
	}
	sb.WriteString(text[cursor:])

	a.logger.Debug("Text spans redacted", zap.Int("operations", len(records)))
	return sb.String(), records, nil
}

// RedactRuns splices matches into per-run texts so the enclosing structure
// (paragraphs, table cells) stays parseable: a merged span crossing several
// runs is replaced run-locally, one placeholder per affected run.
func (a *Applier) RedactRuns(text string, runs []document.Span, runTexts []string, matches []document.PIIMatch) ([]string, []document.RedactionRecord, error) {
	if len(runs) != len(runTexts) {
		return nil, nil, fmt.Errorf("%w: %d run spans for %d run texts", ErrRedactionFailure, len(runs), len(runTexts))
	}

	merged := MergeSpans(matches)
	if len(merged) == 0 {
		return runTexts, nil, nil
	}

	// Collect run-local splice spans first; splicing shifts offsets, so each
	// run is rewritten once, right to left.
	local := make([][]document.Span, len(runs))
	records := make([]document.RedactionRecord, 0, len(merged))

	for _, m := range merged {
		if m.Span.End > len(text) {
			return nil, nil, fmt.Errorf("%w: span %d-%d outside text bounds", ErrRedactionFailure, m.Span.Start, m.Span.End)
		}
		touched := false
		for i, run := range runs {
			if !intersects(run, m.Span) {
				continue
			}
			local[i] = append(local[i], document.Span{
				Start: max(m.Span.Start, run.Start) - run.Start,
				End:   min(m.Span.End, run.End) - run.Start,
			})
			touched = true
		}
		if !touched {
			continue
		}
		records = append(records, document.RedactionRecord{
			Category: m.Category,
			MaskKind: document.MaskTextReplacement,
			Location: fmt.Sprintf("chars %d-%d", m.Span.Start, m.Span.End),
			Merged:   m.Merged,
		})
	}

	out := make([]string, len(runTexts))
	copy(out, runTexts)
	for i, splices := range local {
		for j := len(splices) - 1; j >= 0; j-- {
			s := splices[j]
			if s.End > len(out[i]) {
				return nil, nil, fmt.Errorf("%w: run %d shorter than match", ErrRedactionFailure, i)
			}
			out[i] = out[i][:s.Start] + a.cfg.Placeholder + out[i][s.End:]
		}
	}

	a.logger.Debug("Run texts redacted", zap.Int("operations", len(records)))
	return out, records, nil
}

func intersects(a, b document.Span) bool {
	return a.Start < b.End && b.Start < a.End
}
