package detect

import (
	"context"
	"regexp"
	"sort"

	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/document"
	"github.com/raaihank/doc-sentinel/internal/logger"
)

// PatternMatcher detects structured PII (dates, ids, emails, phone numbers)
// with one fixed regular expression per category. Custom labels from the
// configuration are matched verbatim, case-insensitively, as custom_label.
type PatternMatcher struct {
	rules  []Rule
	custom []*regexp.Regexp
	logger *logger.Logger
}

// NewPatternMatcher creates a pattern matcher with the default rule table.
func NewPatternMatcher(customLabels []string, log *logger.Logger) *PatternMatcher {
	custom := make([]*regexp.Regexp, 0, len(customLabels))
	for _, label := range customLabels {
		if label == "" {
			continue
		}
		custom = append(custom, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(label)))
	}

	m := &PatternMatcher{
		rules:  GetDefaultRules(),
		custom: custom,
		logger: log.WithComponent("pattern_matcher"),
	}

	m.logger.Info("Pattern matcher initialized",
		zap.Int("rules", len(m.rules)),
		zap.Int("custom_labels", len(custom)),
	)
	return m
}

// Name identifies this detector in match origins.
func (m *PatternMatcher) Name() string { return "pattern" }

// Ready always holds: regex matching has no external engine.
func (m *PatternMatcher) Ready() bool { return true }

// Detect runs every enabled rule over the text independently. Output is
// deterministic: ordered by ascending start offset, then by category.
func (m *PatternMatcher) Detect(_ context.Context, text string, enabled CategorySet) ([]document.PIIMatch, error) {
	var matches []document.PIIMatch

	for _, rule := range m.rules {
		if !enabled.Enabled(rule.Category) {
			continue
		}
		for _, loc := range rule.Pattern.FindAllStringIndex(text, -1) {
			matches = append(matches, document.PIIMatch{
				Category:   rule.Category,
				Span:       &document.Span{Start: loc[0], End: loc[1]},
				Confidence: 1.0,
				Origin:     m.Name(),
			})
		}
	}

	if enabled.Enabled(document.CategoryCustomLabel) {
		for _, pattern := range m.custom {
			for _, loc := range pattern.FindAllStringIndex(text, -1) {
				matches = append(matches, document.PIIMatch{
					Category:   document.CategoryCustomLabel,
					Span:       &document.Span{Start: loc[0], End: loc[1]},
					Confidence: 1.0,
					Origin:     m.Name(),
				})
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Span.Start != matches[j].Span.Start {
			return matches[i].Span.Start < matches[j].Span.Start
		}
		return matches[i].Category < matches[j].Category
	})

	if len(matches) > 0 {
		m.logger.Debug("Structured PII detected", zap.Int("count", len(matches)))
	}
	return matches, nil
}
