package detect

import (
	"regexp"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// Rule maps one PII category to one fixed regular expression.
type Rule struct {
	Category document.Category
	Pattern  *regexp.Regexp
}

// GetDefaultRules returns the structured-PII rule table. Each category has
// exactly one rule; overlaps across categories are preserved and resolved
// during merge, not here.
func GetDefaultRules() []Rule {
	return []Rule{
		{
			// Numeric dates: 12/03/1980, 1.2.80
			Category: document.CategoryDate,
			Pattern:  regexp.MustCompile(`\b([0-3]?\d)[./]([0-1]?\d)[./](\d{4}|\d{2})\b`),
		},
		{
			// Any run of 6 or more contiguous digits (dossier, INS, batch ids)
			Category: document.CategoryLongNumber,
			Pattern:  regexp.MustCompile(`\b\d{6,}\b`),
		},
		{
			Category: document.CategoryEmail,
			Pattern:  regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
		},
		{
			// National layouts: 0601020304, 06 01 02 03 04, +33 6 01 02 03 04
			Category: document.CategoryPhone,
			Pattern:  regexp.MustCompile(`(?:\+33[\s.-]?|\b0)[1-9](?:[\s.-]?\d{2}){4}\b`),
		},
		{
			// 13-digit structured id with optional 2-digit key
			Category: document.CategorySSN,
			Pattern:  regexp.MustCompile(`\b[12]\s?\d{2}\s?[0-1]\d\s?\d{2}\s?\d{3}\s?\d{3}(?:\s?\d{2})?\b`),
		},
	}
}
