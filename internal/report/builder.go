package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// Builder aggregates applied RedactionRecords into a Report. It is pure: the
// canonical count is always the number of redaction operations actually
// applied, never the raw detector hit count, so the report reflects exactly
// what was destroyed.
type Builder struct {
	runID      string
	records    []document.RedactionRecord
	ocrSkipped bool
	nerSkipped bool
	started    time.Time
}

// NewBuilder starts a report for one pipeline run.
func NewBuilder(runID string) *Builder {
	return &Builder{runID: runID, started: time.Now()}
}

// Add appends applied records.
func (b *Builder) Add(records ...document.RedactionRecord) {
	b.records = append(b.records, records...)
}

// SetOCRSkipped flags that OCR-based detection did not run.
func (b *Builder) SetOCRSkipped() { b.ocrSkipped = true }

// SetNERSkipped flags that the statistical entity recognizer did not run.
func (b *Builder) SetNERSkipped() { b.nerSkipped = true }

// Build produces the final report.
func (b *Builder) Build() *document.Report {
	counts := make(map[document.Category]int)
	perPage := make(map[int]*document.PageBreakdown)

	for _, r := range b.records {
		counts[r.Category]++
		pb, ok := perPage[r.Page]
		if !ok {
			pb = &document.PageBreakdown{Page: r.Page, ByCategory: make(map[document.Category]int)}
			perPage[r.Page] = pb
		}
		pb.Redactions++
		pb.ByCategory[r.Category]++
	}

	pages := make([]document.PageBreakdown, 0, len(perPage))
	for _, pb := range perPage {
		pages = append(pages, *pb)
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })

	rep := &document.Report{
		RunID:            b.runID,
		CountsByCategory: counts,
		TotalRedactions:  len(b.records),
		PerPage:          pages,
		OCRSkipped:       b.ocrSkipped,
		NERSkipped:       b.nerSkipped,
		Duration:         time.Since(b.started),
	}
	rep.Summary = summarize(rep)
	return rep
}

// summarize renders a short human-readable recap of the run.
func summarize(r *document.Report) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d redaction(s) applied", r.TotalRedactions)

	var parts []string
	for _, c := range document.AllCategories() {
		if n := r.CountsByCategory[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", c, n))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&sb, " (%s)", strings.Join(parts, ", "))
	}
	if r.OCRSkipped {
		sb.WriteString("; OCR skipped: engine unavailable")
	}
	if r.NERSkipped {
		sb.WriteString("; NER skipped: model unavailable")
	}
	return sb.String()
}
