package redact

import (
	"sort"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// MergedSpan is a union of overlapping text matches, redacted as one operation.
type MergedSpan struct {
	Span     document.Span
	Category document.Category
	Merged   int
}

// MergedBox is a union of overlapping box matches, redacted as one operation.
type MergedBox struct {
	Box      document.BoundingBox
	Category document.Category
	Merged   int
}

// MergeSpans unions overlapping or touching spans, within and across
// categories, so no two mask operations ever target overlapping ranges. The
// earliest contributing match decides the record's category. Input order does
// not matter; output is ordered by ascending start.
func MergeSpans(matches []document.PIIMatch) []MergedSpan {
	spans := make([]document.PIIMatch, 0, len(matches))
	for _, m := range matches {
		if m.Span != nil && m.Span.Len() > 0 {
			spans = append(spans, m)
		}
	}
	if len(spans) == 0 {
		return nil
	}

	sort.SliceStable(spans, func(i, j int) bool {
		return spans[i].Span.Start < spans[j].Span.Start
	})

	merged := []MergedSpan{{Span: *spans[0].Span, Category: spans[0].Category, Merged: 1}}
	for _, m := range spans[1:] {
		last := &merged[len(merged)-1]
		if last.Span.Overlaps(*m.Span) {
			last.Span = last.Span.Union(*m.Span)
			last.Merged++
			continue
		}
		merged = append(merged, MergedSpan{Span: *m.Span, Category: m.Category, Merged: 1})
	}
	return merged
}

// MergeBoxes unions boxes that intersect with positive area, iterating to a
// fixpoint so chains of pairwise-overlapping boxes collapse into a single
// union. No two mask operations ever target overlapping geometry, which
// prevents both double-masking and thin unmasked slivers between adjacent
// masks.
func MergeBoxes(matches []document.PIIMatch) []MergedBox {
	var boxes []MergedBox
	for _, m := range matches {
		if m.Box != nil && m.Box.Valid() {
			boxes = append(boxes, MergedBox{Box: *m.Box, Category: m.Category, Merged: 1})
		}
	}

	for {
		merged := false
		for i := 0; i < len(boxes) && !merged; i++ {
			for j := i + 1; j < len(boxes); j++ {
				if boxes[i].Box.Intersect(boxes[j].Box).Area() == 0 {
					continue
				}
				boxes[i].Box = boxes[i].Box.Union(boxes[j].Box)
				boxes[i].Merged += boxes[j].Merged
				boxes = append(boxes[:j], boxes[j+1:]...)
				merged = true
				break
			}
		}
		if !merged {
			break
		}
	}

	sort.SliceStable(boxes, func(i, j int) bool {
		if boxes[i].Box.Y0 != boxes[j].Box.Y0 {
			return boxes[i].Box.Y0 < boxes[j].Box.Y0
		}
		return boxes[i].Box.X0 < boxes[j].Box.X0
	})
	return boxes
}
