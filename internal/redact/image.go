package redact

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// RedactPage paints an opaque solid block over every merged box on the page.
// The source pixels under each block are fully overwritten, never blended, so
// the original content is unrecoverable. Painting the same region twice is a
// no-op, which makes redaction idempotent.
func (a *Applier) RedactPage(page document.Page, matches []document.PIIMatch) (document.Page, []document.RedactionRecord, error) {
	merged := MergeBoxes(matches)
	if len(merged) == 0 {
		return page, nil, nil
	}
	if page.Image == nil {
		return document.Page{}, nil, fmt.Errorf("%w: page %d has no image", ErrRedactionFailure, page.Index)
	}

	// Work on a copy; the input document is never mutated.
	bounds := page.Image.Bounds()
	canvas := image.NewRGBA(bounds)
	draw.Draw(canvas, bounds, page.Image, bounds.Min, draw.Src)

	fill := a.fillColor()
	w, h := bounds.Dx(), bounds.Dy()
	records := make([]document.RedactionRecord, 0, len(merged))

	for _, m := range merged {
		box := m.Box.Expand(a.cfg.MarginPx).Clamp(w, h)
		if !box.Valid() {
			continue
		}
		rect := image.Rect(
			bounds.Min.X+box.X0,
			bounds.Min.Y+box.Y0,
			bounds.Min.X+box.X1,
			bounds.Min.Y+box.Y1,
		)
		draw.Draw(canvas, rect, image.NewUniform(fill), image.Point{}, draw.Src)

		records = append(records, document.RedactionRecord{
			Category: m.Category,
			Page:     page.Index,
			MaskKind: document.MaskOpaqueRectangle,
			Location: box.String(),
			Merged:   m.Merged,
		})
	}

	a.logger.WithPage(page.Index).Debug("Page boxes redacted", zap.Int("operations", len(records)))
	return document.Page{Index: page.Index, Image: canvas}, records, nil
}

func (a *Applier) fillColor() color.Color {
	if a.cfg.Fill == "white" {
		return color.White
	}
	return color.Black
}
