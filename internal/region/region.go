package region

import (
	"context"
	"image"

	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/config"
	"github.com/raaihank/doc-sentinel/internal/document"
	"github.com/raaihank/doc-sentinel/internal/logger"
)

// Detector proposes candidate regions on raster pages from geometry alone; it
// never inspects content. Two additive strategies: a fixed header band at the
// top of the page (where scanned forms carry identifying blocks), and contour
// detection around dense ink regions (barcodes, QR codes, stamped labels).
type Detector struct {
	cfg    config.RegionConfig
	logger *logger.Logger
}

// New creates a region fallback detector.
func New(cfg config.RegionConfig, log *logger.Logger) *Detector {
	d := &Detector{cfg: cfg, logger: log.WithComponent("region_detector")}
	d.logger.Info("Region detector initialized",
		zap.Float64("header_band_ratio", cfg.HeaderBandRatio),
		zap.Int("min_area", cfg.MinArea),
	)
	return d
}

// HeaderBand returns the fixed top-of-page band for a w x h page. It is
// emitted regardless of OCR status. On pages too short for the ratio to
// round to a pixel the band is clamped to one row so it survives the merge.
func (d *Detector) HeaderBand(w, h int) document.BoundingBox {
	band := int(float64(h) * d.cfg.HeaderBandRatio)
	if band < 1 && h > 0 {
		band = 1
	}
	return document.BoundingBox{X0: 0, Y0: 0, X1: w, Y1: band}
}

// Detect returns the header band plus contour-detected boxes as custom_label
// matches. Both strategies contribute; the downstream merge collapses overlaps
// with OCR-derived boxes.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]document.PIIMatch, error) {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	matches := []document.PIIMatch{{
		Category:   document.CategoryCustomLabel,
		Box:        boxPtr(d.HeaderBand(w, h)),
		Confidence: 1.0,
		Origin:     "header_band",
	}}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	ink := binarize(img)
	closed := closeMorph(ink)

	for _, box := range components(closed) {
		if !d.keep(box, ink) {
			continue
		}
		matches = append(matches, document.PIIMatch{
			Category:   document.CategoryCustomLabel,
			Box:        boxPtr(box),
			Confidence: 0.8,
			Origin:     "contour",
		})
	}

	d.logger.Debug("Regions proposed", zap.Int("count", len(matches)))
	return matches, nil
}

// keep applies the area, aspect-ratio and ink-density filters to a candidate.
// Density is measured on the pre-close mask so the closing kernel does not
// inflate sparse regions past the cutoff.
func (d *Detector) keep(box document.BoundingBox, ink *mask) bool {
	area := box.Area()
	if area < d.cfg.MinArea {
		return false
	}
	aspect := float64(box.Width()) / float64(box.Height())
	if aspect < d.cfg.MinAspect || aspect > d.cfg.MaxAspect {
		return false
	}
	set := 0
	for y := box.Y0; y < box.Y1; y++ {
		for x := box.X0; x < box.X1; x++ {
			if ink.at(x, y) {
				set++
			}
		}
	}
	return float64(set)/float64(area) >= d.cfg.MinInkDensity
}

func boxPtr(b document.BoundingBox) *document.BoundingBox { return &b }
