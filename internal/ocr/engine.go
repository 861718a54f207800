package ocr

import (
	"context"
	"image"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// Word is a single recognized token with its pixel-space bounds on the page.
type Word struct {
	Text       string
	Box        document.BoundingBox
	Confidence float64
}

// Options carries recognition hints for the engine.
type Options struct {
	// Languages is a list of trained-data hints (e.g. "fra", "eng").
	Languages []string
	// DPI is the effective dots-per-inch of the image; zero means unknown.
	DPI int
}

// Engine is the OCR provider contract: one image in, one word list out.
// Engines are shared across page workers and must be safe for concurrent
// calls; they hold no per-call mutable state.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, opts Options) ([]Word, error)
}

// NewEngine creates an engine if supported by the current build. The default
// build (no tags) returns nil to avoid CGO dependencies; callers treat a nil
// engine as OCR being unavailable.
// Implementations live in build-tagged files: engine_tesseract.go and engine_stub.go.
