//go:build tesseract
// +build tesseract

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/document"
)

// TesseractEngine implements Engine with the gosseract client. Requires build
// tag 'tesseract' and an installed Tesseract runtime.
type TesseractEngine struct {
	clientFactory func() *gosseract.Client
	logger        *zap.Logger
}

// NewEngine constructs a Tesseract-backed OCR engine.
func NewEngine(logger *zap.Logger) Engine {
	logger.Info("Tesseract OCR engine ready")
	return &TesseractEngine{clientFactory: gosseract.NewClient, logger: logger}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

// Recognize runs word-level OCR over the image. A fresh client is used per
// call so concurrent page workers never share native state.
func (e *TesseractEngine) Recognize(ctx context.Context, img image.Image, opts Options) ([]Word, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image for ocr: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if len(opts.Languages) > 0 {
		if err := c.SetLanguage(opts.Languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if opts.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(opts.DPI)); err != nil {
			return nil, fmt.Errorf("set dpi: %w", err)
		}
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		words = append(words, Word{
			Text: text,
			Box: document.BoundingBox{
				X0: b.Box.Min.X,
				Y0: b.Box.Min.Y,
				X1: b.Box.Max.X,
				Y1: b.Box.Max.Y,
			},
			Confidence: b.Confidence / 100.0,
		})
	}
	return words, nil
}
