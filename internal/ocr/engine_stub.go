//go:build !tesseract
// +build !tesseract

package ocr

import (
	"go.uber.org/zap"
)

// Stub implementation used when the 'tesseract' build tag is not set.
func NewEngine(logger *zap.Logger) Engine {
	return nil
}
