//go:build !onnx
// +build !onnx

package ner

import (
	"go.uber.org/zap"
)

// Stub implementation used when the 'onnx' build tag is not set.
func NewBackend(logger *zap.Logger, cfg Config) Backend {
	return nil
}
