package ner

import (
	"context"
	"time"
)

// Entity is one named entity located by the statistical model, with byte
// offsets into the analyzed text.
type Entity struct {
	Label      string
	Start      int
	End        int
	Confidence float64
}

// Backend defines a pluggable named-entity recognition engine. Implementations
// must be safe for concurrent calls: the model handle is read-only after
// initialization and is never mutated per call.
type Backend interface {
	// Ready reports whether the backend is initialized and can run inference.
	Ready() bool
	// Recognize returns the entities found in text.
	Recognize(ctx context.Context, text string) ([]Entity, error)
	// Close releases any native resources.
	Close() error
}

// Config locates the model artifacts for the build-tagged backend.
type Config struct {
	ModelPath     string
	TokenizerPath string
	LabelsPath    string
	Timeout       time.Duration
}

// NewBackend creates a backend if supported by the current build. The default
// build (no tags) returns nil to avoid CGO dependencies; callers treat a nil
// backend as an unavailable detector.
// Implementations live in build-tagged files: backend_onnx.go and backend_stub.go.
