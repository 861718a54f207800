//go:build onnx
// +build onnx

package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/daulet/tokenizers"
	ort "github.com/yalue/onnxruntime_go"
	"go.uber.org/zap"
)

// OnnxBackend implements Backend with a token-classification transformer run
// through ONNX Runtime. Requires build tag 'onnx'.
type OnnxBackend struct {
	tokenizer *tokenizers.Tokenizer
	session   *ort.DynamicAdvancedSession
	id2label  map[string]string
	numLabels int
	logger    *zap.Logger
	ready     bool
	mu        sync.RWMutex
}

// NewBackend initializes the ONNX Runtime backend. Any initialization failure
// is logged and yields nil, which callers treat as an unavailable detector.
func NewBackend(logger *zap.Logger, cfg Config) Backend {
	// Allow user to provide shared library path via environment variable.
	if shlib := os.Getenv("ONNXRUNTIME_SHARED_LIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	} else if shlib := os.Getenv("ORT_SHLIB"); shlib != "" {
		ort.SetSharedLibraryPath(shlib)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			logger.Error("ONNX Runtime environment init failed", zap.Error(err))
			return nil
		}
	}

	tk, err := tokenizers.FromFile(cfg.TokenizerPath)
	if err != nil {
		logger.Error("Failed to load tokenizer", zap.Error(err), zap.String("path", cfg.TokenizerPath))
		return nil
	}

	id2label, numLabels, err := loadLabels(cfg.LabelsPath)
	if err != nil {
		logger.Error("Failed to load label mapping", zap.Error(err), zap.String("path", cfg.LabelsPath))
		tk.Close()
		return nil
	}

	sess, err := ort.NewDynamicAdvancedSession(cfg.ModelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"logits"},
		nil)
	if err != nil {
		logger.Error("ONNX Runtime session creation failed", zap.Error(err), zap.String("model", cfg.ModelPath))
		tk.Close()
		return nil
	}

	logger.Info("ONNX NER backend ready",
		zap.String("model", cfg.ModelPath),
		zap.Int("labels", numLabels),
	)
	return &OnnxBackend{
		tokenizer: tk,
		session:   sess,
		id2label:  id2label,
		numLabels: numLabels,
		logger:    logger,
		ready:     true,
	}
}

func loadLabels(path string) (map[string]string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}
	var mapping struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, 0, fmt.Errorf("parse label mapping: %w", err)
	}
	numLabels := 0
	for idStr := range mapping.ID2Label {
		var id int
		if _, err := fmt.Sscanf(idStr, "%d", &id); err == nil && id >= numLabels {
			numLabels = id + 1
		}
	}
	if numLabels == 0 {
		return nil, 0, fmt.Errorf("label mapping is empty")
	}
	return mapping.ID2Label, numLabels, nil
}

// Ready reports whether the backend is initialized.
func (b *OnnxBackend) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready && b.session != nil
}

// Close releases session, tokenizer and environment resources.
func (b *OnnxBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session != nil {
		b.session.Destroy()
		b.session = nil
	}
	if b.tokenizer != nil {
		b.tokenizer.Close()
		b.tokenizer = nil
	}
	ort.DestroyEnvironment()
	b.ready = false
	return nil
}

// Recognize tokenizes text with offsets, runs token classification and decodes
// the BIO label sequence back to character spans in the original text.
func (b *OnnxBackend) Recognize(ctx context.Context, text string) ([]Entity, error) {
	if !b.Ready() {
		return nil, fmt.Errorf("onnx backend not ready")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	encoding := b.tokenizer.EncodeWithOptions(text, true, tokenizers.WithReturnOffsets())
	seqLen := len(encoding.IDs)
	if seqLen == 0 {
		return nil, nil
	}

	inputIDs := make([]int64, seqLen)
	attention := make([]int64, seqLen)
	for i, id := range encoding.IDs {
		inputIDs[i] = int64(id)
		attention[i] = 1
	}

	shape := ort.NewShape(1, int64(seqLen))
	idsTensor, err := ort.NewTensor[int64](shape, inputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	defer idsTensor.Destroy()
	maskTensor, err := ort.NewTensor[int64](shape, attention)
	if err != nil {
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	defer maskTensor.Destroy()

	outputs := make([]ort.Value, 1)
	if err := b.session.Run([]ort.Value{idsTensor, maskTensor}, outputs); err != nil {
		return nil, fmt.Errorf("onnx run failed: %w", err)
	}
	if len(outputs) == 0 || outputs[0] == nil {
		return nil, fmt.Errorf("onnx returned no outputs")
	}
	defer outputs[0].Destroy()

	logitsTensor, ok := outputs[0].(*ort.Tensor[float32])
	if !ok {
		return nil, fmt.Errorf("unexpected output type (want float32 tensor)")
	}
	logits := logitsTensor.GetData()
	if len(logits) < seqLen*b.numLabels {
		return nil, fmt.Errorf("unexpected logits length %d for %d tokens", len(logits), seqLen)
	}

	return b.decode(text, encoding.Offsets, logits, seqLen), nil
}

// decode groups consecutive B-/I- tokens of the same base label into entities.
func (b *OnnxBackend) decode(text string, offsets []tokenizers.Offset, logits []float32, seqLen int) []Entity {
	var entities []Entity
	var current *Entity

	numTokens := seqLen
	if len(offsets) < numTokens {
		numTokens = len(offsets)
	}

	flush := func() {
		if current != nil && current.End > current.Start {
			entities = append(entities, *current)
		}
		current = nil
	}

	for i := 0; i < numTokens; i++ {
		tokenLogits := logits[i*b.numLabels : (i+1)*b.numLabels]
		best, confidence := argmaxSoftmax(tokenLogits)

		label := b.id2label[fmt.Sprintf("%d", best)]
		if label == "" {
			label = "O"
		}
		isInside := strings.HasPrefix(label, "I-")
		base := strings.TrimPrefix(strings.TrimPrefix(label, "B-"), "I-")

		start := int(offsets[i][0])
		end := int(offsets[i][1])

		switch {
		case label == "O" || end <= start:
			flush()
		case isInside && current != nil && current.Label == base:
			current.End = end
			current.Confidence = (current.Confidence + confidence) / 2
		default:
			flush()
			current = &Entity{Label: base, Start: start, End: end, Confidence: confidence}
		}
	}
	flush()

	// Clamp offsets defensively against tokenizer padding artifacts.
	for i := range entities {
		if entities[i].End > len(text) {
			entities[i].End = len(text)
		}
	}
	return entities
}

func argmaxSoftmax(logits []float32) (int, float64) {
	best := 0
	max := float64(-math.MaxFloat64)
	for i, l := range logits {
		if float64(l) > max {
			max = float64(l)
			best = i
		}
	}
	var sum float64
	for _, l := range logits {
		sum += math.Exp(float64(l))
	}
	if sum == 0 {
		return best, 0
	}
	return best, math.Exp(max) / sum
}
