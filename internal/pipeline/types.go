package pipeline

import (
	"github.com/raaihank/doc-sentinel/internal/document"
)

// Stage is one step of the per-document state machine. Stages advance in one
// direction only and are never revisited.
type Stage string

const (
	StageDecoded   Stage = "decoded"
	StageDetecting Stage = "detecting"
	StageMerging   Stage = "merging"
	StageRedacting Stage = "redacting"
	StageReported  Stage = "reported"
	StageDone      Stage = "done"
	StageFailed    Stage = "failed"
)

// Result is the outcome of one successful pipeline run: the redacted document,
// the masks actually applied, and the report aggregated from them. A failed
// run produces no Result at all, never a partially redacted one.
type Result struct {
	Document *document.Document
	Records  []document.RedactionRecord
	Report   *document.Report
}

// pageResult carries one page's detections back from a worker; results are
// reassembled by page index so output ordering is deterministic regardless of
// completion order.
type pageResult struct {
	index      int
	matches    []document.PIIMatch
	ocrSkipped bool
	nerSkipped bool
}
