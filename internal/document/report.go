package document

import "time"

// PageBreakdown counts applied redactions on a single page.
type PageBreakdown struct {
	Page       int              `json:"page"`
	Redactions int              `json:"redactions"`
	ByCategory map[Category]int `json:"byCategory,omitempty"`
}

// Report summarizes one pipeline run. It is built exclusively from the applied
// RedactionRecord set, so it reflects what was redacted, never what was merely
// detected.
type Report struct {
	RunID            string           `json:"runId"`
	CountsByCategory map[Category]int `json:"countsByCategory"`
	TotalRedactions  int              `json:"totalRedactions"`
	PerPage          []PageBreakdown  `json:"perPage,omitempty"`
	OCRSkipped       bool             `json:"ocrSkipped"`
	NERSkipped       bool             `json:"nerSkipped"`
	Summary          string           `json:"summary"`
	Duration         time.Duration    `json:"duration"`
}
