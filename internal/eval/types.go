package eval

import (
	"time"
)

// Sample is one labeled example from an evaluation dataset. Label 1 means the
// text contains PII of the given category, 0 means the text is clean.
type Sample struct {
	Text     string `csv:"text" parquet:"text" json:"text"`
	Category string `csv:"category" parquet:"category" json:"category"`
	Label    int    `csv:"label" parquet:"label" json:"label"`
}

// CategoryStats aggregates detector performance for one category.
type CategoryStats struct {
	Samples  int `json:"samples"`
	Detected int `json:"detected"`
	Missed   int `json:"missed"`
}

// Recall is the fraction of positive samples the detectors caught.
func (s *CategoryStats) Recall() float64 {
	if s.Samples == 0 {
		return 0
	}
	return float64(s.Detected) / float64(s.Samples)
}

// Result summarizes one evaluation run over a dataset.
type Result struct {
	TotalSamples   int64                     `json:"total_samples"`
	Positives      int64                     `json:"positives"`
	Detected       int64                     `json:"detected"`
	Missed         int64                     `json:"missed"`
	FalsePositives int64                     `json:"false_positives"`
	Skipped        int64                     `json:"skipped"`
	ByCategory     map[string]*CategoryStats `json:"by_category"`
	Duration       time.Duration             `json:"duration"`
	Errors         []string                  `json:"errors,omitempty"`
}

// Config contains evaluation pipeline configuration
type Config struct {
	BatchSize      int  `yaml:"batch_size" mapstructure:"batch_size"`           // 1000
	ValidateData   bool `yaml:"validate_data" mapstructure:"validate_data"`     // true
	ProgressReport int  `yaml:"progress_report" mapstructure:"progress_report"` // 1000
}

// FileFormat represents supported dataset file formats
type FileFormat string

const (
	FormatCSV     FileFormat = "csv"
	FormatParquet FileFormat = "parquet"
	FormatJSON    FileFormat = "json"
)

// DetectFileFormat detects dataset format from the file extension
func DetectFileFormat(filename string) FileFormat {
	switch {
	case len(filename) >= 8 && filename[len(filename)-8:] == ".parquet":
		return FormatParquet
	case len(filename) >= 6 && filename[len(filename)-6:] == ".jsonl":
		return FormatJSON
	case len(filename) >= 5 && filename[len(filename)-5:] == ".json":
		return FormatJSON
	default:
		return FormatCSV
	}
}
