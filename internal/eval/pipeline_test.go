package eval

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/raaihank/doc-sentinel/internal/detect"
	"github.com/raaihank/doc-sentinel/internal/logger"
)

func writeDataset(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write dataset: %v", err)
	}
	return path
}

func testEvalPipeline(t *testing.T) *Pipeline {
	t.Helper()
	log := &logger.Logger{Logger: zap.NewNop()}
	enabled, err := detect.NewCategorySet([]string{"all"})
	if err != nil {
		t.Fatalf("Failed to build category set: %v", err)
	}
	detectors := []detect.TextDetector{
		detect.NewPatternMatcher(nil, log),
		detect.NewTitleDetector(log),
	}
	return NewPipeline(detectors, enabled, &Config{
		BatchSize:      100,
		ValidateData:   true,
		ProgressReport: 1000,
	}, zap.NewNop())
}

// TestDetectFileFormat tests dataset format selection
func TestDetectFileFormat(t *testing.T) {
	cases := []struct {
		filename string
		want     FileFormat
	}{
		{"data.csv", FormatCSV},
		{"data.parquet", FormatParquet},
		{"data.json", FormatJSON},
		{"data.jsonl", FormatJSON},
		{"data.unknown", FormatCSV},
	}
	for _, tc := range cases {
		if got := DetectFileFormat(tc.filename); got != tc.want {
			t.Errorf("%s: format = %s, want %s", tc.filename, got, tc.want)
		}
	}
}

// TestEvaluateCSV tests scoring over a CSV dataset
func TestEvaluateCSV(t *testing.T) {
	path := writeDataset(t, "dataset.csv",
		"text,category,label\n"+
			"\"né le 12/03/1980\",date,1\n"+
			"\"tel 0601020304\",phone,1\n"+
			"\"Patient: Jean Dupont\",person_name,1\n"+
			"\"aucun contenu sensible ici\",,0\n"+
			"\"texte sans le motif attendu\",email,1\n")

	p := testEvalPipeline(t)
	result, err := p.EvaluateFile(context.Background(), path)
	if err != nil {
		t.Fatalf("EvaluateFile failed: %v", err)
	}

	if result.TotalSamples != 5 {
		t.Errorf("TotalSamples = %d, want 5", result.TotalSamples)
	}
	if result.Positives != 4 {
		t.Errorf("Positives = %d, want 4", result.Positives)
	}
	if result.Detected != 3 {
		t.Errorf("Detected = %d, want 3", result.Detected)
	}
	if result.Missed != 1 {
		t.Errorf("Missed = %d, want 1", result.Missed)
	}
	if result.FalsePositives != 0 {
		t.Errorf("FalsePositives = %d, want 0", result.FalsePositives)
	}

	dateStats := result.ByCategory["date"]
	if dateStats == nil || dateStats.Recall() != 1.0 {
		t.Errorf("Date recall = %+v, want 1.0", dateStats)
	}
	emailStats := result.ByCategory["email"]
	if emailStats == nil || emailStats.Missed != 1 {
		t.Errorf("Email stats = %+v, want 1 miss", emailStats)
	}
}

// TestEvaluateJSON tests scoring over a JSON-lines dataset
func TestEvaluateJSON(t *testing.T) {
	path := writeDataset(t, "dataset.jsonl",
		`{"text":"contact a.b@chu.fr","category":"email","label":1}`+"\n"+
			`{"text":"dossier 12345678","category":"long_number","label":1}`+"\n"+
			`{"text":"rien de sensible","category":"","label":0}`+"\n")

	p := testEvalPipeline(t)
	result, err := p.EvaluateFile(context.Background(), path)
	if err != nil {
		t.Fatalf("EvaluateFile failed: %v", err)
	}
	if result.TotalSamples != 3 || result.Detected != 2 || result.Missed != 0 {
		t.Errorf("Result = %+v", result)
	}
}

// TestValidation tests sample filtering
func TestValidation(t *testing.T) {
	path := writeDataset(t, "dataset.csv",
		"text,category,label\n"+
			"\"\",date,1\n"+
			"\"texte\",bogus_category,1\n"+
			"\"texte\",date,7\n"+
			"\"né le 12/03/1980\",date,1\n")

	p := testEvalPipeline(t)
	result, err := p.EvaluateFile(context.Background(), path)
	if err != nil {
		t.Fatalf("EvaluateFile failed: %v", err)
	}
	if result.Skipped != 3 {
		t.Errorf("Skipped = %d, want 3", result.Skipped)
	}
	if result.TotalSamples != 1 || result.Detected != 1 {
		t.Errorf("Result = %+v", result)
	}
}

// TestFalsePositives tests clean samples that trip a detector
func TestFalsePositives(t *testing.T) {
	path := writeDataset(t, "dataset.csv",
		"text,category,label\n"+
			"\"réunion le 12/03/2024 salle 3\",,0\n")

	p := testEvalPipeline(t)
	result, err := p.EvaluateFile(context.Background(), path)
	if err != nil {
		t.Fatalf("EvaluateFile failed: %v", err)
	}
	if result.FalsePositives != 1 {
		t.Errorf("FalsePositives = %d, want 1", result.FalsePositives)
	}
}
