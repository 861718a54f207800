package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Privacy   PrivacyConfig   `yaml:"privacy" mapstructure:"privacy"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	NER       NERConfig       `yaml:"ner" mapstructure:"ner"`
	Region    RegionConfig    `yaml:"region" mapstructure:"region"`
	Redaction RedactionConfig `yaml:"redaction" mapstructure:"redaction"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	Sentry    SentryConfig    `yaml:"sentry" mapstructure:"sentry"`
}

// PrivacyConfig selects which PII categories are detected and redacted
type PrivacyConfig struct {
	// Categories lists enabled category names; "all" enables every category.
	Categories []string `yaml:"categories" mapstructure:"categories"`
	// CustomLabels are matched verbatim (case-insensitive) as custom_label.
	CustomLabels []string `yaml:"custom_labels" mapstructure:"custom_labels"`
}

// OCRConfig contains text localizer configuration
type OCRConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Languages []string      `yaml:"languages" mapstructure:"languages"`
	DPI       int           `yaml:"dpi" mapstructure:"dpi"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// MinConfidence drops recognized words below this confidence (0..1).
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
}

// NERConfig contains entity recognizer configuration
type NERConfig struct {
	Enabled       bool          `yaml:"enabled" mapstructure:"enabled"`
	ModelPath     string        `yaml:"model_path" mapstructure:"model_path"`
	TokenizerPath string        `yaml:"tokenizer_path" mapstructure:"tokenizer_path"`
	LabelsPath    string        `yaml:"labels_path" mapstructure:"labels_path"`
	Threshold     float64       `yaml:"threshold" mapstructure:"threshold"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// RegionConfig tunes the geometric fallback detector
type RegionConfig struct {
	// HeaderBandRatio is the fraction of the page height, from the top, that is
	// always proposed for redaction on scanned pages.
	HeaderBandRatio float64 `yaml:"header_band_ratio" mapstructure:"header_band_ratio"`
	MinArea         int     `yaml:"min_area" mapstructure:"min_area"`
	MinAspect       float64 `yaml:"min_aspect" mapstructure:"min_aspect"`
	MaxAspect       float64 `yaml:"max_aspect" mapstructure:"max_aspect"`
	MinInkDensity   float64 `yaml:"min_ink_density" mapstructure:"min_ink_density"`
}

// RedactionConfig controls how located PII is destroyed
type RedactionConfig struct {
	// Placeholder replaces text spans in text-addressable formats.
	Placeholder string `yaml:"placeholder" mapstructure:"placeholder"`
	// Fill is the paint color for opaque blocks: "black" or "white".
	Fill string `yaml:"fill" mapstructure:"fill"`
	// MarginPx expands every painted box to cover glyph antialiasing fringes.
	MarginPx int `yaml:"margin_px" mapstructure:"margin_px"`
}

// PipelineConfig contains orchestration configuration
type PipelineConfig struct {
	// PageWorkers bounds concurrent per-page detection; 0 means sequential.
	PageWorkers int `yaml:"page_workers" mapstructure:"page_workers"`
	// EngineRatePerSecond throttles OCR/NER engine invocations across workers;
	// 0 disables throttling.
	EngineRatePerSecond float64 `yaml:"engine_rate_per_second" mapstructure:"engine_rate_per_second"`
	EngineBurst         int     `yaml:"engine_burst" mapstructure:"engine_burst"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled  bool   `yaml:"enabled" mapstructure:"enabled"`
		Path     string `yaml:"path" mapstructure:"path"`
		MaxSize  int    `yaml:"max_size" mapstructure:"max_size"`
		MaxAge   int    `yaml:"max_age" mapstructure:"max_age"`
		Compress bool   `yaml:"compress" mapstructure:"compress"`
	} `yaml:"file" mapstructure:"file"`
}

// SentryConfig contains optional crash reporting configuration. Reports carry
// stage and category metadata only, never document content.
type SentryConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN         string `yaml:"dsn" mapstructure:"dsn"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	return &Config{
		Privacy: PrivacyConfig{
			Categories: []string{"all"},
		},
		OCR: OCRConfig{
			Enabled:       true,
			Languages:     []string{"fra", "eng"},
			DPI:           300,
			Timeout:       60 * time.Second,
			MinConfidence: 0.0,
		},
		NER: NERConfig{
			Enabled:   true,
			Threshold: 0.5,
			Timeout:   30 * time.Second,
		},
		Region: RegionConfig{
			HeaderBandRatio: 0.30,
			MinArea:         1500,
			MinAspect:       0.5,
			MaxAspect:       6.0,
			MinInkDensity:   0.35,
		},
		Redaction: RedactionConfig{
			Placeholder: "[REDACTED]",
			Fill:        "black",
			MarginPx:    2,
		},
		Pipeline: PipelineConfig{
			PageWorkers:         4,
			EngineRatePerSecond: 0,
			EngineBurst:         1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Sentry: SentryConfig{
			Enabled: false,
		},
	}
}
