package vault

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full DocuVault configuration.
type Config struct {
	Listen     string `yaml:"listen"`
	DBPath     string `yaml:"db_path"`
	UploadsDir string `yaml:"uploads_dir"`
	ExportsDir string `yaml:"exports_dir"`

	MaxFileMB int      `yaml:"max_file_mb"`
	Formats   []string `yaml:"formats"`

	OCR   OCRConfig   `yaml:"ocr"`
	LLM   LLMConfig   `yaml:"llm"`
	Query QueryConfig `yaml:"query"`
}

// OCRConfig configures text recognition.
type OCRConfig struct {
	Languages []string `yaml:"languages"`
	// ConfidenceFloor triggers the fallback preprocessing recipe when the
	// first pass scores below it.
	ConfidenceFloor float64 `yaml:"confidence_floor"`
}

// LLMConfig configures the extraction and query model. APIKey is normally
// injected through the OPENAI_API_KEY environment variable rather than the
// file.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxRetries  int     `yaml:"max_retries"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

// QueryConfig configures the natural-language query engine.
type QueryConfig struct {
	// ContextBudget is the maximum characters of document context per query.
	ContextBudget int `yaml:"context_budget"`
	DefaultLimit  int `yaml:"default_limit"`
}

// DefaultConfig returns sane defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:     ":8080",
		DBPath:     "docuvault.db",
		UploadsDir: "data/uploads",
		ExportsDir: "data/exports",
		MaxFileMB:  50,
		Formats:    []string{"png", "jpg", "jpeg", "pdf", "tiff"},
		OCR: OCRConfig{
			ConfidenceFloor: 0.50,
		},
		LLM: LLMConfig{
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o",
			MaxRetries:  2,
			MaxTokens:   4000,
			Temperature: 0.1,
		},
		Query: QueryConfig{
			ContextBudget: 48_000,
			DefaultLimit:  50,
		},
	}
}

// LoadConfig reads and parses a YAML config file, merged over DefaultConfig.
// OPENAI_API_KEY from the environment overrides the file value.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	return cfg, cfg.Validate()
}

// Validate checks that required fields are present and values are sane.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.UploadsDir == "" {
		return fmt.Errorf("uploads_dir is required")
	}
	if c.ExportsDir == "" {
		return fmt.Errorf("exports_dir is required")
	}
	if c.MaxFileMB <= 0 {
		return fmt.Errorf("max_file_mb must be > 0")
	}
	if c.OCR.ConfidenceFloor < 0 || c.OCR.ConfidenceFloor > 1 {
		return fmt.Errorf("ocr.confidence_floor must be in [0,1]")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required")
	}
	if c.Query.ContextBudget <= 0 {
		return fmt.Errorf("query.context_budget must be > 0")
	}
	return nil
}

// MaxFileBytes returns the max upload size in bytes.
func (c *Config) MaxFileBytes() int64 { return int64(c.MaxFileMB) * 1024 * 1024 }
