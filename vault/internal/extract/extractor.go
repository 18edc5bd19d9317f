package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/hazyhaar/docuvault/llm"
)

// SchemaError means every extraction attempt produced a response that could
// not be parsed and validated. It carries the last raw response so callers
// can log what the model actually said.
type SchemaError struct {
	Attempts     int
	LastResponse string
	Err          error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("extract: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Meta describes a completed extraction.
type Meta struct {
	Model      string
	Attempts   int
	DurationMs int64
}

// Extractor drives LLM extraction with schema validation and retries.
type Extractor struct {
	client      llm.Client
	maxRetries  int
	maxTokens   int
	temperature float64
	logger      *slog.Logger
}

// Config tunes an Extractor. Zero values get defaults.
type Config struct {
	// MaxRetries is the number of corrective retries after the first
	// attempt. Default 2 (three attempts total).
	MaxRetries  int
	MaxTokens   int
	Temperature float64
	Logger      *slog.Logger
}

// New builds an Extractor on the given LLM client.
func New(client llm.Client, cfg Config) *Extractor {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4000
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Extractor{
		client:      client,
		maxRetries:  cfg.MaxRetries,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		logger:      cfg.Logger,
	}
}

// ExtractWithRetry extracts structured data from OCR text. Failed attempts
// (unparseable or invalid JSON) trigger a corrective follow-up prompt that
// embeds the validation error. When all attempts fail the returned error is
// a *SchemaError.
func (e *Extractor) ExtractWithRetry(ctx context.Context, ocrText, typeHint string) (*ExtractedDocument, Meta, error) {
	start := time.Now()
	base := buildPrompt(ocrText, typeHint)
	prompt := base

	var lastResponse string
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		attempts++

		resp, err := e.client.Complete(ctx, llm.Request{
			System:      systemPrompt,
			Prompt:      prompt,
			MaxTokens:   e.maxTokens,
			Temperature: e.temperature,
		})
		if err != nil {
			// Transport errors are not schema problems; retrying with a
			// corrective prompt would not help.
			return nil, Meta{Attempts: attempts, DurationMs: time.Since(start).Milliseconds()},
				fmt.Errorf("extract: llm call: %w", err)
		}
		lastResponse = resp.Text

		doc, err := parseResponse(resp.Text)
		if err == nil {
			doc.Normalize()
			err = doc.Validate()
			if err == nil {
				return doc, Meta{
					Model:      resp.Model,
					Attempts:   attempts,
					DurationMs: time.Since(start).Milliseconds(),
				}, nil
			}
		}

		lastErr = err
		e.logger.Warn("extraction attempt failed",
			"attempt", attempts, "error", err)
		prompt = correctivePrompt(base, err)
	}

	return nil, Meta{Attempts: attempts, DurationMs: time.Since(start).Milliseconds()},
		&SchemaError{Attempts: attempts, LastResponse: lastResponse, Err: lastErr}
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	rawJSONRe    = regexp.MustCompile(`(?s)\{.*\}`)
)

// parseResponse pulls JSON out of an LLM response, tolerating markdown
// fencing and surrounding prose.
func parseResponse(text string) (*ExtractedDocument, error) {
	var payload string
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		payload = m[1]
	} else if m := rawJSONRe.FindString(text); m != "" {
		payload = m
	} else {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var doc ExtractedDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return &doc, nil
}
