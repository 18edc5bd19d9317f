package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Adapter runs recognition with preprocessing recipes and a confidence-based
// fallback: the binarised image goes first, and when the score comes back
// below the floor the original image gets a second pass. The better-scoring
// attempt wins.
type Adapter struct {
	engine Engine
	floor  float64
	logger *slog.Logger
}

// NewAdapter builds an Adapter around an Engine. floor is the confidence
// below which the fallback recipe is tried.
func NewAdapter(engine Engine, floor float64, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{engine: engine, floor: floor, logger: logger}
}

// Extract reads the file at path and returns its text. PDFs go through the
// native-text-layer path; everything else is treated as an image.
// An unreadable file is an error; a readable file with no recognisable text
// returns empty text with confidence 0 and no error.
func (a *Adapter) Extract(ctx context.Context, path string) (Result, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "pdf" {
		return a.extractPDF(ctx, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: read file: %w", err)
	}
	return a.recognizeBest(ctx, data)
}

// recognizeBest runs the primary recipe, falls back when the confidence is
// below the floor, and returns the better attempt.
func (a *Adapter) recognizeBest(ctx context.Context, data []byte) (Result, error) {
	primary, primaryErr := a.recognizeWith(ctx, recipeBinarize, data)
	if primaryErr == nil && primary.Confidence >= a.floor {
		return primary, nil
	}

	fallback, fallbackErr := a.recognizeWith(ctx, recipePassthrough, data)
	if primaryErr != nil && fallbackErr != nil {
		return Result{}, fmt.Errorf("ocr: all recipes failed: %w", primaryErr)
	}
	if primaryErr != nil {
		return fallback, nil
	}
	if fallbackErr != nil {
		return primary, nil
	}

	a.logger.Debug("ocr fallback compared",
		"primary_confidence", primary.Confidence,
		"fallback_confidence", fallback.Confidence)

	if fallback.Confidence > primary.Confidence {
		return fallback, nil
	}
	return primary, nil
}

func (a *Adapter) recognizeWith(ctx context.Context, r recipe, data []byte) (Result, error) {
	prepared, err := r.apply(data)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: recipe %s: %w", r.name, err)
	}
	res, err := a.engine.Recognize(ctx, prepared)
	if err != nil {
		return Result{}, fmt.Errorf("ocr: recipe %s: %w", r.name, err)
	}
	return res, nil
}
