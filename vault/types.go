// Package vault is the document-intelligence service: uploads go through
// OCR and LLM extraction into SQLite, and come back out through
// natural-language queries and JSON/Excel exports.
package vault

import (
	"github.com/hazyhaar/docuvault/vault/internal/export"
	"github.com/hazyhaar/docuvault/vault/internal/ocr"
	"github.com/hazyhaar/docuvault/vault/internal/pipeline"
	"github.com/hazyhaar/docuvault/vault/internal/query"
	"github.com/hazyhaar/docuvault/vault/internal/store"
)

// Re-export internal types for the public API.
type (
	Document      = store.Document
	Search        = store.Search
	Filter        = store.Filter
	Stats         = store.Stats
	Input         = pipeline.Input
	BatchResult   = pipeline.BatchResult
	QueryFilters  = query.Filters
	QueryResult   = query.Result
	Persona       = query.Persona
	ExportOptions = export.Options
	OCRResult     = ocr.Result
)

// Document statuses.
const (
	StatusProcessing = store.StatusProcessing
	StatusCompleted  = store.StatusCompleted
	StatusFailed     = store.StatusFailed
)
