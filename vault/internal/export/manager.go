// Package export writes processed documents out as JSON, Excel workbooks,
// or single-document files.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/docuvault/vault/internal/store"
)

// ErrNoDocuments means the export matched nothing.
var ErrNoDocuments = fmt.Errorf("no completed documents to export")

// Options selects what goes into a bulk export.
type Options struct {
	DocumentIDs []int64
	IncludeOCR  bool
	Pretty      bool
}

// Manager runs exports against the store, writing files under dir.
type Manager struct {
	store  *store.Store
	dir    string
	logger *slog.Logger
	// now is swappable in tests for stable filenames.
	now func() time.Time
}

// NewManager builds an export manager writing into dir.
func NewManager(st *store.Store, dir string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, dir: dir, logger: logger, now: time.Now}
}

// completedDocuments fetches the documents an export covers: completed ones,
// optionally restricted to explicit IDs. Archived documents are included —
// an export is a backup, not a view.
func (m *Manager) completedDocuments(ctx context.Context, ids []int64) ([]*store.Document, error) {
	return m.store.ListDocuments(ctx, store.Filter{
		IDs:             ids,
		Status:          store.StatusCompleted,
		IncludeArchived: true,
	})
}

func (m *Manager) timestamp() string {
	return m.now().Format("20060102_150405")
}

// docRecord is one document as it appears in a JSON export.
type docRecord struct {
	ID            int64           `json:"id"`
	Filename      string          `json:"filename"`
	FileType      string          `json:"file_type"`
	DocumentType  string          `json:"document_type"`
	UploadedAt    string          `json:"uploaded_at"`
	ProcessedAt   string          `json:"processed_at,omitempty"`
	ExtractedData json.RawMessage `json:"extracted_data,omitempty"`
	OCRConfidence float64         `json:"ocr_confidence"`
	Tags          json.RawMessage `json:"tags"`
	OCRText       string          `json:"ocr_text,omitempty"`
}

func toRecord(d *store.Document, includeOCR bool) docRecord {
	rec := docRecord{
		ID:            d.ID,
		Filename:      d.OriginalFilename,
		FileType:      d.FileType,
		DocumentType:  d.DocumentType,
		UploadedAt:    formatMilli(d.UploadedAt),
		ProcessedAt:   formatMilli(d.ProcessedAt),
		OCRConfidence: d.OCRConfidence,
	}
	if d.ExtractedJSON != "" {
		rec.ExtractedData = json.RawMessage(d.ExtractedJSON)
	}
	if d.TagsJSON != "" {
		rec.Tags = json.RawMessage(d.TagsJSON)
	} else {
		rec.Tags = json.RawMessage("[]")
	}
	if includeOCR && d.OCRText != "" {
		rec.OCRText = d.OCRText
	}
	return rec
}

func formatMilli(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}
