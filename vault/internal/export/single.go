package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SingleDocument exports one document as "json" or "txt" and returns the
// file path. Unlike bulk exports it works on any status, so partial results
// of a failed document can be inspected.
func (m *Manager) SingleDocument(ctx context.Context, id int64, format string, includeOCR bool) (string, error) {
	doc, err := m.store.GetDocument(ctx, id)
	if err != nil {
		return "", fmt.Errorf("export: get document: %w", err)
	}
	if doc == nil {
		return "", sql.ErrNoRows
	}

	base := strings.TrimSuffix(doc.OriginalFilename, filepath.Ext(doc.OriginalFilename))
	if base == "" {
		base = fmt.Sprintf("document_%d", id)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("export: mkdir: %w", err)
	}

	switch format {
	case "json", "":
		rec := toRecord(doc, includeOCR)
		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return "", fmt.Errorf("export: marshal: %w", err)
		}
		path := filepath.Join(m.dir, fmt.Sprintf("%s_%s.json", base, m.timestamp()))
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return "", fmt.Errorf("export: write: %w", err)
		}
		return path, nil

	case "txt":
		var sb strings.Builder
		fmt.Fprintf(&sb, "Document: %s\n", doc.OriginalFilename)
		fmt.Fprintf(&sb, "Type: %s\n", orDefault(doc.DocumentType, "unknown"))
		if doc.ProcessedAt > 0 {
			fmt.Fprintf(&sb, "Processed: %s\n", time.UnixMilli(doc.ProcessedAt).UTC().Format(time.RFC3339))
		} else {
			sb.WriteString("Processed: N/A\n")
		}
		divider := strings.Repeat("=", 50)
		sb.WriteString("\n" + divider + "\nEXTRACTED DATA:\n" + divider + "\n\n")
		if doc.ExtractedJSON != "" {
			sb.WriteString(doc.ExtractedJSON)
		}
		if includeOCR && doc.OCRText != "" {
			sb.WriteString("\n\n" + divider + "\nOCR TEXT:\n" + divider + "\n\n")
			sb.WriteString(doc.OCRText)
		}
		path := filepath.Join(m.dir, fmt.Sprintf("%s_%s.txt", base, m.timestamp()))
		if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
			return "", fmt.Errorf("export: write: %w", err)
		}
		return path, nil

	default:
		return "", fmt.Errorf("export: unsupported format %q", format)
	}
}
