package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// jsonExport is the top-level shape of a bulk JSON export.
type jsonExport struct {
	ExportInfo exportInfo  `json:"export_info"`
	Documents  []docRecord `json:"documents"`
}

type exportInfo struct {
	Timestamp      string `json:"timestamp"`
	TotalDocuments int    `json:"total_documents"`
	IncludeOCR     bool   `json:"include_ocr"`
}

// ToJSON exports completed documents to a JSON file and returns its path.
func (m *Manager) ToJSON(ctx context.Context, opts Options) (string, error) {
	docs, err := m.completedDocuments(ctx, opts.DocumentIDs)
	if err != nil {
		return "", fmt.Errorf("export: list documents: %w", err)
	}

	out := jsonExport{
		ExportInfo: exportInfo{
			Timestamp:      m.now().UTC().Format(time.RFC3339),
			TotalDocuments: len(docs),
			IncludeOCR:     opts.IncludeOCR,
		},
		Documents: make([]docRecord, 0, len(docs)),
	}
	for _, d := range docs {
		out.Documents = append(out.Documents, toRecord(d, opts.IncludeOCR))
	}

	var data []byte
	if opts.Pretty {
		data, err = json.MarshalIndent(out, "", "  ")
	} else {
		data, err = json.Marshal(out)
	}
	if err != nil {
		return "", fmt.Errorf("export: marshal: %w", err)
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return "", fmt.Errorf("export: mkdir: %w", err)
	}
	path := filepath.Join(m.dir, fmt.Sprintf("docuvault_export_%s.json", m.timestamp()))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("export: write: %w", err)
	}

	m.logger.Info("json export written", "path", path, "documents", len(docs))
	return path, nil
}
