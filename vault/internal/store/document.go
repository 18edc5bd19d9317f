package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/docuvault/dbopen"
)

const documentCols = `id, filename, original_filename, file_path, file_size, file_type,
	status, uploaded_at, processed_at, ocr_text, ocr_confidence, ocr_duration_ms,
	document_type, extracted_json, llm_model, llm_duration_ms, tags_json, notes,
	archived, error`

// CreateDocument inserts a new document row in processing status and fills
// in the generated ID.
func (s *Store) CreateDocument(ctx context.Context, d *Document) error {
	if d.UploadedAt == 0 {
		d.UploadedAt = time.Now().UnixMilli()
	}
	if d.Status == "" {
		d.Status = StatusProcessing
	}
	if d.TagsJSON == "" {
		d.TagsJSON = "[]"
	}

	res, err := dbopen.Exec(ctx, s.DB,
		`INSERT INTO documents (filename, original_filename, file_path, file_size,
		file_type, status, uploaded_at, tags_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Filename, d.OriginalFilename, d.FilePath, d.FileSize,
		d.FileType, d.Status, d.UploadedAt, d.TagsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	d.ID, err = res.LastInsertId()
	return err
}

// GetDocument retrieves a document by ID. Returns (nil, nil) when not found.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+documentCols+` FROM documents WHERE id = ?`, id)
	return scanDocument(row)
}

// ListDocuments returns documents matching the filter, newest first.
func (s *Store) ListDocuments(ctx context.Context, f Filter) ([]*Document, error) {
	var conds []string
	var args []any

	if len(f.IDs) > 0 {
		ph := make([]string, len(f.IDs))
		for i, id := range f.IDs {
			ph[i] = "?"
			args = append(args, id)
		}
		conds = append(conds, "id IN ("+strings.Join(ph, ",")+")")
	}
	if f.Type != "" {
		conds = append(conds, "document_type = ?")
		args = append(args, f.Type)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if !f.IncludeArchived {
		conds = append(conds, "archived = 0")
	}

	q := `SELECT ` + documentCols + ` FROM documents`
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY uploaded_at DESC, id DESC"
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocumentRows(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// SetOCRResult records the OCR stage output on a document.
func (s *Store) SetOCRResult(ctx context.Context, id int64, text string, confidence float64, durationMs int64) error {
	_, err := dbopen.Exec(ctx, s.DB,
		`UPDATE documents SET ocr_text=?, ocr_confidence=?, ocr_duration_ms=?
		WHERE id=?`, text, confidence, durationMs, id)
	return err
}

// SetExtractionResult records the LLM stage output and marks the document
// completed. The status guard keeps a terminal failed row from flipping.
func (s *Store) SetExtractionResult(ctx context.Context, id int64, docType, extractedJSON, model string, durationMs int64) error {
	now := time.Now().UnixMilli()
	res, err := dbopen.Exec(ctx, s.DB,
		`UPDATE documents SET document_type=?, extracted_json=?, llm_model=?,
		llm_duration_ms=?, status=?, processed_at=?, error=''
		WHERE id=? AND status=?`,
		docType, extractedJSON, model, durationMs, StatusCompleted, now,
		id, StatusProcessing)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %d not in processing status", id)
	}
	return nil
}

// MarkFailed moves a processing document into the terminal failed status,
// retaining whatever partial results are already on the row.
func (s *Store) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	now := time.Now().UnixMilli()
	_, err := dbopen.Exec(ctx, s.DB,
		`UPDATE documents SET status=?, processed_at=?, error=?
		WHERE id=? AND status=?`,
		StatusFailed, now, errMsg, id, StatusProcessing)
	return err
}

// Reset puts a document back into processing status and clears stage
// outputs. Used only by reprocessing.
func (s *Store) Reset(ctx context.Context, id int64) error {
	res, err := dbopen.Exec(ctx, s.DB,
		`UPDATE documents SET status=?, processed_at=0, ocr_text='',
		ocr_confidence=0, ocr_duration_ms=0, document_type='', extracted_json='',
		llm_model='', llm_duration_ms=0, error=''
		WHERE id=?`, StatusProcessing, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateMetadata sets user-editable fields on a document.
func (s *Store) UpdateMetadata(ctx context.Context, id int64, tagsJSON, notes string, archived bool) error {
	arch := 0
	if archived {
		arch = 1
	}
	res, err := dbopen.Exec(ctx, s.DB,
		`UPDATE documents SET tags_json=?, notes=?, archived=? WHERE id=?`,
		tagsJSON, notes, arch, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteDocument removes a document row.
func (s *Store) DeleteDocument(ctx context.Context, id int64) error {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanDocument(row *sql.Row) (*Document, error) {
	var d Document
	var archived int
	err := row.Scan(
		&d.ID, &d.Filename, &d.OriginalFilename, &d.FilePath, &d.FileSize, &d.FileType,
		&d.Status, &d.UploadedAt, &d.ProcessedAt, &d.OCRText, &d.OCRConfidence,
		&d.OCRDurationMs, &d.DocumentType, &d.ExtractedJSON, &d.LLMModel,
		&d.LLMDurationMs, &d.TagsJSON, &d.Notes, &archived, &d.Error,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.Archived = archived != 0
	return &d, nil
}

func scanDocumentRows(rows *sql.Rows) (*Document, error) {
	var d Document
	var archived int
	err := rows.Scan(
		&d.ID, &d.Filename, &d.OriginalFilename, &d.FilePath, &d.FileSize, &d.FileType,
		&d.Status, &d.UploadedAt, &d.ProcessedAt, &d.OCRText, &d.OCRConfidence,
		&d.OCRDurationMs, &d.DocumentType, &d.ExtractedJSON, &d.LLMModel,
		&d.LLMDurationMs, &d.TagsJSON, &d.Notes, &archived, &d.Error,
	)
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}
	d.Archived = archived != 0
	return &d, nil
}
