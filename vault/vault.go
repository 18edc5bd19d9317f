package vault

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/hazyhaar/docuvault/dbopen"
	"github.com/hazyhaar/docuvault/llm"
	"github.com/hazyhaar/docuvault/vault/internal/export"
	"github.com/hazyhaar/docuvault/vault/internal/extract"
	"github.com/hazyhaar/docuvault/vault/internal/ocr"
	"github.com/hazyhaar/docuvault/vault/internal/pipeline"
	"github.com/hazyhaar/docuvault/vault/internal/query"
	"github.com/hazyhaar/docuvault/vault/internal/store"
)

// Service is the main DocuVault orchestrator.
type Service struct {
	db        *sql.DB
	store     *store.Store
	processor *pipeline.Processor
	queries   *query.Engine
	exports   *export.Manager
	logger    *slog.Logger
	config    *Config

	// injected stages, settable through options for tests
	ocrStage pipeline.TextExtractor
	llm      llm.Client
}

// Option customises Service construction.
type Option func(*Service)

// WithLLMClient replaces the default HTTP client, e.g. with a fake in tests.
func WithLLMClient(c llm.Client) Option { return func(s *Service) { s.llm = c } }

// TextExtractor is the OCR seam, expressed in public types so callers
// outside this package can implement it.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (OCRResult, error)
}

// WithOCR replaces the default Tesseract adapter.
func WithOCR(t TextExtractor) Option { return func(s *Service) { s.ocrStage = t } }

// New creates a DocuVault Service: opens the database, applies the schema,
// creates the storage directories, and wires the pipeline, query engine, and
// export manager.
func New(cfg *Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("vault: config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	svc := &Service{logger: logger, config: cfg}
	for _, opt := range opts {
		opt(svc)
	}

	if svc.llm == nil {
		if cfg.LLM.APIKey == "" {
			return nil, fmt.Errorf("vault: llm api key is required (set OPENAI_API_KEY)")
		}
		svc.llm = llm.NewHTTPClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
	}
	if svc.ocrStage == nil {
		engine := ocr.NewTesseract(cfg.OCR.Languages...)
		svc.ocrStage = ocr.NewAdapter(engine, cfg.OCR.ConfidenceFloor, logger)
	}

	for _, dir := range []string{cfg.UploadsDir, cfg.ExportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("vault: create %s: %w", dir, err)
		}
	}

	db, err := dbopen.Open(cfg.DBPath,
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(store.Schema),
	)
	if err != nil {
		return nil, fmt.Errorf("vault: open database: %w", err)
	}
	svc.db = db
	svc.store = store.NewStore(db)

	extractor := extract.New(svc.llm, extract.Config{
		MaxRetries:  cfg.LLM.MaxRetries,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})
	svc.processor = pipeline.NewProcessor(svc.store, svc.ocrStage, extractor, pipeline.Config{
		UploadsDir:  cfg.UploadsDir,
		MaxFileSize: cfg.MaxFileBytes(),
		Formats:     cfg.Formats,
		Logger:      logger,
	})
	svc.queries = query.NewEngine(svc.store, svc.llm, query.Config{
		ContextBudget: cfg.Query.ContextBudget,
		DefaultLimit:  cfg.Query.DefaultLimit,
		Logger:        logger,
	})
	svc.exports = export.NewManager(svc.store, cfg.ExportsDir, logger)

	return svc, nil
}

// Close releases the database.
func (s *Service) Close() error { return s.db.Close() }

// ProcessDocument ingests one file through the full pipeline.
func (s *Service) ProcessDocument(ctx context.Context, in Input) (*Document, error) {
	return s.processor.Process(ctx, in)
}

// ProcessBatch ingests files sequentially with per-item isolation.
func (s *Service) ProcessBatch(ctx context.Context, inputs []Input) []BatchResult {
	return s.processor.ProcessBatch(ctx, inputs)
}

// Reprocess reruns OCR and extraction on a stored document.
func (s *Service) Reprocess(ctx context.Context, id int64) (*Document, error) {
	return s.processor.Reprocess(ctx, id)
}

// Query answers a natural-language question over the processed documents.
func (s *Service) Query(ctx context.Context, question string, f QueryFilters) (*QueryResult, error) {
	return s.queries.Query(ctx, question, f)
}

// ExportJSON exports completed documents to a JSON file.
func (s *Service) ExportJSON(ctx context.Context, opts ExportOptions) (string, error) {
	return s.exports.ToJSON(ctx, opts)
}

// ExportExcel exports completed documents to an Excel workbook.
func (s *Service) ExportExcel(ctx context.Context, opts ExportOptions) (string, error) {
	return s.exports.ToExcel(ctx, opts)
}

// ExportDocument exports a single document as json or txt.
func (s *Service) ExportDocument(ctx context.Context, id int64, format string, includeOCR bool) (string, error) {
	path, err := s.exports.SingleDocument(ctx, id, format, includeOCR)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return path, err
}

// GetDocument fetches one document.
func (s *Service) GetDocument(ctx context.Context, id int64) (*Document, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}

// ListDocuments returns documents matching the filter, newest first.
func (s *Service) ListDocuments(ctx context.Context, f Filter) ([]*Document, error) {
	return s.store.ListDocuments(ctx, f)
}

// UpdateMetadata sets the user-editable fields of a document.
func (s *Service) UpdateMetadata(ctx context.Context, id int64, tags []string, notes string, archived bool) (*Document, error) {
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("vault: marshal tags: %w", err)
	}
	if err := s.store.UpdateMetadata(ctx, id, string(tagsJSON), notes, archived); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.GetDocument(ctx, id)
}

// DeleteDocument removes a document row and its stored file.
func (s *Service) DeleteDocument(ctx context.Context, id int64) error {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrNotFound
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("delete stored file", "doc_id", id, "error", err)
		}
	}
	return nil
}

// SearchHistory returns recent queries, newest first.
func (s *Service) SearchHistory(ctx context.Context, limit int) ([]*Search, error) {
	return s.store.ListSearchHistory(ctx, limit)
}

// Stats summarises the vault contents.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.store.GetStats(ctx)
}
