// Package pipeline orchestrates document ingestion: validation, storage,
// OCR, and structured extraction, with each stage's outcome recorded on the
// document row.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hazyhaar/docuvault/vault/internal/extract"
	"github.com/hazyhaar/docuvault/vault/internal/ocr"
	"github.com/hazyhaar/docuvault/vault/internal/store"
)

// Validation failures. These abort before any row is created and map to
// client errors at the HTTP layer.
var (
	ErrInvalidFile       = errors.New("file does not exist or is not readable")
	ErrFileTooLarge      = errors.New("file exceeds the maximum allowed size")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNotFound          = errors.New("document not found")
)

// TextExtractor is the OCR stage (see ocr.Adapter).
type TextExtractor interface {
	Extract(ctx context.Context, path string) (ocr.Result, error)
}

// DataExtractor is the structured-extraction stage (see extract.Extractor).
type DataExtractor interface {
	ExtractWithRetry(ctx context.Context, ocrText, typeHint string) (*extract.ExtractedDocument, extract.Meta, error)
}

// Input is one file to process.
type Input struct {
	Path         string
	OriginalName string
	TypeHint     string
}

// Config tunes a Processor.
type Config struct {
	UploadsDir string
	// MaxFileSize in bytes. Default 50 MB.
	MaxFileSize int64
	// Formats is the allowed extension whitelist, lowercase without dots.
	Formats []string
	Logger  *slog.Logger
}

var defaultFormats = []string{"png", "jpg", "jpeg", "pdf", "tiff"}

// Processor runs documents through the full pipeline.
type Processor struct {
	store     *store.Store
	ocr       TextExtractor
	extractor DataExtractor
	cfg       Config
	formats   map[string]bool
	logger    *slog.Logger
}

// NewProcessor wires the pipeline stages together.
func NewProcessor(st *store.Store, textEx TextExtractor, dataEx DataExtractor, cfg Config) *Processor {
	if cfg.MaxFileSize == 0 {
		cfg.MaxFileSize = 50 << 20
	}
	if len(cfg.Formats) == 0 {
		cfg.Formats = defaultFormats
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	formats := make(map[string]bool, len(cfg.Formats))
	for _, f := range cfg.Formats {
		formats[strings.ToLower(f)] = true
	}
	return &Processor{
		store:     st,
		ocr:       textEx,
		extractor: dataEx,
		cfg:       cfg,
		formats:   formats,
		logger:    cfg.Logger,
	}
}

// Process runs one document through validation, storage, OCR, and
// extraction. Validation and storage failures return an error and leave no
// row behind. Stage failures after the row exists mark it failed and return
// the row with a nil error; the row carries the failure detail.
func (p *Processor) Process(ctx context.Context, in Input) (*store.Document, error) {
	ext, size, err := p.validate(in)
	if err != nil {
		return nil, err
	}

	storedPath, storedName, err := p.saveUpload(in.Path, ext)
	if err != nil {
		return nil, fmt.Errorf("pipeline: save upload: %w", err)
	}

	doc := &store.Document{
		Filename:         storedName,
		OriginalFilename: in.OriginalName,
		FilePath:         storedPath,
		FileSize:         size,
		FileType:         ext,
	}
	if err := p.store.CreateDocument(ctx, doc); err != nil {
		os.Remove(storedPath)
		return nil, fmt.Errorf("pipeline: create document: %w", err)
	}

	return p.runStages(ctx, doc, in.TypeHint)
}

// runStages executes OCR and extraction on an existing row.
func (p *Processor) runStages(ctx context.Context, doc *store.Document, typeHint string) (*store.Document, error) {
	log := p.logger.With("doc_id", doc.ID, "filename", doc.OriginalFilename)

	log.Info("ocr stage started")
	ocrStart := time.Now()
	res, err := p.ocr.Extract(ctx, doc.FilePath)
	ocrMs := time.Since(ocrStart).Milliseconds()
	if err != nil {
		log.Error("ocr stage failed", "error", err)
		return p.fail(ctx, doc, "ocr: "+err.Error())
	}
	if res.Text == "" {
		log.Warn("ocr stage found no text")
		return p.fail(ctx, doc, "ocr: no readable text")
	}
	if err := p.store.SetOCRResult(ctx, doc.ID, res.Text, res.Confidence, ocrMs); err != nil {
		return nil, fmt.Errorf("pipeline: record ocr result: %w", err)
	}
	doc.OCRText = res.Text
	doc.OCRConfidence = res.Confidence
	doc.OCRDurationMs = ocrMs

	log.Info("extraction stage started", "ocr_confidence", res.Confidence)
	extracted, meta, err := p.extractor.ExtractWithRetry(ctx, res.Text, typeHint)
	if err != nil {
		log.Error("extraction stage failed", "attempts", meta.Attempts, "error", err)
		return p.fail(ctx, doc, "extract: "+err.Error())
	}

	extractedJSON, err := marshalExtracted(extracted)
	if err != nil {
		return p.fail(ctx, doc, "extract: "+err.Error())
	}
	if err := p.store.SetExtractionResult(ctx, doc.ID, extracted.DocumentType,
		extractedJSON, meta.Model, meta.DurationMs); err != nil {
		return nil, fmt.Errorf("pipeline: record extraction result: %w", err)
	}

	log.Info("document completed", "document_type", extracted.DocumentType,
		"attempts", meta.Attempts)
	return p.reload(ctx, doc.ID)
}

// ProcessBatch runs inputs sequentially with per-item isolation: one bad
// file never aborts the rest, and the result slice always has one entry per
// input.
func (p *Processor) ProcessBatch(ctx context.Context, inputs []Input) []BatchResult {
	results := make([]BatchResult, len(inputs))
	for i, in := range inputs {
		doc, err := p.Process(ctx, in)
		results[i] = BatchResult{Input: in, Document: doc, Err: err}
	}
	return results
}

// BatchResult is the per-item outcome of ProcessBatch.
type BatchResult struct {
	Input    Input
	Document *store.Document
	Err      error
}

// Reprocess resets an existing document and reruns OCR and extraction on
// its stored file.
func (p *Processor) Reprocess(ctx context.Context, id int64) (*store.Document, error) {
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("pipeline: get document: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	if _, err := os.Stat(doc.FilePath); err != nil {
		return nil, fmt.Errorf("pipeline: stored file missing: %w", err)
	}
	if err := p.store.Reset(ctx, id); err != nil {
		return nil, fmt.Errorf("pipeline: reset document: %w", err)
	}
	doc.Status = store.StatusProcessing
	return p.runStages(ctx, doc, "")
}

func (p *Processor) validate(in Input) (ext string, size int64, err error) {
	fi, err := os.Stat(in.Path)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidFile, in.Path)
	}
	if fi.Size() > p.cfg.MaxFileSize {
		return "", 0, fmt.Errorf("%w: %d bytes (max %d)", ErrFileTooLarge, fi.Size(), p.cfg.MaxFileSize)
	}

	name := in.OriginalName
	if name == "" {
		name = in.Path
	}
	ext = strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if !p.formats[ext] {
		return "", 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return ext, fi.Size(), nil
}

// saveUpload copies the incoming file into the uploads directory under a
// collision-resistant name.
func (p *Processor) saveUpload(srcPath, ext string) (string, string, error) {
	if err := os.MkdirAll(p.cfg.UploadsDir, 0o755); err != nil {
		return "", "", err
	}

	name := fmt.Sprintf("%d_%s.%s", time.Now().UnixMilli(), uuid.NewString(), ext)
	dst := filepath.Join(p.cfg.UploadsDir, name)

	src, err := os.Open(srcPath)
	if err != nil {
		return "", "", err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return "", "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dst)
		return "", "", err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return "", "", err
	}
	return dst, name, nil
}

// fail marks the row failed and returns it. Partial stage results stay on
// the row.
func (p *Processor) fail(ctx context.Context, doc *store.Document, msg string) (*store.Document, error) {
	if err := p.store.MarkFailed(ctx, doc.ID, msg); err != nil {
		return nil, fmt.Errorf("pipeline: mark failed: %w", err)
	}
	return p.reload(ctx, doc.ID)
}

func marshalExtracted(doc *extract.ExtractedDocument) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshal extracted document: %w", err)
	}
	return string(data), nil
}

func (p *Processor) reload(ctx context.Context, id int64) (*store.Document, error) {
	doc, err := p.store.GetDocument(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("pipeline: reload document: %w", err)
	}
	if doc == nil {
		return nil, ErrNotFound
	}
	return doc, nil
}
