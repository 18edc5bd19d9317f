package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/hazyhaar/docuvault/llm"
	"github.com/hazyhaar/docuvault/vault/internal/store"
)

const (
	defaultLimit         = 50
	defaultContextBudget = 48_000 // characters of document context sent to the LLM
	answerMaxTokens      = 2000
	answerTemperature    = 0.2
)

// Filters narrows which documents a question runs against.
type Filters struct {
	DocumentIDs  []int64
	DocumentType string
	Limit        int
}

// Result is the outcome of one question. Degraded results (no documents, or
// the LLM call failed) carry the explanation in Answer and set Degraded;
// they are not errors.
type Result struct {
	Answer       string  `json:"answer"`
	Persona      Persona `json:"persona"`
	DocumentIDs  []int64 `json:"document_ids"`
	NumDocuments int     `json:"num_documents"`
	DurationMs   int64   `json:"duration_ms"`
	Degraded     bool    `json:"degraded,omitempty"`
}

// Engine answers questions over completed documents.
type Engine struct {
	store         *store.Store
	client        llm.Client
	contextBudget int
	defaultLimit  int
	logger        *slog.Logger
}

// Config tunes an Engine. Zero values get defaults.
type Config struct {
	ContextBudget int
	// DefaultLimit caps document retrieval when the caller's filter has no
	// limit of its own.
	DefaultLimit int
	Logger       *slog.Logger
}

// NewEngine builds a query engine over the given store and LLM client.
func NewEngine(st *store.Store, client llm.Client, cfg Config) *Engine {
	if cfg.ContextBudget == 0 {
		cfg.ContextBudget = defaultContextBudget
	}
	if cfg.DefaultLimit == 0 {
		cfg.DefaultLimit = defaultLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{
		store:         st,
		client:        client,
		contextBudget: cfg.ContextBudget,
		defaultLimit:  cfg.DefaultLimit,
		logger:        cfg.Logger,
	}
}

// Query classifies the question, builds context from the matching completed
// documents, and asks the LLM. Every question is recorded in the search
// history, including degraded ones.
func (e *Engine) Query(ctx context.Context, question string, f Filters) (*Result, error) {
	start := time.Now()

	limit := f.Limit
	if limit <= 0 {
		limit = e.defaultLimit
	}
	docs, err := e.store.ListDocuments(ctx, store.Filter{
		IDs:    f.DocumentIDs,
		Type:   f.DocumentType,
		Status: store.StatusCompleted,
		Limit:  limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query: list documents: %w", err)
	}

	if len(docs) == 0 {
		res := &Result{
			Answer:     "No documents found. Upload and process documents first.",
			Persona:    PersonaAssistant,
			Degraded:   true,
			DurationMs: time.Since(start).Milliseconds(),
		}
		e.record(ctx, question, res)
		return res, nil
	}

	persona := Classify(question)
	docs = fitBudget(docs, e.contextBudget)
	contextText := buildContext(docs)

	ids := make([]int64, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}

	resp, err := e.client.Complete(ctx, llm.Request{
		System:      systemPrompt(persona),
		Prompt:      userPrompt(question, contextText),
		MaxTokens:   answerMaxTokens,
		Temperature: answerTemperature,
	})

	res := &Result{
		Persona:      persona,
		DocumentIDs:  ids,
		NumDocuments: len(docs),
	}
	if err != nil {
		e.logger.Warn("query llm call failed", "error", err)
		res.Answer = "Query failed: " + err.Error()
		res.Degraded = true
	} else {
		res.Answer = resp.Text
	}
	res.DurationMs = time.Since(start).Milliseconds()

	e.record(ctx, question, res)
	return res, nil
}

// record appends the question to the search history. History failures are
// logged, never surfaced: the user already has their answer.
func (e *Engine) record(ctx context.Context, question string, res *Result) {
	idsJSON, _ := json.Marshal(res.DocumentIDs)
	if res.DocumentIDs == nil {
		idsJSON = []byte("[]")
	}
	err := e.store.InsertSearch(ctx, &store.Search{
		Question:        question,
		Answer:          res.Answer,
		Persona:         string(res.Persona),
		DocumentIDsJSON: string(idsJSON),
		DurationMs:      res.DurationMs,
	})
	if err != nil {
		e.logger.Error("record search history", "error", err)
	}
}

// fitBudget drops documents until the rendered context fits the character
// budget. Lowest OCR confidence goes first, oldest breaks ties; at least one
// document always survives.
func fitBudget(docs []*store.Document, budget int) []*store.Document {
	kept := make([]*store.Document, len(docs))
	copy(kept, docs)

	for len(kept) > 1 && len(buildContext(kept)) > budget {
		drop := 0
		for i := 1; i < len(kept); i++ {
			if kept[i].OCRConfidence < kept[drop].OCRConfidence ||
				(kept[i].OCRConfidence == kept[drop].OCRConfidence &&
					kept[i].ProcessedAt < kept[drop].ProcessedAt) {
				drop = i
			}
		}
		kept = append(kept[:drop], kept[drop+1:]...)
	}
	return kept
}

// buildContext renders documents into the prompt context. Only structured
// extraction output goes in, never raw OCR text.
func buildContext(docs []*store.Document) string {
	if len(docs) == 0 {
		return "No documents available."
	}

	var sb strings.Builder
	sb.WriteString("=== SUMMARY ===\n")
	fmt.Fprintf(&sb, "Total documents: %d\n", len(docs))

	typeCounts := map[string]int{}
	for _, d := range docs {
		typ := d.DocumentType
		if typ == "" {
			typ = "unknown"
		}
		typeCounts[typ]++
	}
	types := make([]string, 0, len(typeCounts))
	for typ := range typeCounts {
		types = append(types, typ)
	}
	sort.Strings(types)
	parts := make([]string, len(types))
	for i, typ := range types {
		parts[i] = fmt.Sprintf("%s=%d", typ, typeCounts[typ])
	}
	sb.WriteString("Document types: " + strings.Join(parts, ", ") + "\n\n")

	sb.WriteString("=== DOCUMENTS ===\n")
	for i, d := range docs {
		fmt.Fprintf(&sb, "\n--- Document %d ---\n", i+1)
		fmt.Fprintf(&sb, "Filename: %s\n", d.OriginalFilename)
		typ := d.DocumentType
		if typ == "" {
			typ = "unknown"
		}
		fmt.Fprintf(&sb, "Type: %s\n", typ)
		if d.ProcessedAt > 0 {
			fmt.Fprintf(&sb, "Date: %s\n", time.UnixMilli(d.ProcessedAt).UTC().Format("2006-01-02"))
		} else {
			sb.WriteString("Date: N/A\n")
		}
		fmt.Fprintf(&sb, "OCR Confidence: %.0f%%\n", d.OCRConfidence*100)
		if d.ExtractedJSON != "" {
			sb.WriteString("\nExtracted Data:\n")
			sb.WriteString(d.ExtractedJSON)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
