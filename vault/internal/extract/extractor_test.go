package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/docuvault/llm"
)

// fakeLLM returns queued responses in order.
type fakeLLM struct {
	responses []string
	err       error
	prompts   []string
}

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return llm.Response{}, f.err
	}
	i := len(f.prompts) - 1
	if i >= len(f.responses) {
		i = len(f.responses) - 1
	}
	return llm.Response{Text: f.responses[i], Model: "fake-model"}, nil
}

const validJSON = `{
	"document_type": "invoice",
	"document_number": "INV-42",
	"items": [{"description": "Widgets", "quantity": 3, "amount": "30.00"}],
	"amounts": {"total": "30.00"}
}`

func TestExtractFirstAttemptSucceeds(t *testing.T) {
	f := &fakeLLM{responses: []string{validJSON}}
	e := New(f, Config{})

	doc, meta, err := e.ExtractWithRetry(context.Background(), "INVOICE INV-42 ...", "")
	if err != nil {
		t.Fatalf("ExtractWithRetry: %v", err)
	}
	if doc.DocumentType != "invoice" || doc.DocumentNumber != "INV-42" {
		t.Fatalf("doc = %+v", doc)
	}
	if meta.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", meta.Attempts)
	}
	if meta.Model != "fake-model" {
		t.Errorf("model = %q", meta.Model)
	}
}

func TestExtractParsesFencedJSON(t *testing.T) {
	f := &fakeLLM{responses: []string{"Here you go:\n```json\n" + validJSON + "\n```\nDone."}}
	e := New(f, Config{})

	doc, _, err := e.ExtractWithRetry(context.Background(), "text", "")
	if err != nil {
		t.Fatal(err)
	}
	if doc.DocumentNumber != "INV-42" {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestExtractRetriesWithCorrectivePrompt(t *testing.T) {
	f := &fakeLLM{responses: []string{
		`{"document_type": "invoice", "items": [{"description": ""}]}`,
		validJSON,
	}}
	e := New(f, Config{})

	doc, meta, err := e.ExtractWithRetry(context.Background(), "text", "")
	if err != nil {
		t.Fatal(err)
	}
	if meta.Attempts != 2 {
		t.Fatalf("attempts = %d, want 2", meta.Attempts)
	}
	if doc.DocumentType != "invoice" {
		t.Fatalf("doc = %+v", doc)
	}
	// Second prompt must carry the validation failure.
	if !strings.Contains(f.prompts[1], "PREVIOUS RESPONSE WAS INVALID") {
		t.Error("corrective prompt missing invalid-response marker")
	}
	if !strings.Contains(f.prompts[1], "description") {
		t.Error("corrective prompt missing the validation error")
	}
}

func TestExtractExhaustionReturnsSchemaError(t *testing.T) {
	f := &fakeLLM{responses: []string{"I cannot parse this document, sorry."}}
	e := New(f, Config{MaxRetries: 2})

	_, meta, err := e.ExtractWithRetry(context.Background(), "text", "")
	if err == nil {
		t.Fatal("expected error")
	}
	var se *SchemaError
	if !errors.As(err, &se) {
		t.Fatalf("err = %T, want *SchemaError", err)
	}
	if se.Attempts != 3 {
		t.Errorf("attempts = %d, want 3", se.Attempts)
	}
	if !strings.Contains(se.LastResponse, "cannot parse") {
		t.Errorf("LastResponse = %q, raw response not retained", se.LastResponse)
	}
	if meta.Attempts != 3 {
		t.Errorf("meta attempts = %d", meta.Attempts)
	}
}

func TestExtractTransportErrorNotRetried(t *testing.T) {
	f := &fakeLLM{err: errors.New("connection refused")}
	e := New(f, Config{})

	_, _, err := e.ExtractWithRetry(context.Background(), "text", "")
	if err == nil {
		t.Fatal("expected error")
	}
	var se *SchemaError
	if errors.As(err, &se) {
		t.Fatal("transport error wrongly wrapped as SchemaError")
	}
	if len(f.prompts) != 1 {
		t.Fatalf("calls = %d, transport errors must not retry", len(f.prompts))
	}
}

func TestExtractTypeHintInPrompt(t *testing.T) {
	f := &fakeLLM{responses: []string{validJSON}}
	e := New(f, Config{})

	if _, _, err := e.ExtractWithRetry(context.Background(), "text", "receipt"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(f.prompts[0], "Document type hint: receipt") {
		t.Error("type hint missing from prompt")
	}
}

func TestNormalizeUnknownType(t *testing.T) {
	d := &ExtractedDocument{DocumentType: "Shopping List"}
	d.Normalize()
	if d.DocumentType != "unknown" {
		t.Fatalf("document_type = %q, want unknown", d.DocumentType)
	}
	if d.Amounts.Currency != "USD" {
		t.Fatalf("currency = %q, want USD default", d.Amounts.Currency)
	}
	if d.Items == nil {
		t.Fatal("items not defaulted")
	}
}

func TestNormalizeLowercasesType(t *testing.T) {
	d := &ExtractedDocument{DocumentType: " Invoice "}
	d.Normalize()
	if d.DocumentType != "invoice" {
		t.Fatalf("document_type = %q", d.DocumentType)
	}
}

func TestValidateConfidenceBounds(t *testing.T) {
	bad := 1.5
	d := &ExtractedDocument{DocumentType: "invoice", ConfidenceScore: &bad}
	if err := d.Validate(); err == nil {
		t.Fatal("expected error for confidence outside [0,1]")
	}

	ok := 0.9
	d.ConfidenceScore = &ok
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
}
