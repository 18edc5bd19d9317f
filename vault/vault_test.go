package vault_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/docuvault/llm"
	"github.com/hazyhaar/docuvault/vault"
)

type fakeOCR struct{ text string }

func (f *fakeOCR) Extract(ctx context.Context, path string) (vault.OCRResult, error) {
	return vault.OCRResult{Text: f.text, Confidence: 0.9, Words: 3}, nil
}

type fakeLLM struct{ text string }

func (f *fakeLLM) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	return llm.Response{Text: f.text, Model: "fake"}, nil
}

func testConfig(t *testing.T) *vault.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := vault.DefaultConfig()
	cfg.DBPath = filepath.Join(dir, "test.db")
	cfg.UploadsDir = filepath.Join(dir, "uploads")
	cfg.ExportsDir = filepath.Join(dir, "exports")
	return cfg
}

func newTestService(t *testing.T) *vault.Service {
	t.Helper()
	svc, err := vault.New(testConfig(t), nil,
		vault.WithOCR(&fakeOCR{text: "INVOICE INV-9 TOTAL 42.00"}),
		vault.WithLLMClient(&fakeLLM{text: `{"document_type":"invoice","document_number":"INV-9","amounts":{"total":"42.00"}}`}),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func upload(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEndToEnd(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.ProcessDocument(ctx, vault.Input{
		Path:         upload(t, "invoice.png"),
		OriginalName: "invoice.png",
	})
	if err != nil {
		t.Fatal(err)
	}
	if doc.Status != vault.StatusCompleted {
		t.Fatalf("status = %q", doc.Status)
	}
	if doc.DocumentType != "invoice" {
		t.Fatalf("document_type = %q", doc.DocumentType)
	}

	// Query over it.
	res, err := svc.Query(ctx, "what is the total?", vault.QueryFilters{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Persona != "calculator" || res.NumDocuments != 1 {
		t.Fatalf("query result = %+v", res)
	}

	// Export it.
	path, err := svc.ExportJSON(ctx, vault.ExportOptions{Pretty: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}

	// History and stats reflect the activity.
	hist, err := svc.SearchHistory(ctx, 10)
	if err != nil || len(hist) != 1 {
		t.Fatalf("history = %v, %v", hist, err)
	}
	st, err := svc.Stats(ctx)
	if err != nil || st.Total != 1 || st.Searches != 1 {
		t.Fatalf("stats = %+v, %v", st, err)
	}
}

func TestMetadataLifecycle(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.ProcessDocument(ctx, vault.Input{
		Path:         upload(t, "a.png"),
		OriginalName: "a.png",
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.UpdateMetadata(ctx, doc.ID, []string{"travel"}, "taxi", false)
	if err != nil {
		t.Fatal(err)
	}
	if updated.TagsJSON != `["travel"]` || updated.Notes != "taxi" {
		t.Fatalf("updated = %+v", updated)
	}

	if _, err := svc.UpdateMetadata(ctx, 999, nil, "", false); !errors.Is(err, vault.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesStoredFile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	doc, err := svc.ProcessDocument(ctx, vault.Input{
		Path:         upload(t, "a.png"),
		OriginalName: "a.png",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(doc.FilePath); !os.IsNotExist(err) {
		t.Error("stored file not removed")
	}
	if _, err := svc.GetDocument(ctx, doc.ID); !errors.Is(err, vault.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNewRequiresAPIKeyWithoutInjectedClient(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKey = ""
	if _, err := vault.New(cfg, nil, vault.WithOCR(&fakeOCR{})); err == nil {
		t.Fatal("expected error without api key or injected client")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := vault.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	bad := vault.DefaultConfig()
	bad.OCR.ConfidenceFloor = 1.5
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for floor > 1")
	}

	bad = vault.DefaultConfig()
	bad.LLM.Model = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
listen: ":9999"
db_path: ` + filepath.Join(dir, "v.db") + `
max_file_mb: 10
ocr:
  confidence_floor: 0.6
llm:
  model: test-model
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("OPENAI_API_KEY", "env-key")
	cfg, err := vault.LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Listen != ":9999" || cfg.MaxFileMB != 10 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.OCR.ConfidenceFloor != 0.6 {
		t.Errorf("floor = %v", cfg.OCR.ConfidenceFloor)
	}
	// File defaults merge: exports_dir untouched.
	if cfg.ExportsDir != "data/exports" {
		t.Errorf("exports_dir = %q", cfg.ExportsDir)
	}
	// Env override wins.
	if cfg.LLM.APIKey != "env-key" {
		t.Errorf("api_key = %q", cfg.LLM.APIKey)
	}
}
