package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/docuvault/vault"
)

// newRouter mounts the JSON API on a chi router.
func newRouter(svc *vault.Service, cfg *vault.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/documents", handleUpload(svc, cfg))
		r.Get("/documents", handleList(svc))
		r.Get("/documents/{id}", handleGet(svc))
		r.Patch("/documents/{id}", handleUpdate(svc))
		r.Delete("/documents/{id}", handleDelete(svc))
		r.Post("/documents/{id}/reprocess", handleReprocess(svc))
		r.Get("/documents/{id}/export", handleExportSingle(svc))

		r.Post("/query", handleQuery(svc))
		r.Get("/history", handleHistory(svc))
		r.Get("/stats", handleStats(svc))

		r.Post("/export/json", handleExport(svc, "json"))
		r.Post("/export/excel", handleExport(svc, "excel"))
	})

	return r
}

// uploadResult is the per-file outcome of a batch upload.
type uploadResult struct {
	Filename string          `json:"filename"`
	Document *vault.Document `json:"document,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func handleUpload(svc *vault.Service, cfg *vault.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Allow some multipart overhead beyond the per-file limit; the
		// pipeline enforces the exact per-file size.
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxFileBytes()*4+1<<20)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeError(w, 413, err)
				return
			}
			writeError(w, 400, fmt.Errorf("multipart form: %w", err))
			return
		}
		defer r.MultipartForm.RemoveAll()

		typeHint := r.FormValue("type_hint")
		var headers []*multipart.FileHeader
		for _, key := range []string{"files", "file"} {
			headers = append(headers, r.MultipartForm.File[key]...)
		}
		if len(headers) == 0 {
			writeError(w, 400, errors.New("no files in request"))
			return
		}

		staging, err := os.MkdirTemp("", "docuvault-upload-*")
		if err != nil {
			writeError(w, 500, err)
			return
		}
		defer os.RemoveAll(staging)

		var inputs []vault.Input
		for i, fh := range headers {
			path := filepath.Join(staging, fmt.Sprintf("%d_%s", i, filepath.Base(fh.Filename)))
			if err := savePart(fh, path); err != nil {
				writeError(w, 500, fmt.Errorf("save %s: %w", fh.Filename, err))
				return
			}
			inputs = append(inputs, vault.Input{
				Path:         path,
				OriginalName: fh.Filename,
				TypeHint:     typeHint,
			})
		}

		results := svc.ProcessBatch(r.Context(), inputs)
		out := make([]uploadResult, 0, len(results))
		for _, res := range results {
			ur := uploadResult{Filename: res.Input.OriginalName, Document: res.Document}
			if res.Err != nil {
				ur.Error = res.Err.Error()
			}
			out = append(out, ur)
		}
		writeJSON(w, 201, map[string]any{"results": out})
	}
}

func savePart(fh *multipart.FileHeader, path string) error {
	src, err := fh.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := os.Create(path)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

func handleList(svc *vault.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := vault.Filter{
			Type:            r.URL.Query().Get("type"),
			Status:          r.URL.Query().Get("status"),
			IncludeArchived: r.URL.Query().Get("include_archived") == "true",
			Limit:           queryInt(r, "limit", 0),
		}
		docs, err := svc.ListDocuments(r.Context(), f)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]any{"documents": docs, "count": len(docs)})
	}
}

func handleGet(svc *vault.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		doc, err := svc.GetDocument(r.Context(), id)
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		writeJSON(w, 200, doc)
	}
}

func handleUpdate(svc *vault.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		var req struct {
			Tags     *[]string `json:"tags"`
			Notes    *string   `json:"notes"`
			Archived *bool     `json:"archived"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}

		// Absent fields keep their current values.
		current, err := svc.GetDocument(r.Context(), id)
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		tags := []string{}
		if req.Tags != nil {
			tags = *req.Tags
		} else if current.TagsJSON != "" {
			if err := json.Unmarshal([]byte(current.TagsJSON), &tags); err != nil {
				writeError(w, 500, fmt.Errorf("stored tags unreadable: %w", err))
				return
			}
		}
		notes := current.Notes
		archived := current.Archived
		if req.Notes != nil {
			notes = *req.Notes
		}
		if req.Archived != nil {
			archived = *req.Archived
		}

		doc, err := svc.UpdateMetadata(r.Context(), id, tags, notes, archived)
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		writeJSON(w, 200, doc)
	}
}

func handleDelete(svc *vault.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		if err := svc.DeleteDocument(r.Context(), id); err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		writeJSON(w, 200, map[string]string{"status": "deleted"})
	}
}

func handleReprocess(svc *vault.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		doc, err := svc.Reprocess(r.Context(), id)
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		writeJSON(w, 200, doc)
	}
}

func handleQuery(svc *vault.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question     string  `json:"question"`
			DocumentIDs  []int64 `json:"document_ids"`
			DocumentType string  `json:"document_type"`
			Limit        int     `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		if req.Question == "" {
			writeError(w, 400, errors.New("question is required"))
			return
		}
		res, err := svc.Query(r.Context(), req.Question, vault.QueryFilters{
			DocumentIDs:  req.DocumentIDs,
			DocumentType: req.DocumentType,
			Limit:        req.Limit,
		})
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, res)
	}
}

func handleHistory(svc *vault.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hist, err := svc.SearchHistory(r.Context(), queryInt(r, "limit", 50))
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, map[string]any{"history": hist, "count": len(hist)})
	}
}

func handleStats(svc *vault.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Stats(r.Context())
		if err != nil {
			writeError(w, 500, err)
			return
		}
		writeJSON(w, 200, st)
	}
}

func handleExport(svc *vault.Service, kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DocumentIDs []int64 `json:"document_ids"`
			IncludeOCR  bool    `json:"include_ocr"`
			Pretty      bool    `json:"pretty"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, 400, err)
				return
			}
		}
		opts := vault.ExportOptions{
			DocumentIDs: req.DocumentIDs,
			IncludeOCR:  req.IncludeOCR,
			Pretty:      req.Pretty,
		}
		var path string
		var err error
		if kind == "excel" {
			path, err = svc.ExportExcel(r.Context(), opts)
		} else {
			path, err = svc.ExportJSON(r.Context(), opts)
		}
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		writeJSON(w, 200, map[string]string{"path": path})
	}
}

func handleExportSingle(svc *vault.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			writeError(w, 400, err)
			return
		}
		format := r.URL.Query().Get("format")
		includeOCR := r.URL.Query().Get("include_ocr") == "true"
		path, err := svc.ExportDocument(r.Context(), id, format, includeOCR)
		if err != nil {
			writeError(w, httpStatus(err), err)
			return
		}
		http.ServeFile(w, r, path)
	}
}

// --- Helpers ---

// httpStatus maps service sentinel errors to status codes.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, vault.ErrNotFound):
		return 404
	case errors.Is(err, vault.ErrFileTooLarge):
		return 413
	case errors.Is(err, vault.ErrInvalidFile),
		errors.Is(err, vault.ErrUnsupportedFormat),
		errors.Is(err, vault.ErrNoDocuments):
		return 400
	default:
		return 500
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid document id")
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
