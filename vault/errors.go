package vault

import (
	"github.com/hazyhaar/docuvault/vault/internal/export"
	"github.com/hazyhaar/docuvault/vault/internal/pipeline"
)

// Sentinel errors surfaced by the service. The HTTP layer maps these to
// status codes.
var (
	ErrInvalidFile       = pipeline.ErrInvalidFile
	ErrFileTooLarge      = pipeline.ErrFileTooLarge
	ErrUnsupportedFormat = pipeline.ErrUnsupportedFormat
	ErrNotFound          = pipeline.ErrNotFound
	ErrNoDocuments       = export.ErrNoDocuments
)
