// Package ocr turns uploaded documents (images and PDFs) into text with a
// confidence score. Recognition is delegated to an Engine so tests can run
// without a Tesseract installation.
package ocr

import "context"

// Result is the outcome of one recognition pass.
// Confidence is normalised to [0,1]; 0 with empty text means the engine ran
// but found nothing readable.
type Result struct {
	Text       string
	Confidence float64
	Words      int
}

// Engine recognises text in a single encoded image.
type Engine interface {
	Recognize(ctx context.Context, image []byte) (Result, error)
}
