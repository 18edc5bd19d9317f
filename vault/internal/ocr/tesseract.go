package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract is an Engine backed by the gosseract binding. A fresh client is
// created per call; gosseract clients are not safe for concurrent use.
type Tesseract struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewTesseract constructs a Tesseract engine. With no languages it uses the
// Tesseract default ("eng").
func NewTesseract(languages ...string) *Tesseract {
	return &Tesseract{
		languages:     languages,
		clientFactory: gosseract.NewClient,
	}
}

// Recognize runs Tesseract on an encoded image and returns the text with a
// mean word confidence normalised to [0,1].
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (Result, error) {
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	default:
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return Result{}, fmt.Errorf("ocr: set image: %w", err)
	}
	if len(t.languages) > 0 {
		if err := c.SetLanguage(t.languages...); err != nil {
			return Result{}, fmt.Errorf("ocr: set languages: %w", err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return Result{}, fmt.Errorf("ocr: recognize: %w", err)
	}
	text = strings.TrimSpace(text)

	conf, words := wordConfidence(c)
	if text == "" {
		return Result{}, nil
	}
	return Result{Text: text, Confidence: conf, Words: words}, nil
}

// wordConfidence averages per-word confidences, normalised from Tesseract's
// 0-100 scale to [0,1].
func wordConfidence(c *gosseract.Client) (float64, int) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0, 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence / 100.0
	}
	return sum / float64(len(boxes)), len(boxes)
}
