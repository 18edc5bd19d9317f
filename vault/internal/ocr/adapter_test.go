package ocr

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// fakeEngine returns queued results in order, one per Recognize call.
type fakeEngine struct {
	results []Result
	errs    []error
	calls   int
}

func (f *fakeEngine) Recognize(ctx context.Context, img []byte) (Result, error) {
	i := f.calls
	f.calls++
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var res Result
	if i < len(f.results) {
		res = f.results[i]
	}
	return res, err
}

// testPNG writes a small two-tone image to dir and returns its path.
func testPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			if x < 4 {
				img.SetGray(x, y, color.Gray{Y: 30})
			} else {
				img.SetGray(x, y, color.Gray{Y: 220})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "test.png")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExtractHighConfidenceSkipsFallback(t *testing.T) {
	eng := &fakeEngine{results: []Result{{Text: "TOTAL 42.00", Confidence: 0.9, Words: 2}}}
	a := NewAdapter(eng, 0.5, nil)

	res, err := a.Extract(context.Background(), testPNG(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "TOTAL 42.00" || res.Confidence != 0.9 {
		t.Fatalf("res = %+v", res)
	}
	if eng.calls != 1 {
		t.Fatalf("calls = %d, fallback ran despite confidence above floor", eng.calls)
	}
}

func TestExtractLowConfidenceTriesFallback(t *testing.T) {
	eng := &fakeEngine{results: []Result{
		{Text: "garbled", Confidence: 0.3, Words: 1},
		{Text: "TOTAL 42.00", Confidence: 0.8, Words: 2},
	}}
	a := NewAdapter(eng, 0.5, nil)

	res, err := a.Extract(context.Background(), testPNG(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if eng.calls != 2 {
		t.Fatalf("calls = %d, want 2", eng.calls)
	}
	if res.Text != "TOTAL 42.00" {
		t.Fatalf("res = %+v, better fallback attempt not chosen", res)
	}
}

func TestExtractKeepsPrimaryWhenFallbackWorse(t *testing.T) {
	eng := &fakeEngine{results: []Result{
		{Text: "primary", Confidence: 0.45, Words: 1},
		{Text: "fallback", Confidence: 0.2, Words: 1},
	}}
	a := NewAdapter(eng, 0.5, nil)

	res, err := a.Extract(context.Background(), testPNG(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "primary" {
		t.Fatalf("res = %+v, want primary attempt", res)
	}
}

func TestExtractEmptyTextNoError(t *testing.T) {
	eng := &fakeEngine{results: []Result{{}, {}}}
	a := NewAdapter(eng, 0.5, nil)

	res, err := a.Extract(context.Background(), testPNG(t, t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "" || res.Confidence != 0 {
		t.Fatalf("res = %+v, want empty result", res)
	}
}

func TestExtractEngineFailure(t *testing.T) {
	boom := errors.New("tesseract crashed")
	eng := &fakeEngine{errs: []error{boom, boom}}
	a := NewAdapter(eng, 0.5, nil)

	_, err := a.Extract(context.Background(), testPNG(t, t.TempDir()))
	if err == nil {
		t.Fatal("expected error when all recipes fail")
	}
}

func TestExtractMissingFile(t *testing.T) {
	a := NewAdapter(&fakeEngine{}, 0.5, nil)
	_, err := a.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBinarizeOutputIsTwoTone(t *testing.T) {
	dir := t.TempDir()
	data, err := os.ReadFile(testPNG(t, dir))
	if err != nil {
		t.Fatal(err)
	}

	out, err := binarize(data)
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			if g.Y != 0 && g.Y != 255 {
				t.Fatalf("pixel (%d,%d) = %d, want 0 or 255", x, y, g.Y)
			}
		}
	}
}

func TestOtsuThresholdSeparatesModes(t *testing.T) {
	var hist [256]int
	hist[30] = 100
	hist[220] = 100

	th := otsuThreshold(hist, 200)
	if th < 30 || th >= 220 {
		t.Fatalf("threshold = %d, want between the two modes", th)
	}
}

func TestNeedsOCR(t *testing.T) {
	tests := []struct {
		name string
		q    textQuality
		want bool
	}{
		{"clean text pdf", textQuality{PageCount: 2, CharsPerPage: 900, PrintableRatio: 0.99, WordlikeRatio: 0.9}, false},
		{"scan with thin text", textQuality{PageCount: 1, CharsPerPage: 10, PrintableRatio: 1.0, HasImages: true}, true},
		{"thin text no images", textQuality{PageCount: 1, CharsPerPage: 10, PrintableRatio: 1.0}, false},
		{"garbled encoding", textQuality{PageCount: 1, CharsPerPage: 500, PrintableRatio: 0.4}, true},
	}
	for _, tt := range tests {
		if got := tt.q.needsOCR(); got != tt.want {
			t.Errorf("%s: needsOCR = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestPrintableRatio(t *testing.T) {
	if r := printableRatio("clean invoice text"); r != 1.0 {
		t.Errorf("clean text ratio = %v, want 1.0", r)
	}
	garbled := "ab�"
	if r := printableRatio(garbled); r > 0.5 {
		t.Errorf("garbled ratio = %v, want low", r)
	}
}

func TestExtractTextFromStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n(INVOICE #123) Tj\n0 -14 Td\n[(Total: ) (99.00)] TJ\nET\n")
	got := extractTextFromStream(stream)
	if got != "INVOICE #123 Total: 99.00" {
		t.Fatalf("got %q", got)
	}
}

func TestDecodePDFStringOctal(t *testing.T) {
	got := decodePDFString([]byte(`a\040b\(c\)`))
	if got != "a b(c)" {
		t.Fatalf("got %q", got)
	}
}
