package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	_ "image/jpeg"

	_ "golang.org/x/image/tiff"
)

// A recipe transforms an encoded image before recognition. Scanned receipts
// usually read better after binarisation; clean digital renders sometimes
// read better untouched, so the adapter tries both.
type recipe struct {
	name  string
	apply func(data []byte) ([]byte, error)
}

var (
	recipeBinarize    = recipe{name: "binarize", apply: binarize}
	recipePassthrough = recipe{name: "passthrough", apply: func(data []byte) ([]byte, error) { return data, nil }}
)

// binarize converts the image to grayscale and applies an Otsu threshold,
// re-encoding as PNG. PNG/JPEG decode via stdlib, TIFF via x/image.
func binarize(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("ocr: decode image: %w", err)
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	var hist [256]int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			gray.SetGray(x, y, g)
			hist[g.Y]++
		}
	}

	threshold := otsuThreshold(hist, bounds.Dx()*bounds.Dy())

	bw := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			if gray.GrayAt(x, y).Y > threshold {
				bw.SetGray(x, y, color.Gray{Y: 255})
			} else {
				bw.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, bw); err != nil {
		return nil, fmt.Errorf("ocr: encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// otsuThreshold picks the threshold maximising between-class variance.
func otsuThreshold(hist [256]int, total int) uint8 {
	if total == 0 {
		return 128
	}

	var sum float64
	for i, n := range hist {
		sum += float64(i) * float64(n)
	}

	var sumB, wB float64
	var maxVar float64
	var threshold uint8
	for i, n := range hist {
		wB += float64(n)
		if wB == 0 {
			continue
		}
		wF := float64(total) - wB
		if wF == 0 {
			break
		}
		sumB += float64(i) * float64(n)
		mB := sumB / wB
		mF := (sum - sumB) / wF
		between := wB * wF * (mB - mF) * (mB - mF)
		if between > maxVar {
			maxVar = between
			threshold = uint8(i)
		}
	}
	return threshold
}
