package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

// PNG returns encoded bytes for a small synthetic scan: light background
// with a dark band, enough structure for the image pipeline to chew on.
func PNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{R: 245, G: 242, B: 235, A: 255}
			if y > height/3 && y < height/2 {
				c = color.NRGBA{R: 30, G: 30, B: 35, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding synthetic png: %v", err)
	}
	return buf.Bytes()
}

// WritePNG writes a synthetic scan into dir under the given name and
// returns its path.
func WritePNG(t *testing.T, dir, name string, width, height int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, PNG(t, width, height), 0o644); err != nil {
		t.Fatalf("writing synthetic png: %v", err)
	}
	return path
}

// WriteFile drops arbitrary bytes into dir under the given name, for
// exercising unsupported-input paths.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing test file: %v", err)
	}
	return path
}
