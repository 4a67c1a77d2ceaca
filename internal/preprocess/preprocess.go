// Package preprocess turns a stored page asset into a normalized image
// ready for recognition: raster extraction for PDF containers, grayscale
// conversion, orientation correction, and a mild contrast/sharpness boost.
package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/disintegration/imaging"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Enhancement constants. Contrast is a percentage for imaging.AdjustContrast;
// the sharpen sigma is a gentle value suitable for scanned text.
const (
	contrastBoost = 20
	sharpenSigma  = 0.5
)

// Error wraps a failed preprocessing operation with the step that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("preprocess %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opErr(op string, err error) *Error {
	return &Error{Op: op, Err: err}
}

// Config controls the preprocessor.
type Config struct {
	// RenderDPI is the resolution used when rasterizing PDF pages.
	RenderDPI int

	Logger *slog.Logger
}

// Preprocessor normalizes page assets before recognition.
type Preprocessor struct {
	renderDPI int
	logger    *slog.Logger
}

// New creates a Preprocessor.
func New(cfg Config) *Preprocessor {
	dpi := cfg.RenderDPI
	if dpi <= 0 {
		dpi = 300
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Preprocessor{
		renderDPI: dpi,
		logger:    logger.With("component", "preprocess"),
	}
}

// Normalize decodes the asset bytes into a grayscale image. PDF assets are
// rasterized first (first page only); everything else is decoded directly.
// The filename is used only to recognize PDF containers by extension.
func (p *Preprocessor) Normalize(ctx context.Context, data []byte, filename string) (image.Image, error) {
	if len(data) == 0 {
		return nil, opErr("decode", fmt.Errorf("empty asset"))
	}

	var (
		img image.Image
		err error
	)
	if isPDF(data, filename) {
		img, err = p.firstPageImage(ctx, data)
		if err != nil {
			return nil, opErr("render", err)
		}
	} else {
		img, err = imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, opErr("decode", err)
		}
	}

	return imaging.Grayscale(img), nil
}

// CorrectOrientation rotates the image so that detected upside-down or
// sideways text reads upright. The angle is the clockwise rotation reported
// by orientation detection; the image is rotated back by its negative, with
// the canvas expanded and new corners filled white.
func CorrectOrientation(img image.Image, angle float64) image.Image {
	if angle == 0 {
		return img
	}
	return imaging.Rotate(img, -angle, color.White)
}

// Enhance applies a mild contrast and sharpness boost that improves
// recognition on faded scans.
func Enhance(img image.Image) image.Image {
	out := imaging.AdjustContrast(img, contrastBoost)
	return imaging.Sharpen(out, sharpenSigma)
}

// EncodePNG serializes the image for handoff to a recognition engine.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, opErr("encode", err)
	}
	return buf.Bytes(), nil
}
