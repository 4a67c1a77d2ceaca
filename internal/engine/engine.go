// Package engine defines the recognition engine contract. An engine turns a
// normalized page image into text with per-token confidences, and detects
// page orientation so callers can correct it before recognition.
package engine

import (
	"context"
	"errors"
)

// ErrProcessingFailure marks recognition and image-processing errors. These
// are retryable: the page stays addressable and a later attempt may succeed.
var ErrProcessingFailure = errors.New("recognition processing failure")

// Result is the output of one recognition pass.
type Result struct {
	// Text is the raw recognized text. Callers trim before persisting.
	Text string

	// TokenConfidences holds one confidence value per recognized token on
	// a 0-100 scale. Aggregation filters non-positive entries.
	TokenConfidences []int
}

// Engine extracts text from page images.
type Engine interface {
	// Name returns the engine identifier (e.g., "tesseract").
	Name() string

	// DetectOrientation reports the clockwise rotation in degrees needed
	// to make the page upright. A failed detection is not fatal to the
	// pipeline; callers proceed with 0.
	DetectOrientation(ctx context.Context, image []byte) (float64, error)

	// Recognize extracts text from an encoded image. The language tag may
	// combine scripts (e.g., "eng+nld").
	Recognize(ctx context.Context, image []byte, language string) (*Result, error)
}
