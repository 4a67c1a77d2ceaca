// Package tesseract implements the recognition engine contract on top of
// the Tesseract OCR library. Text extraction goes through the embedded
// gosseract client; orientation detection shells out to the tesseract
// binary because OSD is not exposed through the library API.
package tesseract

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"

	"github.com/foliokit/folio/internal/engine"
)

const EngineName = "tesseract"

// Config holds Tesseract tuning parameters.
type Config struct {
	// Binary is the tesseract executable used for orientation detection.
	Binary string

	// PSM is the page segmentation mode for recognition. Zero selects the
	// fully automatic mode (3).
	PSM int

	// OEM is the OCR engine mode, passed through as provided. The packaged
	// defaults select 3 (choose based on available models).
	OEM int

	// Timeout bounds each external binary invocation.
	Timeout time.Duration
}

// Engine is a Tesseract-backed recognition engine.
type Engine struct {
	binary  string
	psm     int
	oem     int
	timeout time.Duration

	clientFactory func() *gosseract.Client
}

// New constructs a Tesseract engine.
func New(cfg Config) *Engine {
	binary := cfg.Binary
	if binary == "" {
		binary = "tesseract"
	}
	psm := cfg.PSM
	if psm == 0 {
		psm = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Engine{
		binary:        binary,
		psm:           psm,
		oem:           cfg.OEM,
		timeout:       timeout,
		clientFactory: gosseract.NewClient,
	}
}

// Name returns the engine identifier.
func (e *Engine) Name() string {
	return EngineName
}

// Recognize extracts text and per-word confidences from an encoded image.
func (e *Engine) Recognize(ctx context.Context, image []byte, language string) (*engine.Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(image); err != nil {
		return nil, fmt.Errorf("%w: set image: %v", engine.ErrProcessingFailure, err)
	}
	if langs := splitLanguages(language); len(langs) > 0 {
		if err := c.SetLanguage(langs...); err != nil {
			return nil, fmt.Errorf("%w: set languages: %v", engine.ErrProcessingFailure, err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(e.psm)); err != nil {
		return nil, fmt.Errorf("%w: set page segmentation mode: %v", engine.ErrProcessingFailure, err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("tessedit_ocr_engine_mode"), strconv.Itoa(e.oem)); err != nil {
		return nil, fmt.Errorf("%w: set engine mode: %v", engine.ErrProcessingFailure, err)
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("%w: recognize text: %v", engine.ErrProcessingFailure, err)
	}

	// A failed confidence read is not fatal: recognition already succeeded,
	// the aggregate confidence just ends up zero.
	boxes, _ := c.GetBoundingBoxes(gosseract.RIL_WORD)

	return &engine.Result{
		Text:             text,
		TokenConfidences: scaleConfidences(boxes),
	}, nil
}

// scaleConfidences rounds gosseract's per-word confidences onto the 0-100
// integer scale the aggregator consumes.
func scaleConfidences(boxes []gosseract.BoundingBox) []int {
	if len(boxes) == 0 {
		return nil
	}
	confs := make([]int, 0, len(boxes))
	for _, b := range boxes {
		confs = append(confs, int(math.Round(b.Confidence)))
	}
	return confs
}

// splitLanguages turns a combined tag like "eng+nld" into the list form the
// gosseract client expects.
func splitLanguages(language string) []string {
	parts := strings.Split(language, "+")
	langs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			langs = append(langs, p)
		}
	}
	return langs
}
