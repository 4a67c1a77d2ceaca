package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DetectOrientation runs the tesseract binary in OSD-only mode (--psm 0)
// and parses the clockwise correction angle from its report. Callers treat
// a failure here as "no rotation"; detection regularly fails on pages with
// too little text to orient.
func (e *Engine) DetectOrientation(ctx context.Context, image []byte) (float64, error) {
	tmpDir, err := os.MkdirTemp("", "folio-osd-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	imgPath := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(imgPath, image, 0o644); err != nil {
		return 0, fmt.Errorf("failed to write temp image: %w", err)
	}

	osdCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(osdCtx, e.binary, imgPath, "stdout", "--psm", "0")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("osd failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
	}

	return parseOSDRotate(stdout.String())
}

// parseOSDRotate extracts the rotation angle from OSD output such as:
//
//	Page number: 0
//	Orientation in degrees: 180
//	Rotate: 180
//	Orientation confidence: 9.52
//	Script: Latin
func parseOSDRotate(out string) (float64, error) {
	for _, line := range strings.Split(out, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Rotate:")
		if !ok {
			continue
		}
		angle, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return 0, fmt.Errorf("bad rotate value %q: %w", strings.TrimSpace(rest), err)
		}
		return float64(angle), nil
	}
	return 0, fmt.Errorf("no Rotate field in osd output")
}
