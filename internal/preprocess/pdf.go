package preprocess

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

var pdfMagic = []byte("%PDF")

// isPDF recognizes PDF assets by magic bytes, falling back to the extension
// for files with unusual preambles.
func isPDF(data []byte, filename string) bool {
	if bytes.HasPrefix(data, pdfMagic) {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// firstPageImage rasterizes the first page of a PDF using pdftoppm.
// Multi-page containers contribute only their first page; recognition treats
// one asset as one page.
func (p *Preprocessor) firstPageImage(ctx context.Context, data []byte) (image.Image, error) {
	tmpDir, err := os.MkdirTemp("", "folio-render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "asset.pdf")
	if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write temp pdf: %w", err)
	}

	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if pageCount < 1 {
		return nil, fmt.Errorf("pdf has no pages")
	}
	if pageCount > 1 {
		p.logger.Debug("multi-page pdf, rendering first page only", "pages", pageCount)
	}

	// Output prefix for pdftoppm; -singlefile makes it write <prefix>.png.
	outputPrefix := filepath.Join(tmpDir, "page")

	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", "1",
		"-l", "1",
		"-r", strconv.Itoa(p.renderDPI),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	rendered := outputPrefix + ".png"
	if _, err := os.Stat(rendered); err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}

	img, err := imaging.Open(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to decode rendered page: %w", err)
	}
	return img, nil
}
