// Package assets stores and resolves page source assets on disk.
package assets

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/foliokit/folio/internal/home"
)

// ErrSourceUnavailable indicates a page's stored asset bytes are missing
// at processing time.
var ErrSourceUnavailable = errors.New("source asset unavailable")

// Store keeps page assets under the folio home directory, one directory
// per document, keyed by page id.
type Store struct {
	home *home.Dir
}

// NewStore creates an asset store rooted at the given home directory.
func NewStore(h *home.Dir) *Store {
	return &Store{home: h}
}

// Stage copies a source file into the document's asset directory and
// returns the stored path. The original extension is kept, lowercased.
func (s *Store) Stage(documentID, pageID, sourcePath string) (string, error) {
	if err := s.home.EnsureAssetsDir(documentID); err != nil {
		return "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", sourcePath, ErrSourceUnavailable)
		}
		return "", fmt.Errorf("failed to open source %s: %w", sourcePath, err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(sourcePath))
	dst := s.home.AssetPath(documentID, pageID, ext)

	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create asset %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to copy asset: %w", err)
	}
	return dst, nil
}

// Load resolves a stored asset path to its bytes.
func (s *Store) Load(path string) ([]byte, error) {
	if path == "" {
		return nil, ErrSourceUnavailable
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("failed to read asset %s: %w", path, err)
	}
	return data, nil
}
