package assets

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foliokit/folio/internal/home"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create home: %v", err)
	}
	if err := dir.EnsureExists(); err != nil {
		t.Fatalf("failed to ensure home: %v", err)
	}
	return NewStore(dir)
}

func TestStore_Stage(t *testing.T) {
	store := newTestStore(t)

	srcDir := t.TempDir()
	src := filepath.Join(srcDir, "scan_014.PNG")
	if err := os.WriteFile(src, []byte("image-bytes"), 0o644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}

	path, err := store.Stage("d81c2f5e-7a64-4b1b-9f27-3f2f6f1f0001", "page-1", src)
	if err != nil {
		t.Fatalf("stage failed: %v", err)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("extension not lowercased: %s", path)
	}

	data, err := store.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("loaded %q, want %q", data, "image-bytes")
	}
}

func TestStore_Stage_MissingSource(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Stage("doc", "page", "/does/not/exist.png")
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestStore_Load_Missing(t *testing.T) {
	store := newTestStore(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := store.Load("/does/not/exist.png")
		if !errors.Is(err, ErrSourceUnavailable) {
			t.Errorf("expected ErrSourceUnavailable, got %v", err)
		}
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := store.Load("")
		if !errors.Is(err, ErrSourceUnavailable) {
			t.Errorf("expected ErrSourceUnavailable, got %v", err)
		}
	})
}
