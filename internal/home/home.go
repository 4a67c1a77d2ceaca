package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the folio home directory.
	DefaultDirName = ".folio"

	// DataDirName is the subdirectory for the catalog and page assets.
	DataDirName = "data"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// CatalogFileName is the on-disk catalog snapshot.
	CatalogFileName = "catalog.json"
)

// Dir represents the folio home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.folio).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DataPath returns the path to the data directory.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// CatalogPath returns the path to the catalog snapshot file.
func (d *Dir) CatalogPath() string {
	return filepath.Join(d.DataPath(), CatalogFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create data directory (this also creates the parent)
	if err := os.MkdirAll(d.DataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// AssetsDir returns the directory for a document's page assets.
func (d *Dir) AssetsDir(documentID string) string {
	return filepath.Join(d.DataPath(), "assets", documentID)
}

// AssetPath returns the storage path for one page asset, keyed by page ID.
// The original extension is preserved so format sniffing stays cheap.
func (d *Dir) AssetPath(documentID, pageID, ext string) string {
	return filepath.Join(d.AssetsDir(documentID), pageID+ext)
}

// EnsureAssetsDir creates the asset directory for a document.
func (d *Dir) EnsureAssetsDir(documentID string) error {
	return os.MkdirAll(d.AssetsDir(documentID), 0o755)
}
