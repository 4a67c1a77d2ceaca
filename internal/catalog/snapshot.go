package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

const snapshotVersion = 1

// snapshot is the on-disk form of the catalog.
type snapshot struct {
	Version   int         `json:"version"`
	SavedAt   time.Time   `json:"saved_at"`
	Documents []*Document `json:"documents"`
	Pages     []*Page     `json:"pages"`
}

// SaveSnapshot writes the full catalog to path atomically.
func (s *Store) SaveSnapshot(path string) error {
	txn := s.db.Txn(false)
	defer txn.Abort()

	snap := snapshot{
		Version: snapshotVersion,
		SavedAt: time.Now().UTC(),
	}

	it, err := txn.Get(tableDocuments, indexID)
	if err != nil {
		return fmt.Errorf("failed to read documents: %w", err)
	}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		snap.Documents = append(snap.Documents, raw.(*Document))
	}

	it, err = txn.Get(tablePages, indexID)
	if err != nil {
		return fmt.Errorf("failed to read pages: %w", err)
	}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		snap.Pages = append(snap.Pages, raw.(*Page))
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace catalog snapshot: %w", err)
	}
	return nil
}

// LoadStore builds a catalog from a snapshot file. A missing file yields
// an empty catalog. Pages left processing by a crashed run are demoted to
// pending so dispatch picks them up again.
func LoadStore(path string) (*Store, error) {
	store, err := NewStore()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return store, nil
		}
		return nil, fmt.Errorf("failed to read catalog snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse catalog snapshot: %w", err)
	}

	txn := store.db.Txn(true)
	defer txn.Abort()

	for _, doc := range snap.Documents {
		if err := txn.Insert(tableDocuments, doc); err != nil {
			return nil, fmt.Errorf("failed to load document %s: %w", doc.ID, err)
		}
	}
	for _, page := range snap.Pages {
		if page.Status == PageStatusProcessing {
			page.Status = PageStatusPending
		}
		if page.Status == "" {
			page.Status = PageStatusPending
		}
		if err := txn.Insert(tablePages, page); err != nil {
			return nil, fmt.Errorf("failed to load page %s: %w", page.ID, err)
		}
	}
	txn.Commit()
	return store, nil
}

// FlusherConfig configures the snapshot flusher.
type FlusherConfig struct {
	Store    *Store
	Path     string
	Interval time.Duration // write-behind delay (default: 2s)
	Logger   *slog.Logger
}

// Flusher persists catalog mutations to disk with a write-behind delay, so
// a burst of page completions coalesces into one snapshot write. Stop
// performs a final synchronous flush.
type Flusher struct {
	store    *Store
	path     string
	interval time.Duration
	logger   *slog.Logger

	dirty atomic.Bool

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewFlusher creates a flusher and subscribes it to store writes.
func NewFlusher(cfg FlusherConfig) *Flusher {
	if cfg.Interval <= 0 {
		cfg.Interval = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	f := &Flusher{
		store:    cfg.Store,
		path:     cfg.Path,
		interval: cfg.Interval,
		logger:   cfg.Logger.With("component", "catalog-flusher"),
	}
	cfg.Store.OnWrite(f.Notify)
	return f
}

// Start begins the write-behind loop.
func (f *Flusher) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go f.run(ctx)
}

// Notify marks the catalog dirty. Called after every committed mutation.
func (f *Flusher) Notify() {
	f.dirty.Store(true)
}

// Flush writes the snapshot immediately if there are unpersisted changes.
func (f *Flusher) Flush() error {
	if !f.dirty.Swap(false) {
		return nil
	}
	if err := f.store.SaveSnapshot(f.path); err != nil {
		f.dirty.Store(true)
		return err
	}
	return nil
}

// Stop flushes remaining changes and shuts the loop down.
func (f *Flusher) Stop() {
	f.stopOnce.Do(func() {
		if f.cancel != nil {
			f.cancel()
			f.wg.Wait()
		}
		if err := f.Flush(); err != nil {
			f.logger.Error("final catalog flush failed", "error", err)
		}
	})
}

func (f *Flusher) run(ctx context.Context) {
	defer f.wg.Done()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.Flush(); err != nil {
				f.logger.Error("catalog flush failed", "error", err)
			}
		}
	}
}
