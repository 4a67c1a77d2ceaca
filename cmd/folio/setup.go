package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/foliokit/folio/internal/assets"
	"github.com/foliokit/folio/internal/catalog"
	"github.com/foliokit/folio/internal/config"
	"github.com/foliokit/folio/internal/engine"
	"github.com/foliokit/folio/internal/engine/tesseract"
	"github.com/foliokit/folio/internal/home"
	"github.com/foliokit/folio/internal/jobs"
	"github.com/foliokit/folio/internal/jobs/pageocr"
	"github.com/foliokit/folio/internal/preprocess"
	"github.com/foliokit/folio/internal/svcctx"
)

// buildServices wires the full service stack for one CLI invocation. The
// returned cleanup stops the snapshot flusher, which performs a final
// synchronous catalog flush.
func buildServices() (*svcctx.Services, func(), error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, nil, err
	}

	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	manager, err := config.NewManager(path)
	if err != nil {
		return nil, nil, err
	}
	cfg := manager.Get()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	// Results print to stdout, so logs go to stderr. The level rides a
	// LevelVar that config hot-reload adjusts mid-run.
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Log.Level))
	logger := newLogger(cfg.Log.Format, level)
	manager.OnChange(func(next *config.Config) {
		level.Set(parseLevel(next.Log.Level))
	})
	manager.WatchConfig()

	store, err := catalog.LoadStore(h.CatalogPath())
	if err != nil {
		return nil, nil, err
	}

	flusher := catalog.NewFlusher(catalog.FlusherConfig{
		Store:  store,
		Path:   h.CatalogPath(),
		Logger: logger,
	})
	flusher.Start(context.Background())

	engines := engine.NewRegistry()
	engines.SetLogger(logger)
	engines.Register(tesseract.New(tesseract.Config{
		Binary:  cfg.TesseractBinary(),
		PSM:     cfg.Engine.Tesseract.PSM,
		OEM:     cfg.Engine.Tesseract.OEM,
		Timeout: time.Duration(cfg.Engine.Tesseract.TimeoutSeconds) * time.Second,
	}))
	eng, err := engines.Get(cfg.Engine.Name)
	if err != nil {
		flusher.Stop()
		return nil, nil, err
	}

	queue := jobs.NewMemQueue(cfg.Jobs.QueueSize)
	registry := jobs.NewRegistry()
	registry.SetLogger(logger)
	pageocr.Register(registry)

	pool := jobs.NewPool(jobs.PoolConfig{
		Queue:       queue,
		Registry:    registry,
		Logger:      logger,
		Workers:     cfg.Jobs.Workers,
		Timeout:     time.Duration(cfg.Jobs.TimeoutSeconds) * time.Second,
		MaxAttempts: uint(cfg.Jobs.MaxAttempts),
		RetryDelay:  time.Duration(cfg.Jobs.RetryDelayMS) * time.Millisecond,
	})

	svcs := &svcctx.Services{
		Config:  cfg,
		Logger:  logger,
		Home:    h,
		Catalog: store,
		Flusher: flusher,
		Assets:  assets.NewStore(h),
		Engine:  eng,
		Preprocessor: preprocess.New(preprocess.Config{
			RenderDPI: cfg.Ingest.PDFRenderDPI,
			Logger:    logger,
		}),
		Queue: queue,
		Pool:  pool,
	}
	return svcs, flusher.Stop, nil
}

func newLogger(format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runPool drains the queue with the worker pool and collects every result.
// Used by the one-shot commands after they submit their work. Results are
// read while the pool runs: document jobs fan out page jobs, so one run can
// finish more jobs than the results buffer holds.
func runPool(ctx context.Context, svcs *svcctx.Services) ([]jobs.Result, error) {
	ctx, cancel := context.WithCancel(svcctx.WithServices(ctx, svcs))
	defer cancel()

	pool := svcs.Pool

	var results []jobs.Result
	collected := make(chan struct{})
	go func() {
		defer close(collected)
		for r := range pool.Results() {
			results = append(results, r)
		}
	}()

	pool.Start(ctx)
	err := pool.Wait(ctx)
	cancel()
	pool.Stop()
	<-collected
	return results, err
}

// processSummary condenses a drained pool run for output.
type processSummary struct {
	Jobs      int                       `json:"jobs"`
	Succeeded int                       `json:"succeeded"`
	Failed    int                       `json:"failed"`
	Documents []*pageocr.DocumentResult `json:"documents,omitempty"`
	Pages     []*pageocr.PageResult     `json:"pages,omitempty"`
	Errors    []string                  `json:"errors,omitempty"`
}

func summarize(results []jobs.Result) processSummary {
	s := processSummary{Jobs: len(results)}
	for _, r := range results {
		if r.Success() {
			s.Succeeded++
		} else {
			s.Failed++
			s.Errors = append(s.Errors, fmt.Sprintf("%s %s: %v", r.Kind, r.JobID, r.Err))
		}
		switch v := r.Value.(type) {
		case *pageocr.PageResult:
			s.Pages = append(s.Pages, v)
		case *pageocr.DocumentResult:
			s.Documents = append(s.Documents, v)
		}
	}
	sort.Slice(s.Pages, func(i, j int) bool {
		if s.Pages[i].DocumentID == s.Pages[j].DocumentID {
			return s.Pages[i].PageNumber < s.Pages[j].PageNumber
		}
		return s.Pages[i].DocumentID < s.Pages[j].DocumentID
	})
	return s
}
