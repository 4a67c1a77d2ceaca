// Package ingest plans document creation from batches of scanned files:
// filtering supported types, resolving page order from filenames, staging
// source assets, and enqueueing recognition jobs.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/foliokit/folio/internal/assets"
	"github.com/foliokit/folio/internal/catalog"
	"github.com/foliokit/folio/internal/jobs"
	"github.com/foliokit/folio/internal/jobs/pageocr"
	"github.com/foliokit/folio/internal/pagenum"
)

// ErrNoValidInput means none of the offered files passed the type filter.
var ErrNoValidInput = errors.New("no supported files in input")

// Mode selects how a batch maps onto catalog documents.
type Mode string

const (
	// ModeSingleDocument treats every file as one page of a single new
	// document, ordered by resolved page number.
	ModeSingleDocument Mode = "single_document"

	// ModeMultipleDocuments creates one single-page document per file.
	ModeMultipleDocuments Mode = "multiple_documents"
)

// ParseMode validates a mode flag value. The long names and the short
// aliases "single" and "multiple" are accepted.
func ParseMode(s string) (Mode, error) {
	switch s {
	case string(ModeSingleDocument), "single":
		return ModeSingleDocument, nil
	case string(ModeMultipleDocuments), "multiple":
		return ModeMultipleDocuments, nil
	}
	return "", fmt.Errorf("unknown ingest mode %q (want %s or %s)", s, ModeSingleDocument, ModeMultipleDocuments)
}

// supportedExtensions is the ingest allow-list. PDFs are rasterized at
// recognition time; the image types decode directly.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tif":  true,
	".tiff": true,
	".bmp":  true,
}

// Supported reports whether the file's extension is ingestable.
func Supported(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Request describes one ingest batch.
type Request struct {
	Paths    []string // source files (expand directories with CollectFiles first)
	Mode     Mode     // empty defaults to ModeSingleDocument
	Language string   // recognition language tag, empty uses the configured default
	Title    string   // single-document mode only, derived from the first filename if empty
}

// Result reports what a batch produced. Per-file problems surface as
// warnings rather than failing the whole batch.
type Result struct {
	DocumentsCreated int      `json:"documents_created"`
	PagesCreated     int      `json:"pages_created"`
	JobsEnqueued     int      `json:"jobs_enqueued"`
	DocumentIDs      []string `json:"document_ids"`
	Warnings         []string `json:"warnings,omitempty"`
}

func (r *Result) addWarning(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// PlannerConfig wires a Planner.
type PlannerConfig struct {
	Catalog *catalog.Store
	Assets  *assets.Store
	Queue   jobs.Queue
	Logger  *slog.Logger

	// StageConcurrency bounds parallel asset copies. Zero means 4.
	StageConcurrency int

	// DefaultLanguage applies to requests that carry no language tag.
	// Zero means the catalog default.
	DefaultLanguage string
}

// Planner stages scan batches into the catalog and queues their
// recognition work.
type Planner struct {
	catalog          *catalog.Store
	assets           *assets.Store
	queue            jobs.Queue
	logger           *slog.Logger
	stageConcurrency int
	defaultLanguage  string
}

// NewPlanner creates a Planner from the given configuration.
func NewPlanner(cfg PlannerConfig) *Planner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.StageConcurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	language := cfg.DefaultLanguage
	if language == "" {
		language = catalog.DefaultLanguage
	}
	return &Planner{
		catalog:          cfg.Catalog,
		assets:           cfg.Assets,
		queue:            cfg.Queue,
		logger:           logger.With("component", "ingest"),
		stageConcurrency: concurrency,
		defaultLanguage:  language,
	}
}

// Plan executes one ingest batch: filter, create records, stage assets,
// enqueue page recognition jobs.
func (p *Planner) Plan(ctx context.Context, req Request) (*Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = ModeSingleDocument
	}
	if mode != ModeSingleDocument && mode != ModeMultipleDocuments {
		return nil, fmt.Errorf("unknown ingest mode %q", req.Mode)
	}

	accepted, warnings := filterSupported(req.Paths)
	if len(accepted) == 0 {
		return nil, fmt.Errorf("%w (%d files offered)", ErrNoValidInput, len(req.Paths))
	}

	language := req.Language
	if language == "" {
		language = p.defaultLanguage
	}

	result := &Result{Warnings: warnings}
	p.logger.Info("planning ingest",
		"files", len(accepted),
		"skipped", len(req.Paths)-len(accepted),
		"mode", mode,
		"language", language)

	var err error
	switch mode {
	case ModeMultipleDocuments:
		err = p.planMultiple(ctx, accepted, language, result)
	default:
		err = p.planSingle(ctx, accepted, language, req.Title, result)
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("ingest planned",
		"documents", result.DocumentsCreated,
		"pages", result.PagesCreated,
		"jobs", result.JobsEnqueued,
		"warnings", len(result.Warnings))
	return result, nil
}

// entry tracks one source file through staging.
type entry struct {
	path       string
	documentID string
	pageID     string
	resolved   int
	assetPath  string // set once the asset is staged
}

func (p *Planner) planSingle(ctx context.Context, paths []string, language, title string, result *Result) error {
	if title == "" {
		title = humanizeTitle(paths[0])
	}
	doc := &catalog.Document{Title: title, Language: language}
	if err := p.catalog.CreateDocument(doc); err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	result.DocumentsCreated++
	result.DocumentIDs = append(result.DocumentIDs, doc.ID)

	entries := make([]*entry, 0, len(paths))
	for i, path := range paths {
		e := &entry{path: path, documentID: doc.ID, pageID: catalog.NewID()}
		if n, ok := pagenum.Resolve(filepath.Base(path)); ok {
			e.resolved = n
		} else {
			e.resolved = i + 1
			result.addWarning("no page number in %q, falling back to position %d", filepath.Base(path), i+1)
			p.logger.Warn("page number not resolvable", "file", filepath.Base(path), "fallback", i+1)
		}
		entries = append(entries, e)
	}

	if err := p.stageAll(ctx, entries, result); err != nil {
		return err
	}

	staged := make([]*entry, 0, len(entries))
	for _, e := range entries {
		if e.assetPath != "" {
			staged = append(staged, e)
		}
	}
	// Final numbers are the rank order of the resolved numbers, so a batch
	// named 003/001/002 lands as pages 1..3 no matter the upload order.
	// Stable sort keeps input order between equal resolutions.
	sort.SliceStable(staged, func(i, j int) bool { return staged[i].resolved < staged[j].resolved })

	for rank, e := range staged {
		page := &catalog.Page{
			ID:               e.pageID,
			DocumentID:       doc.ID,
			PageNumber:       rank + 1,
			AssetPath:        e.assetPath,
			OriginalFilename: filepath.Base(e.path),
		}
		if err := p.catalog.CreatePage(page); err != nil {
			result.addWarning("page for %s: %v", filepath.Base(e.path), err)
			continue
		}
		result.PagesCreated++
		p.enqueue(page, result)
	}
	return nil
}

func (p *Planner) planMultiple(ctx context.Context, paths []string, language string, result *Result) error {
	entries := make([]*entry, 0, len(paths))
	for _, path := range paths {
		doc := &catalog.Document{Title: humanizeTitle(path), Language: language}
		if err := p.catalog.CreateDocument(doc); err != nil {
			result.addWarning("document for %s: %v", filepath.Base(path), err)
			continue
		}
		result.DocumentsCreated++
		result.DocumentIDs = append(result.DocumentIDs, doc.ID)
		entries = append(entries, &entry{
			path:       path,
			documentID: doc.ID,
			pageID:     catalog.NewID(),
			resolved:   1,
		})
	}

	if err := p.stageAll(ctx, entries, result); err != nil {
		return err
	}

	for _, e := range entries {
		if e.assetPath == "" {
			continue
		}
		page := &catalog.Page{
			ID:               e.pageID,
			DocumentID:       e.documentID,
			PageNumber:       1,
			AssetPath:        e.assetPath,
			OriginalFilename: filepath.Base(e.path),
		}
		if err := p.catalog.CreatePage(page); err != nil {
			result.addWarning("page for %s: %v", filepath.Base(e.path), err)
			continue
		}
		result.PagesCreated++
		p.enqueue(page, result)
	}
	return nil
}

// stageAll copies each entry's source file into the asset store, validating
// PDFs first. Copies run under the configured concurrency limit; a failed
// file becomes a warning and its entry stays unstaged.
func (p *Planner) stageAll(ctx context.Context, entries []*entry, result *Result) error {
	var mu sync.Mutex
	warn := func(format string, args ...any) {
		mu.Lock()
		defer mu.Unlock()
		result.addWarning(format, args...)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.stageConcurrency)
	for _, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if strings.EqualFold(filepath.Ext(e.path), ".pdf") {
				pages, err := api.PageCountFile(e.path)
				if err != nil {
					warn("invalid pdf %s: %v", filepath.Base(e.path), err)
					return nil
				}
				if pages > 1 {
					warn("%s has %d pages, only the first is recognized", filepath.Base(e.path), pages)
				}
			}
			stored, err := p.assets.Stage(e.documentID, e.pageID, e.path)
			if err != nil {
				warn("stage %s: %v", filepath.Base(e.path), err)
				return nil
			}
			e.assetPath = stored
			return nil
		})
	}
	return g.Wait()
}

// enqueue submits a recognition job for a freshly created page. Queue
// overflow is a warning; the page stays pending for a later process run.
func (p *Planner) enqueue(page *catalog.Page, result *Result) {
	if !page.CanProcessOCR() {
		result.addWarning("page %d of document %s not eligible for recognition", page.PageNumber, page.DocumentID)
		return
	}
	if err := p.queue.Submit(pageocr.NewPageJob(page.ID, false)); err != nil {
		result.addWarning("queue page %d: %v", page.PageNumber, err)
		return
	}
	result.JobsEnqueued++
}

// CollectFiles expands any directories in paths one level deep and returns
// the resulting file list. Explicit files are kept as given; directory
// entries come back in name order with dotfiles and subdirectories skipped.
func CollectFiles(paths []string) ([]string, error) {
	var files []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", path, err)
		}
		if !info.IsDir() {
			files = append(files, path)
			continue
		}
		dirEntries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", path, err)
		}
		for _, de := range dirEntries {
			if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
				continue
			}
			files = append(files, filepath.Join(path, de.Name()))
		}
	}
	return files, nil
}

func filterSupported(paths []string) (accepted, warnings []string) {
	for _, path := range paths {
		if Supported(path) {
			accepted = append(accepted, path)
			continue
		}
		warnings = append(warnings, fmt.Sprintf("skipped %s: unsupported file type", filepath.Base(path)))
	}
	return accepted, warnings
}

// humanizeTitle turns "geboorte_akten-1882.pdf" into "Geboorte Akten 1882".
func humanizeTitle(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	words := strings.Fields(name)
	if len(words) == 0 {
		return "Untitled"
	}
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
