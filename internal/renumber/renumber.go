// Package renumber repairs stored page numbers from filename evidence.
//
// Early ingests trusted upload order, so documents exist whose stored
// numbering disagrees with the page numbers encoded in the original
// filenames. The repairer recomputes each page's number through the
// filename resolver and applies corrections per document in a two-phase
// update: every affected page first moves to a temporary number above the
// live range, then to its real target. Both phases run inside one write
// transaction per document, so the per-document uniqueness invariant holds
// at every observable point and a dry run is just an aborted transaction.
package renumber

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foliokit/folio/internal/catalog"
	"github.com/foliokit/folio/internal/pagenum"
)

// defaultTempOffset is the phase-one numbering floor when the options
// carry none. It must exceed any plausible document page count; Run raises
// it further when live numbers or targets reach it.
const defaultTempOffset = 10000

// Options scope and shape one repair run.
type Options struct {
	// DryRun computes and reports corrections but discards all writes.
	DryRun bool

	// DocumentID narrows the run to one document. Empty scans all.
	DocumentID string

	// TempOffset is the phase-one numbering floor. Zero means the default.
	TempOffset int
}

// PageChange is one intended correction.
type PageChange struct {
	PageID   string `json:"page_id"`
	Filename string `json:"filename"`
	From     int    `json:"from"`
	To       int    `json:"to"`
	Rule     string `json:"rule"`
}

// DocumentReport describes one document that needed corrections.
type DocumentReport struct {
	DocumentID string       `json:"document_id"`
	Title      string       `json:"title"`
	Changes    []PageChange `json:"changes"`
	Applied    bool         `json:"applied"`
	Err        string       `json:"error,omitempty"`
}

// Report sums up a repair run. During a dry run the counts describe
// intended changes rather than applied ones.
type Report struct {
	DryRun           bool             `json:"dry_run"`
	DocumentsScanned int              `json:"documents_scanned"`
	DocumentsChanged int              `json:"documents_changed"`
	PagesUpdated     int              `json:"pages_updated"`
	Unresolved       int              `json:"unresolved"`
	Documents        []DocumentReport `json:"documents,omitempty"`
}

// Repairer runs numbering repairs against the catalog.
type Repairer struct {
	store  *catalog.Store
	logger *slog.Logger
}

// NewRepairer creates a Repairer.
func NewRepairer(store *catalog.Store, logger *slog.Logger) *Repairer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repairer{store: store, logger: logger.With("component", "renumber")}
}

// Run scans the selected documents and applies (or, for a dry run,
// reports) page-number corrections. One document's failure aborts only
// that document; the rest proceed.
func (r *Repairer) Run(ctx context.Context, opts Options) (*Report, error) {
	offset := opts.TempOffset
	if offset <= 0 {
		offset = defaultTempOffset
	}

	var docs []*catalog.Document
	if opts.DocumentID != "" {
		doc, err := r.store.GetDocument(opts.DocumentID)
		if err != nil {
			return nil, err
		}
		docs = []*catalog.Document{doc}
	} else {
		all, err := r.store.ListDocuments()
		if err != nil {
			return nil, err
		}
		docs = all
	}

	report := &Report{DryRun: opts.DryRun}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.DocumentsScanned++

		changes, maxLive, unresolved, err := r.planDocument(doc.ID)
		if err != nil {
			return nil, err
		}
		report.Unresolved += unresolved
		if len(changes) == 0 {
			continue
		}

		docReport := DocumentReport{DocumentID: doc.ID, Title: doc.Title, Changes: changes}
		if dup := duplicateTarget(changes); dup != 0 {
			docReport.Err = fmt.Sprintf("correction targets collide: more than one page resolves to %d", dup)
			r.logger.Warn("skipping document", "document_id", doc.ID, "reason", docReport.Err)
			report.Documents = append(report.Documents, docReport)
			continue
		}

		if err := r.apply(doc.ID, changes, effectiveOffset(offset, maxLive, changes), opts.DryRun); err != nil {
			docReport.Err = err.Error()
			r.logger.Warn("document repair failed", "document_id", doc.ID, "error", err)
			report.Documents = append(report.Documents, docReport)
			continue
		}

		docReport.Applied = !opts.DryRun
		report.Documents = append(report.Documents, docReport)
		report.DocumentsChanged++
		report.PagesUpdated += len(changes)
		r.logger.Info("document renumbered",
			"document_id", doc.ID,
			"pages", len(changes),
			"dry_run", opts.DryRun)
	}
	return report, nil
}

// planDocument resolves every page's filename and returns the corrections,
// the highest live page number, and the count of unresolvable filenames.
func (r *Repairer) planDocument(documentID string) ([]PageChange, int, int, error) {
	pages, err := r.store.ListPages(documentID)
	if err != nil {
		return nil, 0, 0, err
	}

	var changes []PageChange
	maxLive := 0
	unresolved := 0
	for _, page := range pages {
		if page.PageNumber > maxLive {
			maxLive = page.PageNumber
		}
		n, rule, ok := pagenum.ResolveRule(page.OriginalFilename)
		if !ok {
			unresolved++
			r.logger.Debug("filename not resolvable", "page_id", page.ID, "filename", page.OriginalFilename)
			continue
		}
		if n == page.PageNumber {
			continue
		}
		changes = append(changes, PageChange{
			PageID:   page.ID,
			Filename: page.OriginalFilename,
			From:     page.PageNumber,
			To:       n,
			Rule:     rule,
		})
	}
	return changes, maxLive, unresolved, nil
}

// apply runs the two-phase reassignment inside one write transaction.
// A dry run aborts instead of committing.
func (r *Repairer) apply(documentID string, changes []PageChange, offset int, dryRun bool) error {
	tx := r.store.BeginWrite()
	defer tx.Abort()

	for i, ch := range changes {
		if err := tx.SetPageNumber(ch.PageID, offset+i); err != nil {
			return fmt.Errorf("phase 1, page %s: %w", ch.PageID, err)
		}
	}
	for _, ch := range changes {
		if err := tx.SetPageNumber(ch.PageID, ch.To); err != nil {
			return fmt.Errorf("phase 2, page %s: %w", ch.PageID, err)
		}
	}

	if dryRun {
		tx.Abort()
		return nil
	}
	tx.Commit()
	return nil
}

// effectiveOffset keeps the temporary range clear of both the live numbers
// and the correction targets.
func effectiveOffset(offset, maxLive int, changes []PageChange) int {
	floor := maxLive + 1
	for _, ch := range changes {
		if ch.To+1 > floor {
			floor = ch.To + 1
		}
	}
	if floor > offset {
		return floor
	}
	return offset
}

// duplicateTarget returns a target number claimed by more than one
// correction, or 0 when all targets are distinct.
func duplicateTarget(changes []PageChange) int {
	seen := make(map[int]bool, len(changes))
	for _, ch := range changes {
		if seen[ch.To] {
			return ch.To
		}
		seen[ch.To] = true
	}
	return 0
}
