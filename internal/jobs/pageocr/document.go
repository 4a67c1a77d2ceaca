package pageocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foliokit/folio/internal/jobs"
	"github.com/foliokit/folio/internal/svcctx"
)

// HandleDocument enumerates a document's pages once and submits one page
// job for every page that still needs recognition. It returns immediately
// with the dispatched job ids; the page jobs run independently.
func HandleDocument(ctx context.Context, job jobs.Job) (any, error) {
	store := svcctx.CatalogFrom(ctx)
	if store == nil {
		return nil, fmt.Errorf("catalog not in context")
	}
	queue := svcctx.QueueFrom(ctx)
	if queue == nil {
		return nil, fmt.Errorf("job queue not in context")
	}
	logger := svcctx.LoggerFrom(ctx)
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("job_id", job.ID)

	documentID := job.Payload[payloadDocumentID]
	if documentID == "" {
		return nil, fmt.Errorf("missing %s in payload", payloadDocumentID)
	}

	doc, err := store.GetDocument(documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	pages, err := store.ListPages(documentID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}

	result := &DocumentResult{DocumentID: documentID, Title: doc.Title}
	for _, page := range pages {
		if !page.CanProcessOCR() {
			if !page.OCRCompleted {
				// Pending page without a usable asset; nothing to run.
				result.Skipped = append(result.Skipped, page.ID)
			}
			continue
		}

		pageJob := NewPageJob(page.ID, false)
		if err := queue.Submit(pageJob); err != nil {
			logger.Warn("could not enqueue page job", "page_id", page.ID, "error", err)
			result.SubmitErrors = append(result.SubmitErrors, fmt.Sprintf("%s: %v", page.ID, err))
			continue
		}
		result.JobIDs = append(result.JobIDs, pageJob.ID)
	}
	result.PagesDispatched = len(result.JobIDs)

	if result.PagesDispatched == 0 && len(result.SubmitErrors) == 0 {
		result.Message = "no pages to process"
		logger.Info("document has no pages needing recognition",
			"document_id", documentID, "title", doc.Title)
	} else {
		logger.Info("dispatched page recognition jobs",
			"document_id", documentID, "count", result.PagesDispatched)
	}
	return result, nil
}
