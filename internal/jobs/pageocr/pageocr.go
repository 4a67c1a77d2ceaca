// Package pageocr implements the recognition job handlers: a per-page
// handler running the full normalize/recognize pipeline, and a per-document
// handler fanning out one page job per incomplete page.
package pageocr

import (
	"github.com/foliokit/folio/internal/catalog"
	"github.com/foliokit/folio/internal/jobs"
)

// Job kinds handled by this package.
const (
	KindPage     = "page_ocr"
	KindDocument = "document_ocr"
)

// Payload keys.
const (
	payloadPageID     = "page_id"
	payloadDocumentID = "document_id"
	payloadForce      = "force"
)

// NewPageJob builds a page recognition job. With force set, stored results
// are cleared first so the page runs through the engine again.
func NewPageJob(pageID string, force bool) jobs.Job {
	payload := map[string]string{payloadPageID: pageID}
	if force {
		payload[payloadForce] = "true"
	}
	return jobs.NewJob(KindPage, payload)
}

// NewDocumentJob builds a document fan-out job.
func NewDocumentJob(documentID string) jobs.Job {
	return jobs.NewJob(KindDocument, map[string]string{payloadDocumentID: documentID})
}

// Register wires both handlers into the registry.
func Register(reg *jobs.Registry) {
	reg.Register(KindPage, HandlePage)
	reg.Register(KindDocument, HandleDocument)
}

// PageResult is the structured outcome of one page job. Failures carry it
// too, alongside the retryable error, so callers can report what happened
// without re-reading the catalog.
type PageResult struct {
	PageID           string             `json:"page_id"`
	DocumentID       string             `json:"document_id"`
	PageNumber       int                `json:"page_number"`
	Status           catalog.PageStatus `json:"status"`
	AlreadyProcessed bool               `json:"already_processed"`
	Characters       int                `json:"characters"`
	Confidence       float64            `json:"confidence"`
	Rotation         float64            `json:"rotation"`
	FailureReason    string             `json:"failure_reason,omitempty"`
}

// DocumentResult reports a document fan-out.
type DocumentResult struct {
	DocumentID      string   `json:"document_id"`
	Title           string   `json:"title"`
	PagesDispatched int      `json:"pages_dispatched"`
	JobIDs          []string `json:"job_ids,omitempty"`
	Skipped         []string `json:"skipped,omitempty"`
	SubmitErrors    []string `json:"submit_errors,omitempty"`
	Message         string   `json:"message,omitempty"`
}

func completedResult(page *catalog.Page, already bool) *PageResult {
	r := &PageResult{
		PageID:           page.ID,
		DocumentID:       page.DocumentID,
		PageNumber:       page.PageNumber,
		Status:           page.Status,
		AlreadyProcessed: already,
		Characters:       len(page.OCRText),
		Rotation:         page.RotationApplied,
	}
	if page.OCRConfidence != nil {
		r.Confidence = *page.OCRConfidence
	}
	return r
}

func failedResult(page *catalog.Page, cause error) *PageResult {
	return &PageResult{
		PageID:        page.ID,
		DocumentID:    page.DocumentID,
		PageNumber:    page.PageNumber,
		Status:        catalog.PageStatusFailed,
		FailureReason: cause.Error(),
	}
}
