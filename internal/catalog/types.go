// Package catalog stores documents and their scanned pages. It owns the
// per-document page numbering invariant and the document-level completion
// rollup.
package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Language tags accepted for recognition. Combined tags pass straight
// through to the engine.
const (
	LangEnglish      = "eng"
	LangDutch        = "nld"
	LangEnglishDutch = "eng+nld"

	DefaultLanguage = LangEnglishDutch
)

var (
	// ErrNotFound indicates the document or page id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrInvalidID indicates a malformed identifier.
	ErrInvalidID = errors.New("invalid identifier")

	// ErrDuplicatePageNumber indicates a write would give two pages of one
	// document the same page number.
	ErrDuplicatePageNumber = errors.New("duplicate page number in document")

	// ErrAlreadyCompleted rejects strict-path processing of a completed page.
	ErrAlreadyCompleted = errors.New("ocr already completed for this page")

	// ErrNoAsset indicates a page has no stored source asset.
	ErrNoAsset = errors.New("no source asset attached")
)

// PageStatus tracks a page through the recognition lifecycle.
type PageStatus string

const (
	PageStatusPending    PageStatus = "pending"
	PageStatusProcessing PageStatus = "processing"
	PageStatusCompleted  PageStatus = "completed"
	PageStatusFailed     PageStatus = "failed"
)

// Document is a multi-page scanned source.
type Document struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Language string `json:"language"`

	// OCRCompleted is derived: true iff the document has at least one page
	// and every page completed. Only RecomputeDocumentStatus writes it.
	OCRCompleted        bool `json:"ocr_completed"`
	ExtractionCompleted bool `json:"extraction_completed"`

	CreatedAt time.Time `json:"created_at"`
}

// Page is one scanned page of a document.
type Page struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`

	// PageNumber is a positive ordinal, unique within the document.
	PageNumber int `json:"page_number"`

	AssetPath        string `json:"asset_path"`
	OriginalFilename string `json:"original_filename"`

	Status        PageStatus `json:"status"`
	OCRCompleted  bool       `json:"ocr_completed"`
	OCRText       string     `json:"ocr_text"`
	OCRConfidence *float64   `json:"ocr_confidence,omitempty"`

	// RotationApplied is the correction angle in degrees applied before
	// recognition.
	RotationApplied float64 `json:"rotation_applied"`

	FailureReason string    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewID returns a fresh identifier.
func NewID() string {
	return uuid.New().String()
}

// ParseID validates an identifier from user input.
func ParseID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// CanProcessOCR reports whether the page is eligible for the normal
// dispatch path: it has a source asset and has not completed.
func (p *Page) CanProcessOCR() bool {
	return p.AssetPath != "" && !p.OCRCompleted
}

// ValidateForOCR is the strict entry-point check. Unlike the dispatch
// path's silent fast-path, it rejects completed pages outright.
func (p *Page) ValidateForOCR() error {
	if p.OCRCompleted {
		return ErrAlreadyCompleted
	}
	if p.AssetPath == "" {
		return ErrNoAsset
	}
	return nil
}

// CanProcessOCR reports whether any page of the document still needs
// recognition.
func (d *Document) CanProcessOCR(pages []*Page) bool {
	if d.OCRCompleted || len(pages) == 0 {
		return false
	}
	for _, p := range pages {
		if !p.OCRCompleted {
			return true
		}
	}
	return false
}

// Progress summarizes recognition completion for one document.
type Progress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

// DocumentProgress derives completion counts from a page snapshot.
// Returns nil for a document with no pages.
func DocumentProgress(pages []*Page) *Progress {
	if len(pages) == 0 {
		return nil
	}
	completed := 0
	for _, p := range pages {
		if p.OCRCompleted {
			completed++
		}
	}
	return &Progress{
		Completed:  completed,
		Total:      len(pages),
		Percentage: float64(completed) / float64(len(pages)) * 100,
	}
}

// clone helpers: memdb shares records across snapshots, so stored objects
// are never mutated in place.

func (d *Document) clone() *Document {
	c := *d
	return &c
}

func (p *Page) clone() *Page {
	c := *p
	if p.OCRConfidence != nil {
		v := *p.OCRConfidence
		c.OCRConfidence = &v
	}
	return &c
}
