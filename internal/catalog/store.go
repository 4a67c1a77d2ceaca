package catalog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	memdb "github.com/hashicorp/go-memdb"
)

const (
	tableDocuments = "documents"
	tablePages     = "pages"

	indexID           = "id"
	indexDocument     = "document"
	indexDocumentPage = "document_page"
)

// schema defines the in-memory tables. The compound document_page index is
// the per-document page numbering invariant; every write that touches a
// page number re-checks it inside the write transaction.
func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableDocuments: {
				Name: tableDocuments,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
				},
			},
			tablePages: {
				Name: tablePages,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "ID"},
					},
					indexDocument: {
						Name:    indexDocument,
						Indexer: &memdb.StringFieldIndex{Field: "DocumentID"},
					},
					indexDocumentPage: {
						Name:   indexDocumentPage,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "DocumentID"},
								&memdb.IntFieldIndex{Field: "PageNumber"},
							},
						},
					},
				},
			},
		},
	}
}

// Store is the catalog repository. Reads run against lock-free MVCC
// snapshots; writes serialize through memdb's single-writer transaction.
type Store struct {
	db *memdb.MemDB

	mu      sync.Mutex
	onWrite []func()
}

// NewStore creates an empty catalog.
func NewStore() (*Store, error) {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog schema: %w", err)
	}
	return &Store{db: db}, nil
}

// OnWrite registers a callback invoked after every committed mutation.
// The snapshot flusher subscribes here.
func (s *Store) OnWrite(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onWrite = append(s.onWrite, fn)
}

func (s *Store) notifyWrite() {
	s.mu.Lock()
	callbacks := make([]func(), len(s.onWrite))
	copy(callbacks, s.onWrite)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn()
	}
}

// CreateDocument inserts a new document, assigning an id and timestamp
// when absent.
func (s *Store) CreateDocument(doc *Document) error {
	if doc.ID == "" {
		doc.ID = NewID()
	} else if err := ParseID(doc.ID); err != nil {
		return err
	}
	if doc.Language == "" {
		doc.Language = DefaultLanguage
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := txn.Insert(tableDocuments, doc.clone()); err != nil {
		return fmt.Errorf("failed to insert document: %w", err)
	}
	txn.Commit()
	s.notifyWrite()
	return nil
}

// GetDocument loads one document by id.
func (s *Store) GetDocument(id string) (*Document, error) {
	if err := ParseID(id); err != nil {
		return nil, err
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First(tableDocuments, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return raw.(*Document).clone(), nil
}

// ListDocuments returns all documents ordered by creation time.
func (s *Store) ListDocuments() ([]*Document, error) {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get(tableDocuments, indexID)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	var docs []*Document
	for raw := it.Next(); raw != nil; raw = it.Next() {
		docs = append(docs, raw.(*Document).clone())
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].CreatedAt.Before(docs[j].CreatedAt)
	})
	return docs, nil
}

// DeleteDocument removes a document and cascades to its pages.
func (s *Store) DeleteDocument(id string) error {
	if err := ParseID(id); err != nil {
		return err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableDocuments, indexID, id)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	if raw == nil {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}

	if _, err := txn.DeleteAll(tablePages, indexDocument, id); err != nil {
		return fmt.Errorf("failed to delete pages: %w", err)
	}
	if err := txn.Delete(tableDocuments, raw); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	txn.Commit()
	s.notifyWrite()
	return nil
}

// CreatePage inserts a new page after checking the numbering invariant.
func (s *Store) CreatePage(page *Page) error {
	if page.ID == "" {
		page.ID = NewID()
	} else if err := ParseID(page.ID); err != nil {
		return err
	}
	if err := ParseID(page.DocumentID); err != nil {
		return err
	}
	if page.PageNumber < 1 {
		return fmt.Errorf("page number %d must be positive", page.PageNumber)
	}
	if page.Status == "" {
		page.Status = PageStatusPending
	}
	if page.CreatedAt.IsZero() {
		page.CreatedAt = time.Now().UTC()
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	doc, err := txn.First(tableDocuments, indexID, page.DocumentID)
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document %s: %w", page.DocumentID, ErrNotFound)
	}

	if err := checkPageNumberFree(txn, page.DocumentID, page.PageNumber, page.ID); err != nil {
		return err
	}

	if err := txn.Insert(tablePages, page.clone()); err != nil {
		return fmt.Errorf("failed to insert page: %w", err)
	}
	txn.Commit()
	s.notifyWrite()
	return nil
}

// GetPage loads one page by id.
func (s *Store) GetPage(id string) (*Page, error) {
	if err := ParseID(id); err != nil {
		return nil, err
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	page, err := getPage(txn, id)
	if err != nil {
		return nil, err
	}
	return page.clone(), nil
}

// ListPages returns a document's pages ordered by page number.
func (s *Store) ListPages(documentID string) ([]*Page, error) {
	if err := ParseID(documentID); err != nil {
		return nil, err
	}

	txn := s.db.Txn(false)
	defer txn.Abort()

	return listPages(txn, documentID)
}

// MaxPageNumber returns the highest page number in a document, or 0 for a
// document with no pages.
func (s *Store) MaxPageNumber(documentID string) (int, error) {
	pages, err := s.ListPages(documentID)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, p := range pages {
		if p.PageNumber > max {
			max = p.PageNumber
		}
	}
	return max, nil
}

// MarkPageProcessing transitions a page to the processing state. Pending,
// failed, and stale processing pages may enter; completed pages may not.
func (s *Store) MarkPageProcessing(id string) (*Page, error) {
	if err := ParseID(id); err != nil {
		return nil, err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	page, err := getPage(txn, id)
	if err != nil {
		return nil, err
	}
	if page.OCRCompleted {
		return nil, fmt.Errorf("page %s: %w", id, ErrAlreadyCompleted)
	}

	updated := page.clone()
	updated.Status = PageStatusProcessing
	if err := txn.Insert(tablePages, updated); err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	txn.Commit()
	s.notifyWrite()
	return updated.clone(), nil
}

// MarkPageFailed records a retryable failure. A page that completed in the
// meantime keeps its completed state.
func (s *Store) MarkPageFailed(id string, reason string) (*Page, error) {
	if err := ParseID(id); err != nil {
		return nil, err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	page, err := getPage(txn, id)
	if err != nil {
		return nil, err
	}
	if page.OCRCompleted {
		return page.clone(), nil
	}

	updated := page.clone()
	updated.Status = PageStatusFailed
	updated.FailureReason = reason
	if err := txn.Insert(tablePages, updated); err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	txn.Commit()
	s.notifyWrite()
	return updated.clone(), nil
}

// CompletePage persists a successful recognition result. The first
// completion wins: when the page already completed, the stored values are
// returned unchanged and won is false.
func (s *Store) CompletePage(id string, text string, conf float64, rotation float64) (page *Page, won bool, err error) {
	if err := ParseID(id); err != nil {
		return nil, false, err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	current, err := getPage(txn, id)
	if err != nil {
		return nil, false, err
	}
	if current.OCRCompleted {
		return current.clone(), false, nil
	}

	updated := current.clone()
	updated.OCRText = text
	updated.OCRConfidence = &conf
	updated.RotationApplied = rotation
	updated.OCRCompleted = true
	updated.Status = PageStatusCompleted
	updated.FailureReason = ""
	if err := txn.Insert(tablePages, updated); err != nil {
		return nil, false, fmt.Errorf("failed to update page: %w", err)
	}
	txn.Commit()
	s.notifyWrite()
	return updated.clone(), true, nil
}

// ResetPageOCR clears recognition results so the page can be forced
// through the pipeline again.
func (s *Store) ResetPageOCR(id string) (*Page, error) {
	if err := ParseID(id); err != nil {
		return nil, err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	page, err := getPage(txn, id)
	if err != nil {
		return nil, err
	}

	updated := page.clone()
	updated.OCRText = ""
	updated.OCRConfidence = nil
	updated.RotationApplied = 0
	updated.OCRCompleted = false
	updated.Status = PageStatusPending
	updated.FailureReason = ""
	if err := txn.Insert(tablePages, updated); err != nil {
		return nil, fmt.Errorf("failed to update page: %w", err)
	}
	txn.Commit()
	s.notifyWrite()
	return updated.clone(), nil
}

// getPage loads a page inside an existing transaction.
func getPage(txn *memdb.Txn, id string) (*Page, error) {
	raw, err := txn.First(tablePages, indexID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("page %s: %w", id, ErrNotFound)
	}
	return raw.(*Page), nil
}

// listPages collects and orders a document's pages inside a transaction.
func listPages(txn *memdb.Txn, documentID string) ([]*Page, error) {
	it, err := txn.Get(tablePages, indexDocument, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}

	var pages []*Page
	for raw := it.Next(); raw != nil; raw = it.Next() {
		pages = append(pages, raw.(*Page).clone())
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].PageNumber < pages[j].PageNumber
	})
	return pages, nil
}

// checkPageNumberFree enforces the per-document numbering invariant for a
// prospective (document, number) pair, ignoring the page being moved.
func checkPageNumberFree(txn *memdb.Txn, documentID string, number int, pageID string) error {
	raw, err := txn.First(tablePages, indexDocumentPage, documentID, number)
	if err != nil {
		return fmt.Errorf("failed to check page number: %w", err)
	}
	if raw != nil && raw.(*Page).ID != pageID {
		return fmt.Errorf("document %s page %d: %w", documentID, number, ErrDuplicatePageNumber)
	}
	return nil
}
