package catalog

import "fmt"

// RecomputeDocumentStatus re-derives a document's completion flag from the
// current state of all its pages and stores it. It never increments a
// counter: two sibling pages completing at nearly the same instant both
// trigger a full recompute, so the flag can never go stale. Safe to invoke
// concurrently and repeatedly.
func (s *Store) RecomputeDocumentStatus(documentID string) (bool, error) {
	if err := ParseID(documentID); err != nil {
		return false, err
	}

	txn := s.db.Txn(true)
	defer txn.Abort()

	raw, err := txn.First(tableDocuments, indexID, documentID)
	if err != nil {
		return false, fmt.Errorf("failed to read document: %w", err)
	}
	if raw == nil {
		return false, fmt.Errorf("document %s: %w", documentID, ErrNotFound)
	}
	doc := raw.(*Document)

	pages, err := listPages(txn, documentID)
	if err != nil {
		return false, err
	}

	completed := 0
	for _, p := range pages {
		if p.OCRCompleted {
			completed++
		}
	}
	flag := len(pages) > 0 && completed == len(pages)

	if doc.OCRCompleted == flag {
		return flag, nil
	}

	updated := doc.clone()
	updated.OCRCompleted = flag
	if err := txn.Insert(tableDocuments, updated); err != nil {
		return false, fmt.Errorf("failed to update document: %w", err)
	}
	txn.Commit()
	s.notifyWrite()
	return flag, nil
}
