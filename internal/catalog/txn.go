package catalog

import (
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
)

// WriteTxn is a single catalog write transaction. The renumber repair runs
// each document's two-phase reassignment inside one WriteTxn so readers
// never observe an intermediate numbering, and a dry run is just an Abort.
type WriteTxn struct {
	store *Store
	txn   *memdb.Txn
	done  bool
}

// BeginWrite opens a write transaction. Exactly one of Commit or Abort
// must follow.
func (s *Store) BeginWrite() *WriteTxn {
	return &WriteTxn{store: s, txn: s.db.Txn(true)}
}

// GetPage loads a page, observing this transaction's own writes.
func (t *WriteTxn) GetPage(id string) (*Page, error) {
	if err := ParseID(id); err != nil {
		return nil, err
	}
	page, err := getPage(t.txn, id)
	if err != nil {
		return nil, err
	}
	return page.clone(), nil
}

// ListPages returns a document's pages as seen by this transaction.
func (t *WriteTxn) ListPages(documentID string) ([]*Page, error) {
	if err := ParseID(documentID); err != nil {
		return nil, err
	}
	return listPages(t.txn, documentID)
}

// SetPageNumber moves a page to a new number, enforcing the per-document
// uniqueness invariant at this intermediate step.
func (t *WriteTxn) SetPageNumber(pageID string, number int) error {
	if err := ParseID(pageID); err != nil {
		return err
	}
	if number < 1 {
		return fmt.Errorf("page number %d must be positive", number)
	}

	page, err := getPage(t.txn, pageID)
	if err != nil {
		return err
	}

	if err := checkPageNumberFree(t.txn, page.DocumentID, number, pageID); err != nil {
		return err
	}

	updated := page.clone()
	updated.PageNumber = number
	if err := t.txn.Insert(tablePages, updated); err != nil {
		return fmt.Errorf("failed to update page: %w", err)
	}
	return nil
}

// Commit makes the transaction's writes visible.
func (t *WriteTxn) Commit() {
	if t.done {
		return
	}
	t.done = true
	t.txn.Commit()
	t.store.notifyWrite()
}

// Abort discards the transaction's writes.
func (t *WriteTxn) Abort() {
	if t.done {
		return
	}
	t.done = true
	t.txn.Abort()
}
