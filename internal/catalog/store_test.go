package catalog

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore()
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

func createTestDocument(t *testing.T, store *Store) *Document {
	t.Helper()
	doc := &Document{Title: "Parish Register 1843"}
	if err := store.CreateDocument(doc); err != nil {
		t.Fatalf("failed to create document: %v", err)
	}
	return doc
}

func createTestPage(t *testing.T, store *Store, docID string, number int) *Page {
	t.Helper()
	page := &Page{
		DocumentID:       docID,
		PageNumber:       number,
		AssetPath:        fmt.Sprintf("/assets/%s/page%03d.png", docID, number),
		OriginalFilename: fmt.Sprintf("scan_%03d.png", number),
	}
	if err := store.CreatePage(page); err != nil {
		t.Fatalf("failed to create page %d: %v", number, err)
	}
	return page
}

func TestStore_CreateDocument(t *testing.T) {
	store := newTestStore(t)

	t.Run("assigns id and defaults", func(t *testing.T) {
		doc := &Document{Title: "Baptism Records"}
		if err := store.CreateDocument(doc); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.ID == "" {
			t.Error("expected assigned id")
		}
		if doc.Language != DefaultLanguage {
			t.Errorf("language = %q, want %q", doc.Language, DefaultLanguage)
		}
		if doc.CreatedAt.IsZero() {
			t.Error("expected assigned creation time")
		}
	})

	t.Run("rejects malformed id", func(t *testing.T) {
		doc := &Document{ID: "not-a-uuid", Title: "Bad"}
		err := store.CreateDocument(doc)
		if !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID, got %v", err)
		}
	})
}

func TestStore_GetDocument(t *testing.T) {
	store := newTestStore(t)
	doc := createTestDocument(t, store)

	t.Run("found", func(t *testing.T) {
		got, err := store.GetDocument(doc.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Title != doc.Title {
			t.Errorf("title = %q, want %q", got.Title, doc.Title)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := store.GetDocument(NewID())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		_, err := store.GetDocument("garbage")
		if !errors.Is(err, ErrInvalidID) {
			t.Errorf("expected ErrInvalidID, got %v", err)
		}
	})

	t.Run("returned document is a copy", func(t *testing.T) {
		got, _ := store.GetDocument(doc.ID)
		got.Title = "mutated"
		again, _ := store.GetDocument(doc.ID)
		if again.Title != doc.Title {
			t.Error("mutating a returned document leaked into the store")
		}
	})
}

func TestStore_DeleteDocument_Cascades(t *testing.T) {
	store := newTestStore(t)
	doc := createTestDocument(t, store)
	page := createTestPage(t, store, doc.ID, 1)
	createTestPage(t, store, doc.ID, 2)

	if err := store.DeleteDocument(doc.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := store.GetDocument(doc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("document still present after delete: %v", err)
	}
	if _, err := store.GetPage(page.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("page survived document delete: %v", err)
	}
}

func TestStore_CreatePage(t *testing.T) {
	store := newTestStore(t)
	doc := createTestDocument(t, store)

	t.Run("starts pending", func(t *testing.T) {
		page := createTestPage(t, store, doc.ID, 1)
		if page.Status != PageStatusPending {
			t.Errorf("status = %q, want %q", page.Status, PageStatusPending)
		}
		if page.OCRCompleted {
			t.Error("new page must not be completed")
		}
	})

	t.Run("rejects duplicate page number", func(t *testing.T) {
		page := &Page{DocumentID: doc.ID, PageNumber: 1, AssetPath: "/x.png"}
		err := store.CreatePage(page)
		if !errors.Is(err, ErrDuplicatePageNumber) {
			t.Errorf("expected ErrDuplicatePageNumber, got %v", err)
		}
	})

	t.Run("same number in another document is fine", func(t *testing.T) {
		other := createTestDocument(t, store)
		page := &Page{DocumentID: other.ID, PageNumber: 1, AssetPath: "/y.png"}
		if err := store.CreatePage(page); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("rejects non-positive page number", func(t *testing.T) {
		page := &Page{DocumentID: doc.ID, PageNumber: 0, AssetPath: "/z.png"}
		if err := store.CreatePage(page); err == nil {
			t.Error("expected error for page number 0")
		}
	})

	t.Run("rejects unknown document", func(t *testing.T) {
		page := &Page{DocumentID: NewID(), PageNumber: 1, AssetPath: "/z.png"}
		if err := store.CreatePage(page); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_ListPages_OrderedByNumber(t *testing.T) {
	store := newTestStore(t)
	doc := createTestDocument(t, store)
	createTestPage(t, store, doc.ID, 3)
	createTestPage(t, store, doc.ID, 1)
	createTestPage(t, store, doc.ID, 2)

	pages, err := store.ListPages(doc.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	for i, want := range []int{1, 2, 3} {
		if pages[i].PageNumber != want {
			t.Errorf("pages[%d].PageNumber = %d, want %d", i, pages[i].PageNumber, want)
		}
	}
}

func TestStore_CompletePage(t *testing.T) {
	store := newTestStore(t)
	doc := createTestDocument(t, store)
	page := createTestPage(t, store, doc.ID, 1)

	t.Run("first completion wins", func(t *testing.T) {
		got, won, err := store.CompletePage(page.ID, "recognized text", 91.5, 180)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !won {
			t.Fatal("expected first completion to win")
		}
		if got.OCRText != "recognized text" {
			t.Errorf("text = %q, want %q", got.OCRText, "recognized text")
		}
		if got.OCRConfidence == nil || *got.OCRConfidence != 91.5 {
			t.Errorf("confidence = %v, want 91.5", got.OCRConfidence)
		}
		if got.RotationApplied != 180 {
			t.Errorf("rotation = %f, want 180", got.RotationApplied)
		}
		if got.Status != PageStatusCompleted || !got.OCRCompleted {
			t.Errorf("page not marked completed: status=%q completed=%v", got.Status, got.OCRCompleted)
		}
	})

	t.Run("second completion keeps first values", func(t *testing.T) {
		got, won, err := store.CompletePage(page.ID, "other text", 12.0, 90)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if won {
			t.Fatal("second completion must not win")
		}
		if got.OCRText != "recognized text" {
			t.Errorf("text overwritten: %q", got.OCRText)
		}
		if *got.OCRConfidence != 91.5 {
			t.Errorf("confidence overwritten: %f", *got.OCRConfidence)
		}
	})
}

func TestStore_PageStateTransitions(t *testing.T) {
	store := newTestStore(t)
	doc := createTestDocument(t, store)

	t.Run("processing from pending", func(t *testing.T) {
		page := createTestPage(t, store, doc.ID, 1)
		got, err := store.MarkPageProcessing(page.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != PageStatusProcessing {
			t.Errorf("status = %q, want processing", got.Status)
		}
	})

	t.Run("processing from failed", func(t *testing.T) {
		page := createTestPage(t, store, doc.ID, 2)
		if _, err := store.MarkPageFailed(page.ID, "engine crashed"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := store.MarkPageProcessing(page.ID)
		if err != nil {
			t.Fatalf("failed page should re-enter processing: %v", err)
		}
		if got.Status != PageStatusProcessing {
			t.Errorf("status = %q, want processing", got.Status)
		}
	})

	t.Run("completed page refuses processing", func(t *testing.T) {
		page := createTestPage(t, store, doc.ID, 3)
		if _, _, err := store.CompletePage(page.ID, "text", 80, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_, err := store.MarkPageProcessing(page.ID)
		if !errors.Is(err, ErrAlreadyCompleted) {
			t.Errorf("expected ErrAlreadyCompleted, got %v", err)
		}
	})

	t.Run("failure records reason", func(t *testing.T) {
		page := createTestPage(t, store, doc.ID, 4)
		got, err := store.MarkPageFailed(page.ID, "source image missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Status != PageStatusFailed {
			t.Errorf("status = %q, want failed", got.Status)
		}
		if got.FailureReason != "source image missing" {
			t.Errorf("reason = %q", got.FailureReason)
		}
	})

	t.Run("failure cannot demote a completed page", func(t *testing.T) {
		page := createTestPage(t, store, doc.ID, 5)
		if _, _, err := store.CompletePage(page.ID, "text", 80, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got, err := store.MarkPageFailed(page.ID, "late failure")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.OCRCompleted || got.Status != PageStatusCompleted {
			t.Error("late failure demoted a completed page")
		}
	})
}

func TestStore_ResetPageOCR(t *testing.T) {
	store := newTestStore(t)
	doc := createTestDocument(t, store)
	page := createTestPage(t, store, doc.ID, 1)

	if _, _, err := store.CompletePage(page.ID, "text", 88, 90); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := store.ResetPageOCR(page.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.OCRCompleted || got.Status != PageStatusPending {
		t.Errorf("reset page not pending: status=%q completed=%v", got.Status, got.OCRCompleted)
	}
	if got.OCRText != "" || got.OCRConfidence != nil || got.RotationApplied != 0 {
		t.Error("reset did not clear recognition results")
	}
}

func TestStore_RecomputeDocumentStatus(t *testing.T) {
	t.Run("no pages is incomplete", func(t *testing.T) {
		store := newTestStore(t)
		doc := createTestDocument(t, store)
		flag, err := store.RecomputeDocumentStatus(doc.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if flag {
			t.Error("document with no pages must not be complete")
		}
	})

	t.Run("all pages complete", func(t *testing.T) {
		store := newTestStore(t)
		doc := createTestDocument(t, store)
		p1 := createTestPage(t, store, doc.ID, 1)
		p2 := createTestPage(t, store, doc.ID, 2)
		store.CompletePage(p1.ID, "a", 90, 0)
		store.CompletePage(p2.ID, "b", 85, 0)

		flag, err := store.RecomputeDocumentStatus(doc.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !flag {
			t.Error("expected complete document")
		}
		got, _ := store.GetDocument(doc.ID)
		if !got.OCRCompleted {
			t.Error("flag not persisted")
		}
	})

	t.Run("one incomplete page", func(t *testing.T) {
		store := newTestStore(t)
		doc := createTestDocument(t, store)
		p1 := createTestPage(t, store, doc.ID, 1)
		createTestPage(t, store, doc.ID, 2)
		store.CompletePage(p1.ID, "a", 90, 0)

		flag, err := store.RecomputeDocumentStatus(doc.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if flag {
			t.Error("expected incomplete document")
		}
	})

	t.Run("flag flips back after reset", func(t *testing.T) {
		store := newTestStore(t)
		doc := createTestDocument(t, store)
		page := createTestPage(t, store, doc.ID, 1)
		store.CompletePage(page.ID, "a", 90, 0)
		if flag, _ := store.RecomputeDocumentStatus(doc.ID); !flag {
			t.Fatal("expected complete document")
		}

		store.ResetPageOCR(page.ID)
		flag, err := store.RecomputeDocumentStatus(doc.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if flag {
			t.Error("flag must recompute to false after reset")
		}
	})

	t.Run("concurrent sibling completions", func(t *testing.T) {
		store := newTestStore(t)
		doc := createTestDocument(t, store)

		const n = 16
		pages := make([]*Page, n)
		for i := 0; i < n; i++ {
			pages[i] = createTestPage(t, store, doc.ID, i+1)
		}

		var wg sync.WaitGroup
		for _, p := range pages {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, _, err := store.CompletePage(id, "text", 75, 0); err != nil {
					t.Errorf("complete failed: %v", err)
				}
				if _, err := store.RecomputeDocumentStatus(doc.ID); err != nil {
					t.Errorf("recompute failed: %v", err)
				}
			}(p.ID)
		}
		wg.Wait()

		got, _ := store.GetDocument(doc.ID)
		if !got.OCRCompleted {
			t.Error("document flag stale after concurrent completions")
		}
	})
}

func TestWriteTxn_SetPageNumber(t *testing.T) {
	t.Run("rejects collision with live number", func(t *testing.T) {
		store := newTestStore(t)
		doc := createTestDocument(t, store)
		createTestPage(t, store, doc.ID, 1)
		p2 := createTestPage(t, store, doc.ID, 2)

		tx := store.BeginWrite()
		defer tx.Abort()
		err := tx.SetPageNumber(p2.ID, 1)
		if !errors.Is(err, ErrDuplicatePageNumber) {
			t.Errorf("expected ErrDuplicatePageNumber, got %v", err)
		}
	})

	t.Run("swap via temporary numbers", func(t *testing.T) {
		store := newTestStore(t)
		doc := createTestDocument(t, store)
		p1 := createTestPage(t, store, doc.ID, 1)
		p2 := createTestPage(t, store, doc.ID, 2)

		tx := store.BeginWrite()
		// Phase one: move both out of the live range.
		if err := tx.SetPageNumber(p1.ID, 10000); err != nil {
			t.Fatalf("phase one failed: %v", err)
		}
		if err := tx.SetPageNumber(p2.ID, 10001); err != nil {
			t.Fatalf("phase one failed: %v", err)
		}
		// Phase two: assign swapped targets.
		if err := tx.SetPageNumber(p1.ID, 2); err != nil {
			t.Fatalf("phase two failed: %v", err)
		}
		if err := tx.SetPageNumber(p2.ID, 1); err != nil {
			t.Fatalf("phase two failed: %v", err)
		}
		tx.Commit()

		got1, _ := store.GetPage(p1.ID)
		got2, _ := store.GetPage(p2.ID)
		if got1.PageNumber != 2 || got2.PageNumber != 1 {
			t.Errorf("swap failed: p1=%d p2=%d", got1.PageNumber, got2.PageNumber)
		}
	})

	t.Run("abort discards changes", func(t *testing.T) {
		store := newTestStore(t)
		doc := createTestDocument(t, store)
		page := createTestPage(t, store, doc.ID, 1)

		tx := store.BeginWrite()
		if err := tx.SetPageNumber(page.ID, 42); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tx.Abort()

		got, _ := store.GetPage(page.ID)
		if got.PageNumber != 1 {
			t.Errorf("aborted change persisted: %d", got.PageNumber)
		}
	})

	t.Run("direct swap without temp numbers is refused", func(t *testing.T) {
		store := newTestStore(t)
		doc := createTestDocument(t, store)
		p1 := createTestPage(t, store, doc.ID, 1)
		_ = createTestPage(t, store, doc.ID, 2)

		tx := store.BeginWrite()
		defer tx.Abort()
		if err := tx.SetPageNumber(p1.ID, 2); !errors.Is(err, ErrDuplicatePageNumber) {
			t.Errorf("expected ErrDuplicatePageNumber, got %v", err)
		}
	})
}

func TestPagePredicates(t *testing.T) {
	t.Run("CanProcessOCR", func(t *testing.T) {
		tests := []struct {
			name string
			page Page
			want bool
		}{
			{"ready", Page{AssetPath: "/a.png"}, true},
			{"no asset", Page{}, false},
			{"already completed", Page{AssetPath: "/a.png", OCRCompleted: true}, false},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if got := tt.page.CanProcessOCR(); got != tt.want {
					t.Errorf("CanProcessOCR() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("ValidateForOCR", func(t *testing.T) {
		completed := Page{AssetPath: "/a.png", OCRCompleted: true}
		if err := completed.ValidateForOCR(); !errors.Is(err, ErrAlreadyCompleted) {
			t.Errorf("expected ErrAlreadyCompleted, got %v", err)
		}

		noAsset := Page{}
		if err := noAsset.ValidateForOCR(); !errors.Is(err, ErrNoAsset) {
			t.Errorf("expected ErrNoAsset, got %v", err)
		}

		ready := Page{AssetPath: "/a.png"}
		if err := ready.ValidateForOCR(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestDocumentProgress(t *testing.T) {
	if got := DocumentProgress(nil); got != nil {
		t.Errorf("expected nil progress for no pages, got %+v", got)
	}

	pages := []*Page{
		{OCRCompleted: true},
		{OCRCompleted: false},
		{OCRCompleted: true},
		{OCRCompleted: true},
	}
	got := DocumentProgress(pages)
	if got.Completed != 3 || got.Total != 4 {
		t.Errorf("progress = %d/%d, want 3/4", got.Completed, got.Total)
	}
	if got.Percentage != 75 {
		t.Errorf("percentage = %f, want 75", got.Percentage)
	}
}
