package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSnapshot_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	doc := createTestDocument(t, store)
	p1 := createTestPage(t, store, doc.ID, 1)
	createTestPage(t, store, doc.ID, 2)
	store.CompletePage(p1.ID, "recognized", 92.5, 270)
	store.RecomputeDocumentStatus(doc.ID)

	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := store.SaveSnapshot(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadStore(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	gotDoc, err := loaded.GetDocument(doc.ID)
	if err != nil {
		t.Fatalf("document missing after load: %v", err)
	}
	if gotDoc.Title != doc.Title {
		t.Errorf("title = %q, want %q", gotDoc.Title, doc.Title)
	}

	gotPage, err := loaded.GetPage(p1.ID)
	if err != nil {
		t.Fatalf("page missing after load: %v", err)
	}
	if gotPage.OCRText != "recognized" {
		t.Errorf("text = %q, want %q", gotPage.OCRText, "recognized")
	}
	if gotPage.OCRConfidence == nil || *gotPage.OCRConfidence != 92.5 {
		t.Errorf("confidence = %v, want 92.5", gotPage.OCRConfidence)
	}
	if gotPage.RotationApplied != 270 {
		t.Errorf("rotation = %f, want 270", gotPage.RotationApplied)
	}

	pages, _ := loaded.ListPages(doc.ID)
	if len(pages) != 2 {
		t.Errorf("got %d pages, want 2", len(pages))
	}
}

func TestLoadStore_MissingFileIsEmpty(t *testing.T) {
	store, err := LoadStore(filepath.Join(t.TempDir(), "nope", "catalog.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	docs, err := store.ListDocuments()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected empty catalog, got %d documents", len(docs))
	}
}

// A crash mid-recognition leaves pages processing; reload must hand them
// back to dispatch as pending.
func TestLoadStore_DemotesProcessingPages(t *testing.T) {
	store := newTestStore(t)
	doc := createTestDocument(t, store)
	page := createTestPage(t, store, doc.ID, 1)
	if _, err := store.MarkPageProcessing(page.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "catalog.json")
	if err := store.SaveSnapshot(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := LoadStore(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	got, err := loaded.GetPage(page.ID)
	if err != nil {
		t.Fatalf("page missing after load: %v", err)
	}
	if got.Status != PageStatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
}

func TestFlusher(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(t.TempDir(), "catalog.json")

	flusher := NewFlusher(FlusherConfig{
		Store:    store,
		Path:     path,
		Interval: 10 * time.Millisecond,
	})
	flusher.Start(context.Background())

	doc := createTestDocument(t, store)

	// The write-behind loop should persist the mutation shortly.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	flusher.Stop()

	loaded, err := LoadStore(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := loaded.GetDocument(doc.ID); err != nil {
		t.Errorf("document not flushed: %v", err)
	}
}

func TestFlusher_StopFlushesPending(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(t.TempDir(), "catalog.json")

	flusher := NewFlusher(FlusherConfig{
		Store:    store,
		Path:     path,
		Interval: time.Hour, // never fires during the test
	})
	flusher.Start(context.Background())

	doc := createTestDocument(t, store)
	flusher.Stop()

	loaded, err := LoadStore(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if _, err := loaded.GetDocument(doc.ID); err != nil {
		t.Errorf("pending write lost on stop: %v", err)
	}
}
