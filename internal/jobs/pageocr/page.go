package pageocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/foliokit/folio/internal/catalog"
	"github.com/foliokit/folio/internal/confidence"
	"github.com/foliokit/folio/internal/engine"
	"github.com/foliokit/folio/internal/jobs"
	"github.com/foliokit/folio/internal/preprocess"
	"github.com/foliokit/folio/internal/svcctx"
)

// HandlePage runs the recognition pipeline for one page: load the asset,
// normalize, correct orientation, recognize, aggregate confidence, persist.
//
// The handler is idempotent. A page that already completed returns its
// stored outcome without invoking the engine, which makes at-least-once
// delivery and crash replays safe.
func HandlePage(ctx context.Context, job jobs.Job) (any, error) {
	store := svcctx.CatalogFrom(ctx)
	if store == nil {
		return nil, fmt.Errorf("catalog not in context")
	}
	logger := svcctx.LoggerFrom(ctx)
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("job_id", job.ID)

	pageID := job.Payload[payloadPageID]
	if pageID == "" {
		return nil, fmt.Errorf("missing %s in payload", payloadPageID)
	}
	force := job.Payload[payloadForce] == "true"

	page, err := store.GetPage(pageID)
	if err != nil {
		return nil, fmt.Errorf("load page: %w", err)
	}

	if force && page.OCRCompleted {
		if page, err = store.ResetPageOCR(pageID); err != nil {
			return nil, fmt.Errorf("reset page: %w", err)
		}
		logger.Info("cleared stored recognition for forced rerun", "page_id", pageID)
	}

	// Idempotent fast path: completed pages report their stored outcome.
	if page.OCRCompleted {
		logger.Info("page already processed, skipping",
			"page_id", pageID, "page_number", page.PageNumber)
		return completedResult(page, true), nil
	}

	if page.AssetPath == "" {
		return nil, fmt.Errorf("page %s: %w", pageID, catalog.ErrNoAsset)
	}

	if page, err = store.MarkPageProcessing(pageID); err != nil {
		if errors.Is(err, catalog.ErrAlreadyCompleted) {
			// A sibling run finished the page between the fast path and
			// here. Report its outcome.
			if page, err = store.GetPage(pageID); err != nil {
				return nil, fmt.Errorf("reload page: %w", err)
			}
			return completedResult(page, true), nil
		}
		return nil, fmt.Errorf("mark processing: %w", err)
	}

	doc, err := store.GetDocument(page.DocumentID)
	if err != nil {
		return failPage(store, logger, page, fmt.Errorf("load document: %w", err))
	}
	language := doc.Language
	if language == "" {
		language = catalog.DefaultLanguage
	}

	assetStore := svcctx.AssetsFrom(ctx)
	if assetStore == nil {
		return nil, fmt.Errorf("asset store not in context")
	}
	pre := svcctx.PreprocessorFrom(ctx)
	if pre == nil {
		return nil, fmt.Errorf("preprocessor not in context")
	}
	eng := svcctx.EngineFrom(ctx)
	if eng == nil {
		return nil, fmt.Errorf("recognition engine not in context")
	}

	data, err := assetStore.Load(page.AssetPath)
	if err != nil {
		return failPage(store, logger, page, err)
	}

	img, err := pre.Normalize(ctx, data, page.OriginalFilename)
	if err != nil {
		return failPage(store, logger, page, processingFailure(err))
	}

	rotation := detectRotation(ctx, eng, logger, img)
	if rotation != 0 {
		img = preprocess.CorrectOrientation(img, rotation)
		logger.Info("corrected page orientation", "page_id", pageID, "rotation", rotation)
	}
	img = preprocess.Enhance(img)

	encoded, err := preprocess.EncodePNG(img)
	if err != nil {
		return failPage(store, logger, page, processingFailure(err))
	}

	res, err := eng.Recognize(ctx, encoded, language)
	if err != nil {
		return failPage(store, logger, page, processingFailure(err))
	}

	text := strings.TrimSpace(res.Text)
	conf := confidence.Aggregate(res.TokenConfidences)

	page, won, err := store.CompletePage(pageID, text, conf, rotation)
	if err != nil {
		return nil, fmt.Errorf("persist recognition: %w", err)
	}
	if !won {
		logger.Info("another run completed this page first", "page_id", pageID)
		return completedResult(page, true), nil
	}

	if _, err := store.RecomputeDocumentStatus(page.DocumentID); err != nil {
		logger.Warn("failed to recompute document status",
			"document_id", page.DocumentID, "error", err)
	}

	logger.Info("page recognition complete",
		"page_id", pageID,
		"page_number", page.PageNumber,
		"characters", len(text),
		"confidence", conf,
		"rotation", rotation)

	return completedResult(page, false), nil
}

// detectRotation asks the engine for an orientation estimate. Failures are
// absorbed: pages with sparse text often cannot be oriented, and recognition
// should proceed upright rather than fail the whole page.
func detectRotation(ctx context.Context, eng engine.Engine, logger *slog.Logger, img image.Image) float64 {
	encoded, err := preprocess.EncodePNG(img)
	if err != nil {
		logger.Warn("orientation detection skipped", "error", err)
		return 0
	}
	angle, err := eng.DetectOrientation(ctx, encoded)
	if err != nil {
		logger.Warn("orientation detection failed, assuming upright", "error", err)
		return 0
	}
	return angle
}

// failPage records the failure on the page and returns the structured
// outcome alongside a retryable error for the pool.
func failPage(store *catalog.Store, logger *slog.Logger, page *catalog.Page, cause error) (any, error) {
	failed, err := store.MarkPageFailed(page.ID, cause.Error())
	if err != nil {
		logger.Warn("failed to record page failure", "page_id", page.ID, "error", err)
		failed = page
	}
	logger.Warn("page recognition failed", "page_id", page.ID, "error", cause)
	return failedResult(failed, cause), jobs.Retryable(cause)
}

// processingFailure tags image and recognition errors so the failure
// taxonomy stays uniform regardless of which step raised them.
func processingFailure(err error) error {
	if errors.Is(err, engine.ErrProcessingFailure) {
		return err
	}
	return fmt.Errorf("%w: %v", engine.ErrProcessingFailure, err)
}
