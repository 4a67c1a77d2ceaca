package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio/internal/api"
	"github.com/foliokit/folio/internal/jobs/pageocr"
)

var (
	processDocumentID string
	processPageID     string
	processAll        bool
	processForce      bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run recognition for pending pages",
	Long: `Process dispatches recognition jobs and drains them with the
worker pool. Completed pages are skipped; use --force with --page-id to
reset and reprocess a single page.

Examples:
  folio process --all                  # Every document with pending pages
  folio process --document-id <id>     # One document's pending pages
  folio process --page-id <id>         # A single page
  folio process --page-id <id> --force # Redo a completed page`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if processForce && processPageID == "" {
			return errors.New("--force requires --page-id")
		}

		svcs, cleanup, err := buildServices()
		if err != nil {
			return err
		}
		defer cleanup()

		switch {
		case processPageID != "":
			if err := svcs.Queue.Submit(pageocr.NewPageJob(processPageID, processForce)); err != nil {
				return err
			}
		case processDocumentID != "":
			if err := svcs.Queue.Submit(pageocr.NewDocumentJob(processDocumentID)); err != nil {
				return err
			}
		case processAll:
			docs, err := svcs.Catalog.ListDocuments()
			if err != nil {
				return err
			}
			submitted := 0
			for _, doc := range docs {
				if doc.OCRCompleted {
					continue
				}
				if err := svcs.Queue.Submit(pageocr.NewDocumentJob(doc.ID)); err != nil {
					return err
				}
				submitted++
			}
			if submitted == 0 {
				svcs.Logger.Info("nothing to process")
			}
		default:
			return errors.New("one of --page-id, --document-id or --all is required")
		}

		results, runErr := runPool(ctx, svcs)
		summary := summarize(results)

		if err := api.Output(summary); err != nil {
			return err
		}
		if runErr != nil {
			return runErr
		}
		if summary.Failed > 0 {
			return fmt.Errorf("%d of %d jobs failed", summary.Failed, summary.Jobs)
		}
		return nil
	},
}

func init() {
	processCmd.Flags().StringVar(&processDocumentID, "document-id", "", "process one document's pending pages")
	processCmd.Flags().StringVar(&processPageID, "page-id", "", "process a single page")
	processCmd.Flags().BoolVar(&processAll, "all", false, "process every document with pending pages")
	processCmd.Flags().BoolVar(&processForce, "force", false, "reset a completed page and reprocess it (with --page-id)")

	rootCmd.AddCommand(processCmd)
}
