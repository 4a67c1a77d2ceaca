package main

import (
	"github.com/spf13/cobra"

	"github.com/foliokit/folio/internal/api"
	"github.com/foliokit/folio/internal/catalog"
)

var statusDocumentID string

type documentStatus struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	Language      string  `json:"language"`
	Pages         int     `json:"pages"`
	Completed     int     `json:"completed"`
	Failed        int     `json:"failed"`
	OCRCompleted  bool    `json:"ocr_completed"`
	Progress      float64 `json:"progress_percent"`
	AvgConfidence float64 `json:"avg_confidence,omitempty"`
}

type statusReport struct {
	Documents []documentStatus `json:"documents"`
	Totals    struct {
		Documents      int `json:"documents"`
		Pages          int `json:"pages"`
		CompletedPages int `json:"completed_pages"`
	} `json:"totals"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show recognition progress per document",
	Long: `Status reports each document's recognition progress and average
page confidence, plus catalog totals. Read-only.

Examples:
  folio status                         # All documents
  folio status --document-id <id>      # One document
  folio status -o json                 # Machine-readable output`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, cleanup, err := buildServices()
		if err != nil {
			return err
		}
		defer cleanup()

		var docs []*catalog.Document
		if statusDocumentID != "" {
			doc, err := svcs.Catalog.GetDocument(statusDocumentID)
			if err != nil {
				return err
			}
			docs = []*catalog.Document{doc}
		} else {
			docs, err = svcs.Catalog.ListDocuments()
			if err != nil {
				return err
			}
		}

		report := statusReport{Documents: make([]documentStatus, 0, len(docs))}
		for _, doc := range docs {
			pages, err := svcs.Catalog.ListPages(doc.ID)
			if err != nil {
				return err
			}
			report.Documents = append(report.Documents, describeDocument(doc, pages))
			report.Totals.Pages += len(pages)
			for _, p := range pages {
				if p.OCRCompleted {
					report.Totals.CompletedPages++
				}
			}
		}
		report.Totals.Documents = len(docs)

		return api.Output(report)
	},
}

func describeDocument(doc *catalog.Document, pages []*catalog.Page) documentStatus {
	ds := documentStatus{
		ID:           doc.ID,
		Title:        doc.Title,
		Language:     doc.Language,
		Pages:        len(pages),
		OCRCompleted: doc.OCRCompleted,
	}

	confidenceSum := 0.0
	confidenceCount := 0
	for _, p := range pages {
		if p.OCRCompleted {
			ds.Completed++
		}
		if p.Status == catalog.PageStatusFailed {
			ds.Failed++
		}
		if p.OCRConfidence != nil {
			confidenceSum += *p.OCRConfidence
			confidenceCount++
		}
	}
	if progress := catalog.DocumentProgress(pages); progress != nil {
		ds.Progress = progress.Percentage
	}
	if confidenceCount > 0 {
		ds.AvgConfidence = confidenceSum / float64(confidenceCount)
	}
	return ds
}

func init() {
	statusCmd.Flags().StringVar(&statusDocumentID, "document-id", "", "show a single document")

	rootCmd.AddCommand(statusCmd)
}
