package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio/internal/api"
	"github.com/foliokit/folio/internal/renumber"
)

var (
	renumberDryRun     bool
	renumberDocumentID string
)

var renumberCmd = &cobra.Command{
	Use:   "renumber",
	Short: "Repair page numbers from original filenames",
	Long: `Renumber recomputes every page's number from its original filename
and fixes documents whose stored numbering disagrees. Corrections apply
per document in a two-phase update inside one transaction, so page
numbers stay unique throughout and a failing document never blocks the
others.

Examples:
  folio renumber --dry-run             # Report corrections without writing
  folio renumber                       # Apply corrections everywhere
  folio renumber --document-id <id>    # Repair a single document`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svcs, cleanup, err := buildServices()
		if err != nil {
			return err
		}
		defer cleanup()

		repairer := renumber.NewRepairer(svcs.Catalog, svcs.Logger)
		report, err := repairer.Run(cmd.Context(), renumber.Options{
			DryRun:     renumberDryRun,
			DocumentID: renumberDocumentID,
			TempOffset: svcs.Config.Renumber.TempOffset,
		})
		if err != nil {
			return err
		}

		if err := api.Output(report); err != nil {
			return err
		}
		if n := failedDocuments(report); n > 0 {
			return fmt.Errorf("%d of %d documents failed to renumber", n, report.DocumentsScanned)
		}
		return nil
	},
}

func failedDocuments(report *renumber.Report) int {
	n := 0
	for _, dr := range report.Documents {
		if dr.Err != "" {
			n++
		}
	}
	return n
}

func init() {
	renumberCmd.Flags().BoolVar(&renumberDryRun, "dry-run", false, "report corrections without writing")
	renumberCmd.Flags().StringVar(&renumberDocumentID, "document-id", "", "repair a single document")

	rootCmd.AddCommand(renumberCmd)
}
