package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/foliokit/folio/internal/api"
	"github.com/foliokit/folio/internal/ingest"
)

var (
	ingestMode     string
	ingestLanguage string
	ingestTitle    string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files or directories...]",
	Short: "Create documents from scanned files and run recognition",
	Long: `Ingest stages scanned files into the catalog and recognizes them.

In single_document mode every file becomes one page of a new document,
ordered by the page number resolved from its filename. In
multiple_documents mode each file becomes its own single-page document.
Directories are expanded one level deep.

Examples:
  folio ingest scans/                          # One document from a directory
  folio ingest scans/ --title "Parish Register 1882"
  folio ingest a.pdf b.pdf --mode multiple     # One document per file
  folio ingest scans/ --language nld           # Dutch-only recognition`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mode, err := ingest.ParseMode(ingestMode)
		if err != nil {
			return err
		}
		files, err := ingest.CollectFiles(args)
		if err != nil {
			return err
		}

		svcs, cleanup, err := buildServices()
		if err != nil {
			return err
		}
		defer cleanup()

		planner := ingest.NewPlanner(ingest.PlannerConfig{
			Catalog:          svcs.Catalog,
			Assets:           svcs.Assets,
			Queue:            svcs.Queue,
			Logger:           svcs.Logger,
			StageConcurrency: svcs.Config.Ingest.StageConcurrency,
			DefaultLanguage:  svcs.Config.Ingest.Language,
		})
		plan, err := planner.Plan(ctx, ingest.Request{
			Paths:    files,
			Mode:     mode,
			Language: ingestLanguage,
			Title:    ingestTitle,
		})
		if err != nil {
			return err
		}

		results, runErr := runPool(ctx, svcs)
		report := struct {
			Plan      *ingest.Result `json:"plan"`
			Processed processSummary `json:"processed"`
		}{plan, summarize(results)}

		if err := api.Output(report); err != nil {
			return err
		}
		if runErr != nil {
			return runErr
		}
		if report.Processed.Failed > 0 {
			return fmt.Errorf("%d of %d recognition jobs failed", report.Processed.Failed, report.Processed.Jobs)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestMode, "mode", string(ingest.ModeSingleDocument),
		"single_document or multiple_documents")
	ingestCmd.Flags().StringVar(&ingestLanguage, "language", "",
		"recognition language tag, e.g. eng, nld or eng+nld (default: from config)")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "",
		"document title for single_document mode (default: derived from the first filename)")

	rootCmd.AddCommand(ingestCmd)
}
