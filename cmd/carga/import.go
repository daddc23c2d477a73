package main

import (
	"fmt"
	"path/filepath"

	"github.com/Veraticus/carga/internal/billing"
	"github.com/Veraticus/carga/internal/cli"
	"github.com/Veraticus/carga/internal/config"
	"github.com/Veraticus/carga/internal/ingest"
	"github.com/Veraticus/carga/internal/model"
	"github.com/Veraticus/carga/internal/sheetio"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func importCmd() *cobra.Command {
	var (
		sheet      string
		department string
		dedup      string
		maxErrors  int
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import billing spreadsheets",
		Long: `Read one or more billing exports (.xlsx, .xls or .csv), validate and
normalize every row, and store the accepted records.

Rows with problems are listed with their spreadsheet row number. Records are
written in chunks; a chunk that fails is reported without undoing the chunks
already written.`,
		Example: `  # Import February's export
  carga import febrero.xlsx

  # Tag the upload with a department and skip rows already stored
  carga import norte.xls --department Norte --dedup merge

  # Check a file without storing anything
  carga import febrero.csv --dry-run`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			v := viper.GetViper()

			if department != "" {
				v.Set(config.KeyDepartment, department)
			}
			if dedup != "" {
				v.Set(config.KeyDedup, dedup)
			}
			opts, err := config.LoadBillingOptions(v)
			if err != nil {
				return err
			}
			pipeline, err := billing.NewPipeline(opts)
			if err != nil {
				return err
			}

			readOpts := sheetio.Options{Sheet: sheet, HeaderRows: opts.HeaderRows}

			if dryRun {
				for _, path := range args {
					rows, err := sheetio.Open(path, readOpts)
					if err != nil {
						return err
					}
					report := &ingest.Report{
						Source: filepath.Base(path),
						Rows:   len(rows),
						Result: pipeline.Ingest(rows),
					}
					report.Summary = billing.Fold(report.Result.Accepted)
					report.Outcome = ingest.Classify(report)
					fmt.Fprintln(cmd.OutOrStdout(), cli.RenderImportReport(report, maxErrors))
				}
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			svc := ingest.NewService(store, pipeline, ingest.WithDepartment(opts.Department))

			failed := false
			for _, path := range args {
				bar := cli.NewSaveProgressBar(cmd.ErrOrStderr(), "Saving "+filepath.Base(path))
				report, err := svc.Import(ctx, sheetio.File{Path: path, Opts: readOpts}, bar.Callback())
				bar.Finish()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderImportReport(report, maxErrors))
				if report.Outcome == model.OutcomeProblems {
					failed = true
				}
			}

			if failed {
				return fmt.Errorf("some records could not be written; re-run the import with --dedup merge to retry only the missing ones")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet name (default: first sheet)")
	cmd.Flags().StringVar(&department, "department", "", "department tag for the imported records")
	cmd.Flags().StringVar(&dedup, "dedup", "", "duplicate policy: allow, merge or reject")
	cmd.Flags().IntVar(&maxErrors, "max-errors", 20, "rejected rows to list (0 lists all)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without storing")

	return cmd
}
