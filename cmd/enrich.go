package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/enrich-cli/internal/export"
	"github.com/sells-group/enrich-cli/internal/fetcher"
	"github.com/sells-group/enrich-cli/internal/model"
)

var (
	enrichFile   string
	enrichOutput string
	enrichFormat string
	enrichLimit  int
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich a local company list and write the results",
	Long: `Reads company names from the first column of a CSV or XLSX file, runs
one enrichment job synchronously and writes the results table.

Examples:
  enrich-cli enrich --file companies.csv
  enrich-cli enrich --file companies.xlsx --format xlsx --output out.xlsx --limit 50`,
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initEnv(cfg, "enrich")
		if err != nil {
			return err
		}
		defer env.Close()

		return runEnrich(cmd.Context(), env, cmd.OutOrStdout())
	},
}

// runEnrich loads the input file, runs the job and writes the export. A
// FAILED job is returned as an error after the partial export is written.
func runEnrich(ctx context.Context, env *enrichEnv, out io.Writer) error {
	switch fetcher.Format(enrichFormat) {
	case fetcher.FormatCSV, fetcher.FormatXLSX:
	default:
		return eris.Errorf("enrich: --format must be csv or xlsx, got %q", enrichFormat)
	}

	names, err := loadNames(enrichFile)
	if err != nil {
		return err
	}
	if enrichLimit > 0 && enrichLimit < len(names) {
		names = names[:enrichLimit]
	}
	zap.L().Info("enrich: loaded companies", zap.String("file", enrichFile), zap.Int("count", len(names)))

	job, runErr := env.Orchestrator.Run(ctx, names)
	if job == nil {
		return runErr
	}

	path := enrichOutput
	if path == "" {
		path = fmt.Sprintf("company_enrichment_%s.%s", job.ID, enrichFormat)
	}
	if err := writeResults(path, fetcher.Format(enrichFormat), job.Results); err != nil {
		return err
	}

	printSummary(out, job, path)
	if runErr != nil {
		return eris.Wrap(runErr, "enrich: job failed")
	}
	return nil
}

func loadNames(path string) ([]string, error) {
	if path == "" {
		return nil, eris.New("enrich: --file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: open input")
	}
	defer f.Close() //nolint:errcheck

	names, err := fetcher.LoadCompanyNames(path, f)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: load companies")
	}
	return names, nil
}

func writeResults(path string, format fetcher.Format, results []model.CompanyResult) error {
	var (
		data []byte
		err  error
	)
	if format == fetcher.FormatXLSX {
		data, err = export.XLSX(results)
	} else {
		data, err = export.CSV(results)
	}
	if err != nil {
		return eris.Wrap(err, "enrich: export results")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "enrich: write output")
	}
	return nil
}

func printSummary(w io.Writer, job *model.Job, path string) {
	fmt.Fprintf(w, "job:       %s\n", job.ID)
	fmt.Fprintf(w, "status:    %s\n", job.Status)
	fmt.Fprintf(w, "processed: %d/%d\n", job.Processed, job.Total)
	fmt.Fprintf(w, "succeeded: %d\n", job.SuccessCount)
	fmt.Fprintf(w, "failed:    %d\n", job.FailureCount)
	if job.Error != "" {
		fmt.Fprintf(w, "error:     %s\n", job.Error)
	}
	fmt.Fprintf(w, "output:    %s\n", path)
}

func init() {
	enrichCmd.Flags().StringVar(&enrichFile, "file", "", "input CSV or XLSX file (required)")
	enrichCmd.Flags().StringVar(&enrichOutput, "output", "", "output path (default company_enrichment_<job id>.<format>)")
	enrichCmd.Flags().StringVar(&enrichFormat, "format", "csv", "output format: csv or xlsx")
	enrichCmd.Flags().IntVar(&enrichLimit, "limit", 0, "process at most N companies (0 = all)")
	_ = enrichCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(enrichCmd)
}
