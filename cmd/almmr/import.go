package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"almmr/internal/importer"
)

func getImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Imports records from spreadsheets",
	}
	cmd.AddCommand(getImportMaterialsCmd())
	return cmd
}

func getImportMaterialsCmd() *cobra.Command {
	var (
		enrich     bool
		dryRun     bool
		noProgress bool
	)
	cmd := &cobra.Command{
		Use:   "materials <csv>",
		Short: "Imports raw materials from a CSV sheet",
		Long: `Imports raw materials from a CSV sheet with a header row. Rows are matched
to existing materials by name: matches are updated in place, the rest are
created. Rows that fail validation are reported and skipped.

With --enrich, rows missing a pyramid position, odour profile or volatility
are completed with an OpenAI lookup (requires OPENAI_API_KEY).

Examples:
  almmr import materials materials.csv
  almmr import materials --dry-run --enrich materials.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			opts := importer.Options{DryRun: dryRun}
			if !noProgress {
				opts.Progress = cmd.ErrOrStderr()
			}
			if enrich {
				if a.AI == nil {
					return errors.New("--enrich requires OPENAI_API_KEY")
				}
				opts.Enricher = a.AI
			}

			result, err := importer.Materials(cmd.Context(), a.Materials, f, opts)
			if err != nil {
				return err
			}
			printImportResult(cmd.OutOrStdout(), result, dryRun)
			return nil
		},
	}
	cmd.Flags().BoolVar(&enrich, "enrich", false, "complete sparse rows with an OpenAI material lookup")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the sheet without writing")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bar")
	return cmd
}

func printImportResult(w io.Writer, r importer.Result, dryRun bool) {
	if dryRun {
		fmt.Fprintf(w, "Validated %s materials, nothing written (%s enriched)\n",
			humanize.Comma(int64(r.Valid)), humanize.Comma(int64(r.Enriched)))
	} else {
		fmt.Fprintf(w, "Imported %s materials (%s created, %s updated, %s enriched)\n",
			humanize.Comma(int64(r.Imported())), humanize.Comma(int64(r.Created)),
			humanize.Comma(int64(r.Updated)), humanize.Comma(int64(r.Enriched)))
	}
	if len(r.Skipped) == 0 {
		return
	}
	fmt.Fprintf(w, "Skipped %s rows:\n", humanize.Comma(int64(len(r.Skipped))))
	for _, skipped := range r.Skipped {
		fmt.Fprintf(w, "  %v\n", skipped)
	}
}
