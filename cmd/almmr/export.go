package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"almmr/internal/export"
	"almmr/internal/store"
	"almmr/models"
)

func getExportCmd() *cobra.Command {
	var (
		format          string
		dir             string
		output          string
		includeArchived bool
	)
	cmd := &cobra.Command{
		Use:   "export <kind|all>",
		Short: "Exports records as CSV or JSON",
		Long: `Exports one collection (materials, formulas, manufacturers, perfumes) to
standard output or --output, or every collection into --dir with "all".

Examples:
  almmr export materials
  almmr export formulas --format json --output formulas.json
  almmr export all --dir ./exports`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"materials", "formulas", "manufacturers", "perfumes", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			if strings.EqualFold(args[0], "all") {
				if dir == "" {
					return fmt.Errorf("export all requires --dir")
				}
				a, err := openApp(cmd)
				if err != nil {
					return err
				}
				defer closeApp(cmd, a)

				counts, err := a.Exporter.Dir(cmd.Context(), dir, f)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, kind := range models.Kinds {
					fmt.Fprintf(out, "Wrote %s %ss to %s\n", humanize.Comma(int64(counts[kind])), kind, export.FileName(kind, f))
				}
				return nil
			}

			kind, err := export.ParseKind(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer closeApp(cmd, a)

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}

			var opts []store.QueryOption
			if includeArchived {
				opts = append(opts, store.IncludeArchived())
			}
			n, err := a.Exporter.Write(cmd.Context(), kind, f, w, opts...)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s %ss to %s\n", humanize.Comma(int64(n)), kind, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "output format (csv or json)")
	cmd.Flags().StringVar(&dir, "dir", "", "directory for \"all\" exports")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of standard output")
	cmd.Flags().BoolVar(&includeArchived, "include-archived", false, "include archived records")
	return cmd
}
