package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/tabula/pkg/formats"
)

func newShowCmd(a *app) *cobra.Command {
	var (
		columns   []string
		skipLines int
		limit     int
		format    string
	)

	cmd := &cobra.Command{
		Use:   "show <uri>",
		Short: "Render a table",
		Long: `Load the table at uri and print it as a text grid.

Example:
  tabula show s3://bucket/users.tsv.gz --columns id,name --limit 20`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := formats.LoadOptionsFromConfig(a.cfg.IO)
			opts.Format = formats.Format(format)
			if cmd.Flags().Changed("skip-lines") {
				opts.SkipLines = skipLines
			}

			t, err := formats.Load(cmd.Context(), a.store, args[0], opts)
			if err != nil {
				return err
			}
			total := t.RowCount()
			if len(columns) > 0 {
				if t, err = t.SelectColumns(columns...); err != nil {
					return err
				}
			}
			if limit >= 0 {
				t = t.Head(limit)
			}

			fmt.Fprintln(a.out, title(args[0]))
			fmt.Fprintln(a.out, subtitle("%d rows, %d columns", total, t.ColumnCount()))
			fmt.Fprint(a.out, t.Render())
			if t.RowCount() < total {
				fmt.Fprintln(a.out, subtitle("showing %d of %d rows", t.RowCount(), total))
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&columns, "columns", nil, "Columns to show (default all)")
	cmd.Flags().IntVar(&skipLines, "skip-lines", 0, "Lines to skip before the TSV header")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum rows to show; negative shows all")
	cmd.Flags().StringVar(&format, "format", "", "Input format (default from extension): "+formatList())
	return cmd
}

