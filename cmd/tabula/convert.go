package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/tabula/pkg/compression"
	"github.com/ajitpratap0/tabula/pkg/formats"
)

func formatList() string {
	return strings.Join(formats.Names(), ", ")
}

func newConvertCmd(a *app) *cobra.Command {
	var (
		header    []string
		skipLines int
		from, to  string
		level     int
		codec     string
	)

	cmd := &cobra.Command{
		Use:   "convert <in> <out>",
		Short: "Convert a table between formats and locations",
		Long: `Read one table and write it in another format, compression or location.
Formats and compression follow the file extensions unless named explicitly.

Example:
  tabula convert users.tsv.gz s3://bucket/users.parquet --header id,name`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, out := args[0], args[1]

			load := formats.LoadOptionsFromConfig(a.cfg.IO)
			load.Format = formats.Format(from)
			if cmd.Flags().Changed("skip-lines") {
				load.SkipLines = skipLines
			}
			t, err := formats.Load(cmd.Context(), a.store, in, load)
			if err != nil {
				return err
			}

			save := formats.SaveOptionsFromConfig(a.cfg.IO)
			save.Format = formats.Format(to)
			save.Header = header
			save.Codec = codec
			if cmd.Flags().Changed("level") {
				save.Level = compression.LevelOf(level)
			}
			if err := formats.Save(cmd.Context(), a.store, out, t, save); err != nil {
				return err
			}

			fmt.Fprintln(a.out, subtitle("wrote %d rows from %s to %s", t.RowCount(), in, out))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&header, "header", nil, "Columns to write, in order (default all, alphabetically)")
	cmd.Flags().IntVar(&skipLines, "skip-lines", 0, "Lines to skip before the TSV header")
	cmd.Flags().StringVar(&from, "from", "", "Input format (default from extension): "+formatList())
	cmd.Flags().StringVar(&to, "to", "", "Output format (default from extension)")
	cmd.Flags().IntVar(&level, "level", 0, "Compression level 1-9")
	cmd.Flags().StringVar(&codec, "codec", "", "Internal codec of parquet and avro output")
	return cmd
}
