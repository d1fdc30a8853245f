package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tabula/internal/pipeline"
	"github.com/ajitpratap0/tabula/pkg/formats"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/observability"
	"github.com/ajitpratap0/tabula/pkg/table"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		metricsOut string
		trace      bool
		stats      bool
		workers    int
		runID      string
	)

	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Run a declarative pipeline",
		Long: `Load the inputs of a pipeline document, apply its steps in order and write
its outputs. The whole document is validated before anything is read.

Example:
  tabula run active-users.yaml --metrics-out - --stats`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			monitor := newResourceMonitor()

			if !cmd.Flags().Changed("metrics-out") {
				metricsOut = a.cfg.Observability.MetricsPath
			}
			if trace || a.cfg.Observability.EnableTracing {
				tc := observability.DefaultTracingConfig()
				tc.ServiceVersion = version
				tc.SamplingRate = a.cfg.Observability.TracingSampleRate
				shutdown, err := observability.InitTracing(tc)
				if err != nil {
					return err
				}
				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.Warn("failed to flush traces", zap.Error(err))
					}
				}()
			}

			doc, err := pipeline.LoadFile(args[0])
			if err != nil {
				return err
			}
			plan, err := pipeline.Compile(doc)
			if err != nil {
				return err
			}

			runner := pipeline.NewRunner(
				pipeline.WithStore(a.store),
				pipeline.WithLoadOptions(formats.LoadOptionsFromConfig(a.cfg.IO)),
				pipeline.WithSaveOptions(formats.SaveOptionsFromConfig(a.cfg.IO)),
				pipeline.WithWorkers(workers),
				pipeline.WithRunID(runID),
			)
			rep, runErr := runner.Run(ctx, plan)
			if rep != nil {
				if err := writeReport(a.out, rep); err != nil {
					return err
				}
			}
			if stats {
				monitor.usage().write(a.out)
			}
			if metricsOut != "" {
				if err := dumpMetrics(a.out, metricsOut); err != nil {
					return err
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&metricsOut, "metrics-out", "", `Write Prometheus metrics to this file when done; "-" is stdout`)
	cmd.Flags().BoolVar(&trace, "trace", false, "Export spans to stderr")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print process resource usage when done")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent input loads and output writes (default from the pipeline)")
	cmd.Flags().StringVar(&runID, "run-id", "", "Run id for logs and Kafka headers (default random)")
	return cmd
}

// writeReport prints the stages of a run as a table.
func writeReport(w io.Writer, rep *pipeline.Report) error {
	b := table.NewBuilder("#", "stage", "name", "rows", "duration")
	for i, s := range rep.Stages {
		if err := b.AddRow(fmt.Sprintf("%02d", i+1), s.Kind, s.Name, strconv.Itoa(s.Rows), s.Duration.String()); err != nil {
			return err
		}
	}
	fmt.Fprintln(w, title(rep.Pipeline))
	fmt.Fprintln(w, subtitle("run %s, %d tables in %s", rep.RunID, len(rep.Tables), rep.Duration))
	fmt.Fprint(w, b.Build().Render())
	return nil
}

func dumpMetrics(stdout io.Writer, path string) error {
	if path == "-" {
		return metrics.WriteText(stdout)
	}
	f, err := os.Create(path) //nolint:gosec // G304: path comes from the command line
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	if err := metrics.WriteText(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
