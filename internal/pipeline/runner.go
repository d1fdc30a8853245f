package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ajitpratap0/tabula/pkg/compression"
	"github.com/ajitpratap0/tabula/pkg/connector/kafkasink"
	"github.com/ajitpratap0/tabula/pkg/connector/mongosource"
	"github.com/ajitpratap0/tabula/pkg/connector/sqlsource"
	"github.com/ajitpratap0/tabula/pkg/errors"
	"github.com/ajitpratap0/tabula/pkg/formats"
	"github.com/ajitpratap0/tabula/pkg/logger"
	"github.com/ajitpratap0/tabula/pkg/metrics"
	"github.com/ajitpratap0/tabula/pkg/observability"
	"github.com/ajitpratap0/tabula/pkg/storage"
	"github.com/ajitpratap0/tabula/pkg/table"
)

// Stage kinds.
const (
	StageInput  = "input"
	StageStep   = "step"
	StageOutput = "output"
)

// SQLQuerier materializes a SQL query.
type SQLQuerier func(ctx context.Context, cfg sqlsource.Config) (*table.Table, error)

// MongoQuerier materializes a MongoDB find.
type MongoQuerier func(ctx context.Context, cfg mongosource.Config) (*table.Table, error)

// RowSink publishes the rows of a table.
type RowSink interface {
	Write(ctx context.Context, t *table.Table) (int, error)
	Close() error
}

// SinkFactory opens a RowSink for a Kafka output.
type SinkFactory func(cfg kafkasink.Config) (RowSink, error)

// Runner executes compiled plans.
type Runner struct {
	store      *storage.Store
	load       formats.LoadOptions
	save       formats.SaveOptions
	workers    int
	runID      string
	querySQL   SQLQuerier
	queryMongo MongoQuerier
	newSink    SinkFactory
}

// Option configures a Runner.
type Option func(*Runner)

// WithStore sets the store inputs and outputs are read from and written to.
func WithStore(s *storage.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithLoadOptions sets the defaults each file input starts from.
func WithLoadOptions(o formats.LoadOptions) Option {
	return func(r *Runner) { r.load = o }
}

// WithSaveOptions sets the defaults each file output starts from.
func WithSaveOptions(o formats.SaveOptions) Option {
	return func(r *Runner) { r.save = o }
}

// WithWorkers overrides the concurrency of the pipeline document.
func WithWorkers(n int) Option {
	return func(r *Runner) { r.workers = n }
}

// WithRunID fixes the run id instead of generating one.
func WithRunID(id string) Option {
	return func(r *Runner) { r.runID = id }
}

// WithSQLQuerier replaces the SQL source.
func WithSQLQuerier(q SQLQuerier) Option {
	return func(r *Runner) { r.querySQL = q }
}

// WithMongoQuerier replaces the MongoDB source.
func WithMongoQuerier(q MongoQuerier) Option {
	return func(r *Runner) { r.queryMongo = q }
}

// WithSinkFactory replaces the Kafka sink.
func WithSinkFactory(f SinkFactory) Option {
	return func(r *Runner) { r.newSink = f }
}

// NewRunner creates a Runner backed by the default store and connectors.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		store:      storage.Default(),
		querySQL:   sqlsource.Query,
		queryMongo: mongosource.Query,
		newSink: func(cfg kafkasink.Config) (RowSink, error) {
			return kafkasink.New(cfg)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// StageReport describes one executed stage.
type StageReport struct {
	Kind     string        `json:"kind" yaml:"kind"`
	Name     string        `json:"name" yaml:"name"`
	Rows     int           `json:"rows" yaml:"rows"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Report summarizes a run.
type Report struct {
	RunID    string `json:"run_id" yaml:"run_id"`
	Pipeline string `json:"pipeline" yaml:"pipeline"`
	// Tables holds the row count of every table the run defined.
	Tables   map[string]int `json:"tables" yaml:"tables"`
	Stages   []StageReport  `json:"stages" yaml:"stages"`
	Duration time.Duration  `json:"duration" yaml:"duration"`
}

// Run loads the inputs, applies the steps and writes the outputs of plan.
// The returned report covers the stages completed before any failure.
func (r *Runner) Run(ctx context.Context, plan *Plan) (*Report, error) {
	doc := plan.doc
	runID := r.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	ctx = context.WithValue(ctx, logger.PipelineKey, doc.Name)
	log := logger.WithContext(ctx)

	start := time.Now()
	defer metrics.ObserveOperation("pipeline", start)

	rep := &Report{RunID: runID, Pipeline: doc.Name, Tables: map[string]int{}}
	log.Info("pipeline started",
		zap.Int("inputs", len(doc.Inputs)),
		zap.Int("steps", len(doc.Steps)),
		zap.Int("outputs", len(doc.Outputs)))

	tables, err := r.loadInputs(ctx, doc, rep)
	if err == nil {
		err = r.runSteps(ctx, plan, tables, rep)
	}
	if err == nil {
		err = r.writeOutputs(ctx, doc, tables, rep)
	}
	rep.Duration = time.Since(start)
	if err != nil {
		log.Error("pipeline failed", zap.Error(err), zap.Duration("duration", rep.Duration))
		return rep, err
	}

	log.Info("pipeline finished",
		zap.Int("tables", len(rep.Tables)),
		zap.Duration("duration", rep.Duration))
	return rep, nil
}

func (r *Runner) workerLimit(doc *Document) int {
	switch {
	case r.workers > 0:
		return r.workers
	case doc.Workers > 0:
		return doc.Workers
	default:
		return DefaultWorkers
	}
}

// stage runs fn under a span and records its report into slot.
func stage(ctx context.Context, kind, pipeline, name string, slot *StageReport, fn func(context.Context) (int, error)) error {
	start := time.Now()
	err := observability.NewStageTracer(kind, pipeline).Trace(ctx, name, func(ctx context.Context) (int, error) {
		rows, err := fn(ctx)
		*slot = StageReport{Kind: kind, Name: name, Rows: rows, Duration: time.Since(start)}
		return rows, err
	})
	metrics.ObserveOperation("pipeline."+kind, start)
	return err
}

func (r *Runner) loadInputs(ctx context.Context, doc *Document, rep *Report) (map[string]*table.Table, error) {
	loaded := make([]*table.Table, len(doc.Inputs))
	slots := make([]StageReport, len(doc.Inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workerLimit(doc))
	for i := range doc.Inputs {
		i, in := i, doc.Inputs[i]
		g.Go(func() error {
			return stage(gctx, StageInput, doc.Name, in.Name, &slots[i], func(ctx context.Context) (int, error) {
				t, err := r.loadInput(ctx, in)
				if err != nil {
					return 0, errors.Wrap(err, errors.TypeOf(err), "input "+in.Name).WithDetail("table", in.Name)
				}
				loaded[i] = t
				return t.RowCount(), nil
			})
		})
	}
	err := g.Wait()

	tables := make(map[string]*table.Table, len(doc.Inputs)+len(doc.Steps))
	for i, in := range doc.Inputs {
		if loaded[i] == nil {
			continue
		}
		tables[in.Name] = loaded[i]
		rep.Tables[in.Name] = loaded[i].RowCount()
		rep.Stages = append(rep.Stages, slots[i])
	}
	return tables, err
}

func (r *Runner) loadInput(ctx context.Context, in Input) (*table.Table, error) {
	switch in.Kind() {
	case "sql":
		return r.querySQL(ctx, *in.SQL)
	case "mongo":
		return r.queryMongo(ctx, *in.Mongo)
	}
	opts := r.load
	if in.Format != "" {
		opts.Format = formats.Format(in.Format)
	}
	if in.SkipLines != nil {
		opts.SkipLines = *in.SkipLines
	}
	if in.Compression != "" {
		opts.Compression = compression.Algorithm(in.Compression)
	}
	return formats.Load(ctx, r.store, in.URI, opts)
}

func (r *Runner) runSteps(ctx context.Context, plan *Plan, tables map[string]*table.Table, rep *Report) error {
	for i, st := range plan.doc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		fn := plan.steps[i]
		stepCtx := context.WithValue(ctx, logger.StepKey, st.Name())

		var slot StageReport
		err := stage(stepCtx, StageStep, plan.doc.Name, st.Name(), &slot, func(ctx context.Context) (int, error) {
			out, err := fn(tables)
			if err != nil {
				return 0, err
			}
			tables[st.As] = out
			return out.RowCount(), nil
		})
		rep.Stages = append(rep.Stages, slot)
		if err != nil {
			return errors.Wrap(err, errors.TypeOf(err), "step "+st.Name()).WithDetail("step", i+1)
		}
		rep.Tables[st.As] = slot.Rows

		logger.WithContext(stepCtx).Info("step finished",
			zap.String("op", st.Op),
			zap.String("table", st.As),
			zap.Int("rows", slot.Rows),
			zap.Duration("duration", slot.Duration))
	}
	return nil
}

func (r *Runner) writeOutputs(ctx context.Context, doc *Document, tables map[string]*table.Table, rep *Report) error {
	slots := make([]StageReport, len(doc.Outputs))
	done := make([]bool, len(doc.Outputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workerLimit(doc))
	for i := range doc.Outputs {
		i, out := i, doc.Outputs[i]
		g.Go(func() error {
			err := stage(gctx, StageOutput, doc.Name, out.Target(), &slots[i], func(ctx context.Context) (int, error) {
				return r.writeOutput(ctx, out, tables[out.Table])
			})
			if err != nil {
				return errors.Wrap(err, errors.TypeOf(err), "output "+out.Target()).WithDetail("table", out.Table)
			}
			done[i] = true
			return nil
		})
	}
	err := g.Wait()
	for i := range slots {
		if done[i] {
			rep.Stages = append(rep.Stages, slots[i])
		}
	}
	return err
}

func (r *Runner) writeOutput(ctx context.Context, out Output, t *table.Table) (int, error) {
	if out.Kafka != nil {
		cfg := *out.Kafka
		if cfg.Header == nil {
			cfg.Header = out.Header
		}
		sink, err := r.newSink(cfg)
		if err != nil {
			return 0, err
		}
		n, err := sink.Write(ctx, t)
		if cerr := sink.Close(); err == nil && cerr != nil {
			err = errors.Wrap(cerr, errors.ErrorTypeConnection, "failed to close kafka sink")
		}
		return n, err
	}

	opts := r.save
	if out.Format != "" {
		opts.Format = formats.Format(out.Format)
	}
	if out.Header != nil {
		opts.Header = out.Header
	}
	if out.Compression != "" {
		opts.Compression = compression.Algorithm(out.Compression)
	}
	if out.Level != 0 {
		opts.Level = compression.LevelOf(out.Level)
	}
	if err := formats.Save(ctx, r.store, out.URI, t, opts); err != nil {
		return 0, err
	}
	return t.RowCount(), nil
}
