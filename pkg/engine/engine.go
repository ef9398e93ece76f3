// Package engine executes physical plans and reports on their execution.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/executor"
	"github.com/rqdb/rq/pkg/engine/planner/physical"
	"github.com/rqdb/rq/pkg/engine/schema"
)

var tracer = otel.Tracer("pkg/engine")

// Params holds parameters for constructing a new [Engine].
type Params struct {
	Logger     log.Logger            // Logger for optional log messages.
	Registerer prometheus.Registerer // Registerer for optional metrics.
	Allocator  memory.Allocator      // Allocator for all batches built during execution.

	Config Config // Config for the Engine.
}

// validate validates p and applies defaults.
func (p *Params) validate() error {
	if p.Logger == nil {
		p.Logger = log.NewNopLogger()
	}
	if p.Registerer == nil {
		p.Registerer = prometheus.NewRegistry()
	}
	if p.Allocator == nil {
		p.Allocator = memory.DefaultAllocator
	}
	return p.Config.Validate()
}

// Engine executes physical plans.
type Engine struct {
	logger  log.Logger
	metrics *metrics
	mem     memory.Allocator
	cfg     Config
}

// New creates a new Engine.
func New(params Params) (*Engine, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	return &Engine{
		logger:  params.Logger,
		metrics: newMetrics(params.Registerer),
		mem:     params.Allocator,
		cfg:     params.Config,
	}, nil
}

// Config returns the configuration of the engine.
func (e *Engine) Config() Config { return e.cfg }

// Allocator returns the allocator used for batches built by the engine.
func (e *Engine) Allocator() memory.Allocator { return e.mem }

// Execute starts the execution of plan and returns the pipeline of its
// result. Reading the pipeline until [executor.EOF], an error, or closing it
// finishes the query; its outcome is then logged and recorded in metrics.
func (e *Engine) Execute(ctx context.Context, plan physical.Node) (executor.Pipeline, error) {
	if plan == nil {
		return nil, errors.New("plan is nil")
	}

	s, err := plan.Schema()
	if err != nil {
		e.metrics.queries.WithLabelValues(statusFailure).Inc()
		level.Warn(e.logger).Log("msg", "invalid plan", "err", err)
		return nil, err
	}

	sources := physical.Sources(plan)
	names := make([]string, len(sources))
	for i, source := range sources {
		names[i] = source.Name()
	}

	ctx, span := tracer.Start(ctx, "Engine.Execute", trace.WithAttributes(
		attribute.String("plan", physical.Pretty(plan, 0)),
		attribute.StringSlice("sources", names),
	))

	logger := log.With(e.logger, "plan", plan.String())
	level.Info(logger).Log("msg", "starting query", "sources", len(sources), "schema", s.String())

	return &queryPipeline{
		inner:   executor.Run(ctx, executor.Config{Allocator: e.mem, Logger: e.logger}, plan),
		schema:  s,
		logger:  logger,
		metrics: e.metrics,
		span:    span,
		start:   time.Now(),
	}, nil
}

// Result is the fully materialized output of a query.
type Result struct {
	Schema  schema.Schema
	Batches []*batch.RecordBatch
	Rows    int
}

// Release releases all batches of the result.
func (r *Result) Release() {
	for _, b := range r.Batches {
		b.Release()
	}
	r.Batches = nil
}

// Collect executes plan and reads all of its batches. The caller must
// release the result.
func (e *Engine) Collect(ctx context.Context, plan physical.Node) (*Result, error) {
	p, err := e.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	s, _ := plan.Schema()
	res := &Result{Schema: s}
	for {
		b, err := p.Read(ctx)
		if errors.Is(err, executor.EOF) {
			return res, nil
		} else if err != nil {
			res.Release()
			return nil, err
		}
		res.Batches = append(res.Batches, b)
		res.Rows += b.NumRows()
	}
}

// queryPipeline wraps the root pipeline of a query to account for its
// output.
type queryPipeline struct {
	inner   executor.Pipeline
	schema  schema.Schema
	logger  log.Logger
	metrics *metrics
	span    trace.Span
	start   time.Time

	batches, rows int
	finished      bool
	err           error // set when the query failed
}

var _ executor.Pipeline = (*queryPipeline)(nil)

func (p *queryPipeline) Read(ctx context.Context) (*batch.RecordBatch, error) {
	if p.err != nil {
		return nil, p.err
	} else if p.finished {
		return nil, executor.EOF
	}

	b, err := p.inner.Read(ctx)
	switch {
	case errors.Is(err, executor.EOF):
		p.finish(statusSuccess, nil)
		return nil, err
	case err != nil:
		p.finish(statusFailure, err)
		return nil, err
	}

	p.batches++
	p.rows += b.NumRows()
	p.metrics.batches.Inc()
	p.metrics.rows.Add(float64(b.NumRows()))
	return b, nil
}

func (p *queryPipeline) finish(status string, err error) {
	if p.finished {
		return
	}
	p.finished = true
	p.err = err

	duration := time.Since(p.start)
	p.metrics.queries.WithLabelValues(status).Inc()
	p.metrics.duration.Observe(duration.Seconds())

	logValues := []any{
		"msg", "finished executing",
		"status", status,
		"batches", p.batches,
		"rows", p.rows,
		"duration", duration.String(),
	}
	if err != nil {
		p.span.RecordError(err)
		p.span.SetStatus(codes.Error, err.Error())
		level.Error(p.logger).Log(append(logValues, "err", err)...)
	} else {
		p.span.SetStatus(codes.Ok, "")
		level.Info(p.logger).Log(logValues...)
	}
	p.span.End()
}

func (p *queryPipeline) Close() {
	p.finish(statusAborted, nil)
	p.inner.Close()
}
