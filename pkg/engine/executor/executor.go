// Package executor turns physical plans into pull-based pipelines of record
// batches.
package executor

import (
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/rqdb/rq/pkg/engine/planner/physical"
)

var tracer = otel.Tracer("pkg/engine/executor")

// Config holds the resources used while executing a plan.
type Config struct {
	// Allocator is used for all buffers produced by expressions and
	// selections. Defaults to memory.DefaultAllocator.
	Allocator memory.Allocator
	Logger    log.Logger
}

// Run builds the pipeline tree for plan. Every call builds a fresh tree, so a
// plan can be executed any number of times. Errors found while building the
// tree are returned by the first call to Read.
func Run(ctx context.Context, cfg Config, plan physical.Node) Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	c := &Context{
		logger:    logger,
		evaluator: newExpressionEvaluator(cfg.Allocator),
	}
	if plan == nil {
		return errorPipeline(ctx, fmt.Errorf("plan is nil"))
	}
	return c.execute(ctx, plan)
}

// Context is the execution context
type Context struct {
	logger    log.Logger
	evaluator expressionEvaluator
}

func (c *Context) execute(ctx context.Context, node physical.Node) Pipeline {
	children := node.Children()
	inputs := make([]Pipeline, 0, len(children))
	for _, child := range children {
		inputs = append(inputs, c.execute(ctx, child))
	}

	level.Debug(c.logger).Log("msg", "building pipeline", "node", node.Type(), "plan", node.String())

	switch n := node.(type) {
	case *physical.Scan:
		// Opening a data source may touch the filesystem, so it is deferred
		// until the pipeline is first read.
		return newLazyPipeline(func(ctx context.Context, _ []Pipeline) Pipeline {
			return tracePipeline("physical.Scan", c.executeScan(ctx, n))
		}, inputs)
	case *physical.Projection:
		return tracePipeline("physical.Projection", c.executeProjection(ctx, n, inputs))
	case *physical.Selection:
		return tracePipeline("physical.Selection", c.executeSelection(ctx, n, inputs))
	default:
		return errorPipeline(ctx, fmt.Errorf("invalid node type: %T", node), inputs...)
	}
}

func (c *Context) executeScan(ctx context.Context, node *physical.Scan) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeScan", trace.WithAttributes(
		attribute.String("source", node.Source.Name()),
		attribute.Int("num_projections", len(node.Projection)),
	))
	defer span.End()

	s, err := node.Schema()
	if err != nil {
		return errorPipeline(ctx, err)
	}

	reader, err := node.Source.Scan(ctx, node.Projection)
	if err != nil {
		return errorPipeline(ctx, fmt.Errorf("opening data source %s: %w", node.Source.Name(), err))
	}
	span.AddEvent("opened data source")

	return newScanPipeline(node.Source.Name(), s, reader, c.logger)
}

func (c *Context) executeProjection(ctx context.Context, proj *physical.Projection, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeProjection", trace.WithAttributes(
		attribute.Int("num_expressions", len(proj.Expressions)),
		attribute.Int("num_inputs", len(inputs)),
	))
	defer span.End()

	if len(inputs) != 1 {
		return errorPipeline(ctx, fmt.Errorf("projection expects exactly one input, got %d", len(inputs)), inputs...)
	}

	if len(proj.Expressions) == 0 {
		return errorPipeline(ctx, fmt.Errorf("projection expects at least one expression, got 0"), inputs...)
	}

	p, err := NewProjectPipeline(inputs[0], proj, c.evaluator)
	if err != nil {
		return errorPipeline(ctx, err, inputs...)
	}
	return p
}

func (c *Context) executeSelection(ctx context.Context, sel *physical.Selection, inputs []Pipeline) Pipeline {
	ctx, span := tracer.Start(ctx, "Context.executeSelection", trace.WithAttributes(
		attribute.String("predicate", sel.Predicate.String()),
		attribute.Int("num_inputs", len(inputs)),
	))
	defer span.End()

	if len(inputs) != 1 {
		return errorPipeline(ctx, fmt.Errorf("selection expects exactly one input, got %d", len(inputs)), inputs...)
	}

	if _, err := sel.Schema(); err != nil {
		return errorPipeline(ctx, err, inputs...)
	}
	return NewSelectionPipeline(sel, inputs[0], c.evaluator)
}
