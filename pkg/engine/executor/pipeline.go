package executor

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rqdb/rq/pkg/engine/batch"
)

// Pipeline is a pull-based stream of record batches produced by a node of a
// physical plan.
type Pipeline interface {
	// Read returns the next batch of the pipeline. It returns EOF once the
	// pipeline is exhausted. The caller owns the returned batch and must
	// release it.
	Read(context.Context) (*batch.RecordBatch, error)
	// Close closes the resources of the pipeline.
	// The implementation must close all the of the pipeline's inputs.
	Close()
}

// EOF is returned by [Pipeline.Read] when no more batches are available.
var EOF = errors.New("pipeline exhausted") //nolint:revive,staticcheck

type readFunc func(context.Context, []Pipeline) (*batch.RecordBatch, error)

// GenericPipeline is a [Pipeline] whose batches are produced by a read
// function over its inputs.
type GenericPipeline struct {
	inputs []Pipeline
	read   readFunc
}

func newGenericPipeline(read readFunc, inputs ...Pipeline) *GenericPipeline {
	return &GenericPipeline{
		read:   read,
		inputs: inputs,
	}
}

var _ Pipeline = (*GenericPipeline)(nil)

// Read implements Pipeline.
func (p *GenericPipeline) Read(ctx context.Context) (*batch.RecordBatch, error) {
	if p.read == nil {
		return nil, EOF
	}
	return p.read(ctx, p.inputs)
}

// Close implements Pipeline.
func (p *GenericPipeline) Close() {
	for _, inp := range p.inputs {
		inp.Close()
	}
}

func errorPipeline(ctx context.Context, err error, inputs ...Pipeline) Pipeline {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return newGenericPipeline(func(_ context.Context, _ []Pipeline) (*batch.RecordBatch, error) {
		return nil, fmt.Errorf("failed to execute pipeline: %w", err)
	}, inputs...)
}

type tracedPipeline struct {
	name  string
	inner Pipeline
}

var _ Pipeline = (*tracedPipeline)(nil)

// tracePipeline wraps a [Pipeline] to record each call to Read with a span.
func tracePipeline(name string, pipeline Pipeline) *tracedPipeline {
	return &tracedPipeline{
		name:  name,
		inner: pipeline,
	}
}

func (p *tracedPipeline) Read(ctx context.Context) (*batch.RecordBatch, error) {
	ctx, span := tracer.Start(ctx, p.name+".Read")
	defer span.End()

	res, err := p.inner.Read(ctx)
	if err != nil && !errors.Is(err, EOF) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return res, err
}

func (p *tracedPipeline) Close() { p.inner.Close() }

type lazyPipeline struct {
	ctor func(ctx context.Context, inputs []Pipeline) Pipeline

	inputs []Pipeline
	built  Pipeline
}

// newLazyPipeline defers construction of a [Pipeline] until it is first
// read. The ctor function will be invoked on the first call to
// [Pipeline.Read].
func newLazyPipeline(ctor func(ctx context.Context, inputs []Pipeline) Pipeline, inputs []Pipeline) *lazyPipeline {
	return &lazyPipeline{
		ctor:   ctor,
		inputs: inputs,
	}
}

var _ Pipeline = (*lazyPipeline)(nil)

// Read reads the next value from the inner pipeline. If this is the first call
// to Read, the inner pipeline will be constructed using the provided context.
func (lp *lazyPipeline) Read(ctx context.Context) (*batch.RecordBatch, error) {
	if lp.built == nil {
		lp.built = lp.ctor(ctx, lp.inputs)
	}
	return lp.built.Read(ctx)
}

// Close closes the lazily constructed pipeline if it has been built, and the
// inputs otherwise.
func (lp *lazyPipeline) Close() {
	if lp.built != nil {
		lp.built.Close()
	} else {
		for _, inp := range lp.inputs {
			inp.Close()
		}
	}
	lp.built = nil
}
