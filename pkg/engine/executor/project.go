package executor

import (
	"context"
	"fmt"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/planner/physical"
	"github.com/rqdb/rq/pkg/engine/vector"
)

// NewProjectPipeline returns a pipeline that evaluates the expressions of
// proj against every batch of input.
func NewProjectPipeline(input Pipeline, proj *physical.Projection, evaluator expressionEvaluator) (*GenericPipeline, error) {
	outSchema, err := proj.Schema()
	if err != nil {
		return nil, err
	}

	funcs := make([]evalFunc, len(proj.Expressions))
	for i, expr := range proj.Expressions {
		funcs[i] = evaluator.newFunc(expr)
	}

	return newGenericPipeline(func(ctx context.Context, inputs []Pipeline) (*batch.RecordBatch, error) {
		if len(inputs) != 1 {
			return nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
		}

		in, err := inputs[0].Read(ctx)
		if err != nil {
			return nil, err
		}
		defer in.Release()

		columns := make([]vector.ColumnVector, 0, len(funcs))
		release := func() {
			for _, col := range columns {
				col.Release()
			}
		}

		for i, fn := range funcs {
			col, err := fn(in)
			if err != nil {
				release()
				return nil, fmt.Errorf("evaluating %s: %w", proj.Expressions[i], err)
			}
			columns = append(columns, col)
		}

		out, err := batch.New(outSchema, columns)
		if err != nil {
			release()
			return nil, err
		}
		return out, nil
	}, input), nil
}
