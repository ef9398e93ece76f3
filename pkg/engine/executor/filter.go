package executor

import (
	"context"
	"fmt"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/planner/physical"
	"github.com/rqdb/rq/pkg/engine/vector"
)

// NewSelectionPipeline returns a pipeline that keeps the rows of input for
// which the predicate of sel is true. Batches without any selected row are
// skipped.
func NewSelectionPipeline(sel *physical.Selection, input Pipeline, evaluator expressionEvaluator) *GenericPipeline {
	predicate := evaluator.newFunc(sel.Predicate)

	return newGenericPipeline(func(ctx context.Context, inputs []Pipeline) (*batch.RecordBatch, error) {
		if len(inputs) != 1 {
			return nil, fmt.Errorf("expected 1 input, got %d", len(inputs))
		}

		for {
			in, err := inputs[0].Read(ctx)
			if err != nil {
				return nil, err
			}

			out, err := filterBatch(evaluator, in, predicate)
			in.Release()
			if err != nil {
				return nil, fmt.Errorf("evaluating %s: %w", sel.Predicate, err)
			}
			if out == nil {
				continue
			}
			return out, nil
		}
	}, input)
}

// filterBatch returns the rows of in selected by predicate, or nil if no row
// was selected. The input batch is not released.
func filterBatch(evaluator expressionEvaluator, in *batch.RecordBatch, predicate evalFunc) (*batch.RecordBatch, error) {
	res, err := predicate(in)
	if err != nil {
		return nil, err
	}
	defer res.Release()

	if res.Type() != datatype.Bool {
		return nil, fmt.Errorf("predicate produced %s, expected %s: %w", res.Type(), datatype.Bool, errors.ErrTypeMismatch)
	}

	mask := make([]bool, res.Len())
	selected := 0
	for i := range mask {
		v, err := res.Value(i)
		if err != nil {
			return nil, err
		}
		if v.(datatype.BoolLiteral) {
			mask[i] = true
			selected++
		}
	}

	switch selected {
	case 0:
		return nil, nil
	case in.NumRows():
		in.Retain()
		return in, nil
	}

	columns := make([]vector.ColumnVector, 0, in.NumCols())
	for _, col := range in.Columns() {
		filtered, err := vector.Filter(evaluator.mem, col, mask)
		if err != nil {
			for _, c := range columns {
				c.Release()
			}
			return nil, err
		}
		columns = append(columns, filtered)
	}

	out, err := batch.New(in.Schema(), columns)
	if err != nil {
		for _, c := range columns {
			c.Release()
		}
		return nil, err
	}
	return out, nil
}
