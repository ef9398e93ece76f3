package executor

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/datasource"
	"github.com/rqdb/rq/pkg/engine/datatype"
	rqerrors "github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/planner/physical"
	"github.com/rqdb/rq/pkg/engine/schema"
	"github.com/rqdb/rq/pkg/engine/types"
	"github.com/rqdb/rq/pkg/engine/vector"
)

var idSchema = schema.New(schema.Field{Name: "id", Type: datatype.Int64})

func int64Batch(t *testing.T, mem memory.Allocator, values ...int64) *batch.RecordBatch {
	t.Helper()

	literals := make([]datatype.Literal, len(values))
	for i, v := range values {
		literals[i] = datatype.Int64Literal(v)
	}
	col, err := vector.FromLiterals(mem, datatype.Int64, literals)
	require.NoError(t, err)

	b, err := batch.New(idSchema, []vector.ColumnVector{col})
	require.NoError(t, err)
	return b
}

func idSource(t *testing.T, mem memory.Allocator, batches ...[]int64) *datasource.MemorySource {
	t.Helper()

	records := make([]*batch.RecordBatch, len(batches))
	for i, values := range batches {
		records[i] = int64Batch(t, mem, values...)
	}
	source, err := datasource.NewMemorySource("ids", idSchema, records...)
	require.NoError(t, err)
	return source
}

func binary(t *testing.T, op types.BinaryOp, left, right physical.Expression) *physical.BinaryExpr {
	t.Helper()
	expr, err := physical.NewBinaryExpr(op, left, right)
	require.NoError(t, err)
	return expr
}

// collect reads p until EOF and returns the values of every column, row by
// row, across all batches.
func collect(t *testing.T, p Pipeline) ([][]datatype.Literal, int) {
	t.Helper()
	defer p.Close()

	var (
		rows    [][]datatype.Literal
		batches int
	)
	for {
		b, err := p.Read(context.Background())
		if errors.Is(err, EOF) {
			return rows, batches
		}
		require.NoError(t, err)
		batches++

		for i := 0; i < b.NumRows(); i++ {
			row := make([]datatype.Literal, b.NumCols())
			for j, col := range b.Columns() {
				row[j], err = col.Value(i)
				require.NoError(t, err)
			}
			rows = append(rows, row)
		}
		b.Release()
	}
}

func TestExecutor_Scan(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	source := idSource(t, alloc, []int64{1, 2, 3}, []int64{4, 5})
	defer source.Release()

	scan, err := physical.NewScan(source, nil)
	require.NoError(t, err)

	rows, batches := collect(t, Run(context.Background(), Config{Allocator: alloc}, scan))
	require.Equal(t, 2, batches)
	require.Len(t, rows, 5)
	require.Equal(t, datatype.Int64Literal(5), rows[4][0])
}

func TestExecutor_SelectionProjection(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	source := idSource(t, alloc, []int64{1, 2, 3, 4, 5})
	defer source.Release()

	scan, err := physical.NewScan(source, []string{"id"})
	require.NoError(t, err)

	selection, err := physical.NewSelection(scan, binary(t, types.BinaryOpGt, physical.NewColumn(0), physical.NewLiteral(int64(2))))
	require.NoError(t, err)

	projection, err := physical.NewProjection(selection,
		[]physical.Expression{physical.NewColumn(0), binary(t, types.BinaryOpAdd, physical.NewColumn(0), physical.NewLiteral(int64(1)))},
		[]string{"id", "next_id"},
	)
	require.NoError(t, err)

	rows, _ := collect(t, Run(context.Background(), Config{Allocator: alloc}, projection))
	require.Equal(t, [][]datatype.Literal{
		{datatype.Int64Literal(3), datatype.Int64Literal(4)},
		{datatype.Int64Literal(4), datatype.Int64Literal(5)},
		{datatype.Int64Literal(5), datatype.Int64Literal(6)},
	}, rows)

	// Running the same plan again yields the same result.
	again, _ := collect(t, Run(context.Background(), Config{Allocator: alloc}, projection))
	require.Equal(t, rows, again)
}

func TestExecutor_SelectionSkipsEmptyBatches(t *testing.T) {
	source := idSource(t, memory.DefaultAllocator, []int64{1, 2}, []int64{3, 4}, []int64{0}, []int64{5})
	defer source.Release()

	scan, err := physical.NewScan(source, nil)
	require.NoError(t, err)

	selection, err := physical.NewSelection(scan, binary(t, types.BinaryOpGte, physical.NewColumn(0), physical.NewLiteral(int64(3))))
	require.NoError(t, err)

	rows, batches := collect(t, Run(context.Background(), Config{}, selection))
	require.Equal(t, 2, batches)
	require.Equal(t, [][]datatype.Literal{{datatype.Int64Literal(3)}, {datatype.Int64Literal(4)}, {datatype.Int64Literal(5)}}, rows)
}

func TestExecutor_SelectionFiltersEveryColumn(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	s := schema.New(
		schema.Field{Name: "id", Type: datatype.Int64},
		schema.Field{Name: "name", Type: datatype.Utf8},
		schema.Field{Name: "k", Type: datatype.Float64},
	)
	ids, err := vector.FromLiterals(alloc, datatype.Int64, []datatype.Literal{
		datatype.Int64Literal(1), datatype.Int64Literal(5), datatype.Int64Literal(2), datatype.Int64Literal(7),
	})
	require.NoError(t, err)
	names, err := vector.FromLiterals(alloc, datatype.Utf8, []datatype.Literal{
		datatype.StringLiteral("a"), datatype.StringLiteral("b"), datatype.StringLiteral("c"), datatype.StringLiteral("d"),
	})
	require.NoError(t, err)
	k := vector.NewScalar(datatype.Float64Literal(1.5), 4)

	b, err := batch.New(s, []vector.ColumnVector{ids, names, k})
	require.NoError(t, err)
	source, err := datasource.NewMemorySource("people", s, b)
	require.NoError(t, err)
	defer source.Release()

	scan, err := physical.NewScan(source, nil)
	require.NoError(t, err)
	selection, err := physical.NewSelection(scan, binary(t, types.BinaryOpGt, physical.NewColumn(0), physical.NewLiteral(int64(2))))
	require.NoError(t, err)

	rows, batches := collect(t, Run(context.Background(), Config{Allocator: alloc}, selection))
	require.Equal(t, 1, batches)
	require.Equal(t, [][]datatype.Literal{
		{datatype.Int64Literal(5), datatype.StringLiteral("b"), datatype.Float64Literal(1.5)},
		{datatype.Int64Literal(7), datatype.StringLiteral("d"), datatype.Float64Literal(1.5)},
	}, rows)
}

func TestExecutor_ProjectionOfLiteral(t *testing.T) {
	source := idSource(t, memory.DefaultAllocator, []int64{1, 2, 3})
	defer source.Release()

	scan, err := physical.NewScan(source, nil)
	require.NoError(t, err)

	projection, err := physical.NewProjection(scan,
		[]physical.Expression{physical.NewLiteral("x"), binary(t, types.BinaryOpAdd, physical.NewLiteral(1.5), physical.NewLiteral(1.0))},
		[]string{"tag", "sum"},
	)
	require.NoError(t, err)

	rows, _ := collect(t, Run(context.Background(), Config{}, projection))
	require.Len(t, rows, 3)
	for _, row := range rows {
		require.Equal(t, []datatype.Literal{datatype.StringLiteral("x"), datatype.Float64Literal(2.5)}, row)
	}
}

func TestExecutor_InvalidExpressions(t *testing.T) {
	source := idSource(t, memory.DefaultAllocator, []int64{1, 2, 3})
	defer source.Release()

	scan, err := physical.NewScan(source, nil)
	require.NoError(t, err)

	for _, tt := range []struct {
		name    string
		expr    physical.Expression
		wantErr error
	}{
		{
			name:    "unimplemented operator",
			expr:    &physical.BinaryExpr{Op: types.BinaryOpSub, Left: physical.NewColumn(0), Right: physical.NewLiteral(int64(1))},
			wantErr: rqerrors.ErrNotImplemented,
		},
		{
			name:    "mismatched operand types",
			expr:    &physical.BinaryExpr{Op: types.BinaryOpAdd, Left: physical.NewColumn(0), Right: physical.NewLiteral(1.0)},
			wantErr: rqerrors.ErrTypeMismatch,
		},
		{
			name:    "column out of range",
			expr:    physical.NewColumn(3),
			wantErr: rqerrors.ErrColumnIndexOutOfRange,
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			projection := &physical.Projection{Input: scan, Expressions: []physical.Expression{tt.expr}, Names: []string{"out"}}

			p := Run(context.Background(), Config{}, projection)
			defer p.Close()

			_, err := p.Read(context.Background())
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

type countingSource struct {
	datasource.DataSource
	scans   int
	closed  int
	readErr error
}

func (s *countingSource) Scan(ctx context.Context, projection []string) (datasource.Reader, error) {
	s.scans++
	r, err := s.DataSource.Scan(ctx, projection)
	if err != nil {
		return nil, err
	}
	return &countingReader{Reader: r, source: s}, nil
}

type countingReader struct {
	datasource.Reader
	source *countingSource
}

func (r *countingReader) Read(ctx context.Context) (*batch.RecordBatch, error) {
	if r.source.readErr != nil {
		return nil, r.source.readErr
	}
	return r.Reader.Read(ctx)
}

func (r *countingReader) Close() error {
	r.source.closed++
	return r.Reader.Close()
}

func TestExecutor_ScanIsLazy(t *testing.T) {
	mem := idSource(t, memory.DefaultAllocator, []int64{1})
	defer mem.Release()
	source := &countingSource{DataSource: mem}

	scan, err := physical.NewScan(source, nil)
	require.NoError(t, err)

	p := Run(context.Background(), Config{}, scan)
	require.Equal(t, 0, source.scans)

	b, err := p.Read(context.Background())
	require.NoError(t, err)
	b.Release()
	require.Equal(t, 1, source.scans)

	p.Close()
	require.Equal(t, 1, source.closed)
}

func TestExecutor_SourceErrorPropagates(t *testing.T) {
	mem := idSource(t, memory.DefaultAllocator, []int64{1})
	defer mem.Release()
	boom := errors.New("disk on fire")
	source := &countingSource{DataSource: mem, readErr: boom}

	scan, err := physical.NewScan(source, nil)
	require.NoError(t, err)

	selection, err := physical.NewSelection(scan, binary(t, types.BinaryOpEq, physical.NewColumn(0), physical.NewLiteral(int64(1))))
	require.NoError(t, err)

	p := Run(context.Background(), Config{}, selection)
	defer p.Close()

	_, err = p.Read(context.Background())
	require.ErrorIs(t, err, boom)
	require.NotErrorIs(t, err, io.EOF)
}

func TestRun_NilPlan(t *testing.T) {
	p := Run(context.Background(), Config{}, nil)
	defer p.Close()

	_, err := p.Read(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, EOF)
}
