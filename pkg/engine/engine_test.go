package engine

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/datasource"
	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/executor"
	"github.com/rqdb/rq/pkg/engine/planner/physical"
	"github.com/rqdb/rq/pkg/engine/schema"
	"github.com/rqdb/rq/pkg/engine/types"
	"github.com/rqdb/rq/pkg/engine/vector"
)

func idSource(t *testing.T, mem memory.Allocator, values ...int64) *datasource.MemorySource {
	t.Helper()

	literals := make([]datatype.Literal, len(values))
	for i, v := range values {
		literals[i] = datatype.Int64Literal(v)
	}
	col, err := vector.FromLiterals(mem, datatype.Int64, literals)
	require.NoError(t, err)

	s := schema.New(schema.Field{Name: "id", Type: datatype.Int64})
	b, err := batch.New(s, []vector.ColumnVector{col})
	require.NoError(t, err)

	source, err := datasource.NewMemorySource("ids", s, b)
	require.NoError(t, err)
	return source
}

func testPlan(t *testing.T, source datasource.DataSource) physical.Node {
	t.Helper()

	scan, err := physical.NewScan(source, nil)
	require.NoError(t, err)

	predicate, err := physical.NewBinaryExpr(types.BinaryOpGt, physical.NewColumn(0), physical.NewLiteral(int64(2)))
	require.NoError(t, err)
	selection, err := physical.NewSelection(scan, predicate)
	require.NoError(t, err)

	next, err := physical.NewBinaryExpr(types.BinaryOpAdd, physical.NewColumn(0), physical.NewLiteral(int64(1)))
	require.NoError(t, err)
	projection, err := physical.NewProjection(selection, []physical.Expression{physical.NewColumn(0), next}, []string{"id", "next_id"})
	require.NoError(t, err)
	return projection
}

func newTestEngine(t *testing.T, reg prometheus.Registerer, mem memory.Allocator, logs *bytes.Buffer) *Engine {
	t.Helper()

	e, err := New(Params{
		Logger:     log.NewLogfmtLogger(logs),
		Registerer: reg,
		Allocator:  mem,
		Config:     Config{BatchSize: 16},
	})
	require.NoError(t, err)
	return e
}

func TestEngine_Collect(t *testing.T) {
	alloc := memory.NewCheckedAllocator(memory.DefaultAllocator)
	defer alloc.AssertSize(t, 0)

	source := idSource(t, alloc, 1, 2, 3, 4, 5)
	defer source.Release()

	reg := prometheus.NewRegistry()
	var logs bytes.Buffer
	e := newTestEngine(t, reg, alloc, &logs)

	res, err := e.Collect(context.Background(), testPlan(t, source))
	require.NoError(t, err)
	defer res.Release()

	require.Equal(t, 3, res.Rows)
	require.Equal(t, "[id: int64, next_id: int64]", res.Schema.String())
	require.Len(t, res.Batches, 1)

	next, err := res.Batches[0].Field(1)
	require.NoError(t, err)
	values, err := vector.Values(next)
	require.NoError(t, err)
	require.Equal(t, []datatype.Literal{datatype.Int64Literal(4), datatype.Int64Literal(5), datatype.Int64Literal(6)}, values)

	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.queries.WithLabelValues(statusSuccess)))
	require.Equal(t, 3.0, testutil.ToFloat64(e.metrics.rows))
	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.batches))

	require.Contains(t, logs.String(), "msg=\"starting query\"")
	require.Contains(t, logs.String(), "msg=\"finished executing\"")
	require.Contains(t, logs.String(), "status=success")
}

func TestEngine_ExecuteFailure(t *testing.T) {
	source := idSource(t, memory.DefaultAllocator, 1, 2, 3)
	defer source.Release()

	scan, err := physical.NewScan(source, nil)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	var logs bytes.Buffer
	e := newTestEngine(t, reg, memory.DefaultAllocator, &logs)

	// Built without the constructor, so the failure surfaces at execution.
	plan := &physical.Projection{
		Input:       scan,
		Expressions: []physical.Expression{&physical.BinaryExpr{Op: types.BinaryOpMul, Left: physical.NewColumn(0), Right: physical.NewColumn(0)}},
		Names:       []string{"square"},
	}

	_, err = e.Collect(context.Background(), plan)
	require.ErrorIs(t, err, ErrNotImplemented)
	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.queries.WithLabelValues(statusFailure)))
}

type failingSource struct {
	datasource.DataSource
	err error
}

func (s *failingSource) Scan(_ context.Context, _ []string) (datasource.Reader, error) {
	return &failingReader{err: s.err}, nil
}

type failingReader struct{ err error }

func (r *failingReader) Read(context.Context) (*batch.RecordBatch, error) { return nil, r.err }
func (r *failingReader) Close() error { return nil }

func TestEngine_FailureIsSticky(t *testing.T) {
	ids := idSource(t, memory.DefaultAllocator, 1)
	defer ids.Release()
	boom := errors.New("disk on fire")

	scan, err := physical.NewScan(&failingSource{DataSource: ids, err: boom}, nil)
	require.NoError(t, err)

	var logs bytes.Buffer
	e := newTestEngine(t, prometheus.NewRegistry(), memory.DefaultAllocator, &logs)

	p, err := e.Execute(context.Background(), scan)
	require.NoError(t, err)
	defer p.Close()

	for range 2 {
		_, err = p.Read(context.Background())
		require.ErrorIs(t, err, boom)
		require.NotErrorIs(t, err, executor.EOF)
	}
	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.queries.WithLabelValues(statusFailure)))
	require.Equal(t, 0.0, testutil.ToFloat64(e.metrics.queries.WithLabelValues(statusAborted)))
}

func TestEngine_CloseBeforeExhausted(t *testing.T) {
	source := idSource(t, memory.DefaultAllocator, 1, 2, 3)
	defer source.Release()

	var logs bytes.Buffer
	e := newTestEngine(t, prometheus.NewRegistry(), memory.DefaultAllocator, &logs)

	p, err := e.Execute(context.Background(), testPlan(t, source))
	require.NoError(t, err)
	p.Close()

	_, err = p.Read(context.Background())
	require.True(t, errors.Is(err, executor.EOF))
	require.Equal(t, 1.0, testutil.ToFloat64(e.metrics.queries.WithLabelValues(statusAborted)))
}

func TestConfig(t *testing.T) {
	var cfg Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlagsWithPrefix("engine.", fs)
	require.NoError(t, fs.Parse([]string{"-engine.batch-size=32"}))
	require.Equal(t, 32, cfg.BatchSize)
	require.NoError(t, cfg.Validate())

	cfg.BatchSize = 0
	require.Error(t, cfg.Validate())

	_, err := New(Params{Config: cfg})
	require.Error(t, err)
}
