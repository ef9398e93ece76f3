package datasource

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/schema"
	"github.com/rqdb/rq/pkg/engine/vector"
)

var peopleSchema = schema.New(
	schema.Field{Name: "id", Type: datatype.Int64},
	schema.Field{Name: "name", Type: datatype.Utf8},
	schema.Field{Name: "score", Type: datatype.Float64},
	schema.Field{Name: "active", Type: datatype.Bool},
)

// readAll drains r and returns every row as a list of literals, together
// with the number of batches read.
func readAll(t *testing.T, r Reader) ([][]datatype.Literal, int) {
	t.Helper()
	defer func() { require.NoError(t, r.Close()) }()

	var (
		rows    [][]datatype.Literal
		batches int
	)
	for {
		b, err := r.Read(context.Background())
		if err == io.EOF {
			return rows, batches
		}
		require.NoError(t, err)
		batches++
		rows = append(rows, batchRows(t, b)...)
		b.Release()
	}
}

func batchRows(t *testing.T, b *batch.RecordBatch) [][]datatype.Literal {
	t.Helper()

	columns := make([][]datatype.Literal, b.NumCols())
	for i, col := range b.Columns() {
		values, err := vector.Values(col)
		require.NoError(t, err)
		columns[i] = values
	}

	rows := make([][]datatype.Literal, b.NumRows())
	for i := range rows {
		rows[i] = make([]datatype.Literal, b.NumCols())
		for j := range columns {
			rows[i][j] = columns[j][i]
		}
	}
	return rows
}

func row(values ...any) []datatype.Literal {
	out := make([]datatype.Literal, len(values))
	for i, v := range values {
		switch v := v.(type) {
		case int:
			out[i] = datatype.Int64Literal(v)
		case string:
			out[i] = datatype.StringLiteral(v)
		case float64:
			out[i] = datatype.Float64Literal(v)
		case bool:
			out[i] = datatype.BoolLiteral(v)
		}
	}
	return out
}
