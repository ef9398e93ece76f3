package datasource

import (
	"context"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
)

type personRow struct {
	ID     int64   `parquet:"id"`
	Name   string  `parquet:"name"`
	Score  float64 `parquet:"score"`
	Active bool    `parquet:"active"`
}

func writeParquet[T any](t *testing.T, fs afero.Fs, name string, rows []T) {
	t.Helper()

	f, err := fs.Create(name)
	require.NoError(t, err)
	defer f.Close()

	w := parquet.NewGenericWriter[T](f)
	_, err = w.Write(rows)
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestParquetSource(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeParquet(t, fs, "data/part-0.parquet", []personRow{
		{ID: 1, Name: "alice", Score: 0.5, Active: true},
		{ID: 2, Name: "bob", Score: 1.5, Active: false},
	})
	writeParquet(t, fs, "data/part-1.parquet", []personRow{
		{ID: 3, Name: "carol", Score: 2.5, Active: true},
	})

	source, err := NewParquetSource(fs, "people", ParquetConfig{Path: "data/*.parquet"})
	require.NoError(t, err)
	require.Equal(t, "[id: int64, name: utf8, score: float64, active: bool]", source.Schema().String())

	t.Run("all columns", func(t *testing.T) {
		r, err := source.Scan(context.Background(), nil)
		require.NoError(t, err)

		rows, batches := readAll(t, r)
		require.Equal(t, 2, batches)
		require.Equal(t, [][]datatype.Literal{
			row(1, "alice", 0.5, true),
			row(2, "bob", 1.5, false),
			row(3, "carol", 2.5, true),
		}, rows)
	})

	t.Run("projection", func(t *testing.T) {
		r, err := source.Scan(context.Background(), []string{"active"})
		require.NoError(t, err)

		rows, _ := readAll(t, r)
		require.Equal(t, [][]datatype.Literal{row(true), row(false), row(true)}, rows)
	})
}

func TestParquetSource_UnsupportedType(t *testing.T) {
	type int32Row struct {
		ID int32 `parquet:"id"`
	}

	fs := afero.NewMemMapFs()
	writeParquet(t, fs, "int32.parquet", []int32Row{{ID: 1}})

	_, err := NewParquetSource(fs, "ints", ParquetConfig{Path: "int32.parquet"})
	require.ErrorIs(t, err, errors.ErrNotImplemented)
}
