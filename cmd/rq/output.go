package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/schema"
)

// resultWriter writes the batches of a query result.
type resultWriter interface {
	Write(b *batch.RecordBatch) error
	Flush() error
}

type csvWriter struct {
	w   *csv.Writer
	mem memory.Allocator
}

func newCSVWriter(w io.Writer, s schema.Schema, mem memory.Allocator) *csvWriter {
	return &csvWriter{
		w:   csv.NewWriter(w, s.ToArrow(), csv.WithHeader(true)),
		mem: mem,
	}
}

func (w *csvWriter) Write(b *batch.RecordBatch) error {
	rec := b.ToArrow(w.mem)
	defer rec.Release()
	return w.w.Write(rec)
}

func (w *csvWriter) Flush() error {
	if err := w.w.Flush(); err != nil {
		return err
	}
	return w.w.Error()
}

// tableWriter prints batches as an aligned text table.
type tableWriter struct {
	tw     *tabwriter.Writer
	schema schema.Schema
	header bool
}

func newTableWriter(w io.Writer, s schema.Schema) *tableWriter {
	return &tableWriter{
		tw:     tabwriter.NewWriter(w, 0, 8, 2, ' ', 0),
		schema: s,
	}
}

func (w *tableWriter) writeHeader() error {
	w.header = true
	names := make([]string, w.schema.NumFields())
	for i, f := range w.schema.Fields {
		names[i] = strings.ToUpper(f.Name)
	}
	_, err := fmt.Fprintln(w.tw, strings.Join(names, "\t"))
	return err
}

func (w *tableWriter) Write(b *batch.RecordBatch) error {
	if !w.header {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}

	cells := make([]string, b.NumCols())
	for i := 0; i < b.NumRows(); i++ {
		for j, col := range b.Columns() {
			v, err := col.Value(i)
			if err != nil {
				return err
			}
			cells[j] = fmt.Sprint(v.Any())
		}
		if _, err := fmt.Fprintln(w.tw, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func (w *tableWriter) Flush() error {
	if !w.header {
		if err := w.writeHeader(); err != nil {
			return err
		}
	}
	return w.tw.Flush()
}
