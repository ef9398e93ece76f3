// Package batch provides RecordBatch, the unit of data streamed between the
// nodes of a physical plan.
package batch

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/schema"
	"github.com/rqdb/rq/pkg/engine/vector"
)

// RecordBatch is an immutable slice of a table: a schema plus one column
// vector per field, all sharing the same number of rows.
//
// A RecordBatch holds a reference to each of its columns. Release must be
// called once the batch is no longer needed.
type RecordBatch struct {
	schema  schema.Schema
	columns []vector.ColumnVector
	rows    int
}

// New creates a record batch from columns. New takes over the caller's
// reference to every column; on error the columns are left untouched.
//
// New fails if the number of columns differs from the number of fields, if
// the type of a column differs from its field, or if the columns do not
// share a single row count.
func New(s schema.Schema, columns []vector.ColumnVector) (*RecordBatch, error) {
	if len(columns) != s.NumFields() {
		return nil, fmt.Errorf("batch with %d columns for schema with %d fields: %w", len(columns), s.NumFields(), errors.ErrColumnIndexOutOfRange)
	}

	rows := 0
	for i, col := range columns {
		if col.Type() != s.Fields[i].Type {
			return nil, fmt.Errorf("column %d (%s) is %s, schema expects %s: %w", i, s.Fields[i].Name, col.Type(), s.Fields[i].Type, errors.ErrTypeMismatch)
		}
		if i == 0 {
			rows = col.Len()
		} else if col.Len() != rows {
			return nil, fmt.Errorf("column %d (%s) has %d rows, expected %d: %w", i, s.Fields[i].Name, col.Len(), rows, errors.ErrOutOfRange)
		}
	}

	return &RecordBatch{schema: s, columns: columns, rows: rows}, nil
}

// Empty returns a batch of schema s without rows.
func Empty(mem memory.Allocator, s schema.Schema) (*RecordBatch, error) {
	columns := make([]vector.ColumnVector, 0, s.NumFields())
	for _, f := range s.Fields {
		col, err := vector.FromLiterals(mem, f.Type, nil)
		if err != nil {
			releaseAll(columns)
			return nil, err
		}
		columns = append(columns, col)
	}
	return New(s, columns)
}

// Schema returns the schema of the batch.
func (b *RecordBatch) Schema() schema.Schema { return b.schema }

// NumRows returns the number of rows shared by all columns.
func (b *RecordBatch) NumRows() int { return b.rows }

// NumCols returns the number of columns.
func (b *RecordBatch) NumCols() int { return len(b.columns) }

// Field returns the i-th column. The column is shared with the batch; callers
// that keep it beyond the lifetime of the batch must Retain it.
func (b *RecordBatch) Field(i int) (vector.ColumnVector, error) {
	if i < 0 || i >= len(b.columns) {
		return nil, fmt.Errorf("column %d of %d: %w", i, len(b.columns), errors.ErrColumnIndexOutOfRange)
	}
	return b.columns[i], nil
}

// Columns returns all columns of the batch. The slice must not be modified.
func (b *RecordBatch) Columns() []vector.ColumnVector { return b.columns }

// Project returns a new batch holding only the named columns, in the given
// order. The columns are shared with b.
func (b *RecordBatch) Project(names []string) (*RecordBatch, error) {
	s, indices, err := b.schema.Select(names)
	if err != nil {
		return nil, err
	}
	columns := make([]vector.ColumnVector, len(indices))
	for i, idx := range indices {
		col := b.columns[idx]
		col.Retain()
		columns[i] = col
	}
	return &RecordBatch{schema: s, columns: columns, rows: b.rows}, nil
}

// Retain increases the reference count of all columns by 1.
func (b *RecordBatch) Retain() {
	for _, col := range b.columns {
		col.Retain()
	}
}

// Release decreases the reference count of all columns by 1.
func (b *RecordBatch) Release() {
	for _, col := range b.columns {
		col.Release()
	}
}

// ToArrow converts b into an Arrow record. Broadcast columns are
// materialized. The caller must release the returned record.
func (b *RecordBatch) ToArrow(mem memory.Allocator) arrow.Record {
	arrays := make([]arrow.Array, len(b.columns))
	for i, col := range b.columns {
		arrays[i] = col.ToArray(mem)
	}
	defer func() {
		for _, arr := range arrays {
			arr.Release()
		}
	}()
	return array.NewRecord(b.schema.ToArrow(), arrays, int64(b.rows))
}

// FromArrow converts an Arrow record into a batch. The columns of rec are
// shared; rec may be released independently of the returned batch.
func FromArrow(rec arrow.Record) (*RecordBatch, error) {
	s, err := schema.FromArrow(rec.Schema())
	if err != nil {
		return nil, err
	}

	columns := make([]vector.ColumnVector, 0, rec.NumCols())
	for i := range int(rec.NumCols()) {
		col, err := vector.NewArray(rec.Column(i))
		if err != nil {
			releaseAll(columns)
			return nil, err
		}
		columns = append(columns, col)
	}

	b, err := New(s, columns)
	if err != nil {
		releaseAll(columns)
		return nil, err
	}
	return b, nil
}

func releaseAll(columns []vector.ColumnVector) {
	for _, col := range columns {
		col.Release()
	}
}
