package datasource

import (
	"context"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/rqdb/rq/pkg/engine/batch"
	rqerrors "github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/schema"
)

// MemorySource serves a fixed list of in-memory batches.
type MemorySource struct {
	name    string
	schema  schema.Schema
	batches []*batch.RecordBatch
}

var _ DataSource = (*MemorySource)(nil)

// NewMemorySource returns a source named name over batches. All batches must
// be of schema s. The source takes over the caller's reference to batches;
// Release must be called once the source is no longer used.
func NewMemorySource(name string, s schema.Schema, batches ...*batch.RecordBatch) (*MemorySource, error) {
	for i, b := range batches {
		if !s.Equal(b.Schema()) {
			return nil, errors.Wrapf(rqerrors.ErrTypeMismatch, "batch %d has schema %s, expected %s", i, b.Schema(), s)
		}
	}
	return &MemorySource{name: name, schema: s, batches: batches}, nil
}

// Name implements DataSource.
func (m *MemorySource) Name() string { return m.name }

// Schema implements DataSource.
func (m *MemorySource) Schema() schema.Schema { return m.schema }

// Scan implements DataSource. Batches are shared, not copied.
func (m *MemorySource) Scan(_ context.Context, projection []string) (Reader, error) {
	if len(projection) > 0 {
		if _, _, err := m.schema.Select(projection); err != nil {
			return nil, errors.Wrapf(err, "scan of %s", m.name)
		}
	}
	return &memoryReader{source: m, projection: projection}, nil
}

// Release releases all batches held by the source.
func (m *MemorySource) Release() {
	for _, b := range m.batches {
		b.Release()
	}
	m.batches = nil
}

type memoryReader struct {
	source     *MemorySource
	projection []string
	next       int
	closed     bool
}

func (r *memoryReader) Read(ctx context.Context) (*batch.RecordBatch, error) {
	if r.closed {
		return nil, fmt.Errorf("read of closed reader for %s", r.source.name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.next >= len(r.source.batches) {
		return nil, io.EOF
	}
	b := r.source.batches[r.next]
	r.next++

	if len(r.projection) == 0 {
		b.Retain()
		return b, nil
	}
	return b.Project(r.projection)
}

func (r *memoryReader) Close() error {
	r.closed = true
	return nil
}
