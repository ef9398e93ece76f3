// Package datasource provides the inputs scanned by the leaves of a physical
// plan.
package datasource

import (
	"context"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/schema"
)

// DataSource is a named, schema-bearing table that can be scanned.
type DataSource interface {
	// Name returns the name the source is referenced by in plans.
	Name() string
	// Schema returns the full schema of the source.
	Schema() schema.Schema
	// Scan opens a reader over the source. When projection is non-empty, the
	// batches returned by the reader only hold the named columns, in the
	// given order.
	Scan(ctx context.Context, projection []string) (Reader, error)
}

// Reader streams the batches of a [DataSource]. Read returns io.EOF once all
// batches have been returned. Callers own returned batches and must release
// them.
type Reader interface {
	Read(ctx context.Context) (*batch.RecordBatch, error)
	Close() error
}
