package executor

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/datasource"
	"github.com/rqdb/rq/pkg/engine/schema"
)

// scanPipeline streams the batches of an open [datasource.Reader].
type scanPipeline struct {
	source string
	schema schema.Schema
	reader datasource.Reader
	logger log.Logger
}

var _ Pipeline = (*scanPipeline)(nil)

func newScanPipeline(source string, s schema.Schema, reader datasource.Reader, logger log.Logger) *scanPipeline {
	return &scanPipeline{
		source: source,
		schema: s,
		reader: reader,
		logger: logger,
	}
}

// Read implements Pipeline.
func (p *scanPipeline) Read(ctx context.Context) (*batch.RecordBatch, error) {
	rec, err := p.reader.Read(ctx)
	if errors.Is(err, io.EOF) {
		return nil, EOF
	} else if err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.source, err)
	}

	if !p.schema.Equal(rec.Schema()) {
		rec.Release()
		return nil, fmt.Errorf("source %s returned batch of schema %s, expected %s", p.source, rec.Schema(), p.schema)
	}
	return rec, nil
}

// Close implements Pipeline.
func (p *scanPipeline) Close() {
	if err := p.reader.Close(); err != nil {
		level.Warn(p.logger).Log("msg", "failed to close data source reader", "source", p.source, "err", err)
	}
}
