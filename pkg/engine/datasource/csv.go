package datasource

import (
	"context"
	"io"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow/csv"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/schema"
)

// DefaultBatchSize is the number of rows per batch used by file sources when
// none is configured.
const DefaultBatchSize = 1024

// CSVConfig configures a [CSVSource].
type CSVConfig struct {
	// Path is a file path or doublestar pattern. All matching files are read in
	// lexical order.
	Path string
	// Schema is the schema of every file. Columns are matched by position.
	Schema schema.Schema
	// Header indicates that the first line of each file holds column names
	// and must be skipped.
	Header bool
	// Delimiter separates fields. Defaults to ','.
	Delimiter rune
	// BatchSize is the maximum number of rows per batch. Defaults to
	// [DefaultBatchSize].
	BatchSize int
	// Allocator is used for the buffers of all batches. Defaults to
	// memory.DefaultAllocator.
	Allocator memory.Allocator
}

// Validate validates the config and applies defaults.
func (cfg *CSVConfig) Validate() error {
	if cfg.Path == "" {
		return errors.New("csv source requires a path")
	}
	if cfg.Schema.NumFields() == 0 {
		return errors.New("csv source requires a schema")
	}
	if cfg.Delimiter == 0 {
		cfg.Delimiter = ','
	}
	if cfg.Delimiter == '\n' || cfg.Delimiter == '\r' || cfg.Delimiter == '"' || !utf8.ValidRune(cfg.Delimiter) {
		return errors.Errorf("invalid csv delimiter %q", cfg.Delimiter)
	}
	if cfg.BatchSize < 0 {
		return errors.Errorf("invalid batch size %d", cfg.BatchSize)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Allocator == nil {
		cfg.Allocator = memory.DefaultAllocator
	}
	return nil
}

// CSVSource reads delimited text files with a declared schema.
type CSVSource struct {
	name string
	fs   afero.Fs
	cfg  CSVConfig
}

var _ DataSource = (*CSVSource)(nil)

// NewCSVSource returns a source named name reading the files matched by
// cfg.Path on fsys.
func NewCSVSource(fsys afero.Fs, name string, cfg CSVConfig) (*CSVSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "csv source %s", name)
	}
	return &CSVSource{name: name, fs: fsys, cfg: cfg}, nil
}

// Name implements DataSource.
func (s *CSVSource) Name() string { return s.name }

// Schema implements DataSource.
func (s *CSVSource) Schema() schema.Schema { return s.cfg.Schema }

// Scan implements DataSource. Files are matched when Scan is called.
func (s *CSVSource) Scan(_ context.Context, projection []string) (Reader, error) {
	if len(projection) > 0 {
		if _, _, err := s.cfg.Schema.Select(projection); err != nil {
			return nil, errors.Wrapf(err, "scan of %s", s.name)
		}
	}
	files, err := globFiles(s.fs, s.cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "scan of %s", s.name)
	}
	return &csvReader{source: s, files: files, projection: projection}, nil
}

type csvReader struct {
	source     *CSVSource
	files      []string
	projection []string

	next    int
	current string
	file    io.ReadCloser
	rdr     *csv.Reader
}

func (r *csvReader) Read(ctx context.Context) (*batch.RecordBatch, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if r.rdr == nil {
			if r.next >= len(r.files) {
				return nil, io.EOF
			}
			if err := r.open(r.files[r.next]); err != nil {
				return nil, err
			}
			r.next++
		}

		if r.rdr.Next() {
			// Values that fail to parse are reported through Err while Next
			// still yields the record.
			if err := r.rdr.Err(); err != nil && !errors.Is(err, io.EOF) {
				return nil, errors.Wrapf(err, "reading %s", r.current)
			}
			return r.convert()
		}

		err := r.rdr.Err()
		name := r.current
		if closeErr := r.closeFile(); err == nil {
			err = closeErr
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "reading %s", name)
		}
	}
}

func (r *csvReader) open(name string) error {
	f, err := openFile(r.source.fs, name)
	if err != nil {
		return err
	}

	cfg := r.source.cfg
	r.current = name
	r.file = f
	r.rdr = csv.NewReader(f, cfg.Schema.ToArrow(),
		csv.WithHeader(cfg.Header),
		csv.WithComma(cfg.Delimiter),
		csv.WithChunk(cfg.BatchSize),
		csv.WithAllocator(cfg.Allocator),
	)
	return nil
}

func (r *csvReader) convert() (*batch.RecordBatch, error) {
	// The record is owned by the csv reader and released on the next call to
	// Next; FromArrow retains the columns it keeps.
	b, err := batch.FromArrow(r.rdr.Record())
	if err != nil {
		return nil, errors.Wrapf(err, "converting %s", r.current)
	}
	if len(r.projection) == 0 {
		return b, nil
	}
	defer b.Release()
	return b.Project(r.projection)
}

func (r *csvReader) closeFile() error {
	if r.rdr == nil {
		return nil
	}
	r.rdr.Release()
	r.rdr = nil
	err := r.file.Close()
	r.file = nil
	r.current = ""
	return err
}

func (r *csvReader) Close() error {
	return r.closeFile()
}
