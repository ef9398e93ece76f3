package datasource

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/parquet-go/parquet-go"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/rqdb/rq/pkg/engine/batch"
	"github.com/rqdb/rq/pkg/engine/datatype"
	rqerrors "github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/schema"
	"github.com/rqdb/rq/pkg/engine/vector"
)

// ParquetConfig configures a [ParquetSource].
type ParquetConfig struct {
	// Path is a file path or doublestar pattern. All matching files must share
	// the same schema.
	Path string
	// BatchSize is the maximum number of rows per batch. Defaults to
	// [DefaultBatchSize].
	BatchSize int
	// Allocator is used for the buffers of all batches. Defaults to
	// memory.DefaultAllocator.
	Allocator memory.Allocator
}

// Validate validates the config and applies defaults.
func (cfg *ParquetConfig) Validate() error {
	if cfg.Path == "" {
		return errors.New("parquet source requires a path")
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

// ParquetSource reads flat Parquet files. Its schema is taken from the first
// matching file.
type ParquetSource struct {
	name   string
	fs     afero.Fs
	cfg    ParquetConfig
	schema schema.Schema
}

var _ DataSource = (*ParquetSource)(nil)

// NewParquetSource returns a source named name reading the files matched by
// cfg.Path on fsys.
func NewParquetSource(fsys afero.Fs, name string, cfg ParquetConfig) (*ParquetSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "parquet source %s", name)
	}

	files, err := globFiles(fsys, cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "parquet source %s", name)
	}

	f, pf, err := openParquetFile(fsys, files[0])
	if err != nil {
		return nil, errors.Wrapf(err, "parquet source %s", name)
	}
	defer f.Close()

	s, err := schemaFromParquet(pf.Schema())
	if err != nil {
		return nil, errors.Wrapf(err, "parquet source %s: %s", name, files[0])
	}
	return &ParquetSource{name: name, fs: fsys, cfg: cfg, schema: s}, nil
}

func openParquetFile(fsys afero.Fs, name string) (afero.File, *parquet.File, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "opening %s", name)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, "stat %s", name)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		_ = f.Close()
		return nil, nil, errors.Wrapf(err, "opening parquet file %s", name)
	}
	return f, pf, nil
}

func schemaFromParquet(ps *parquet.Schema) (schema.Schema, error) {
	fields := make([]schema.Field, 0, len(ps.Fields()))
	for _, f := range ps.Fields() {
		if !f.Leaf() || f.Repeated() {
			return schema.Schema{}, errors.Wrapf(rqerrors.ErrNotImplemented, "nested column %s", f.Name())
		}

		var dt datatype.DataType
		switch f.Type().Kind() {
		case parquet.Int64:
			dt = datatype.Int64
		case parquet.Float:
			dt = datatype.Float32
		case parquet.Double:
			dt = datatype.Float64
		case parquet.ByteArray:
			dt = datatype.Utf8
		case parquet.Boolean:
			dt = datatype.Bool
		default:
			return schema.Schema{}, errors.Wrapf(rqerrors.ErrNotImplemented, "column %s of kind %s", f.Name(), f.Type().Kind())
		}
		fields = append(fields, schema.Field{Name: f.Name(), Type: dt})
	}
	return schema.New(fields...), nil
}

// Name implements DataSource.
func (s *ParquetSource) Name() string { return s.name }

// Schema implements DataSource.
func (s *ParquetSource) Schema() schema.Schema { return s.schema }

// Scan implements DataSource.
func (s *ParquetSource) Scan(_ context.Context, projection []string) (Reader, error) {
	if len(projection) > 0 {
		if _, _, err := s.schema.Select(projection); err != nil {
			return nil, errors.Wrapf(err, "scan of %s", s.name)
		}
	}
	files, err := globFiles(s.fs, s.cfg.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "scan of %s", s.name)
	}
	return &parquetReader{
		source:     s,
		files:      files,
		projection: projection,
		rows:       make([]parquet.Row, s.cfg.BatchSize),
	}, nil
}

type parquetReader struct {
	source     *ParquetSource
	files      []string
	projection []string
	rows       []parquet.Row

	next    int
	current string
	file    afero.File
	rdr     *parquet.Reader
	done    bool
}

func (r *parquetReader) Read(ctx context.Context) (*batch.RecordBatch, error) {
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

		if r.done {
			if err := r.closeFile(); err != nil {
				return nil, err
			}
			continue
		}

		n, err := r.rdr.ReadRows(r.rows)
		if errors.Is(err, io.EOF) {
			r.done = true
		} else if err != nil {
			return nil, errors.Wrapf(err, "reading %s", r.current)
		}
		if n == 0 {
			continue
		}
		return r.convert(r.rows[:n])
	}
}

func (r *parquetReader) open(name string) error {
	f, pf, err := openParquetFile(r.source.fs, name)
	if err != nil {
		return err
	}
	s, err := schemaFromParquet(pf.Schema())
	if err != nil {
		_ = f.Close()
		return errors.Wrap(err, name)
	}
	if !s.Equal(r.source.schema) {
		_ = f.Close()
		return errors.Wrapf(rqerrors.ErrTypeMismatch, "%s has schema %s, expected %s", name, s, r.source.schema)
	}

	r.current = name
	r.file = f
	r.rdr = parquet.NewReader(pf)
	r.done = false
	return nil
}

func (r *parquetReader) convert(rows []parquet.Row) (*batch.RecordBatch, error) {
	s := r.source.schema
	values := make([][]datatype.Literal, s.NumFields())
	for i := range values {
		values[i] = make([]datatype.Literal, len(rows))
	}

	for i, row := range rows {
		for _, v := range row {
			col := v.Column()
			if col < 0 || col >= len(values) {
				return nil, errors.Wrapf(rqerrors.ErrColumnIndexOutOfRange, "%s: column %d", r.current, col)
			}
			if v.IsNull() {
				return nil, errors.Wrapf(rqerrors.ErrNullValue, "%s: row %d column %s", r.current, i, s.Fields[col].Name)
			}
			values[col][i] = parquetLiteral(s.Fields[col].Type, v)
		}
	}

	columns := make([]vector.ColumnVector, 0, len(values))
	release := func() {
		for _, col := range columns {
			col.Release()
		}
	}
	for i, column := range values {
		vec, err := vector.FromLiterals(r.source.cfg.Allocator, s.Fields[i].Type, column)
		if err != nil {
			release()
			return nil, errors.Wrapf(err, "%s: column %s", r.current, s.Fields[i].Name)
		}
		columns = append(columns, vec)
	}

	b, err := batch.New(s, columns)
	if err != nil {
		release()
		return nil, err
	}
	if len(r.projection) == 0 {
		return b, nil
	}
	defer b.Release()
	return b.Project(r.projection)
}

func parquetLiteral(dt datatype.DataType, v parquet.Value) datatype.Literal {
	switch dt {
	case datatype.Int64:
		return datatype.Int64Literal(v.Int64())
	case datatype.Float32:
		return datatype.Float32Literal(v.Float())
	case datatype.Float64:
		return datatype.Float64Literal(v.Double())
	case datatype.Bool:
		return datatype.BoolLiteral(v.Boolean())
	default:
		return datatype.StringLiteral(v.ByteArray())
	}
}

func (r *parquetReader) closeFile() error {
	if r.rdr == nil {
		return nil
	}
	_ = r.rdr.Close()
	r.rdr = nil
	err := r.file.Close()
	r.file = nil
	r.current = ""
	return err
}

func (r *parquetReader) Close() error {
	return r.closeFile()
}
