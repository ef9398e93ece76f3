// Package planfile decodes physical plans and their data sources from YAML.
package planfile

import (
	"io"
	"path"
	"sort"
	"unicode/utf8"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/rqdb/rq/pkg/engine"
	"github.com/rqdb/rq/pkg/engine/datasource"
	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/planner/physical"
	"github.com/rqdb/rq/pkg/engine/schema"
	"github.com/rqdb/rq/pkg/engine/types"
)

// Source formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// File is the decoded form of a plan file.
type File struct {
	Engine  engine.Config         `yaml:"engine"`
	Sources map[string]SourceSpec `yaml:"sources"`
	Plan    NodeSpec              `yaml:"plan"`
}

// SourceSpec declares a data source.
type SourceSpec struct {
	Format    string      `yaml:"format"`
	Path      string      `yaml:"path"`
	Header    *bool       `yaml:"header"`
	Delimiter string      `yaml:"delimiter"`
	BatchSize int         `yaml:"batch_size"`
	Schema    []FieldSpec `yaml:"schema"`
}

// FieldSpec declares a column of a CSV source.
type FieldSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// NodeSpec declares a plan node. Exactly one field must be set.
type NodeSpec struct {
	Scan       *ScanSpec       `yaml:"scan"`
	Projection *ProjectionSpec `yaml:"projection"`
	Selection  *SelectionSpec  `yaml:"selection"`
}

// ScanSpec declares a [physical.Scan].
type ScanSpec struct {
	Source     string   `yaml:"source"`
	Projection []string `yaml:"projection"`
}

// ProjectionSpec declares a [physical.Projection].
type ProjectionSpec struct {
	Input   NodeSpec     `yaml:"input"`
	Columns []ColumnSpec `yaml:"columns"`
}

// ColumnSpec is a named output column of a projection.
type ColumnSpec struct {
	Name string   `yaml:"name"`
	Expr ExprSpec `yaml:"expr"`
}

// SelectionSpec declares a [physical.Selection].
type SelectionSpec struct {
	Input     NodeSpec `yaml:"input"`
	Predicate ExprSpec `yaml:"predicate"`
}

// ExprSpec declares an expression. Exactly one field must be set.
type ExprSpec struct {
	Column  *int         `yaml:"column"`
	Literal *LiteralSpec `yaml:"literal"`
	Binary  *BinarySpec  `yaml:"binary"`
}

// LiteralSpec declares a typed constant.
type LiteralSpec struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

// BinarySpec declares a binary expression. Op is an operator symbol such as
// `+` or `>=`, or its name such as `ADD`.
type BinarySpec struct {
	Op    string   `yaml:"op"`
	Left  ExprSpec `yaml:"left"`
	Right ExprSpec `yaml:"right"`
}

// Parse decodes a plan file. Unknown fields are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, errors.Wrap(err, "decoding plan file")
	}
	return &f, nil
}

// ParseFile reads and decodes the plan file at name on fsys.
func ParseFile(fsys afero.Fs, name string) (*File, error) {
	fh, err := fsys.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "opening plan file")
	}
	defer fh.Close()

	f, err := Parse(fh)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return f, nil
}

// Options control how data sources are built.
type Options struct {
	// BaseDir is prepended to relative source paths.
	BaseDir string
	// BatchSize applies to sources that do not declare one.
	BatchSize int
	// Allocator is used by all sources.
	Allocator memory.Allocator
}

// Build creates the data sources and the plan of f.
func (f *File) Build(fsys afero.Fs, opts Options) (physical.Node, error) {
	sources, err := f.BuildSources(fsys, opts)
	if err != nil {
		return nil, err
	}
	return f.BuildPlan(sources)
}

// SourceNames returns the names of all declared sources, sorted.
func (f *File) SourceNames() []string {
	names := make([]string, 0, len(f.Sources))
	for name := range f.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildSources creates every data source declared in f.
func (f *File) BuildSources(fsys afero.Fs, opts Options) (map[string]datasource.DataSource, error) {
	sources := make(map[string]datasource.DataSource, len(f.Sources))
	for _, name := range f.SourceNames() {
		source, err := buildSource(fsys, name, f.Sources[name], opts)
		if err != nil {
			return nil, errors.Wrapf(err, "source %s", name)
		}
		sources[name] = source
	}
	return sources, nil
}

func buildSource(fsys afero.Fs, name string, spec SourceSpec, opts Options) (datasource.DataSource, error) {
	p := spec.Path
	if p != "" && !path.IsAbs(p) && opts.BaseDir != "" {
		p = path.Join(opts.BaseDir, p)
	}
	batchSize := spec.BatchSize
	if batchSize == 0 {
		batchSize = opts.BatchSize
	}

	switch spec.Format {
	case FormatCSV, "":
		s, err := buildSchema(spec.Schema)
		if err != nil {
			return nil, err
		}
		header := true
		if spec.Header != nil {
			header = *spec.Header
		}
		var delimiter rune
		if spec.Delimiter != "" {
			if utf8.RuneCountInString(spec.Delimiter) != 1 {
				return nil, errors.Errorf("delimiter %q must be a single character", spec.Delimiter)
			}
			delimiter, _ = utf8.DecodeRuneInString(spec.Delimiter)
		}
		return datasource.NewCSVSource(fsys, name, datasource.CSVConfig{
			Path:      p,
			Schema:    s,
			Header:    header,
			Delimiter: delimiter,
			BatchSize: batchSize,
			Allocator: opts.Allocator,
		})

	case FormatParquet:
		if len(spec.Schema) > 0 {
			return nil, errors.New("parquet sources take their schema from the data files")
		}
		return datasource.NewParquetSource(fsys, name, datasource.ParquetConfig{
			Path:      p,
			BatchSize: batchSize,
			Allocator: opts.Allocator,
		})
	}
	return nil, errors.Errorf("unknown format %q", spec.Format)
}

func buildSchema(specs []FieldSpec) (schema.Schema, error) {
	fields := make([]schema.Field, len(specs))
	for i, spec := range specs {
		if spec.Name == "" {
			return schema.Schema{}, errors.Errorf("field %d has no name", i)
		}
		dt, ok := datatype.Parse(spec.Type)
		if !ok {
			return schema.Schema{}, errors.Errorf("field %s has unknown type %q", spec.Name, spec.Type)
		}
		fields[i] = schema.Field{Name: spec.Name, Type: dt}
	}
	return schema.New(fields...), nil
}

// BuildPlan creates the plan of f over sources.
func (f *File) BuildPlan(sources map[string]datasource.DataSource) (physical.Node, error) {
	n, err := buildNode(f.Plan, sources)
	if err != nil {
		return nil, errors.Wrap(err, "plan")
	}
	return n, nil
}

func buildNode(spec NodeSpec, sources map[string]datasource.DataSource) (physical.Node, error) {
	set := 0
	for _, isSet := range []bool{spec.Scan != nil, spec.Projection != nil, spec.Selection != nil} {
		if isSet {
			set++
		}
	}
	if set != 1 {
		return nil, errors.Errorf("node must declare exactly one of scan, projection or selection, got %d", set)
	}

	switch {
	case spec.Scan != nil:
		source, ok := sources[spec.Scan.Source]
		if !ok {
			return nil, errors.Errorf("scan of undeclared source %q", spec.Scan.Source)
		}
		return physical.NewScan(source, spec.Scan.Projection)

	case spec.Projection != nil:
		input, err := buildNode(spec.Projection.Input, sources)
		if err != nil {
			return nil, errors.Wrap(err, "projection input")
		}
		exprs := make([]physical.Expression, len(spec.Projection.Columns))
		names := make([]string, len(spec.Projection.Columns))
		for i, col := range spec.Projection.Columns {
			if col.Name == "" {
				return nil, errors.Errorf("projection column %d has no name", i)
			}
			exprs[i], err = buildExpr(col.Expr)
			if err != nil {
				return nil, errors.Wrapf(err, "projection column %s", col.Name)
			}
			names[i] = col.Name
		}
		return physical.NewProjection(input, exprs, names)

	default:
		input, err := buildNode(spec.Selection.Input, sources)
		if err != nil {
			return nil, errors.Wrap(err, "selection input")
		}
		predicate, err := buildExpr(spec.Selection.Predicate)
		if err != nil {
			return nil, errors.Wrap(err, "selection predicate")
		}
		return physical.NewSelection(input, predicate)
	}
}

func buildExpr(spec ExprSpec) (physical.Expression, error) {
	set := 0
	for _, isSet := range []bool{spec.Column != nil, spec.Literal != nil, spec.Binary != nil} {
		if isSet {
			set++
		}
	}
	if set != 1 {
		return nil, errors.Errorf("expression must declare exactly one of column, literal or binary, got %d", set)
	}

	switch {
	case spec.Column != nil:
		return physical.NewColumn(*spec.Column), nil

	case spec.Literal != nil:
		dt, ok := datatype.Parse(spec.Literal.Type)
		if !ok {
			return nil, errors.Errorf("literal has unknown type %q", spec.Literal.Type)
		}
		lit, err := datatype.ParseLiteral(dt, spec.Literal.Value)
		if err != nil {
			return nil, err
		}
		return &physical.LiteralExpr{Literal: lit}, nil

	default:
		op, ok := types.ParseBinaryOp(spec.Binary.Op)
		if !ok {
			return nil, errors.Errorf("unknown binary operator %q", spec.Binary.Op)
		}
		left, err := buildExpr(spec.Binary.Left)
		if err != nil {
			return nil, errors.Wrap(err, "left operand")
		}
		right, err := buildExpr(spec.Binary.Right)
		if err != nil {
			return nil, errors.Wrap(err, "right operand")
		}
		return physical.NewBinaryExpr(op, left, right)
	}
}
