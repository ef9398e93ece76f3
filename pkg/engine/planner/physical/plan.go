// Package physical defines physical plans: the expressions and nodes the
// executor runs.
package physical

import (
	"fmt"
	"strings"

	"github.com/rqdb/rq/pkg/engine/datasource"
	"github.com/rqdb/rq/pkg/engine/datatype"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/schema"
)

// NodeType represents the type of a node in the physical plan.
type NodeType uint32

const (
	_ NodeType = iota // zero-value is an invalid type

	NodeTypeScan
	NodeTypeProjection
	NodeTypeSelection
)

// String returns the string representation of the [NodeType].
func (t NodeType) String() string {
	switch t {
	case NodeTypeScan:
		return "Scan"
	case NodeTypeProjection:
		return "Projection"
	case NodeTypeSelection:
		return "Selection"
	default:
		return fmt.Sprintf("NodeType(%d)", t)
	}
}

// Node is the common interface of all nodes of a physical plan. The set of
// implementations is closed: [*Scan], [*Projection] and [*Selection].
type Node interface {
	fmt.Stringer
	Type() NodeType
	// Schema returns the schema of the batches produced by the node.
	Schema() (schema.Schema, error)
	// Children returns the inputs of the node, in order.
	Children() []Node
	// Accept calls the type-specific method of v for this node.
	Accept(v Visitor) error
	isNode()
}

var (
	_ Node = (*Scan)(nil)
	_ Node = (*Projection)(nil)
	_ Node = (*Selection)(nil)
)

// Scan reads batches from a [datasource.DataSource]. When Projection is
// non-empty only the named columns are read.
type Scan struct {
	Source     datasource.DataSource
	Projection []string
}

// NewScan returns a scan of source. It fails with ErrColumnNotFound if
// projection names a column the source does not have.
func NewScan(source datasource.DataSource, projection []string) (*Scan, error) {
	if source == nil {
		return nil, fmt.Errorf("scan without data source")
	}
	s := &Scan{Source: source, Projection: projection}
	if _, err := s.Schema(); err != nil {
		return nil, fmt.Errorf("scan of %s: %w", source.Name(), err)
	}
	return s, nil
}

func (*Scan) isNode() {}

// Type implements Node.
func (*Scan) Type() NodeType { return NodeTypeScan }

// Schema implements Node.
func (s *Scan) Schema() (schema.Schema, error) {
	full := s.Source.Schema()
	if len(s.Projection) == 0 {
		return full, nil
	}
	projected, _, err := full.Select(s.Projection)
	return projected, err
}

// Children implements Node. A scan is always a leaf.
func (*Scan) Children() []Node { return nil }

// Accept implements Node.
func (s *Scan) Accept(v Visitor) error { return v.VisitScan(s) }

// String returns the source name and projected columns of the scan.
func (s *Scan) String() string {
	return fmt.Sprintf("Scan: source=%s projection=%s", s.Source.Name(), projectionString(s.Projection))
}

func projectionString(names []string) string {
	if len(names) == 0 {
		return "*"
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// Projection evaluates Expressions against each input batch and produces a
// batch with one column per expression, named after Names.
type Projection struct {
	Input       Node
	Expressions []Expression
	Names       []string
}

// NewProjection returns a projection of input. Every expression needs a
// name, and every expression must be valid for the schema of input.
func NewProjection(input Node, exprs []Expression, names []string) (*Projection, error) {
	if input == nil {
		return nil, fmt.Errorf("projection without input")
	}
	if len(exprs) == 0 {
		return nil, fmt.Errorf("projection without expressions")
	}
	if len(exprs) != len(names) {
		return nil, fmt.Errorf("projection with %d expressions and %d names", len(exprs), len(names))
	}
	p := &Projection{Input: input, Expressions: exprs, Names: names}
	if _, err := p.Schema(); err != nil {
		return nil, fmt.Errorf("projection: %w", err)
	}
	return p, nil
}

func (*Projection) isNode() {}

// Type implements Node.
func (*Projection) Type() NodeType { return NodeTypeProjection }

// Schema implements Node.
func (p *Projection) Schema() (schema.Schema, error) {
	input, err := p.Input.Schema()
	if err != nil {
		return schema.Schema{}, err
	}
	if len(p.Expressions) != len(p.Names) {
		return schema.Schema{}, fmt.Errorf("%d expressions and %d names: %w", len(p.Expressions), len(p.Names), errors.ErrOutOfRange)
	}

	fields := make([]schema.Field, len(p.Expressions))
	for i, expr := range p.Expressions {
		dt, err := expr.DataType(input)
		if err != nil {
			return schema.Schema{}, fmt.Errorf("expression %s: %w", expr, err)
		}
		fields[i] = schema.Field{Name: p.Names[i], Type: dt}
	}
	return schema.New(fields...), nil
}

// Children implements Node.
func (p *Projection) Children() []Node { return []Node{p.Input} }

// Accept implements Node.
func (p *Projection) Accept(v Visitor) error { return v.VisitProjection(p) }

// String returns the expressions of the projection with their names.
func (p *Projection) String() string {
	return "Projection: " + strings.Join(p.columns(), ", ")
}

func (p *Projection) columns() []string {
	columns := make([]string, len(p.Expressions))
	for i, expr := range p.Expressions {
		name := ""
		if i < len(p.Names) {
			name = p.Names[i]
		}
		columns[i] = fmt.Sprintf("%s AS %s", expr, name)
	}
	return columns
}

// Selection keeps the rows of its input for which Predicate evaluates to
// true.
type Selection struct {
	Input     Node
	Predicate Expression
}

// NewSelection returns a selection over input. The predicate must evaluate
// to a boolean for the schema of input.
func NewSelection(input Node, predicate Expression) (*Selection, error) {
	if input == nil {
		return nil, fmt.Errorf("selection without input")
	}
	if predicate == nil {
		return nil, fmt.Errorf("selection without predicate")
	}
	s := &Selection{Input: input, Predicate: predicate}
	if _, err := s.Schema(); err != nil {
		return nil, fmt.Errorf("selection: %w", err)
	}
	return s, nil
}

func (*Selection) isNode() {}

// Type implements Node.
func (*Selection) Type() NodeType { return NodeTypeSelection }

// Schema implements Node. A selection does not change the schema of its
// input.
func (s *Selection) Schema() (schema.Schema, error) {
	input, err := s.Input.Schema()
	if err != nil {
		return schema.Schema{}, err
	}
	dt, err := s.Predicate.DataType(input)
	if err != nil {
		return schema.Schema{}, fmt.Errorf("predicate %s: %w", s.Predicate, err)
	}
	if dt != datatype.Bool {
		return schema.Schema{}, fmt.Errorf("predicate %s is %s, expected %s: %w", s.Predicate, dt, datatype.Bool, errors.ErrTypeMismatch)
	}
	return input, nil
}

// Children implements Node.
func (s *Selection) Children() []Node { return []Node{s.Input} }

// Accept implements Node.
func (s *Selection) Accept(v Visitor) error { return v.VisitSelection(s) }

// String returns the predicate of the selection.
func (s *Selection) String() string {
	return "Selection: " + s.Predicate.String()
}

// Pretty renders n and its descendants depth-first, one line per node.
// Each line is indented with one tab per level, starting at indent.
func Pretty(n Node, indent int) string {
	var sb strings.Builder
	pretty(&sb, n, indent)
	return sb.String()
}

func pretty(sb *strings.Builder, n Node, indent int) {
	sb.WriteString(strings.Repeat("\t", indent))
	sb.WriteString(n.String())
	sb.WriteByte('\n')
	for _, child := range n.Children() {
		pretty(sb, child, indent+1)
	}
}
