package physical

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rqdb/rq/pkg/engine/datasource"
	"github.com/rqdb/rq/pkg/engine/internal/errors"
	"github.com/rqdb/rq/pkg/engine/types"
)

func testPlan(t *testing.T) (*Scan, *Selection, *Projection) {
	t.Helper()

	source, err := datasource.NewMemorySource("people", peopleSchema)
	require.NoError(t, err)

	scan, err := NewScan(source, []string{"id", "name"})
	require.NoError(t, err)

	selection, err := NewSelection(scan, binary(t, types.BinaryOpGt, NewColumn(0), NewLiteral(int64(2))))
	require.NoError(t, err)

	projection, err := NewProjection(selection,
		[]Expression{NewColumn(0), binary(t, types.BinaryOpAdd, NewColumn(0), NewLiteral(int64(1)))},
		[]string{"id", "next_id"},
	)
	require.NoError(t, err)

	return scan, selection, projection
}

func TestNodeString(t *testing.T) {
	scan, selection, projection := testPlan(t)

	require.Equal(t, "Scan: source=people projection=[id, name]", scan.String())
	require.Equal(t, "Selection: #0 > 2", selection.String())
	require.Equal(t, "Projection: #0 AS id, #0 + 1 AS next_id", projection.String())

	full := &Scan{Source: scan.Source}
	require.Equal(t, "Scan: source=people projection=*", full.String())
}

func TestNodeChildren(t *testing.T) {
	scan, selection, projection := testPlan(t)

	require.Empty(t, scan.Children())
	require.Equal(t, []Node{scan}, selection.Children())
	require.Equal(t, []Node{selection}, projection.Children())
}

func TestNodeSchema(t *testing.T) {
	scan, selection, projection := testPlan(t)

	s, err := scan.Schema()
	require.NoError(t, err)
	require.Equal(t, "[id: int64, name: utf8]", s.String())

	s, err = selection.Schema()
	require.NoError(t, err)
	require.Equal(t, "[id: int64, name: utf8]", s.String())

	s, err = projection.Schema()
	require.NoError(t, err)
	require.Equal(t, "[id: int64, next_id: int64]", s.String())
}

func TestNodeValidation(t *testing.T) {
	scan, _, _ := testPlan(t)

	t.Run("scan of unknown column", func(t *testing.T) {
		_, err := NewScan(scan.Source, []string{"missing"})
		require.ErrorIs(t, err, errors.ErrColumnNotFound)
	})

	t.Run("non-boolean predicate", func(t *testing.T) {
		_, err := NewSelection(scan, NewColumn(0))
		require.ErrorIs(t, err, errors.ErrTypeMismatch)
	})

	t.Run("predicate referencing unknown column", func(t *testing.T) {
		_, err := NewSelection(scan, binary(t, types.BinaryOpEq, NewColumn(5), NewLiteral(int64(1))))
		require.ErrorIs(t, err, errors.ErrColumnIndexOutOfRange)
	})

	t.Run("names do not match expressions", func(t *testing.T) {
		_, err := NewProjection(scan, []Expression{NewColumn(0)}, []string{"a", "b"})
		require.Error(t, err)
	})

	t.Run("projection of unsupported operation", func(t *testing.T) {
		_, err := NewProjection(scan, []Expression{binary(t, types.BinaryOpAdd, NewColumn(1), NewColumn(1))}, []string{"a"})
		require.ErrorIs(t, err, errors.ErrNotImplemented)
	})
}

func TestPretty(t *testing.T) {
	scan, _, projection := testPlan(t)

	expected := "Projection: #0 AS id, #0 + 1 AS next_id\n" +
		"\tSelection: #0 > 2\n" +
		"\t\tScan: source=people projection=[id, name]\n"
	require.Equal(t, expected, Pretty(projection, 0))

	out := Pretty(projection, 0)
	require.Equal(t, 3, strings.Count(out, "\n"))
	require.Equal(t, "\t\tScan: source=people projection=[id, name]\n", Pretty(scan, 2))
}

func TestPrintAsTree(t *testing.T) {
	_, _, projection := testPlan(t)

	expected := `
Projection columns=(#0 AS id, #0 + 1 AS next_id)
└── Selection predicate=#0 > 2
    └── Scan source=people projection=(id, name)
`
	require.Equal(t, expected, "\n"+PrintAsTree(projection))
}

type recordingVisitor struct {
	visited []NodeType
}

func (v *recordingVisitor) VisitScan(*Scan) error {
	v.visited = append(v.visited, NodeTypeScan)
	return nil
}

func (v *recordingVisitor) VisitProjection(*Projection) error {
	v.visited = append(v.visited, NodeTypeProjection)
	return nil
}

func (v *recordingVisitor) VisitSelection(*Selection) error {
	v.visited = append(v.visited, NodeTypeSelection)
	return nil
}

func TestWalk(t *testing.T) {
	_, _, projection := testPlan(t)

	pre := &recordingVisitor{}
	require.NoError(t, Walk(projection, pre, PreOrderWalk))
	require.Equal(t, []NodeType{NodeTypeProjection, NodeTypeSelection, NodeTypeScan}, pre.visited)

	post := &recordingVisitor{}
	require.NoError(t, Walk(projection, post, PostOrderWalk))
	require.Equal(t, []NodeType{NodeTypeScan, NodeTypeSelection, NodeTypeProjection}, post.visited)

	sources := Sources(projection)
	require.Len(t, sources, 1)
	require.Equal(t, "people", sources[0].Name())
}
