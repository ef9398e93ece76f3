package physical

import (
	"strings"

	"github.com/rqdb/rq/pkg/engine/planner/internal/tree"
)

// BuildTree converts a physical plan node and its children into a tree
// structure for visualization.
func BuildTree(n Node) *tree.Node {
	root := toTreeNode(n)
	for _, child := range n.Children() {
		root.Children = append(root.Children, BuildTree(child))
	}
	return root
}

func toTreeNode(n Node) *tree.Node {
	treeNode := tree.NewNode(n.Type().String())
	switch node := n.(type) {
	case *Scan:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("source", false, node.Source.Name()),
		}
		if len(node.Projection) > 0 {
			treeNode.Properties = append(treeNode.Properties, tree.NewProperty("projection", true, toAnySlice(node.Projection)...))
		}
	case *Projection:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("columns", true, toAnySlice(node.columns())...),
		}
	case *Selection:
		treeNode.Properties = []tree.Property{
			tree.NewProperty("predicate", false, node.Predicate.String()),
		}
	}
	return treeNode
}

func toAnySlice[T any](s []T) []any {
	ret := make([]any, len(s))
	for i := range s {
		ret[i] = s[i]
	}
	return ret
}

// PrintAsTree renders n and its descendants as a box-drawing tree, one line
// per node.
func PrintAsTree(n Node) string {
	sb := &strings.Builder{}
	// Writes to a strings.Builder never fail.
	_ = tree.NewPrinter(sb).Print(BuildTree(n))
	return sb.String()
}
