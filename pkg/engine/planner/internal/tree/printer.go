package tree

import (
	"fmt"
	"io"
	"strings"
)

const (
	symBranch   = "├── "
	symLast     = "└── "
	symVertical = "│   "
	symIndent   = "    "
)

// Printer writes a [Node] and its descendants using box-drawing connectors,
// one line per node:
//
//	Selection predicate=#0 > 2
//	└── Scan source=people projection=*
type Printer struct {
	w io.Writer
}

// NewPrinter returns a printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Print writes the tree rooted at n.
func (p *Printer) Print(n *Node) error {
	return p.printNode(n, "", "")
}

func (p *Printer) printNode(n *Node, prefix, childPrefix string) error {
	if _, err := io.WriteString(p.w, prefix+header(n)+"\n"); err != nil {
		return err
	}
	for i, child := range n.Children {
		last := i == len(n.Children)-1
		connector, indent := symBranch, symVertical
		if last {
			connector, indent = symLast, symIndent
		}
		if err := p.printNode(child, childPrefix+connector, childPrefix+indent); err != nil {
			return err
		}
	}
	return nil
}

func header(n *Node) string {
	var sb strings.Builder
	sb.WriteString(n.Name)
	for _, prop := range n.Properties {
		sb.WriteByte(' ')
		sb.WriteString(prop.Key)
		sb.WriteByte('=')
		if prop.IsMultiValue {
			sb.WriteByte('(')
		}
		for i, v := range prop.Values {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprint(&sb, v)
		}
		if prop.IsMultiValue {
			sb.WriteByte(')')
		}
	}
	return sb.String()
}
