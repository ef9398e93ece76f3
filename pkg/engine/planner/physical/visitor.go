package physical

import (
	"errors"

	"github.com/rqdb/rq/pkg/engine/datasource"
)

// Visitor defines a type-specific visit method for each concrete node type
// of the physical plan.
type Visitor interface {
	VisitScan(*Scan) error
	VisitProjection(*Projection) error
	VisitSelection(*Selection) error
}

// WalkOrder defines the order in which a node and its children are visited.
type WalkOrder uint8

const (
	// PreOrderWalk processes the current node before visiting any of its
	// children.
	PreOrderWalk WalkOrder = iota

	// PostOrderWalk processes the current node after visiting all of its
	// children.
	PostOrderWalk
)

// Walk performs a depth-first walk of the tree rooted at n, passing each node
// to v. Walking stops at the first error returned by v.
func Walk(n Node, v Visitor, order WalkOrder) error {
	switch order {
	case PreOrderWalk:
		return preOrderWalk(n, v)
	case PostOrderWalk:
		return postOrderWalk(n, v)
	default:
		return errors.New("unsupported walk order. must be one of PreOrderWalk and PostOrderWalk")
	}
}

func preOrderWalk(n Node, v Visitor) error {
	if err := n.Accept(v); err != nil {
		return err
	}
	for _, child := range n.Children() {
		if err := preOrderWalk(child, v); err != nil {
			return err
		}
	}
	return nil
}

func postOrderWalk(n Node, v Visitor) error {
	for _, child := range n.Children() {
		if err := postOrderWalk(child, v); err != nil {
			return err
		}
	}
	return n.Accept(v)
}

// Sources returns the data sources scanned by the tree rooted at n, in
// pre-order.
func Sources(n Node) []datasource.DataSource {
	c := &sourceCollector{}
	_ = Walk(n, c, PreOrderWalk)
	return c.sources
}

type sourceCollector struct {
	sources []datasource.DataSource
}

func (c *sourceCollector) VisitScan(s *Scan) error {
	c.sources = append(c.sources, s.Source)
	return nil
}

func (*sourceCollector) VisitProjection(*Projection) error { return nil }
func (*sourceCollector) VisitSelection(*Selection) error   { return nil }
