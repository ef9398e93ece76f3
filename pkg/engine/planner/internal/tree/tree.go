// Package tree renders hierarchical structures, such as plans, as text.
package tree

// Property is a key-value pair attached to a [Node]. A single-value property
// is printed as `key=value` and a multi-value property as
// `key=(value1, value2, ...)`.
type Property struct {
	Key          string
	Values       []any
	IsMultiValue bool
}

// NewProperty creates a new Property. The multi parameter determines if the
// property is printed as a list.
func NewProperty(key string, multi bool, values ...any) Property {
	return Property{
		Key:          key,
		Values:       values,
		IsMultiValue: multi,
	}
}

// Node is a node of a printable tree.
type Node struct {
	// Name is the display name of the node.
	Name       string
	Properties []Property
	Children   []*Node
}

// NewNode creates a new node with the given name and properties.
func NewNode(name string, properties ...Property) *Node {
	return &Node{
		Name:       name,
		Properties: properties,
	}
}

// AddChild creates a new node and appends it to the children of n.
func (n *Node) AddChild(name string, properties ...Property) *Node {
	child := NewNode(name, properties...)
	n.Children = append(n.Children, child)
	return child
}

// Size returns the number of nodes in the subtree rooted at n.
func (n *Node) Size() int {
	size := 1
	for _, child := range n.Children {
		size += child.Size()
	}
	return size
}
