// Package tree builds the location/asset hierarchy and filters it.
//
// Every function in this package is pure: inputs are never mutated and each
// call returns freshly allocated nodes (or the input itself for no-op
// filters). Callers keep transient view state keyed by node ID rather than
// by node pointer, since every rebuild or filter pass produces new nodes.
package tree

import "github.com/vanderheijden86/assettree/pkg/model"

// Node is one entry of the rendered hierarchy.
type Node struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Type       model.NodeType   `json:"type"`
	Status     model.Status     `json:"status,omitempty"`
	SensorType model.SensorType `json:"sensorType,omitempty"`
	// ParentType is the immediate parent's type; empty for roots.
	ParentType model.NodeType `json:"parentType,omitempty"`
	Children   []*Node        `json:"children"`
}

// Key returns an identifier that is unique across the whole forest.
// Location and asset IDs live in separate namespaces, so the bare ID is not
// enough when both collections happen to reuse a value.
func (n *Node) Key() string {
	if n.Type == model.TypeLocation {
		return "location/" + n.ID
	}
	return "asset/" + n.ID
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// shallowCopy returns a copy of n with its own (empty) children slice.
func (n *Node) shallowCopy(capacity int) *Node {
	cp := *n
	cp.Children = make([]*Node, 0, capacity)
	return &cp
}
