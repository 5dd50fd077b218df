package tree

import "sort"

// OrderSiblings returns a copy of children sorted by type rank
// (location → asset → component). Nodes of the same type keep their
// relative order.
func OrderSiblings(children []*Node) []*Node {
	out := make([]*Node, len(children))
	copy(out, children)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Type.Rank() < out[j].Type.Rank()
	})
	return out
}

// Sorted returns a copy of the forest with OrderSiblings applied to the roots
// and to every children list.
func Sorted(forest []*Node) []*Node {
	ordered := OrderSiblings(forest)
	for i, node := range ordered {
		cp := node.shallowCopy(0)
		cp.Children = Sorted(node.Children)
		ordered[i] = cp
	}
	return ordered
}
