package tree

// Walk visits the forest depth-first, parents before children. Returning
// false from fn skips the node's children.
func Walk(forest []*Node, fn func(n *Node, depth int) bool) {
	walk(forest, 0, fn)
}

func walk(nodes []*Node, depth int, fn func(*Node, int) bool) {
	for _, n := range nodes {
		if fn(n, depth) {
			walk(n.Children, depth+1, fn)
		}
	}
}

// Count returns the number of nodes in the forest.
func Count(forest []*Node) int {
	total := 0
	Walk(forest, func(*Node, int) bool {
		total++
		return true
	})
	return total
}

// Find returns the first node with the given key (see Node.Key), or nil.
func Find(forest []*Node, key string) *Node {
	var found *Node
	Walk(forest, func(n *Node, _ int) bool {
		if found != nil {
			return false
		}
		if n.Key() == key {
			found = n
			return false
		}
		return true
	})
	return found
}

// PathTo returns the nodes from a root down to the node with the given key,
// or nil when the key is not in the forest.
func PathTo(forest []*Node, key string) []*Node {
	for _, root := range forest {
		if path := pathTo(root, key); path != nil {
			return path
		}
	}
	return nil
}

func pathTo(node *Node, key string) []*Node {
	if node.Key() == key {
		return []*Node{node}
	}
	for _, child := range node.Children {
		if path := pathTo(child, key); path != nil {
			return append([]*Node{node}, path...)
		}
	}
	return nil
}

// Leaves returns the nodes without children, in walk order.
func Leaves(forest []*Node) []*Node {
	var leaves []*Node
	Walk(forest, func(n *Node, _ int) bool {
		if n.IsLeaf() {
			leaves = append(leaves, n)
		}
		return true
	})
	return leaves
}
