package tree

import "github.com/vanderheijden86/assettree/pkg/model"

// Build converts the flat location and asset collections into a forest.
//
// Assets attach, in priority order, to the asset named by ParentID, else to
// the location named by LocationID, else they are roots. Once a reference
// field is set only that field is tried: an asset whose ParentID does not
// resolve becomes a root even if its LocationID would. Locations attach to
// their parent location or are roots.
//
// Duplicate IDs within one collection are accepted: the last record wins the
// ID slot and the entity is attached once, using that record's references.
// Use BuildStrict to reject duplicates instead.
//
// The input is trusted to be acyclic. If it is not, the first node of each
// cycle (in input order, assets before locations) is promoted to a root so
// that no entity disappears from the forest.
//
// The result lists asset roots before location roots; apply OrderSiblings or
// Sorted before display.
func Build(locations []model.Location, assets []model.Asset) []*Node {
	locationNodes := make(map[string]*Node, len(locations))
	lastLocation := make(map[string]int, len(locations))
	for i := range locations {
		loc := &locations[i]
		locationNodes[loc.ID] = &Node{
			ID:       loc.ID,
			Name:     loc.Name,
			Type:     model.TypeLocation,
			Children: []*Node{},
		}
		lastLocation[loc.ID] = i
	}

	assetNodes := make(map[string]*Node, len(assets))
	lastAsset := make(map[string]int, len(assets))
	for i := range assets {
		asset := &assets[i]
		assetNodes[asset.ID] = &Node{
			ID:         asset.ID,
			Name:       asset.Name,
			Type:       asset.NodeType(),
			Status:     asset.Status,
			SensorType: asset.SensorType,
			Children:   []*Node{},
		}
		lastAsset[asset.ID] = i
	}

	b := builder{parentOf: make(map[*Node]*Node, len(assetNodes)+len(locationNodes))}

	var assetRoots []*Node
	for i := range assets {
		asset := &assets[i]
		if lastAsset[asset.ID] != i {
			continue // superseded by a later record with the same ID
		}
		node := assetNodes[asset.ID]
		b.order = append(b.order, node)

		var parent *Node
		switch {
		case asset.ParentID != "":
			parent = assetNodes[asset.ParentID]
		case asset.LocationID != "":
			parent = locationNodes[asset.LocationID]
		}
		if parent == nil {
			assetRoots = append(assetRoots, node)
			continue
		}
		b.attach(parent, node)
	}

	var locationRoots []*Node
	for i := range locations {
		loc := &locations[i]
		if lastLocation[loc.ID] != i {
			continue
		}
		node := locationNodes[loc.ID]
		b.order = append(b.order, node)

		var parent *Node
		if loc.ParentID != "" {
			parent = locationNodes[loc.ParentID]
		}
		if parent == nil {
			locationRoots = append(locationRoots, node)
			continue
		}
		b.attach(parent, node)
	}

	roots := make([]*Node, 0, len(assetRoots)+len(locationRoots))
	roots = append(roots, assetRoots...)
	roots = append(roots, locationRoots...)
	return b.promoteUnreachable(roots)
}

// BuildStrict validates the collections before building. It returns a
// *ValidationError when either collection has duplicate IDs or a reference
// cycle.
func BuildStrict(locations []model.Location, assets []model.Asset) ([]*Node, error) {
	if verr := Validate(locations, assets); verr != nil {
		return nil, verr
	}
	return Build(locations, assets), nil
}

type builder struct {
	parentOf map[*Node]*Node
	order    []*Node // every distinct node, assets first, in input order
}

func (b *builder) attach(parent, child *Node) {
	child.ParentType = parent.Type
	parent.Children = append(parent.Children, child)
	b.parentOf[child] = parent
}

// promoteUnreachable detaches and roots one member of every cycle. With a
// single parent per node, anything not reachable from a root sits on or below
// a cycle. Following parent links from such a node always ends in the cycle;
// only the cycle member earliest in input order is cut loose, so nodes
// hanging below the cycle keep their parents.
func (b *builder) promoteUnreachable(roots []*Node) []*Node {
	reached := make(map[*Node]bool, len(b.order))
	var mark func(n *Node)
	mark = func(n *Node) {
		reached[n] = true
		for _, child := range n.Children {
			if !reached[child] {
				mark(child)
			}
		}
	}
	for _, root := range roots {
		mark(root)
	}
	if len(reached) == len(b.order) {
		return roots
	}

	rank := make(map[*Node]int, len(b.order))
	for i, node := range b.order {
		rank[node] = i
	}

	for _, node := range b.order {
		if reached[node] {
			continue
		}
		head := b.cycleHead(node, rank)
		if parent := b.parentOf[head]; parent != nil {
			parent.Children = removeChild(parent.Children, head)
			delete(b.parentOf, head)
		}
		head.ParentType = ""
		roots = append(roots, head)
		mark(head)
	}
	return roots
}

// cycleHead follows parent links from an unreachable node until one repeats
// and returns the member of that cycle that comes first in input order.
func (b *builder) cycleHead(node *Node, rank map[*Node]int) *Node {
	seen := make(map[*Node]bool)
	n := node
	for !seen[n] {
		seen[n] = true
		n = b.parentOf[n]
	}
	head := n
	for m := b.parentOf[n]; m != n; m = b.parentOf[m] {
		if rank[m] < rank[head] {
			head = m
		}
	}
	return head
}

func removeChild(children []*Node, target *Node) []*Node {
	out := children[:0]
	for _, child := range children {
		if child != target {
			out = append(out, child)
		}
	}
	return out
}
