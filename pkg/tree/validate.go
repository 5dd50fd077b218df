package tree

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/assettree/pkg/model"
)

var (
	// ErrDuplicateID reports an ID used by more than one record of the same collection.
	ErrDuplicateID = errors.New("duplicate id")
	// ErrCycle reports parent references that loop back on themselves.
	ErrCycle = errors.New("reference cycle")
)

// ValidationError lists every precondition violation found in a dataset.
// Cycle members are node keys (see Node.Key), starting from the smallest key.
type ValidationError struct {
	DuplicateLocations []string
	DuplicateAssets    []string
	Cycles             [][]string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.DuplicateLocations) > 0 {
		parts = append(parts, fmt.Sprintf("%v: locations %s", ErrDuplicateID, strings.Join(e.DuplicateLocations, ", ")))
	}
	if len(e.DuplicateAssets) > 0 {
		parts = append(parts, fmt.Sprintf("%v: assets %s", ErrDuplicateID, strings.Join(e.DuplicateAssets, ", ")))
	}
	for _, cycle := range e.Cycles {
		parts = append(parts, fmt.Sprintf("%v: %s -> %s", ErrCycle, strings.Join(cycle, " -> "), cycle[0]))
	}
	return "invalid dataset: " + strings.Join(parts, "; ")
}

// Unwrap lets errors.Is match ErrDuplicateID and ErrCycle.
func (e *ValidationError) Unwrap() []error {
	var errs []error
	if len(e.DuplicateLocations) > 0 || len(e.DuplicateAssets) > 0 {
		errs = append(errs, ErrDuplicateID)
	}
	if len(e.Cycles) > 0 {
		errs = append(errs, ErrCycle)
	}
	return errs
}

// Validate checks the preconditions Build relies on: IDs unique within each
// collection and no reference cycles. It returns nil for a clean dataset.
// References are resolved with the same rules as Build, so a dangling
// reference is not an error.
func Validate(locations []model.Location, assets []model.Asset) *ValidationError {
	verr := &ValidationError{}

	locationByID := make(map[string]*model.Location, len(locations))
	for i := range locations {
		if _, dup := locationByID[locations[i].ID]; dup {
			verr.DuplicateLocations = appendUnique(verr.DuplicateLocations, locations[i].ID)
		}
		locationByID[locations[i].ID] = &locations[i]
	}
	assetByID := make(map[string]*model.Asset, len(assets))
	for i := range assets {
		if _, dup := assetByID[assets[i].ID]; dup {
			verr.DuplicateAssets = appendUnique(verr.DuplicateAssets, assets[i].ID)
		}
		assetByID[assets[i].ID] = &assets[i]
	}

	verr.Cycles = findCycles(locationByID, assetByID)

	if len(verr.DuplicateLocations) == 0 && len(verr.DuplicateAssets) == 0 && len(verr.Cycles) == 0 {
		return nil
	}
	return verr
}

// findCycles builds the child -> parent graph and returns its elementary
// cycles. Self references are reported directly since the graph rejects
// self edges.
func findCycles(locations map[string]*model.Location, assets map[string]*model.Asset) [][]string {
	g := simple.NewDirectedGraph()
	ids := make(map[string]int64)
	keys := make(map[int64]string)
	nodeFor := func(key string) graph.Node {
		id, ok := ids[key]
		if !ok {
			id = int64(len(ids))
			ids[key] = id
			keys[id] = key
			g.AddNode(simple.Node(id))
		}
		return simple.Node(id)
	}

	var cycles [][]string
	addEdge := func(child, parent string) {
		if child == parent {
			cycles = append(cycles, []string{child})
			return
		}
		g.SetEdge(g.NewEdge(nodeFor(child), nodeFor(parent)))
	}

	for id, asset := range assets {
		child := "asset/" + id
		switch {
		case asset.ParentID != "":
			if _, ok := assets[asset.ParentID]; ok {
				addEdge(child, "asset/"+asset.ParentID)
			}
		case asset.LocationID != "":
			if _, ok := locations[asset.LocationID]; ok {
				addEdge(child, "location/"+asset.LocationID)
			}
		}
	}
	for id, loc := range locations {
		if loc.ParentID == "" {
			continue
		}
		if _, ok := locations[loc.ParentID]; ok {
			addEdge("location/"+id, "location/"+loc.ParentID)
		}
	}

	for _, cycle := range topo.DirectedCyclesIn(g) {
		if len(cycle) > 1 && cycle[0].ID() == cycle[len(cycle)-1].ID() {
			cycle = cycle[:len(cycle)-1]
		}
		members := make([]string, len(cycle))
		for i, n := range cycle {
			members[i] = keys[n.ID()]
		}
		cycles = append(cycles, members)
	}

	for i, cycle := range cycles {
		cycles[i] = rotateToSmallest(cycle)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

// rotateToSmallest rotates a cycle so that it starts at its smallest key,
// keeping the edge direction.
func rotateToSmallest(cycle []string) []string {
	start := 0
	for i, key := range cycle {
		if key < cycle[start] {
			start = i
		}
	}
	out := make([]string, 0, len(cycle))
	out = append(out, cycle[start:]...)
	out = append(out, cycle[:start]...)
	return out
}

func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
