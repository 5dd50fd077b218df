package testutil

import (
	"strings"

	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/tree"
)

// T is the subset of testing.TB the assertions need. Both *testing.T and
// *rapid.T satisfy it.
type T interface {
	Helper()
	Errorf(format string, args ...any)
}

// AssertNodeCount verifies the expected number of nodes in a forest.
func AssertNodeCount(t T, forest []*tree.Node, expected int) {
	t.Helper()
	if got := tree.Count(forest); got != expected {
		t.Errorf("expected %d nodes, got %d", expected, got)
	}
}

// AssertNoDuplicateKeys verifies that no node appears twice in a forest.
func AssertNoDuplicateKeys(t T, forest []*tree.Node) {
	t.Helper()
	seen := make(map[string]bool)
	tree.Walk(forest, func(n *tree.Node, _ int) bool {
		if seen[n.Key()] {
			t.Errorf("duplicate node: %s", n.Key())
		}
		seen[n.Key()] = true
		return true
	})
}

// AssertEveryRecordPresent verifies that each location and asset of the
// dataset appears in the forest.
func AssertEveryRecordPresent(t T, ds model.Dataset, forest []*tree.Node) {
	t.Helper()
	present := make(map[string]bool)
	tree.Walk(forest, func(n *tree.Node, _ int) bool {
		present[n.Key()] = true
		return true
	})
	for _, loc := range ds.Locations {
		if !present["location/"+loc.ID] {
			t.Errorf("location %s missing from forest", loc.ID)
		}
	}
	for _, asset := range ds.Assets {
		if !present["asset/"+asset.ID] {
			t.Errorf("asset %s missing from forest", asset.ID)
		}
	}
}

// AssertEveryNodeQualifies verifies that each node in the forest matches or
// has a matching descendant.
func AssertEveryNodeQualifies(t T, forest []*tree.Node, match func(*tree.Node) bool) {
	t.Helper()
	var qualifies func(n *tree.Node) bool
	qualifies = func(n *tree.Node) bool {
		if match(n) {
			return true
		}
		for _, child := range n.Children {
			if qualifies(child) {
				return true
			}
		}
		return false
	}
	tree.Walk(forest, func(n *tree.Node, _ int) bool {
		if !qualifies(n) {
			t.Errorf("node %s neither matches nor leads to a match", n.Key())
		}
		return true
	})
}

// AssertContainsAllMatches verifies that every node of source satisfying
// match is still present in filtered.
func AssertContainsAllMatches(t T, source, filtered []*tree.Node, match func(*tree.Node) bool) {
	t.Helper()
	kept := make(map[string]bool)
	tree.Walk(filtered, func(n *tree.Node, _ int) bool {
		kept[n.Key()] = true
		return true
	})
	tree.Walk(source, func(n *tree.Node, _ int) bool {
		if match(n) && !kept[n.Key()] {
			t.Errorf("matching node %s was dropped", n.Key())
		}
		return true
	})
}

// NameContains returns a case-insensitive name predicate for assertions.
func NameContains(query string) func(*tree.Node) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	return func(n *tree.Node) bool {
		return strings.Contains(strings.ToLower(n.Name), q)
	}
}
