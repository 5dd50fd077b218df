package tree

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vanderheijden86/assettree/pkg/model"
)

// Criteria are the boolean attribute filters. Enabled criteria are combined
// with OR: a node matches when it satisfies any of them.
type Criteria struct {
	EnergySensors  bool `json:"energySensors" yaml:"energy_sensors"`
	CriticalStatus bool `json:"criticalStatus" yaml:"critical_status"`
}

// Active reports whether any criterion is enabled.
func (c Criteria) Active() bool {
	return c.EnergySensors || c.CriticalStatus
}

// Matches reports whether the node itself satisfies an enabled criterion.
func (c Criteria) Matches(n *Node) bool {
	if c.EnergySensors && n.SensorType == model.SensorEnergy {
		return true
	}
	if c.CriticalStatus && n.Status == model.StatusAlert {
		return true
	}
	return false
}

// Query bundles the free-text search and the attribute criteria.
type Query struct {
	Text     string   `json:"text,omitempty"`
	Criteria Criteria `json:"criteria"`
}

// IsZero reports whether the query filters nothing.
func (q Query) IsZero() bool {
	return strings.TrimSpace(q.Text) == "" && !q.Criteria.Active()
}

// Apply runs the text filter and then, over its result, the criteria filter.
// A node's qualifying path must therefore contain the text AND satisfy one of
// the criteria.
func Apply(forest []*Node, q Query) []*Node {
	out := FilterByText(forest, q.Text)
	if q.Criteria.Active() {
		out = FilterByCriteria(out, q.Criteria)
	}
	return out
}

// FilterByText keeps the nodes whose lower-cased name contains the trimmed,
// lower-cased query, together with their ancestors. A
// whitespace-only query returns forest unchanged.
func FilterByText(forest []*Node, query string) []*Node {
	match := TextMatcher(query)
	if match == nil {
		return forest
	}
	return prune(forest, match)
}

// TextMatcher returns the predicate FilterByText applies to each node, or
// nil for a whitespace-only query.
func TextMatcher(query string) func(*Node) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	caser := cases.Lower(language.Und)
	needle := caser.String(query)
	return func(n *Node) bool {
		return strings.Contains(caser.String(n.Name), needle)
	}
}

// FilterByCriteria keeps the nodes satisfying c together with their
// ancestors. With no criterion enabled it returns forest unchanged.
func FilterByCriteria(forest []*Node, c Criteria) []*Node {
	if !c.Active() {
		return forest
	}
	return prune(forest, c.Matches)
}

// prune rebuilds the forest keeping every node that matches or has a kept
// descendant. The predicate is evaluated at every level, so a matching node
// still loses the parts of its subtree that lead to no match.
func prune(nodes []*Node, match func(*Node) bool) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, node := range nodes {
		if kept := pruneNode(node, match); kept != nil {
			out = append(out, kept)
		}
	}
	return out
}

func pruneNode(node *Node, match func(*Node) bool) *Node {
	children := prune(node.Children, match)
	if len(children) == 0 && !match(node) {
		return nil
	}
	cp := node.shallowCopy(0)
	cp.Children = children
	return cp
}
