package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/assettree/pkg/tree"
)

// treeRow is one visible line of the tree view.
type treeRow struct {
	node   *tree.Node
	depth  int
	prefix string // branch characters, unstyled
	parent int    // row index of the parent, -1 for roots
}

// TreeModel manages the hierarchical tree view state.
//
// The forest is replaced wholesale on every rebuild or filter pass, so all
// view state (expanded nodes, selection) is keyed by tree.Node.Key and never
// by node pointer.
type TreeModel struct {
	roots          []*tree.Node
	rows           []treeRow
	cursor         int
	viewportOffset int
	width          int
	height         int
	theme          Theme

	expandDepth int
	expanded    map[string]bool
	seen        map[string]bool
	selectedKey string

	// Filter state
	filtered bool
	match    func(*tree.Node) bool
}

// NewTreeModel creates an empty tree model. Nodes shallower than
// expandDepth start expanded the first time they appear.
func NewTreeModel(theme Theme, expandDepth int) TreeModel {
	if expandDepth < 0 {
		expandDepth = 0
	}
	return TreeModel{
		theme:       theme,
		expandDepth: expandDepth,
		expanded:    make(map[string]bool),
		seen:        make(map[string]bool),
	}
}

// SetSize sets the rendering area.
func (t *TreeModel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.ensureCursorVisible()
}

// SetForest replaces the displayed forest. filtered marks the forest as the
// result of an active search or criteria filter; in that case every remaining
// branch is expanded so each match is visible. query, when non-empty, is the
// text search to highlight.
func (t *TreeModel) SetForest(roots []*tree.Node, filtered bool, query string) {
	t.roots = roots
	t.filtered = filtered
	t.match = tree.TextMatcher(query)

	tree.Walk(roots, func(n *tree.Node, depth int) bool {
		key := n.Key()
		if !t.seen[key] {
			t.seen[key] = true
			t.expanded[key] = depth < t.expandDepth
		}
		if filtered && !n.IsLeaf() {
			t.expanded[key] = true
		}
		return true
	})

	t.rebuildRows()
	t.restoreSelection()
}

// rebuildRows rebuilds the flattened list of visible nodes.
func (t *TreeModel) rebuildRows() {
	t.rows = t.rows[:0]
	for i, root := range t.roots {
		t.appendVisible(root, 0, "", i == len(t.roots)-1, -1)
	}
	if t.cursor >= len(t.rows) {
		t.cursor = len(t.rows) - 1
	}
	if t.cursor < 0 {
		t.cursor = 0
	}
}

// appendVisible adds a node and its visible descendants to rows.
func (t *TreeModel) appendVisible(n *tree.Node, depth int, guide string, last bool, parent int) {
	prefix, childGuide := "", ""
	if depth > 0 {
		if last {
			prefix, childGuide = guide+"└── ", guide+"    "
		} else {
			prefix, childGuide = guide+"├── ", guide+"│   "
		}
	}

	idx := len(t.rows)
	t.rows = append(t.rows, treeRow{node: n, depth: depth, prefix: prefix, parent: parent})
	if !t.expanded[n.Key()] {
		return
	}
	for i, child := range n.Children {
		t.appendVisible(child, depth+1, childGuide, i == len(n.Children)-1, idx)
	}
}

// restoreSelection puts the cursor back on the selected key if it is still
// visible. The key is kept when it is not, so the selection comes back once
// a filter is cleared.
func (t *TreeModel) restoreSelection() {
	if t.selectedKey != "" {
		for i, row := range t.rows {
			if row.node.Key() == t.selectedKey {
				t.cursor = i
				t.ensureCursorVisible()
				return
			}
		}
	} else if len(t.rows) > 0 {
		t.selectedKey = t.rows[t.cursor].node.Key()
	}
	t.ensureCursorVisible()
}

// setCursor moves the cursor and records the selection.
func (t *TreeModel) setCursor(i int) {
	if len(t.rows) == 0 {
		return
	}
	if i >= len(t.rows) {
		i = len(t.rows) - 1
	}
	if i < 0 {
		i = 0
	}
	t.cursor = i
	t.selectedKey = t.rows[i].node.Key()
	t.ensureCursorVisible()
}

// SelectedNode returns the node under the cursor, or nil if the view is empty.
func (t *TreeModel) SelectedNode() *tree.Node {
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		return t.rows[t.cursor].node
	}
	return nil
}

// SelectedKey returns the key of the selected node. It may refer to a node
// hidden by the current filter.
func (t *TreeModel) SelectedKey() string {
	return t.selectedKey
}

// SelectByKey moves the cursor to the visible node with the given key.
// Returns true if found, false otherwise.
func (t *TreeModel) SelectByKey(key string) bool {
	for i, row := range t.rows {
		if row.node.Key() == key {
			t.setCursor(i)
			return true
		}
	}
	return false
}

// IsExpanded reports whether the node with key shows its children.
func (t *TreeModel) IsExpanded(key string) bool {
	return t.expanded[key]
}

// MoveDown moves the cursor down in the flat list.
func (t *TreeModel) MoveDown() {
	if t.cursor < len(t.rows)-1 {
		t.setCursor(t.cursor + 1)
	}
}

// MoveUp moves the cursor up in the flat list.
func (t *TreeModel) MoveUp() {
	if t.cursor > 0 {
		t.setCursor(t.cursor - 1)
	}
}

// JumpToTop moves the cursor to the first row.
func (t *TreeModel) JumpToTop() {
	t.setCursor(0)
}

// JumpToBottom moves the cursor to the last row.
func (t *TreeModel) JumpToBottom() {
	t.setCursor(len(t.rows) - 1)
}

// PageDown moves cursor down by half a viewport.
func (t *TreeModel) PageDown() {
	t.setCursor(t.cursor + t.halfPage())
}

// PageUp moves cursor up by half a viewport.
func (t *TreeModel) PageUp() {
	t.setCursor(t.cursor - t.halfPage())
}

func (t *TreeModel) halfPage() int {
	pageSize := t.height / 2
	if pageSize < 1 {
		pageSize = 5
	}
	return pageSize
}

// ToggleExpand expands or collapses the selected node. Leaves are left alone.
func (t *TreeModel) ToggleExpand() {
	node := t.SelectedNode()
	if node == nil || node.IsLeaf() {
		return
	}
	key := node.Key()
	t.expanded[key] = !t.expanded[key]
	t.rebuildRows()
	t.ensureCursorVisible()
}

// ExpandOrEnter expands a collapsed node, or moves to the first child of an
// expanded one.
func (t *TreeModel) ExpandOrEnter() {
	node := t.SelectedNode()
	if node == nil || node.IsLeaf() {
		return
	}
	if !t.expanded[node.Key()] {
		t.ToggleExpand()
		return
	}
	t.MoveDown()
}

// CollapseOrJumpToParent collapses an expanded node, or moves to the parent
// of a collapsed one or a leaf.
func (t *TreeModel) CollapseOrJumpToParent() {
	node := t.SelectedNode()
	if node == nil {
		return
	}
	if !node.IsLeaf() && t.expanded[node.Key()] {
		t.ToggleExpand()
		return
	}
	t.JumpToParent()
}

// JumpToParent moves the cursor to the parent of the selected node.
func (t *TreeModel) JumpToParent() {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return
	}
	if parent := t.rows[t.cursor].parent; parent >= 0 {
		t.setCursor(parent)
	}
}

// ExpandAll expands every node in the forest.
func (t *TreeModel) ExpandAll() {
	t.setExpandedAll(true)
}

// CollapseAll collapses every node and moves the cursor to the root of the
// previously selected node.
func (t *TreeModel) CollapseAll() {
	rootKey := ""
	if t.cursor >= 0 && t.cursor < len(t.rows) {
		i := t.cursor
		for t.rows[i].parent >= 0 {
			i = t.rows[i].parent
		}
		rootKey = t.rows[i].node.Key()
	}
	t.setExpandedAll(false)
	if rootKey != "" {
		t.SelectByKey(rootKey)
	}
}

func (t *TreeModel) setExpandedAll(expanded bool) {
	tree.Walk(t.roots, func(n *tree.Node, _ int) bool {
		if !n.IsLeaf() {
			t.expanded[n.Key()] = expanded
		}
		return true
	})
	t.rebuildRows()
	t.restoreSelection()
}

// NodeCount returns the total number of visible nodes.
func (t *TreeModel) NodeCount() int {
	return len(t.rows)
}

// RootCount returns the number of root nodes.
func (t *TreeModel) RootCount() int {
	return len(t.roots)
}

// IsFiltered reports whether the forest came from an active filter.
func (t *TreeModel) IsFiltered() bool {
	return t.filtered
}

// effectiveVisibleCount returns the number of node lines that can be
// displayed, reserving one line for the position indicator when scrolling.
func (t *TreeModel) effectiveVisibleCount() int {
	visibleCount := t.height
	if visibleCount <= 0 {
		visibleCount = 20
	}
	if len(t.rows) > visibleCount {
		visibleCount--
	}
	if visibleCount < 1 {
		visibleCount = 1
	}
	return visibleCount
}

// ensureCursorVisible adjusts viewportOffset so the cursor is visible,
// scrolling just enough to keep it on screen.
func (t *TreeModel) ensureCursorVisible() {
	if len(t.rows) == 0 {
		t.viewportOffset = 0
		return
	}

	visibleCount := t.effectiveVisibleCount()

	if t.cursor < t.viewportOffset {
		t.viewportOffset = t.cursor
	}
	if t.cursor >= t.viewportOffset+visibleCount {
		t.viewportOffset = t.cursor - visibleCount + 1
	}

	maxOffset := len(t.rows) - visibleCount
	if maxOffset < 0 {
		maxOffset = 0
	}
	if t.viewportOffset > maxOffset {
		t.viewportOffset = maxOffset
	}
	if t.viewportOffset < 0 {
		t.viewportOffset = 0
	}
}

// visibleRange returns the [start, end) row indices inside the viewport.
func (t *TreeModel) visibleRange() (start, end int) {
	if len(t.rows) == 0 {
		return 0, 0
	}
	visibleCount := t.effectiveVisibleCount()
	start = t.viewportOffset
	if start < 0 {
		start = 0
	}
	end = start + visibleCount
	if end > len(t.rows) {
		end = len(t.rows)
		start = end - visibleCount
		if start < 0 {
			start = 0
		}
	}
	return start, end
}

// View renders the visible window of the tree.
func (t *TreeModel) View() string {
	if len(t.rows) == 0 {
		return t.renderEmptyState()
	}

	var sb strings.Builder
	start, end := t.visibleRange()
	for i := start; i < end; i++ {
		isSelected := i == t.cursor
		line := t.renderNode(t.rows[i], isSelected)
		if isSelected {
			line = t.theme.Selected.Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	if len(t.rows) > t.effectiveVisibleCount() {
		sb.WriteString("\n")
		sb.WriteString(t.renderPositionIndicator(start, end))
	}
	return sb.String()
}

// renderPositionIndicator renders " start-end of total" with 1-indexed numbers.
func (t *TreeModel) renderPositionIndicator(start, end int) string {
	indicator := fmt.Sprintf(" %d-%d of %d", start+1, end, len(t.rows))
	return t.theme.MutedText.Render(indicator)
}

// renderEmptyState distinguishes a filter with no hits from an empty dataset.
func (t *TreeModel) renderEmptyState() string {
	titleStyle := t.theme.Renderer.NewStyle().
		Foreground(t.theme.Primary).
		Bold(true)

	var sb strings.Builder
	if t.filtered {
		sb.WriteString(titleStyle.Render("No results found"))
		sb.WriteString("\n\n")
		sb.WriteString(t.theme.MutedText.Render("Try using different filters or search terms."))
		sb.WriteString("\n")
		sb.WriteString(t.theme.MutedText.Render("Press x to clear filters."))
		return sb.String()
	}
	sb.WriteString(titleStyle.Render("No items available"))
	return sb.String()
}

// renderNode renders one row: [prefix] [expand] [type] [name] [status] ... [id]
func (t *TreeModel) renderNode(row treeRow, isSelected bool) string {
	node := row.node
	r := t.theme.Renderer
	width := t.width
	if width <= 0 {
		width = 80
	}
	// Reduce width by 1 to prevent terminal wrapping on the exact edge
	width--

	var left strings.Builder
	left.WriteString(t.theme.MutedText.Render(row.prefix))
	left.WriteString(t.theme.SecondaryText.Render(t.getExpandIndicator(node)))
	left.WriteString(" ")
	left.WriteString(RenderTypeBadge(node.Type))
	left.WriteString(" ")

	status := RenderStatusIndicator(t.theme, node.Status, node.SensorType)
	statusWidth := 0
	if status != "" {
		statusWidth = lipgloss.Width(status) + 1
	}

	right := ""
	if width > 60 {
		right = t.theme.MutedText.Render(truncateRunesHelper(node.ID, 16, "…"))
	}

	fixed := lipgloss.Width(left.String()) + statusWidth + lipgloss.Width(right) + 1
	nameWidth := width - fixed
	if nameWidth < 5 {
		nameWidth = 5
	}
	name := truncateRunesHelper(node.Name, nameWidth, "…")

	nameStyle := r.NewStyle().Foreground(ColorText)
	switch {
	case isSelected:
		nameStyle = t.theme.PrimaryBold
	case t.match != nil && t.match(node):
		nameStyle = t.theme.MatchText
	}
	left.WriteString(nameStyle.Render(name))
	if status != "" {
		left.WriteString(" ")
		left.WriteString(status)
	}

	line := left.String()
	if right != "" {
		padding := width - lipgloss.Width(line) - lipgloss.Width(right)
		if padding < 1 {
			padding = 1
		}
		line += strings.Repeat(" ", padding) + right
	}
	return line
}

// getExpandIndicator returns the expand/collapse indicator for a node.
func (t *TreeModel) getExpandIndicator(node *tree.Node) string {
	if node.IsLeaf() {
		return "•"
	}
	if t.expanded[node.Key()] {
		return "▾"
	}
	return "▸"
}
