package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/assettree/pkg/model"
	"github.com/vanderheijden86/assettree/pkg/tree"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// recordIndex resolves node IDs back to the raw records they were built from.
type recordIndex struct {
	locations map[string]model.Location
	assets    map[string]model.Asset
}

func newRecordIndex(ds model.Dataset) recordIndex {
	idx := recordIndex{
		locations: make(map[string]model.Location, len(ds.Locations)),
		assets:    make(map[string]model.Asset, len(ds.Assets)),
	}
	// Later records overwrite earlier ones, matching the builder.
	for _, loc := range ds.Locations {
		idx.locations[loc.ID] = loc
	}
	for _, a := range ds.Assets {
		idx.assets[a.ID] = a
	}
	return idx
}

// detailMarkdown describes a node as markdown for the details pane.
// path is the root-to-node chain; it may be empty.
func detailMarkdown(n *tree.Node, path []*tree.Node, idx recordIndex) string {
	if n == nil {
		return "## No Selection\n\nMove with **j/k** to see details here.\n"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", n.Name)
	fmt.Fprintf(&sb, "- **Type:** %s\n", n.Type)
	fmt.Fprintf(&sb, "- **ID:** `%s`\n", n.ID)
	if n.Status != model.StatusNone {
		fmt.Fprintf(&sb, "- **Status:** %s\n", n.Status)
	}
	if n.SensorType != model.SensorNone {
		fmt.Fprintf(&sb, "- **Sensor:** %s\n", n.SensorType)
	}

	if n.Type == model.TypeLocation {
		if loc, ok := idx.locations[n.ID]; ok && loc.ParentID != "" {
			fmt.Fprintf(&sb, "- **Parent location:** `%s`\n", loc.ParentID)
		}
	} else if a, ok := idx.assets[n.ID]; ok {
		if a.ParentID != "" {
			fmt.Fprintf(&sb, "- **Parent asset:** `%s`\n", a.ParentID)
		}
		if a.LocationID != "" {
			fmt.Fprintf(&sb, "- **Location:** `%s`\n", a.LocationID)
		}
		if a.SensorID != "" {
			fmt.Fprintf(&sb, "- **Sensor ID:** `%s`\n", a.SensorID)
		}
		if a.GatewayID != "" {
			fmt.Fprintf(&sb, "- **Gateway:** `%s`\n", a.GatewayID)
		}
	}

	if len(n.Children) > 0 {
		fmt.Fprintf(&sb, "- **Children:** %d\n", len(n.Children))
	}

	if len(path) > 1 {
		names := make([]string, len(path))
		for i, p := range path {
			names[i] = p.Name
		}
		fmt.Fprintf(&sb, "\n**Path:** %s\n", strings.Join(names, " › "))
	}
	return sb.String()
}
