package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/assettree/pkg/model"
)

// ══════════════════════════════════════════════════════════════════════════════
// COLOR PALETTE - Adaptive colors for light and dark terminals
// ══════════════════════════════════════════════════════════════════════════════

var (
	ColorBgSubtle    = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
	ColorBgHighlight = lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#44475A"}
	ColorText        = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorMuted       = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}

	ColorPrimary = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorSuccess = lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"}
	ColorWarning = lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"}
	ColorDanger  = lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"}

	// Type badge text color (white on colored background)
	ColorTypeBadgeText = lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#FFFFFF"}

	ColorTypeLocationBg  = lipgloss.AdaptiveColor{Light: "#2684FF", Dark: "#4C9AFF"}
	ColorTypeAssetBg     = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#904EE2"}
	ColorTypeComponentBg = lipgloss.AdaptiveColor{Light: "#006080", Dark: "#2AA1B3"}
)

// ══════════════════════════════════════════════════════════════════════════════
// PANEL STYLES - For split view layouts
// ══════════════════════════════════════════════════════════════════════════════

var (
	// PanelStyle is the default style for unfocused panels
	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBgHighlight)

	// FocusedPanelStyle is the style for focused panels
	FocusedPanelStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorPrimary)
)

// ══════════════════════════════════════════════════════════════════════════════
// BADGE RENDERING
// ══════════════════════════════════════════════════════════════════════════════

// RenderTypeBadge returns a colored single-cell badge for the node type.
func RenderTypeBadge(typ model.NodeType) string {
	var bg lipgloss.AdaptiveColor
	var label string

	switch typ {
	case model.TypeLocation:
		bg, label = ColorTypeLocationBg, "L"
	case model.TypeAsset:
		bg, label = ColorTypeAssetBg, "A"
	case model.TypeComponent:
		bg, label = ColorTypeComponentBg, "C"
	default:
		bg, label = ColorBgSubtle, "·"
	}

	return lipgloss.NewStyle().
		Foreground(ColorTypeBadgeText).
		Background(bg).
		Bold(true).
		Render(label)
}

// StatusGlyph returns the indicator shown after a node name: a bolt for an
// energy sensor with a status, a dot for any other status, nothing when the
// node has no status.
func StatusGlyph(status model.Status, sensor model.SensorType) string {
	if status == model.StatusNone {
		return ""
	}
	if sensor == model.SensorEnergy {
		return "⚡"
	}
	return "●"
}

// RenderStatusIndicator renders StatusGlyph in the status color.
func RenderStatusIndicator(t Theme, status model.Status, sensor model.SensorType) string {
	glyph := StatusGlyph(status, sensor)
	if glyph == "" {
		return ""
	}
	color := t.GetStatusColor(status)
	if sensor == model.SensorEnergy {
		color = t.Energy
	}
	return t.Renderer.NewStyle().Foreground(color).Render(glyph)
}

// RenderToggle renders a filter toggle label, highlighted when on.
func RenderToggle(t Theme, label string, on bool) string {
	if on {
		return t.Renderer.NewStyle().
			Foreground(ColorTypeBadgeText).
			Background(t.Primary).
			Bold(true).
			Padding(0, 1).
			Render(label)
	}
	return t.Renderer.NewStyle().
		Foreground(t.Muted).
		Padding(0, 1).
		Render(label)
}

// RenderDivider renders a horizontal divider line
func RenderDivider(width int) string {
	if width <= 0 {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(ColorBgHighlight).
		Render(strings.Repeat("─", width))
}
