package modals

import (
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

// RenderSelectableList renders a simple list with selection highlighting.
// Returns the rendered list string. selectedIndex indicates which item is selected.
func RenderSelectableList(items []string, selectedIndex int) string {
	var result strings.Builder
	for i, item := range items {
		style := SidebarItemStyle
		prefix := "  "
		if i == selectedIndex {
			style = SidebarSelectedStyle
			prefix = "> "
		}
		result.WriteString(style.Render(prefix+item) + "\n")
	}
	return result.String()
}

// TruncateString truncates a string to maxWidth cells with an ellipsis
func TruncateString(s string, maxWidth int) string {
	return ansi.Truncate(s, maxWidth, "…")
}

func renderSectionHeader(title string) string {
	return lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Bold(true).
		MarginTop(1).
		Render(title)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(ColorTextMuted).Render(text)
}
