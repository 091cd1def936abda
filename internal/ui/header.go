package ui

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
)

const headerTitle = " parley"

// Header represents the top header bar
type Header struct {
	width    int
	chatName string
	subtitle string // e.g. "4 members", rendered muted
}

// NewHeader creates a new header
func NewHeader() *Header {
	return &Header{}
}

// SetWidth sets the header width
func (h *Header) SetWidth(width int) {
	h.width = width
}

// SetChat sets the open chat's display name. members is the participant
// count shown for groups; pass 0 for direct chats.
func (h *Header) SetChat(name string, members int) {
	h.chatName = name
	h.subtitle = ""
	if members > 0 {
		if members == 1 {
			h.subtitle = "1 member"
		} else {
			h.subtitle = fmt.Sprintf("%d members", members)
		}
	}
}

// ClearChat removes the chat name.
func (h *Header) ClearChat() {
	h.chatName = ""
	h.subtitle = ""
}

// View renders the header
func (h *Header) View() string {
	var rightText string
	if h.chatName != "" {
		rightText = h.chatName
		if h.subtitle != "" {
			rightText += " (" + h.subtitle + ")"
		}
		rightText += " "
	}

	titleWidth := ansi.StringWidth(headerTitle)
	if maxRight := h.width - titleWidth - 1; maxRight > 0 && ansi.StringWidth(rightText) > maxRight {
		rightText = ansi.Truncate(rightText, maxRight-1, "…") + " "
	}

	paddingLen := h.width - titleWidth - ansi.StringWidth(rightText)
	if paddingLen < 0 {
		paddingLen = 0
	}

	fullContent := headerTitle + strings.Repeat(" ", paddingLen) + rightText

	return h.renderGradient(fullContent)
}

// parseHexColor parses a hex color string (e.g., "#7C3AED") into RGB components
func parseHexColor(hex string) (r, g, b int) {
	if len(hex) == 7 && hex[0] == '#' {
		fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b)
	}
	return
}

// renderGradient renders the content on a background fading from the
// primary color to the main background. The member count is muted.
func (h *Header) renderGradient(content string) string {
	if len(content) == 0 {
		return ""
	}

	theme := CurrentTheme()
	startR, startG, startB := parseHexColor(theme.Primary)
	endR, endG, endB := parseHexColor(theme.Bg)

	textColor := lipgloss.Color(theme.Text)
	mutedColor := lipgloss.Color(theme.TextMuted)

	runes := []rune(content)
	mutedStart := -1
	if h.subtitle != "" {
		if idx := strings.LastIndex(content, "("+h.subtitle+")"); idx >= 0 {
			mutedStart = len([]rune(content[:idx]))
		}
	}
	titleLen := len([]rune(headerTitle))

	width := len(runes)
	var result strings.Builder

	for i, r := range runes {
		t := float64(i) / float64(width)

		cr := int(float64(startR)*(1-t) + float64(endR)*t)
		cg := int(float64(startG)*(1-t) + float64(endG)*t)
		cb := int(float64(startB)*(1-t) + float64(endB)*t)

		style := lipgloss.NewStyle().
			Background(lipgloss.Color(fmt.Sprintf("#%02X%02X%02X", cr, cg, cb))).
			Bold(i < titleLen)

		if mutedStart >= 0 && i >= mutedStart {
			style = style.Foreground(mutedColor)
		} else {
			style = style.Foreground(textColor)
		}

		result.WriteString(style.Render(string(r)))
	}

	return result.String()
}
