package app

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/zhubert/parley/internal/messenger"
	"github.com/zhubert/parley/internal/ui"
)

// updateSizes recalculates and applies dimensions to all UI components
func (m *Model) updateSizes() {
	ctx := ui.GetViewContext()
	ctx.UpdateTerminalSize(m.width, m.height)

	m.header.SetWidth(ctx.TerminalWidth)
	m.footer.SetWidth(ctx.TerminalWidth)
	m.sidebar.SetSize(ctx.SidebarWidth, ctx.ContentHeight)
	m.chat.SetSize(ctx.ChatWidth, ctx.ContentHeight)
}

// View renders the app. This is the core Bubble Tea view function.
func (m *Model) View() tea.View {
	var v tea.View
	v.AltScreen = true
	v.MouseMode = tea.MouseModeCellMotion
	v.SetContent(m.RenderToString())
	return v
}

// RenderToString renders the current view as a string.
// This is useful for testing.
func (m *Model) RenderToString() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	if !m.gate.Ready() {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			ui.StatusLoadingStyle.Render("Connecting..."))
	}

	m.updateFooterContext()

	// Overlay modal if visible
	if m.modal.IsVisible() {
		return m.modal.View(m.width, m.height)
	}

	panels := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.sidebar.View(),
		m.chat.View(),
	)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.header.View(),
		panels,
		m.footer.View(),
	)
}

func (m *Model) updateFooterContext() {
	signedIn := m.gate.State() == messenger.SignedIn
	m.footer.SetContext(signedIn, m.activeChat != "", m.focus == FocusSidebar, m.kittyKeyboard)
}
