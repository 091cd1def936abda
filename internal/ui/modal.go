package ui

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/zhubert/parley/internal/ui/modals"
)

// Modal represents a popup dialog. State is nil when no modal is visible.
type Modal struct {
	State   modals.ModalState
	error   string
	loading string // shown while the modal's action is in flight
}

// NewModal creates a new modal
func NewModal() *Modal {
	return &Modal{}
}

// Show displays a modal with the given state
func (m *Modal) Show(state modals.ModalState) {
	m.State = state
	m.error = ""
	m.loading = ""
}

// Hide hides the modal
func (m *Modal) Hide() {
	m.State = nil
	m.error = ""
	m.loading = ""
}

// IsVisible returns whether the modal is visible
func (m *Modal) IsVisible() bool {
	return m.State != nil
}

// SetError sets an error message and ends any loading indicator.
func (m *Modal) SetError(err string) {
	m.error = err
	m.loading = ""
}

// GetError returns the current error message
func (m *Modal) GetError() string {
	return m.error
}

// SetLoading shows text (e.g. "Signing in...") under the form; "" clears it.
func (m *Modal) SetLoading(text string) {
	m.loading = text
	if text != "" {
		m.error = ""
	}
}

// IsLoading reports whether the modal is waiting on its action.
func (m *Modal) IsLoading() bool {
	return m.loading != ""
}

// Update handles messages by delegating to the current state. Input is
// ignored while loading.
func (m *Modal) Update(msg tea.Msg) (*Modal, tea.Cmd) {
	if m.State == nil {
		return m, nil
	}
	if _, isKey := msg.(tea.KeyPressMsg); isKey && m.loading != "" {
		return m, nil
	}
	var cmd tea.Cmd
	m.State, cmd = m.State.Update(msg)
	return m, cmd
}

// View renders the modal centered on a screen of the given size
func (m *Modal) View(screenWidth, screenHeight int) string {
	if m.State == nil {
		return ""
	}

	if sized, ok := m.State.(modals.ModalWithSize); ok {
		sized.SetSize(ModalWidth-ModalStyle.GetHorizontalFrameSize(), screenHeight-8)
	}

	content := m.State.Render()

	if m.loading != "" {
		content += "\n" + StatusLoadingStyle.Render(m.loading)
	}
	if m.error != "" {
		content += "\n" + StatusErrorStyle.Render(m.error)
	}

	style := ModalStyle
	if wide, ok := m.State.(modals.ModalWithPreferredWidth); ok {
		style = style.Width(wide.PreferredWidth())
	}

	return lipgloss.Place(
		screenWidth, screenHeight,
		lipgloss.Center, lipgloss.Center,
		style.Render(content),
	)
}

// RefreshModalStyles pushes the current theme into the modals package.
func RefreshModalStyles() {
	modals.SetStyles(
		ModalTitleStyle, ModalHelpStyle, SidebarItemStyle, SidebarSelectedStyle, StatusErrorStyle,
		ColorPrimary, ColorSecondary, ColorText, ColorTextMuted, ColorTextInverse, ColorOwn, ColorWarning,
		ModalInputWidth, ModalInputCharLimit, ModalWidth, HelpModalMaxVisible,
	)
}
