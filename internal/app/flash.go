package app

import (
	tea "charm.land/bubbletea/v2"

	"github.com/zhubert/parley/internal/ui"
)

// ShowFlash displays a flash message in the footer and returns a command to start the auto-dismiss timer
func (m *Model) ShowFlash(text string, flashType ui.FlashType) tea.Cmd {
	m.footer.SetFlash(text, flashType)
	return ui.FlashTick()
}

// ShowFlashError displays an error flash message
func (m *Model) ShowFlashError(text string) tea.Cmd {
	return m.ShowFlash(text, ui.FlashError)
}

// ShowFlashWarning displays a warning flash message
func (m *Model) ShowFlashWarning(text string) tea.Cmd {
	return m.ShowFlash(text, ui.FlashWarning)
}

// ShowFlashInfo displays an info flash message
func (m *Model) ShowFlashInfo(text string) tea.Cmd {
	return m.ShowFlash(text, ui.FlashInfo)
}

// ShowFlashSuccess displays a success flash message
func (m *Model) ShowFlashSuccess(text string) tea.Cmd {
	return m.ShowFlash(text, ui.FlashSuccess)
}

// handleFlashTick clears an expired flash and keeps ticking while one is shown.
func (m *Model) handleFlashTick() tea.Cmd {
	m.footer.ClearIfExpired()
	if m.footer.HasFlash() {
		return ui.FlashTick()
	}
	return nil
}

// saveConfigOrFlash saves the config and returns a flash command on failure.
func (m *Model) saveConfigOrFlash() tea.Cmd {
	if err := m.config.Save(); err != nil {
		m.log.Error("config not saved", "error", err)
		return m.ShowFlashError("Could not save settings: " + err.Error())
	}
	return nil
}
