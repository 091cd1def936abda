package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/zhubert/parley/internal/backend"
	"github.com/zhubert/parley/internal/clipboard"
	"github.com/zhubert/parley/internal/logger"
	"github.com/zhubert/parley/internal/messenger"
	"github.com/zhubert/parley/internal/notification"
	"github.com/zhubert/parley/internal/ui/modals"
)

// setFocus moves keyboard focus between the sidebar and the chat panel.
func (m *Model) setFocus(f Focus) {
	if f == FocusChat && !m.chat.HasChat() {
		f = FocusSidebar
	}
	m.focus = f
	m.sidebar.SetFocused(f == FocusSidebar)
	m.chat.SetFocused(f == FocusChat)
}

func (m *Model) toggleFocus() {
	if m.focus == FocusSidebar {
		m.setFocus(FocusChat)
	} else {
		m.setFocus(FocusSidebar)
	}
}

// sendMessage stages the composer text and sends it to the open chat.
func (m *Model) sendMessage() (tea.Model, tea.Cmd) {
	id := m.gate.Identity()
	if id == nil || m.activeChat == "" {
		return m, nil
	}

	m.composer.SetDraft(m.chat.GetInput())
	text, err := m.composer.Take()
	switch {
	case errors.Is(err, messenger.ErrEmptyMessage):
		return m, nil
	case errors.Is(err, messenger.ErrAttachmentUnsupported):
		m.composer.Attach(nil)
		return m, m.ShowFlashWarning("Image messages are not supported; the image was removed.")
	case err != nil:
		return m, m.ShowFlashError(err.Error())
	}

	m.chat.ClearInput()
	m.sending++
	m.chat.SetSending(true)

	composer, chatID, sender := m.composer, m.activeChat, *id
	ctx, cancel := m.opContext()
	return m, func() tea.Msg {
		defer cancel()
		err := composer.Send(ctx, chatID, text, sender)
		return SendResultMsg{ChatID: chatID, Text: text, Err: err}
	}
}

func (m *Model) handleSendResult(msg SendResultMsg) (tea.Model, tea.Cmd) {
	if m.sending > 0 {
		m.sending--
	}
	m.chat.SetSending(m.sending > 0)

	switch {
	case msg.Err == nil:
		return m, nil
	case errors.Is(msg.Err, messenger.ErrSummaryNotUpdated):
		return m, m.ShowFlashWarning("Message sent, but the chat list may be out of date.")
	}

	logger.WithChat(msg.ChatID).Error("send failed", "error", msg.Err)
	if msg.ChatID == m.activeChat {
		m.composer.SetDraft(m.chat.GetInput())
		m.composer.Restore(msg.Text)
		m.chat.SetInput(m.composer.Draft())
		return m, m.ShowFlashError("Message not sent: " + msg.Err.Error())
	}

	// the user moved on; keep the text for when that chat is reopened
	if prev := m.unsent[msg.ChatID]; prev != "" {
		m.unsent[msg.ChatID] = prev + "\n" + msg.Text
	} else {
		m.unsent[msg.ChatID] = msg.Text
	}
	name := "another chat"
	if c, ok := m.chatList.Find(msg.ChatID); ok {
		name = m.displayFor(c).Name
	}
	return m, m.ShowFlashError(fmt.Sprintf("Message to %s not sent; it will be back in the input when you open it.", name))
}

// toggleTheme flips the theme now and persists it in the background. Until
// the profile has loaded the gate holds the toggle and handleProfileLoaded
// stores it.
func (m *Model) toggleTheme() (tea.Model, tea.Cmd) {
	theme := m.gate.ToggleTheme()
	m.applyTheme(theme)
	m.config.SetTheme(string(theme))
	cmds := []tea.Cmd{m.saveConfigOrFlash()}
	if m.gate.ProfileLoaded() {
		cmds = append(cmds, m.persistTheme(theme))
	}
	return m, tea.Batch(cmds...)
}

// persistTheme stores theme on the signed-in profile. Failures are logged
// by the mutation service and otherwise ignored.
func (m *Model) persistTheme(theme backend.Theme) tea.Cmd {
	uid := m.selfID()
	if uid == "" {
		return nil
	}
	mutations := m.mutations
	ctx, cancel := m.opContext()
	return func() tea.Msg {
		defer cancel()
		mutations.PersistTheme(ctx, uid, theme)
		return nil
	}
}

// signOut asks the auth collaborator to end the session. The identity push
// that follows tears the session down.
func (m *Model) signOut() (tea.Model, tea.Cmd) {
	if m.gate.State() != messenger.SignedIn {
		return m, nil
	}
	auth := m.be.Auth
	ctx, cancel := m.opContext()
	return m, func() tea.Msg {
		defer cancel()
		return SignedOutMsg{Err: auth.SignOut(ctx)}
	}
}

func (m *Model) handleSignedOut(msg SignedOutMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.log.Error("sign out failed", "error", msg.Err)
		return m, m.ShowFlashError("Sign out failed: " + msg.Err.Error())
	}
	return m, nil
}

// retryChats resubscribes the chat list after it failed or was lost.
func (m *Model) retryChats() (tea.Model, tea.Cmd) {
	if m.gate.State() != messenger.SignedIn {
		return m, nil
	}
	if m.chatList.Err() == nil && m.chatList.Subscription() != nil {
		return m, nil
	}
	return m, m.subscribeChats()
}

// copyLastMessage puts the newest message of the open chat on the clipboard.
func (m *Model) copyLastMessage() (tea.Model, tea.Cmd) {
	last, ok := m.stream.Last()
	if !ok {
		return m, m.ShowFlashInfo("Nothing to copy.")
	}
	text := last.Text
	return m, func() tea.Msg {
		return ClipboardCopiedMsg{Err: clipboard.WriteText(text)}
	}
}

func (m *Model) handleClipboardCopied(msg ClipboardCopiedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.ShowFlashError("Copy failed: " + msg.Err.Error())
	}
	return m, m.ShowFlashSuccess("Copied last message")
}

// readClipboardImage reads an image from the clipboard for target.
func readClipboardImage(target pasteTarget) tea.Cmd {
	return func() tea.Msg {
		img, err := clipboard.ReadImage()
		if err == nil && img != nil {
			err = img.Validate()
		}
		return ClipboardImageMsg{Target: target, Image: img, Err: err}
	}
}

func (m *Model) handleClipboardImage(msg ClipboardImageMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		return m, m.ShowFlashError("Paste failed: " + msg.Err.Error())
	}
	if msg.Image == nil {
		return m, m.ShowFlashInfo("No image in clipboard")
	}

	switch msg.Target {
	case pasteComposer:
		if m.activeChat == "" {
			return m, nil
		}
		m.composer.Attach(msg.Image.Data)
		return m, m.ShowFlashInfo("Image attached")
	case pasteGroup:
		if s, ok := m.modal.State.(*modals.NewGroupState); ok {
			s.SetPastedImage(msg.Image.Data)
		}
	case pasteAvatar:
		if s, ok := m.modal.State.(*modals.SettingsState); ok {
			s.SetPastedAvatar(msg.Image.Data)
		}
	}
	return m, nil
}

// loadImage returns the chosen image bytes: pasted data, else the file.
func loadImage(c modals.ImageChoice) ([]byte, error) {
	if len(c.Pasted) > 0 {
		return c.Pasted, nil
	}
	if c.Path == "" {
		return nil, nil
	}
	return os.ReadFile(expandHome(c.Path))
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// notifyCmd sends a desktop notification for a message in a background chat.
func notifyCmd(chatName, text string) tea.Cmd {
	return func() tea.Msg {
		_ = notification.NewMessage(chatName, text)
		return nil
	}
}
