package app

import (
	tea "charm.land/bubbletea/v2"

	"github.com/zhubert/parley/internal/keys"
	"github.com/zhubert/parley/internal/messenger"
	"github.com/zhubert/parley/internal/ui"
	"github.com/zhubert/parley/internal/ui/modals"
)

// Update handles messages. This is the core Bubble Tea update function that routes
// all messages to appropriate handlers.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateSizes()

	case tea.KeyboardEnhancementsMsg:
		m.kittyKeyboard = msg.SupportsKeyDisambiguation()
		m.log.Debug("keyboard enhancements", "disambiguation", m.kittyKeyboard)

	case ui.FlashTickMsg:
		return m, m.handleFlashTick()

	case tea.KeyPressMsg:
		if result, cmd := m.handleKeyPress(msg); result != nil {
			return result, cmd
		}
		// Key not handled, let it fall through to the focused panel

	// session
	case IdentityChangedMsg:
		return m.handleIdentityChanged(msg)
	case ProfileLoadedMsg:
		return m.handleProfileLoaded(msg)
	case ChatsSnapshotMsg:
		return m.handleChatsSnapshot(msg)
	case ChatsClosedMsg:
		return m.handleChatsClosed(msg)
	case MessagesSnapshotMsg:
		return m.handleMessagesSnapshot(msg)
	case MessagesClosedMsg:
		return m.handleMessagesClosed(msg)
	case ResolvedMsg:
		return m.handleResolved(msg)

	// actions
	case AuthResultMsg:
		return m.handleAuthResult(msg)
	case SignedOutMsg:
		return m.handleSignedOut(msg)
	case SendResultMsg:
		return m.handleSendResult(msg)
	case SearchResultMsg:
		return m.handleSearchResult(msg)
	case DirectChatMsg:
		return m.handleDirectChat(msg)
	case GroupCreatedMsg:
		return m.handleGroupCreated(msg)
	case ProfileSavedMsg:
		return m.handleProfileSaved(msg)
	case ClipboardImageMsg:
		return m.handleClipboardImage(msg)
	case ClipboardCopiedMsg:
		return m.handleClipboardCopied(msg)

	case modals.HelpShortcutTriggeredMsg:
		return m.handleHelpShortcutTrigger(msg.Key)
	}

	// Update modal
	if m.modal.IsVisible() {
		modal, cmd := m.modal.Update(msg)
		m.modal = modal
		cmds = append(cmds, cmd)
		if _, isKey := msg.(tea.KeyPressMsg); isKey {
			return m, tea.Batch(cmds...)
		}
	}

	if wheel, ok := msg.(tea.MouseWheelMsg); ok {
		if wheel.Mouse().X > m.sidebar.Width() {
			chat, cmd := m.chat.Update(msg)
			m.chat = chat
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	// Update focused panel for other messages
	if m.focus == FocusSidebar {
		sidebar, cmd := m.sidebar.Update(msg)
		m.sidebar = sidebar
		cmds = append(cmds, cmd)
	} else {
		chat, cmd := m.chat.Update(msg)
		m.chat = chat
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// handleKeyPress handles all keyboard input.
// Returns (model, cmd) if the key was handled, or (nil, nil) if it should fall through
// to the focused panel for handling.
func (m *Model) handleKeyPress(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	m.log.Debug("key press", "key", key, "focus", m.focus, "modal", m.modal.IsVisible())

	// Handle modal first if visible
	if m.modal.IsVisible() {
		return m.handleModalKey(msg)
	}

	// ctrl+c always quits
	if key == keys.CtrlC {
		return m.quit()
	}

	// Nothing but quitting until the session is signed in
	if m.gate.State() != messenger.SignedIn {
		return m, nil
	}

	if m.focus == FocusChat && m.activeChat != "" {
		switch key {
		case keys.Enter:
			return m.sendMessage()
		case keys.ShiftEnter, keys.AltEnter:
			m.chat.InsertNewline()
			return m, nil
		}
	}

	if result, cmd, handled := m.ExecuteShortcut(key); handled {
		return result, cmd
	}

	if key == keys.Enter && m.focus == FocusSidebar {
		return m, m.openChat(m.sidebar.SelectedChatID(), "")
	}

	return nil, nil
}
