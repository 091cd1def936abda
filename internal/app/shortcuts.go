package app

import (
	tea "charm.land/bubbletea/v2"

	"github.com/zhubert/parley/internal/keys"
	"github.com/zhubert/parley/internal/messenger"
	"github.com/zhubert/parley/internal/ui/modals"
)

// Shortcut represents a keyboard shortcut with its metadata and handler.
// The registry is the single source of truth for key handling and for the
// help modal.
type Shortcut struct {
	Key             string                              // The key binding (e.g., "n", "ctrl+t")
	DisplayKey      string                              // Display name in help; defaults to Key
	Description     string                              // Human-readable description
	Category        string                              // Section for help modal grouping
	RequiresChat    bool                                // A chat must be open
	RequiresSidebar bool                                // Must not be typing in the composer
	Handler         func(m *Model) (tea.Model, tea.Cmd) // Action to perform
	Condition       func(m *Model) bool                 // Optional extra condition
}

// Categories for organizing shortcuts in the help modal
const (
	CategoryNavigation = "Navigation"
	CategoryChats      = "Chats"
	CategoryChat       = "Chat (when focused)"
	CategoryAccount    = "Account"
	CategoryGeneral    = "General"
)

var categoryOrder = []string{
	CategoryNavigation,
	CategoryChats,
	CategoryChat,
	CategoryAccount,
	CategoryGeneral,
}

// ShortcutRegistry lists every executable shortcut. Shortcuts are only
// available while signed in.
var ShortcutRegistry = []Shortcut{
	// Navigation
	{
		Key:          keys.Tab,
		DisplayKey:   "Tab",
		Description:  "Switch between chat list and chat",
		Category:     CategoryNavigation,
		RequiresChat: true,
		Handler:      shortcutToggleFocus,
	},

	// Chats
	{
		Key:             "n",
		Description:     "New chat (find user by email)",
		Category:        CategoryChats,
		RequiresSidebar: true,
		Handler:         shortcutNewChat,
	},
	{
		Key:         keys.CtrlN,
		DisplayKey:  "ctrl-n",
		Description: "New chat",
		Category:    CategoryChats,
		Handler:     shortcutNewChat,
	},
	{
		Key:             "g",
		Description:     "New group",
		Category:        CategoryChats,
		RequiresSidebar: true,
		Handler:         shortcutNewGroup,
	},
	{
		Key:         keys.CtrlG,
		DisplayKey:  "ctrl-g",
		Description: "New group",
		Category:    CategoryChats,
		Handler:     shortcutNewGroup,
	},
	{
		Key:         keys.CtrlR,
		DisplayKey:  "ctrl-r",
		Description: "Reload chat list",
		Category:    CategoryChats,
		Handler:     shortcutRetryChats,
		Condition: func(m *Model) bool {
			return m.chatList.Err() != nil || m.chatList.Subscription() == nil
		},
	},

	// Chat
	{
		Key:          keys.CtrlY,
		DisplayKey:   "ctrl-y",
		Description:  "Copy last message",
		Category:     CategoryChat,
		RequiresChat: true,
		Handler:      shortcutCopyLast,
	},
	{
		Key:          keys.CtrlV,
		DisplayKey:   "ctrl-v",
		Description:  "Paste image",
		Category:     CategoryChat,
		RequiresChat: true,
		Handler:      shortcutPasteImage,
		Condition:    func(m *Model) bool { return m.focus == FocusChat },
	},
	{
		Key:          keys.Escape,
		DisplayKey:   "Esc",
		Description:  "Close chat",
		Category:     CategoryChat,
		RequiresChat: true,
		Handler:      shortcutCloseChat,
		Condition:    func(m *Model) bool { return m.focus == FocusChat },
	},

	// Account
	{
		Key:             "s",
		Description:     "Settings",
		Category:        CategoryAccount,
		RequiresSidebar: true,
		Handler:         shortcutSettings,
	},
	{
		Key:         keys.CtrlS,
		DisplayKey:  "ctrl-s",
		Description: "Settings",
		Category:    CategoryAccount,
		Handler:     shortcutSettings,
	},
	{
		Key:             "t",
		Description:     "Toggle light/dark theme",
		Category:        CategoryAccount,
		RequiresSidebar: true,
		Handler:         shortcutTheme,
	},
	{
		Key:         keys.CtrlT,
		DisplayKey:  "ctrl-t",
		Description: "Toggle theme",
		Category:    CategoryAccount,
		Handler:     shortcutTheme,
	},
	{
		Key:         keys.CtrlO,
		DisplayKey:  "ctrl-o",
		Description: "Sign out",
		Category:    CategoryAccount,
		Handler:     shortcutSignOut,
	},

	// General
	{
		Key:             "q",
		Description:     "Quit",
		Category:        CategoryGeneral,
		RequiresSidebar: true,
		Handler:         shortcutQuit,
	},
}

// helpShortcut is defined separately to avoid an initialization cycle: its
// handler reads ShortcutRegistry.
var helpShortcut = Shortcut{
	Key:             "?",
	Description:     "Show this help",
	Category:        CategoryGeneral,
	RequiresSidebar: true,
}

// DisplayOnlyShortcuts are shown in help but not executable from it.
var DisplayOnlyShortcuts = []Shortcut{
	{DisplayKey: "↑/↓ or j/k", Description: "Move through chats", Category: CategoryNavigation},
	{DisplayKey: "Enter", Description: "Open chat / Send message", Category: CategoryNavigation},
	{DisplayKey: "PgUp/PgDn", Description: "Scroll messages", Category: CategoryNavigation},
	{DisplayKey: "opt+enter", Description: "New line in message", Category: CategoryChat},
	{DisplayKey: "ctrl-c", Description: "Quit", Category: CategoryGeneral},
}

// isShortcutApplicable checks the guards of s against the current state.
func (m *Model) isShortcutApplicable(s Shortcut) bool {
	if m.gate.State() != messenger.SignedIn {
		return false
	}
	if s.RequiresSidebar && m.focus == FocusChat {
		return false
	}
	if s.RequiresChat && m.activeChat == "" {
		return false
	}
	if s.Condition != nil && !s.Condition(m) {
		return false
	}
	return true
}

// ExecuteShortcut finds and runs the shortcut bound to key. It reports false
// when no shortcut matched or its guards failed, so the key can go to the
// focused panel.
func (m *Model) ExecuteShortcut(key string) (tea.Model, tea.Cmd, bool) {
	if key == helpShortcut.Key {
		if !m.isShortcutApplicable(helpShortcut) {
			return m, nil, false
		}
		result, cmd := shortcutHelp(m)
		return result, cmd, true
	}

	for _, s := range ShortcutRegistry {
		if s.Key != key {
			continue
		}
		if !m.isShortcutApplicable(s) {
			m.log.Debug("shortcut guard failed", "key", key)
			return m, nil, false
		}
		result, cmd := s.Handler(m)
		return result, cmd, true
	}
	return m, nil, false
}

// helpSections builds the help modal from the shortcuts applicable now.
func (m *Model) helpSections() []modals.HelpSection {
	categories := make(map[string][]modals.HelpShortcut)
	add := func(s Shortcut) {
		key := s.DisplayKey
		if key == "" {
			key = s.Key
		}
		categories[s.Category] = append(categories[s.Category], modals.HelpShortcut{Key: key, Desc: s.Description})
	}

	for _, s := range ShortcutRegistry {
		if m.isShortcutApplicable(s) {
			add(s)
		}
	}
	add(helpShortcut)
	for _, s := range DisplayOnlyShortcuts {
		if s.Category == CategoryChat && m.activeChat == "" {
			continue
		}
		add(s)
	}

	var sections []modals.HelpSection
	for _, cat := range categoryOrder {
		if shortcuts := categories[cat]; len(shortcuts) > 0 {
			sections = append(sections, modals.HelpSection{Title: cat, Shortcuts: shortcuts})
		}
	}
	return sections
}

// handleHelpShortcutTrigger runs the shortcut picked in the help modal.
func (m *Model) handleHelpShortcutTrigger(displayKey string) (tea.Model, tea.Cmd) {
	m.modal.Hide()
	key := displayKey
	for _, s := range ShortcutRegistry {
		if s.DisplayKey == displayKey || s.Key == displayKey {
			key = s.Key
			break
		}
	}
	result, cmd, _ := m.ExecuteShortcut(key)
	return result, cmd
}

// =============================================================================
// Shortcut Handlers
// =============================================================================

func shortcutToggleFocus(m *Model) (tea.Model, tea.Cmd) {
	m.toggleFocus()
	return m, nil
}

func shortcutNewChat(m *Model) (tea.Model, tea.Cmd) {
	m.modal.Show(modals.NewSearchUserState())
	return m, nil
}

func shortcutNewGroup(m *Model) (tea.Model, tea.Cmd) {
	m.modal.Show(modals.NewNewGroupState())
	return m, nil
}

func shortcutRetryChats(m *Model) (tea.Model, tea.Cmd) {
	return m.retryChats()
}

func shortcutCopyLast(m *Model) (tea.Model, tea.Cmd) {
	return m.copyLastMessage()
}

func shortcutPasteImage(m *Model) (tea.Model, tea.Cmd) {
	return m, readClipboardImage(pasteComposer)
}

func shortcutCloseChat(m *Model) (tea.Model, tea.Cmd) {
	m.closeChat()
	return m, nil
}

func shortcutSettings(m *Model) (tea.Model, tea.Cmd) {
	name := ""
	if id := m.gate.Identity(); id != nil {
		name = id.Name()
	}
	m.modal.Show(modals.NewSettingsState(name, m.gate.Theme(), m.config.GetNotificationsEnabled()))
	return m, nil
}

func shortcutTheme(m *Model) (tea.Model, tea.Cmd) {
	return m.toggleTheme()
}

func shortcutSignOut(m *Model) (tea.Model, tea.Cmd) {
	return m.signOut()
}

func shortcutHelp(m *Model) (tea.Model, tea.Cmd) {
	m.modal.Show(modals.NewHelpStateFromSections(m.helpSections()))
	return m, nil
}

func shortcutQuit(m *Model) (tea.Model, tea.Cmd) {
	return m.quit()
}
