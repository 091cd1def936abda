package app

import (
	"fmt"

	tea "charm.land/bubbletea/v2"

	"github.com/zhubert/parley/internal/backend"
	"github.com/zhubert/parley/internal/messenger"
	"github.com/zhubert/parley/internal/ui"
	"github.com/zhubert/parley/internal/ui/modals"
)

// handleIdentityChanged applies an auth push to the gate and starts or tears
// down the signed-in session.
func (m *Model) handleIdentityChanged(msg IdentityChangedMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenForIdentity()}
	prev := m.gate.Identity()
	changed := m.gate.Apply(msg.Identity)
	if changed && prev != nil {
		// signed out, or switched straight to another user
		m.resetSession()
	}

	if msg.Identity == nil {
		m.showAuth()
		return m, tea.Batch(cmds...)
	}

	if !changed {
		// same user, refreshed fields
		return m, tea.Batch(cmds...)
	}

	if _, ok := m.modal.State.(*modals.AuthState); ok {
		m.modal.Hide()
	}
	id := *msg.Identity
	cmds = append(cmds, m.loadProfile(id), m.subscribeChats())
	return m, tea.Batch(cmds...)
}

// showAuth shows the sign-in form unless it is already up.
func (m *Model) showAuth() {
	if _, ok := m.modal.State.(*modals.AuthState); ok {
		return
	}
	m.modal.Show(modals.NewAuthState(modals.ModeSignIn, m.config.GetLastEmail()))
}

// resetSession drops everything that belonged to the previous user. The gate
// has already cancelled the tracked subscriptions.
func (m *Model) resetSession() {
	m.chatList.Reset()
	m.stream.Deactivate()
	m.resolver.Forget()
	m.composer.Clear()

	m.activeChat = ""
	m.fallback = ""
	m.resolving = make(map[string]bool)
	m.failed = make(map[string]bool)
	m.lastSeen = make(map[string]string)
	m.unread = make(map[string]bool)
	m.unsent = make(map[string]string)
	m.seeded = false
	m.sending = 0

	m.sidebar.SetEntries(nil)
	m.sidebar.SetError("")
	m.chat.CloseChat()
	m.chat.ClearInput()
	m.chat.SetSending(false)
	m.header.ClearChat()
	m.setFocus(FocusSidebar)
}

// loadProfile ensures users/{id} exists and reads it back.
func (m *Model) loadProfile(id backend.Identity) tea.Cmd {
	gate := m.gate
	ctx, cancel := m.opContext()
	return func() tea.Msg {
		defer cancel()
		p, err := gate.EnsureProfile(ctx, id)
		return ProfileLoadedMsg{Profile: p, Err: err}
	}
}

func (m *Model) handleProfileLoaded(msg ProfileLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.log.Warn("profile not loaded", "error", msg.Err)
		return m, m.ShowFlashWarning("Could not load your profile; using defaults.")
	}
	if !m.gate.SetProfile(msg.Profile) {
		// profile of a user who is no longer signed in
		return m, nil
	}
	m.applyTheme(m.gate.Theme())
	m.config.SetTheme(string(m.gate.Theme()))
	cmds := []tea.Cmd{m.saveConfigOrFlash()}
	if theme, ok := m.gate.TakePendingTheme(); ok {
		cmds = append(cmds, m.persistTheme(theme))
	}
	return m, tea.Batch(cmds...)
}

// subscribeChats (re)starts the chat-list subscription for the signed-in user.
func (m *Model) subscribeChats() tea.Cmd {
	m.gate.Untrack(m.chatList.Subscription())
	m.sidebar.SetError("")

	ctx, cancel := m.opContext()
	defer cancel()
	sub, err := m.chatList.Subscribe(ctx, m.selfID())
	if err != nil {
		m.sidebar.SetEntries(nil)
		m.sidebar.SetError("Could not load chats.\nPress ctrl+r to retry.")
		return m.ShowFlashError("Could not load chats: " + err.Error())
	}
	m.gate.Track(sub)
	return listenForChats(sub)
}

func (m *Model) handleChatsSnapshot(msg ChatsSnapshotMsg) (tea.Model, tea.Cmd) {
	if !m.chatList.Apply(msg.Snapshot) {
		return m, nil
	}
	cmds := []tea.Cmd{listenForChats(m.chatList.Subscription())}

	if err := m.chatList.Err(); err != nil {
		m.sidebar.SetEntries(nil)
		m.sidebar.SetError("Could not load chats.\nPress ctrl+r to retry.")
		return m, tea.Batch(cmds...)
	}
	m.sidebar.SetError("")

	cmds = append(cmds, m.trackLastMessages()...)
	cmds = append(cmds, m.resolveChats()...)
	m.refreshSidebar()
	m.refreshHeader()
	return m, tea.Batch(cmds...)
}

func (m *Model) handleChatsClosed(msg ChatsClosedMsg) (tea.Model, tea.Cmd) {
	if msg.Token == 0 || msg.Token != m.chatList.Token() {
		return m, nil
	}
	m.log.Warn("chat list subscription closed")
	m.gate.Untrack(m.chatList.Subscription())
	m.chatList.Cancel()
	m.sidebar.SetError("Connection lost.\nPress ctrl+r to reconnect.")
	return m, m.ShowFlashError("Connection to the chat list was lost.")
}

// resolveChats starts a lookup for every direct chat without a display name.
func (m *Model) resolveChats() []tea.Cmd {
	self := m.selfID()
	var cmds []tea.Cmd
	for _, c := range m.chatList.Chats() {
		if c.Kind == backend.KindGroup || m.resolving[c.ID] {
			continue
		}
		if _, ok := m.resolver.Cached(c.ID); ok {
			continue
		}
		m.resolving[c.ID] = true
		cmds = append(cmds, m.resolve(c, self))
	}
	return cmds
}

func (m *Model) resolve(chat backend.Chat, selfID string) tea.Cmd {
	resolver := m.resolver
	ctx, cancel := m.opContext()
	return func() tea.Msg {
		defer cancel()
		res, err := resolver.Resolve(ctx, chat, selfID)
		return ResolvedMsg{ChatID: chat.ID, Resolved: res, Err: err}
	}
}

func (m *Model) handleResolved(msg ResolvedMsg) (tea.Model, tea.Cmd) {
	delete(m.resolving, msg.ChatID)
	if msg.Err != nil {
		m.failed[msg.ChatID] = true
	} else {
		delete(m.failed, msg.ChatID)
	}
	m.refreshSidebar()
	m.refreshHeader()
	return m, nil
}

// displayFor returns the sidebar and header identity of chat.
func (m *Model) displayFor(chat backend.Chat) messenger.Resolved {
	if chat.Kind == backend.KindGroup {
		return messenger.GroupDisplay(chat)
	}
	if res, ok := m.resolver.Cached(chat.ID); ok {
		return res
	}
	if m.failed[chat.ID] {
		return messenger.Placeholder()
	}
	return messenger.Resolved{Name: messenger.LoadingName}
}

// refreshSidebar rebuilds the sidebar rows from the chat list.
func (m *Model) refreshSidebar() {
	self := m.selfID()
	chats := m.chatList.Chats()
	entries := make([]ui.SidebarEntry, 0, len(chats))
	for _, c := range chats {
		e := ui.SidebarEntry{
			ChatID: c.ID,
			Name:   m.displayFor(c).Name,
			Group:  c.Kind == backend.KindGroup,
			Time:   c.CreatedAt,
			Unread: m.unread[c.ID],
		}
		if lm := c.LastMessage; lm != nil {
			e.Preview = previewText(*lm, self)
			if !lm.SentAt.IsZero() {
				e.Time = lm.SentAt
			}
		}
		entries = append(entries, e)
	}
	m.sidebar.SetEntries(entries)
}

func previewText(lm backend.LastMessage, selfID string) string {
	if lm.SenderID == selfID {
		return "You: " + lm.Text
	}
	return lm.Text
}

// refreshHeader shows the open chat's name, and member count for groups.
func (m *Model) refreshHeader() {
	if m.activeChat == "" {
		m.header.ClearChat()
		return
	}
	chat, ok := m.chatList.Find(m.activeChat)
	if !ok {
		m.header.SetChat(m.fallback, 0)
		return
	}
	m.fallback = ""
	members := 0
	if chat.Kind == backend.KindGroup {
		members = len(chat.Participants)
	}
	m.header.SetChat(m.displayFor(chat).Name, members)
}

// lastMessageKey identifies one lastMessage value.
func lastMessageKey(lm *backend.LastMessage) string {
	if lm == nil {
		return ""
	}
	return fmt.Sprintf("%s|%d|%s", lm.SenderID, lm.SentAt.UnixNano(), lm.Text)
}

// trackLastMessages marks chats whose lastMessage changed, from someone
// else, while they were not open, and notifies about them. The first
// snapshot after sign-in only records the baseline.
func (m *Model) trackLastMessages() []tea.Cmd {
	self := m.selfID()
	var cmds []tea.Cmd
	for _, c := range m.chatList.Chats() {
		key := lastMessageKey(c.LastMessage)
		prev, known := m.lastSeen[c.ID]
		m.lastSeen[c.ID] = key
		if !m.seeded || key == "" || (known && prev == key) {
			continue
		}
		lm := c.LastMessage
		if lm.SenderID == self || lm.SenderID == backend.SystemSender || lm.SentAt.IsZero() {
			continue
		}
		if c.ID == m.activeChat {
			continue
		}
		m.unread[c.ID] = true
		if m.config.GetNotificationsEnabled() {
			cmds = append(cmds, notifyCmd(m.displayFor(c).Name, lm.Text))
		}
	}
	m.seeded = true
	return cmds
}

// openChat activates chatID. name is shown until the chat list has the chat.
func (m *Model) openChat(chatID, name string) tea.Cmd {
	if chatID == "" {
		return nil
	}
	if chatID == m.activeChat && m.stream.Active() {
		m.setFocus(FocusChat)
		return nil
	}

	m.gate.Untrack(m.stream.Subscription())
	m.composer.Clear()
	m.chat.ClearInput()
	if text, ok := m.unsent[chatID]; ok {
		delete(m.unsent, chatID)
		m.composer.Restore(text)
		m.chat.SetInput(m.composer.Draft())
	}
	m.activeChat = chatID
	m.fallback = name
	delete(m.unread, chatID)
	m.sidebar.SelectChat(chatID)
	m.refreshSidebar()

	m.chat.OpenChat()
	m.chat.SetRows(nil)
	m.chat.SetError("")
	m.refreshHeader()
	m.setFocus(FocusChat)

	ctx, cancel := m.opContext()
	defer cancel()
	sub, err := m.stream.Activate(ctx, chatID)
	if err != nil {
		m.chat.SetError("Could not load messages.")
		return m.ShowFlashError("Could not load messages: " + err.Error())
	}
	m.gate.Track(sub)
	return listenForMessages(sub)
}

// closeChat deactivates the open chat.
func (m *Model) closeChat() {
	m.gate.Untrack(m.stream.Subscription())
	m.stream.Deactivate()
	m.composer.Clear()
	m.activeChat = ""
	m.fallback = ""
	m.chat.ClearInput()
	m.chat.CloseChat()
	m.header.ClearChat()
	m.setFocus(FocusSidebar)
}

func (m *Model) handleMessagesSnapshot(msg MessagesSnapshotMsg) (tea.Model, tea.Cmd) {
	if !m.stream.Apply(msg.Snapshot) {
		return m, nil
	}
	cmd := listenForMessages(m.stream.Subscription())
	if err := m.stream.Err(); err != nil {
		m.chat.SetError("Could not load messages.")
		return m, cmd
	}
	m.chat.SetError("")
	m.chat.SetRows(m.stream.Rows(m.selfID()))
	return m, cmd
}

func (m *Model) handleMessagesClosed(msg MessagesClosedMsg) (tea.Model, tea.Cmd) {
	if msg.Token == 0 || msg.Token != m.stream.Token() {
		return m, nil
	}
	m.log.Warn("message subscription closed", "chatID", m.activeChat)
	m.gate.Untrack(m.stream.Subscription())
	m.chat.SetError("Connection lost. Reopen the chat to reconnect.")
	return m, nil
}

// applyTheme switches the palette and re-renders what caches styled text.
func (m *Model) applyTheme(theme backend.Theme) {
	ui.SetTheme(theme)
	m.chat.RefreshStyles()
}
