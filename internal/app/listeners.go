package app

import (
	tea "charm.land/bubbletea/v2"

	"github.com/zhubert/parley/internal/backend"
)

// Listener commands read one item from a channel and return it as a message.
// Update re-arms a listener only while its subscription is still current, so
// a cancelled subscription's goroutine ends with its closed channel.

// listenForIdentity waits for the next identity change.
func (m *Model) listenForIdentity() tea.Cmd {
	ch := m.identityCh
	return func() tea.Msg {
		id, ok := <-ch
		if !ok {
			return nil
		}
		return IdentityChangedMsg{Identity: id}
	}
}

// listenForChats waits for the next chat-list snapshot of sub.
func listenForChats(sub backend.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	ch, token := sub.Snapshots(), sub.Token()
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return ChatsClosedMsg{Token: token}
		}
		return ChatsSnapshotMsg{Snapshot: snap}
	}
}

// listenForMessages waits for the next message snapshot of sub.
func listenForMessages(sub backend.Subscription) tea.Cmd {
	if sub == nil {
		return nil
	}
	ch, token := sub.Snapshots(), sub.Token()
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return MessagesClosedMsg{Token: token}
		}
		return MessagesSnapshotMsg{Snapshot: snap}
	}
}
