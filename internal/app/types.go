package app

import (
	"github.com/zhubert/parley/internal/backend"
	"github.com/zhubert/parley/internal/clipboard"
	"github.com/zhubert/parley/internal/messenger"
)

// IdentityChangedMsg carries one push from the auth collaborator. A nil
// Identity means signed out.
type IdentityChangedMsg struct {
	Identity *backend.Identity
}

// ProfileLoadedMsg is sent when the signed-in user's profile document has
// been ensured and read.
type ProfileLoadedMsg struct {
	Profile backend.Identity
	Err     error
}

// ChatsSnapshotMsg carries one chat-list snapshot.
type ChatsSnapshotMsg struct {
	Snapshot backend.Snapshot
}

// ChatsClosedMsg is sent when a chat-list subscription channel closes.
type ChatsClosedMsg struct {
	Token backend.Token
}

// MessagesSnapshotMsg carries one message snapshot of the active chat.
type MessagesSnapshotMsg struct {
	Snapshot backend.Snapshot
}

// MessagesClosedMsg is sent when a message subscription channel closes.
type MessagesClosedMsg struct {
	Token backend.Token
}

// ResolvedMsg is sent when a direct chat's counterparty has been looked up.
type ResolvedMsg struct {
	ChatID   string
	Resolved messenger.Resolved
	Err      error
}

// AuthResultMsg is sent when a sign in or sign up attempt completes.
type AuthResultMsg struct {
	Email string
	Err   error
}

// SignedOutMsg is sent when sign-out returns.
type SignedOutMsg struct {
	Err error
}

// SendResultMsg is sent when a message send completes.
type SendResultMsg struct {
	ChatID string
	Text   string
	Err    error
}

// SearchResultMsg is sent when an email search completes.
type SearchResultMsg struct {
	Email string
	User  backend.Identity
	Err   error
}

// DirectChatMsg is sent when a direct chat has been found or created.
type DirectChatMsg struct {
	ChatID  string
	Name    string
	Created bool
	Err     error
}

// GroupCreatedMsg is sent when group creation completes.
type GroupCreatedMsg struct {
	ChatID string
	Name   string
	Err    error
}

// ProfileSavedMsg is sent when a profile update completes.
type ProfileSavedMsg struct {
	Update backend.IdentityUpdate
	Err    error
}

// pasteTarget is where a clipboard image goes.
type pasteTarget int

const (
	pasteComposer pasteTarget = iota
	pasteGroup
	pasteAvatar
)

// ClipboardImageMsg is sent when the clipboard has been read for an image.
type ClipboardImageMsg struct {
	Target pasteTarget
	Image  *clipboard.ImageData // nil when the clipboard holds no image
	Err    error
}

// ClipboardCopiedMsg is sent when text has been put on the clipboard.
type ClipboardCopiedMsg struct {
	Err error
}
