package backend

import (
	"fmt"
	"strings"
	"time"
)

// Collections.
const (
	Users       = "users"
	Chats       = "chats"
	Credentials = "credentials"
)

// UserPath returns the profile document path for an identity.
func UserPath(id string) string { return Users + "/" + id }

// ChatPath returns the document path for a chat.
func ChatPath(id string) string { return Chats + "/" + id }

// MessagesOf returns the message collection of a chat.
func MessagesOf(chatID string) string { return Chats + "/" + chatID + "/messages" }

// DocPath joins a collection and a document id.
func DocPath(collection, id string) string { return collection + "/" + id }

// ValidCollection reports whether path names a collection: an odd number
// of non-empty segments.
func ValidCollection(path string) bool {
	parts := strings.Split(path, "/")
	if len(parts)%2 == 0 {
		return false
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			return false
		}
	}
	return true
}

// SplitPath splits a document path into its collection and id.
func SplitPath(path string) (collection, id string, err error) {
	i := strings.LastIndex(path, "/")
	if i <= 0 || i == len(path)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	collection, id = path[:i], path[i+1:]
	if !ValidCollection(collection) || id == "." || id == ".." {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return collection, id, nil
}

// Theme is the persisted UI theme.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeDark {
		return ThemeLight
	}
	return ThemeDark
}

// ParseTheme maps unknown values to light.
func ParseTheme(s string) Theme {
	if Theme(s) == ThemeDark {
		return ThemeDark
	}
	return ThemeLight
}

// Identity is a user profile.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
	Theme       Theme  `json:"theme,omitempty"`
}

// Name returns the display name, falling back to the email.
func (i Identity) Name() string {
	if i.DisplayName != "" {
		return i.DisplayName
	}
	return i.Email
}

// ProfileFields is the users/{id} document body.
func (i Identity) ProfileFields() Fields {
	theme := i.Theme
	if theme == "" {
		theme = ThemeLight
	}
	f := Fields{
		"id":          i.ID,
		"email":       i.Email,
		"displayName": i.DisplayName,
		"theme":       string(theme),
	}
	if i.PhotoURL != "" {
		f["photoURL"] = i.PhotoURL
	}
	return f
}

// IdentityFromDoc decodes a users/{id} document.
func IdentityFromDoc(d Document) Identity {
	id := d.Fields.String("id")
	if id == "" {
		id = d.ID
	}
	return Identity{
		ID:          id,
		Email:       d.Fields.String("email"),
		DisplayName: d.Fields.String("displayName"),
		PhotoURL:    d.Fields.String("photoURL"),
		Theme:       ParseTheme(d.Fields.String("theme")),
	}
}

// ChatKind distinguishes direct and group chats.
type ChatKind string

const (
	KindDirect ChatKind = "direct"
	KindGroup  ChatKind = "group"
)

// SystemSender marks messages written by parley itself.
const SystemSender = "system"

// LastMessage is the denormalized summary of a chat's newest message.
// A zero SentAt means the server has not stamped it yet.
type LastMessage struct {
	Text     string
	SenderID string
	SentAt   time.Time
}

// Chat is a conversation container.
type Chat struct {
	ID           string
	Kind         ChatKind
	Participants []string
	Name         string
	PhotoURL     string
	Description  string
	LastMessage  *LastMessage
	CreatedAt    time.Time
	CreatedBy    string
}

// EffectiveTime is the list ordering key: lastMessage.sentAt, else createdAt.
func (c Chat) EffectiveTime() time.Time {
	if c.LastMessage != nil && !c.LastMessage.SentAt.IsZero() {
		return c.LastMessage.SentAt
	}
	return c.CreatedAt
}

// HasParticipant reports whether id is in the chat.
func (c Chat) HasParticipant(id string) bool {
	for _, p := range c.Participants {
		if p == id {
			return true
		}
	}
	return false
}

// ChatFromDoc decodes a chats/{id} document.
func ChatFromDoc(d Document) Chat {
	c := Chat{
		ID:           d.ID,
		Kind:         ChatKind(d.Fields.String("kind")),
		Participants: d.Fields.Strings("participants"),
		Name:         d.Fields.String("name"),
		PhotoURL:     d.Fields.String("photoURL"),
		Description:  d.Fields.String("description"),
		CreatedAt:    d.Fields.Time("createdAt"),
		CreatedBy:    d.Fields.String("createdBy"),
	}
	if c.Kind == "" {
		// Records created before kind existed: groups always carry a name.
		if c.Name != "" {
			c.Kind = KindGroup
		} else {
			c.Kind = KindDirect
		}
	}
	if d.Fields.Has("lastMessage") {
		c.LastMessage = &LastMessage{
			Text:     d.Fields.String("lastMessage.text"),
			SenderID: d.Fields.String("lastMessage.senderId"),
			SentAt:   d.Fields.Time("lastMessage.sentAt"),
		}
	}
	return c
}

// Message is one immutable chat message.
type Message struct {
	ID          string
	Text        string
	SenderID    string
	SenderName  string
	SenderPhoto string
	// PhotoURL is reserved for image attachments; nothing populates it.
	PhotoURL string
	SentAt   time.Time
	Seq      int64
}

// Fields is the document body written on send. SentAt is left to the server.
func (m Message) Fields() Fields {
	f := Fields{
		"text":     m.Text,
		"senderId": m.SenderID,
		"sentAt":   ServerTimestamp,
	}
	if m.SenderName != "" {
		f["senderName"] = m.SenderName
	}
	if m.SenderPhoto != "" {
		f["senderPhoto"] = m.SenderPhoto
	}
	return f
}

// MessageFromDoc decodes a chats/{id}/messages/{id} document.
func MessageFromDoc(d Document) Message {
	return Message{
		ID:          d.ID,
		Text:        d.Fields.String("text"),
		SenderID:    d.Fields.String("senderId"),
		SenderName:  d.Fields.String("senderName"),
		SenderPhoto: d.Fields.String("senderPhoto"),
		PhotoURL:    d.Fields.String("photoURL"),
		SentAt:      d.Fields.Time("sentAt"),
		Seq:         d.Seq,
	}
}
