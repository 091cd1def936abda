package messenger

import (
	"context"
	"log/slog"
	"sort"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
)

// ChatList holds the live, ordered set of chats the signed-in user is part of.
type ChatList struct {
	docs  backend.DocumentStore
	sub   backend.Subscription
	chats []backend.Chat
	err   error
	log   *slog.Logger
}

func NewChatList(docs backend.DocumentStore) *ChatList {
	return &ChatList{docs: docs, log: logger.ComponentLogger("ChatList")}
}

// ChatsQuery selects every chat identityID participates in, newest first.
// The store orders by lastMessage.sentAt; Apply re-sorts by effective time.
func ChatsQuery(identityID string) backend.Query {
	return backend.Query{
		Collection: backend.Chats,
		OrderBy:    "lastMessage.sentAt",
		Desc:       true,
	}.Where("participants", backend.OpArrayContains, identityID)
}

// Subscribe replaces any current subscription with one for identityID. On
// failure the list is emptied and Err reports the cause.
func (l *ChatList) Subscribe(ctx context.Context, identityID string) (backend.Subscription, error) {
	l.Cancel()
	if identityID == "" {
		l.chats = nil
		l.err = pErrors.E(pErrors.Op("messenger.ChatList.Subscribe"), pErrors.KindInvalid, "no identity")
		return nil, l.err
	}

	sub, err := l.docs.Subscribe(ctx, ChatsQuery(identityID))
	if err != nil {
		l.chats = nil
		l.err = pErrors.SubscriptionFailed(backend.Chats, err)
		l.log.Error("chat list subscription rejected", "uid", identityID, "error", err)
		return nil, l.err
	}
	l.sub = sub
	return sub, nil
}

// Apply replaces the list with snap. It reports false, and changes nothing,
// when snap belongs to a subscription other than the current one.
func (l *ChatList) Apply(snap backend.Snapshot) bool {
	if l.sub == nil || snap.Token != l.sub.Token() {
		return false
	}
	if snap.Err != nil {
		l.chats = nil
		l.err = pErrors.SubscriptionFailed(backend.Chats, snap.Err)
		l.log.Error("chat list snapshot failed", "error", snap.Err)
		return true
	}

	chats := make([]backend.Chat, 0, len(snap.Docs))
	for _, d := range snap.Docs {
		chats = append(chats, backend.ChatFromDoc(d))
	}
	SortChats(chats)
	l.chats = chats
	l.err = nil
	return true
}

// SortChats orders chats by effective time, newest first, then by id.
func SortChats(chats []backend.Chat) {
	sort.SliceStable(chats, func(i, j int) bool {
		ti, tj := chats[i].EffectiveTime(), chats[j].EffectiveTime()
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return chats[i].ID < chats[j].ID
	})
}

// Cancel ends the subscription. The list keeps its last contents.
func (l *ChatList) Cancel() {
	if l.sub != nil {
		l.sub.Cancel()
		l.sub = nil
	}
}

// Reset cancels and forgets everything, for sign-out.
func (l *ChatList) Reset() {
	l.Cancel()
	l.chats = nil
	l.err = nil
}

// Token of the current subscription, or zero.
func (l *ChatList) Token() backend.Token {
	if l.sub == nil {
		return 0
	}
	return l.sub.Token()
}

func (l *ChatList) Subscription() backend.Subscription { return l.sub }

// Chats returns the ordered list. Callers must not modify it.
func (l *ChatList) Chats() []backend.Chat { return l.chats }

func (l *ChatList) Len() int { return len(l.chats) }

func (l *ChatList) Err() error { return l.err }

// Find returns the chat with the given id.
func (l *ChatList) Find(id string) (backend.Chat, bool) {
	for _, c := range l.chats {
		if c.ID == id {
			return c, true
		}
	}
	return backend.Chat{}, false
}

// Index returns the position of id in the list, or -1.
func (l *ChatList) Index(id string) int {
	for i, c := range l.chats {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// FindDirect looks for a direct chat between exactly a and b.
func (l *ChatList) FindDirect(a, b string) (backend.Chat, bool) {
	return findDirect(l.chats, a, b)
}

func findDirect(chats []backend.Chat, a, b string) (backend.Chat, bool) {
	for _, c := range chats {
		if c.Kind != backend.KindDirect || len(c.Participants) != 2 {
			continue
		}
		p0, p1 := c.Participants[0], c.Participants[1]
		if (p0 == a && p1 == b) || (p0 == b && p1 == a) {
			return c, true
		}
	}
	return backend.Chat{}, false
}
