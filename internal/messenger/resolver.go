package messenger

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/zhubert/parley/internal/avatar"
	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
)

// UnknownUser is shown for a counterparty whose profile cannot be loaded.
const UnknownUser = "Unknown user"

// LoadingName is shown until a direct chat has been resolved.
const LoadingName = "Loading..."

// Resolved is the display identity of a chat row.
type Resolved struct {
	Name  string
	Photo string
	// UserID is the counterparty of a direct chat.
	UserID string
}

// Placeholder is the result used when resolution fails.
func Placeholder() Resolved {
	return Resolved{Name: UnknownUser, Photo: avatar.PlaceholderURL(UnknownUser)}
}

// Resolver resolves the counterparty of direct chats. Results are memoized per
// chat id for the resolver's lifetime; a counterparty renaming later is not
// picked up. Unlike the other models, Resolver is safe for concurrent use
// since resolves run in commands.
type Resolver struct {
	docs  backend.DocumentStore
	group singleflight.Group
	log   *slog.Logger

	mu    sync.RWMutex
	cache map[string]Resolved
}

func NewResolver(docs backend.DocumentStore) *Resolver {
	return &Resolver{
		docs:  docs,
		cache: make(map[string]Resolved),
		log:   logger.ComponentLogger("Resolver"),
	}
}

// Counterparty returns the single participant of a direct chat that is not
// selfID.
func Counterparty(chat backend.Chat, selfID string) (string, error) {
	if len(chat.Participants) != 2 {
		return "", pErrors.DirectChatInvariant(chat.ID, len(chat.Participants))
	}
	var other string
	n := 0
	for _, p := range chat.Participants {
		if p != selfID {
			other = p
			n++
		}
	}
	if n != 1 || other == "" {
		return "", pErrors.DirectChatInvariant(chat.ID, len(chat.Participants))
	}
	return other, nil
}

// Cached returns a previously resolved entry.
func (r *Resolver) Cached(chatID string) (Resolved, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.cache[chatID]
	return res, ok
}

// Resolve returns the display identity of chat as seen by selfID. Group chats
// resolve to their own name and photo. For a direct chat the counterparty's
// profile is fetched once. Every failure returns the placeholder alongside
// the error so callers can render it; failures are not memoized.
func (r *Resolver) Resolve(ctx context.Context, chat backend.Chat, selfID string) (Resolved, error) {
	if chat.Kind == backend.KindGroup {
		return GroupDisplay(chat), nil
	}
	if res, ok := r.Cached(chat.ID); ok {
		return res, nil
	}

	other, err := Counterparty(chat, selfID)
	if err != nil {
		r.log.Error("invalid direct chat", "chatID", chat.ID, "participants", len(chat.Participants), "error", err)
		return Placeholder(), err
	}

	v, err, _ := r.group.Do(chat.ID, func() (any, error) {
		if res, ok := r.Cached(chat.ID); ok {
			return res, nil
		}
		doc, err := r.docs.Get(ctx, backend.UserPath(other))
		if err != nil {
			return nil, pErrors.E(pErrors.Op("messenger.Resolve"), err)
		}
		res := UserDisplay(backend.IdentityFromDoc(doc))
		res.UserID = other

		r.mu.Lock()
		r.cache[chat.ID] = res
		r.mu.Unlock()
		return res, nil
	})
	if err != nil {
		logger.WithChat(chat.ID).Warn("counterparty lookup failed", "uid", other, "error", err)
		res := Placeholder()
		res.UserID = other
		return res, err
	}
	return v.(Resolved), nil
}

// Forget drops every memoized entry, for sign-out.
func (r *Resolver) Forget() {
	r.mu.Lock()
	r.cache = make(map[string]Resolved)
	r.mu.Unlock()
}

// GroupDisplay is the display identity of a group chat.
func GroupDisplay(chat backend.Chat) Resolved {
	name := chat.Name
	if name == "" {
		name = "Group"
	}
	photo := chat.PhotoURL
	if photo == "" {
		photo = avatar.PlaceholderURL(name)
	}
	return Resolved{Name: name, Photo: photo}
}

// UserDisplay is the display identity of a user profile.
func UserDisplay(id backend.Identity) Resolved {
	name := id.Name()
	if name == "" {
		name = UnknownUser
	}
	photo := id.PhotoURL
	if photo == "" {
		photo = avatar.PlaceholderURL(name)
	}
	return Resolved{Name: name, Photo: photo, UserID: id.ID}
}
