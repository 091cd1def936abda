// Package messenger holds parley's client view-model: the session gate, the
// live chat list, direct-chat name resolution, the active message stream,
// message composition and chat mutations.
//
// Models are not safe for concurrent use. They are owned by the UI loop,
// which applies snapshots and identity changes one at a time; only blocking
// collaborator calls run elsewhere.
package messenger

import (
	"context"
	"log/slog"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
)

// GateState is the authentication state of the session.
type GateState int

const (
	Initializing GateState = iota
	SignedOut
	SignedIn
)

func (s GateState) String() string {
	switch s {
	case SignedOut:
		return "signed out"
	case SignedIn:
		return "signed in"
	default:
		return "initializing"
	}
}

// Gate tracks the signed-in identity and the session's live subscriptions.
type Gate struct {
	docs     backend.DocumentStore
	state    GateState
	identity *backend.Identity
	theme    backend.Theme
	tracked  map[backend.Token]backend.Subscription

	// profile read back for the current identity; a toggle before that is
	// pending until the profile exists
	profileLoaded bool
	themePending  bool

	log      *slog.Logger
}

// NewGate starts Initializing. theme applies until a profile is loaded.
func NewGate(docs backend.DocumentStore, theme backend.Theme) *Gate {
	if theme == "" {
		theme = backend.ThemeLight
	}
	return &Gate{
		docs:    docs,
		theme:   theme,
		tracked: make(map[backend.Token]backend.Subscription),
		log:     logger.ComponentLogger("Gate"),
	}
}

func (g *Gate) State() GateState { return g.state }

// Ready reports whether the auth collaborator has reported at least once.
func (g *Gate) Ready() bool { return g.state != Initializing }

// Identity returns the signed-in identity, or nil.
func (g *Gate) Identity() *backend.Identity {
	if g.identity == nil {
		return nil
	}
	id := *g.identity
	return &id
}

// Theme returns the current UI theme.
func (g *Gate) Theme() backend.Theme { return g.theme }

// SetTheme replaces the UI theme.
func (g *Gate) SetTheme(t backend.Theme) { g.theme = t }

// ToggleTheme flips the UI theme and returns the new value. A toggle made
// before the profile has loaded outranks the stored theme.
func (g *Gate) ToggleTheme() backend.Theme {
	g.theme = g.theme.Toggle()
	if g.identity != nil && !g.profileLoaded {
		g.themePending = true
	}
	return g.theme
}

// ProfileLoaded reports whether the signed-in user's profile has been read
// back, so profile writes will find the document.
func (g *Gate) ProfileLoaded() bool { return g.profileLoaded }

// TakePendingTheme returns a theme toggled before the profile loaded that
// still has to be stored, and clears it.
func (g *Gate) TakePendingTheme() (backend.Theme, bool) {
	if !g.themePending || !g.profileLoaded {
		return "", false
	}
	g.themePending = false
	return g.theme, true
}

// Apply handles an identity push from the auth collaborator. It reports
// whether the signed-in identity changed. Leaving an identity cancels every
// tracked subscription.
func (g *Gate) Apply(id *backend.Identity) bool {
	prev := g.identity
	if id == nil {
		g.state = SignedOut
		g.identity = nil
	} else {
		cp := *id
		g.state = SignedIn
		g.identity = &cp
	}

	switch {
	case prev == nil && id == nil:
		return false
	case prev != nil && id != nil && prev.ID == id.ID:
		// same user, refreshed fields
		return false
	}

	g.profileLoaded = false
	g.themePending = false
	if prev != nil {
		g.CancelAll()
		g.log.Info("signed out", "uid", prev.ID)
	}
	if id != nil {
		g.log.Info("signed in", "uid", id.ID)
	}
	return true
}

// Track registers a subscription to be cancelled on sign-out.
func (g *Gate) Track(sub backend.Subscription) {
	if sub == nil {
		return
	}
	g.tracked[sub.Token()] = sub
}

// Untrack forgets a subscription the caller cancelled itself.
func (g *Gate) Untrack(sub backend.Subscription) {
	if sub == nil {
		return
	}
	delete(g.tracked, sub.Token())
}

// Tracked returns the number of live tracked subscriptions.
func (g *Gate) Tracked() int { return len(g.tracked) }

// CancelAll cancels every tracked subscription.
func (g *Gate) CancelAll() {
	for token, sub := range g.tracked {
		sub.Cancel()
		delete(g.tracked, token)
	}
}

// EnsureProfile creates users/{id} if absent (theme light) and returns the
// stored profile. It only talks to the store, so it may run off the UI loop.
func (g *Gate) EnsureProfile(ctx context.Context, id backend.Identity) (backend.Identity, error) {
	const op = pErrors.Op("messenger.EnsureProfile")

	fresh := id
	fresh.Theme = backend.ThemeLight
	if _, err := g.docs.SetIfAbsent(ctx, backend.UserPath(id.ID), fresh.ProfileFields()); err != nil {
		return id, pErrors.E(op, err)
	}
	doc, err := g.docs.Get(ctx, backend.UserPath(id.ID))
	if err != nil {
		return id, pErrors.E(op, err)
	}
	return backend.IdentityFromDoc(doc), nil
}

// SetProfile adopts a loaded profile if it belongs to the current identity.
// The profile's theme becomes the UI theme unless the user toggled it while
// the profile was loading.
func (g *Gate) SetProfile(p backend.Identity) bool {
	if g.identity == nil || g.identity.ID != p.ID {
		return false
	}
	g.profileLoaded = true
	if g.themePending {
		p.Theme = g.theme
	}
	g.identity.Theme = p.Theme
	if p.DisplayName != "" {
		g.identity.DisplayName = p.DisplayName
	}
	if p.PhotoURL != "" {
		g.identity.PhotoURL = p.PhotoURL
	}
	g.theme = p.Theme
	return true
}
