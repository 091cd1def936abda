package messenger

import (
	"context"
	"testing"

	"github.com/zhubert/parley/internal/backend"
)

func TestGate_Transitions(t *testing.T) {
	g := NewGate(newFakeStore(), "")
	if g.Ready() || g.State() != Initializing {
		t.Fatalf("new gate: ready=%v state=%v", g.Ready(), g.State())
	}
	if g.Theme() != backend.ThemeLight {
		t.Errorf("default theme = %q", g.Theme())
	}

	if changed := g.Apply(nil); changed {
		t.Error("initial absent report should not count as a change")
	}
	if !g.Ready() || g.State() != SignedOut || g.Identity() != nil {
		t.Fatalf("after absent: state=%v identity=%v", g.State(), g.Identity())
	}

	ann := &backend.Identity{ID: "u1", Email: "ann@example.com", DisplayName: "Ann"}
	if !g.Apply(ann) {
		t.Error("sign-in should be a change")
	}
	if g.State() != SignedIn || g.Identity().ID != "u1" {
		t.Fatalf("after sign-in: state=%v identity=%+v", g.State(), g.Identity())
	}

	renamed := *ann
	renamed.DisplayName = "Annie"
	if g.Apply(&renamed) {
		t.Error("refresh of the same user should not be a change")
	}
	if g.Identity().DisplayName != "Annie" {
		t.Errorf("identity not refreshed: %+v", g.Identity())
	}

	if !g.Apply(nil) || g.State() != SignedOut {
		t.Errorf("sign-out: state=%v", g.State())
	}
}

func TestGate_SignOutCancelsTracked(t *testing.T) {
	store := newFakeStore()
	g := NewGate(store, backend.ThemeLight)
	g.Apply(&backend.Identity{ID: "u1"})

	chats, _ := store.Subscribe(context.Background(), ChatsQuery("u1"))
	msgs, _ := store.Subscribe(context.Background(), MessagesQuery("c1"))
	g.Track(chats)
	g.Track(msgs)
	g.Track(nil)
	if g.Tracked() != 2 {
		t.Fatalf("Tracked = %d", g.Tracked())
	}

	g.Apply(&backend.Identity{ID: "u2"})
	for _, s := range []backend.Subscription{chats, msgs} {
		if !s.(*fakeSub).cancelled {
			t.Errorf("subscription %d survived a change of user", s.Token())
		}
	}
	if g.Tracked() != 0 {
		t.Errorf("Tracked after switch = %d", g.Tracked())
	}

	again, _ := store.Subscribe(context.Background(), ChatsQuery("u2"))
	g.Track(again)
	g.Untrack(again)
	g.Apply(nil)
	if again.(*fakeSub).cancelled {
		t.Error("untracked subscription should be left alone")
	}
}

func TestGate_EnsureProfile(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := NewGate(store, backend.ThemeDark)
	ann := backend.Identity{ID: "u1", Email: "ann@example.com", DisplayName: "Ann", Theme: backend.ThemeDark}
	g.Apply(&ann)

	p, err := g.EnsureProfile(ctx, ann)
	if err != nil {
		t.Fatalf("EnsureProfile: %v", err)
	}
	if p.Theme != backend.ThemeLight {
		t.Errorf("new profile theme = %q, want light", p.Theme)
	}

	store.put(backend.UserPath("u1"), backend.Fields{"id": "u1", "email": "ann@example.com", "displayName": "Ann", "theme": "dark"})
	p, err = g.EnsureProfile(ctx, ann)
	if err != nil {
		t.Fatal(err)
	}
	if p.Theme != backend.ThemeDark {
		t.Errorf("existing profile overwritten: theme %q", p.Theme)
	}
	if !g.SetProfile(p) || g.Theme() != backend.ThemeDark {
		t.Errorf("SetProfile: theme %q", g.Theme())
	}

	if g.SetProfile(backend.Identity{ID: "someone-else", Theme: backend.ThemeLight}) {
		t.Error("a profile for another user must be ignored")
	}
}

func TestGate_ToggleBeforeProfileLoaded(t *testing.T) {
	tests := []struct {
		name      string
		toggles   int
		stored    backend.Theme
		wantTheme backend.Theme
		pending   bool
	}{
		{"no toggle adopts stored", 0, backend.ThemeDark, backend.ThemeDark, false},
		{"toggle wins over stored", 1, backend.ThemeLight, backend.ThemeDark, true},
		{"double toggle still pending", 2, backend.ThemeDark, backend.ThemeLight, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGate(newFakeStore(), backend.ThemeLight)
			g.Apply(&backend.Identity{ID: "u1"})
			for i := 0; i < tt.toggles; i++ {
				g.ToggleTheme()
			}
			if _, ok := g.TakePendingTheme(); ok {
				t.Fatal("nothing to store before the profile exists")
			}

			if !g.SetProfile(backend.Identity{ID: "u1", Theme: tt.stored}) {
				t.Fatal("SetProfile rejected")
			}
			if g.Theme() != tt.wantTheme || g.Identity().Theme != tt.wantTheme {
				t.Errorf("theme = %q, identity %q, want %q", g.Theme(), g.Identity().Theme, tt.wantTheme)
			}
			theme, ok := g.TakePendingTheme()
			if ok != tt.pending || (ok && theme != tt.wantTheme) {
				t.Errorf("pending = %q, %v", theme, ok)
			}
			if _, ok := g.TakePendingTheme(); ok {
				t.Error("pending theme should be taken once")
			}

			g.ToggleTheme()
			if _, ok := g.TakePendingTheme(); ok {
				t.Error("toggle after load is persisted directly")
			}
		})
	}
}

func TestGate_IdentitySwitchClearsProfileState(t *testing.T) {
	g := NewGate(newFakeStore(), backend.ThemeLight)
	g.Apply(&backend.Identity{ID: "u1"})
	g.SetProfile(backend.Identity{ID: "u1", Theme: backend.ThemeLight})
	if !g.ProfileLoaded() {
		t.Fatal("profile should be loaded")
	}
	if !g.Apply(&backend.Identity{ID: "u2"}) {
		t.Fatal("switch should report a change")
	}
	if g.ProfileLoaded() {
		t.Error("new identity starts without a profile")
	}
}

func TestGate_EnsureProfileFailure(t *testing.T) {
	store := newFakeStore()
	store.fail["setIfAbsent"] = errBoom
	g := NewGate(store, backend.ThemeLight)
	if _, err := g.EnsureProfile(context.Background(), backend.Identity{ID: "u1"}); err == nil {
		t.Error("expected error")
	}
}
