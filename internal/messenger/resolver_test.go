package messenger

import (
	"context"
	"sync"
	"testing"

	"github.com/zhubert/parley/internal/avatar"
	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
)

func direct(id string, participants ...string) backend.Chat {
	return backend.Chat{ID: id, Kind: backend.KindDirect, Participants: participants}
}

func TestCounterparty(t *testing.T) {
	tests := []struct {
		name    string
		chat    backend.Chat
		want    string
		wantErr bool
	}{
		{"self first", direct("c", "u1", "u2"), "u2", false},
		{"self second", direct("c", "u2", "u1"), "u2", false},
		{"one participant", direct("c", "u1"), "", true},
		{"three participants", direct("c", "u1", "u2", "u3"), "", true},
		{"self twice", direct("c", "u1", "u1"), "", true},
		{"self absent", direct("c", "u2", "u3"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Counterparty(tt.chat, "u1")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !pErrors.Is(err, pErrors.KindInvariant) {
				t.Errorf("kind = %v", pErrors.GetKind(err))
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolver_FetchesOnceAndCaches(t *testing.T) {
	store := newFakeStore()
	store.put(backend.UserPath("u2"), backend.Fields{"id": "u2", "email": "bob@example.com", "displayName": "Bob"})
	r := NewResolver(store)
	ctx := context.Background()

	res, err := r.Resolve(ctx, direct("c1", "u1", "u2"), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if res.Name != "Bob" || res.UserID != "u2" || res.Photo != avatar.PlaceholderURL("Bob") {
		t.Errorf("resolved = %+v", res)
	}

	store.put(backend.UserPath("u2"), backend.Fields{"id": "u2", "displayName": "Robert", "photoURL": "https://x/p.png"})
	res, _ = r.Resolve(ctx, direct("c1", "u1", "u2"), "u1")
	if res.Name != "Bob" {
		t.Errorf("cached entry should not be refreshed, got %q", res.Name)
	}
	if store.gets != 1 {
		t.Errorf("gets = %d, want 1", store.gets)
	}

	if _, ok := r.Cached("c1"); !ok {
		t.Error("Cached(c1) missing")
	}
	r.Forget()
	res, _ = r.Resolve(ctx, direct("c1", "u1", "u2"), "u1")
	if res.Name != "Robert" || res.Photo != "https://x/p.png" {
		t.Errorf("after Forget = %+v", res)
	}
}

func TestResolver_MissingUserFallsBack(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store)
	ctx := context.Background()

	res, err := r.Resolve(ctx, direct("c1", "u1", "ghost"), "u1")
	if err == nil {
		t.Error("expected error for a missing profile")
	}
	if res.Name != UnknownUser || res.Photo == "" || res.UserID != "ghost" {
		t.Errorf("placeholder = %+v", res)
	}

	// failures are not memoized
	store.put(backend.UserPath("ghost"), backend.Fields{"displayName": "Casper"})
	res, err = r.Resolve(ctx, direct("c1", "u1", "ghost"), "u1")
	if err != nil || res.Name != "Casper" {
		t.Errorf("retry = %+v, %v", res, err)
	}
}

func TestResolver_InvariantViolation(t *testing.T) {
	store := newFakeStore()
	r := NewResolver(store)

	res, err := r.Resolve(context.Background(), direct("bad", "u1", "u2", "u3"), "u1")
	if !pErrors.Is(err, pErrors.KindInvariant) {
		t.Errorf("err = %v", err)
	}
	if res.Name != UnknownUser {
		t.Errorf("res = %+v", res)
	}
	if len(store.callsOf("get")) != 0 {
		t.Error("no profile should be fetched for an invalid chat")
	}
}

func TestResolver_Group(t *testing.T) {
	r := NewResolver(newFakeStore())
	tests := []struct {
		chat      backend.Chat
		wantName  string
		wantPhoto string
	}{
		{backend.Chat{ID: "g", Kind: backend.KindGroup, Name: "Team", PhotoURL: "https://x/t.png"}, "Team", "https://x/t.png"},
		{backend.Chat{ID: "g", Kind: backend.KindGroup}, "Group", avatar.PlaceholderURL("Group")},
	}
	for _, tt := range tests {
		res, err := r.Resolve(context.Background(), tt.chat, "u1")
		if err != nil || res.Name != tt.wantName || res.Photo != tt.wantPhoto {
			t.Errorf("Resolve(%+v) = %+v, %v", tt.chat, res, err)
		}
	}
}

func TestResolver_ConcurrentResolvesShareFetch(t *testing.T) {
	store := newFakeStore()
	store.put(backend.UserPath("u2"), backend.Fields{"displayName": "Bob"})
	store.block = make(chan struct{})
	r := NewResolver(store)

	var wg sync.WaitGroup
	results := make([]Resolved, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = r.Resolve(context.Background(), direct("c1", "u1", "u2"), "u1")
		}(i)
	}
	close(store.block)
	wg.Wait()

	for i, res := range results {
		if res.Name != "Bob" {
			t.Errorf("result %d = %+v", i, res)
		}
	}
	if store.gets > len(results) || store.gets < 1 {
		t.Errorf("gets = %d", store.gets)
	}
}
