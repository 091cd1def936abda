package messenger

import (
	"context"
	"testing"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
)

func subscribeList(t *testing.T, store *fakeStore) (*ChatList, *fakeSub) {
	t.Helper()
	l := NewChatList(store)
	sub, err := l.Subscribe(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	return l, sub.(*fakeSub)
}

func TestChatList_QueryShape(t *testing.T) {
	q := ChatsQuery("u1")
	if q.Collection != backend.Chats || !q.Desc {
		t.Errorf("query = %+v", q)
	}
	if len(q.Filters) != 1 || q.Filters[0].Op != backend.OpArrayContains || q.Filters[0].Value != "u1" {
		t.Errorf("filters = %+v", q.Filters)
	}
}

func TestChatList_OrdersByEffectiveTime(t *testing.T) {
	l, sub := subscribeList(t, newFakeStore())

	quiet := directDoc("quiet", "u1", "u2", 50)
	busy := directDoc("busy", "u1", "u3", 0)
	busy.Fields["lastMessage"] = map[string]any{"text": "hi", "senderId": "u3", "sentAt": at(60)}
	old := directDoc("old", "u1", "u4", 10)
	old.Fields["lastMessage"] = map[string]any{"text": "yo", "senderId": "u1", "sentAt": at(20)}
	group := chatDoc("group", backend.Fields{
		"kind": "group", "name": "Team", "participants": []any{"u1"},
		"createdAt": at(5),
		// not yet stamped: falls back to createdAt
		"lastMessage": map[string]any{"text": "Group created", "senderId": "system"},
	})

	if !l.Apply(sub.snap(quiet, old, group, busy)) {
		t.Fatal("snapshot from the current subscription was rejected")
	}

	var got []string
	for _, c := range l.Chats() {
		got = append(got, c.ID)
	}
	want := []string{"busy", "quiet", "old", "group"}
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	for i := 1; i < len(l.Chats()); i++ {
		if l.Chats()[i].EffectiveTime().After(l.Chats()[i-1].EffectiveTime()) {
			t.Errorf("order not non-increasing at %d", i)
		}
	}
}

func TestChatList_TiesBreakByID(t *testing.T) {
	l, sub := subscribeList(t, newFakeStore())
	l.Apply(sub.snap(directDoc("b", "u1", "u2", 5), directDoc("a", "u1", "u3", 5)))
	if l.Chats()[0].ID != "a" {
		t.Errorf("first = %s, want a", l.Chats()[0].ID)
	}
}

func TestChatList_ReplacesWholesale(t *testing.T) {
	l, sub := subscribeList(t, newFakeStore())
	l.Apply(sub.snap(directDoc("a", "u1", "u2", 1), directDoc("b", "u1", "u3", 2)))
	l.Apply(sub.snap(directDoc("c", "u1", "u4", 3)))
	if l.Len() != 1 || l.Chats()[0].ID != "c" {
		t.Errorf("chats = %+v", l.Chats())
	}
	if _, ok := l.Find("a"); ok {
		t.Error("chat a should be gone")
	}
	if l.Index("c") != 0 || l.Index("a") != -1 {
		t.Errorf("Index: c=%d a=%d", l.Index("c"), l.Index("a"))
	}
}

func TestChatList_DiscardsStaleToken(t *testing.T) {
	store := newFakeStore()
	l, first := subscribeList(t, store)
	second, err := l.Subscribe(context.Background(), "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !first.cancelled {
		t.Error("resubscribing should cancel the previous subscription")
	}

	if l.Apply(first.snap(directDoc("stale", "u1", "u2", 1))) {
		t.Error("stale snapshot accepted")
	}
	if l.Len() != 0 {
		t.Errorf("stale snapshot changed the list: %+v", l.Chats())
	}
	if !l.Apply(second.(*fakeSub).snap(directDoc("fresh", "u1", "u2", 1))) {
		t.Error("current snapshot rejected")
	}
}

func TestChatList_SetupRejected(t *testing.T) {
	tests := []struct {
		name     string
		identity string
		fail     error
	}{
		{"store rejects query", "u1", backend.ErrInvalidQuery},
		{"no identity", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			l, first := subscribeList(t, store)
			l.Apply(first.snap(directDoc("c1", "u1", "u2", 1)))
			if l.Len() != 1 {
				t.Fatalf("seed len = %d", l.Len())
			}

			if tt.fail != nil {
				store.fail["subscribe"] = tt.fail
			}
			sub, err := l.Subscribe(context.Background(), tt.identity)
			if err == nil || sub != nil {
				t.Fatalf("Subscribe = %v, %v", sub, err)
			}
			if l.Err() == nil {
				t.Error("Err should report the rejection")
			}
			if l.Len() != 0 || len(l.Chats()) != 0 {
				t.Errorf("list should be empty, has %d", l.Len())
			}
			if _, ok := l.FindDirect("u1", "u2"); ok {
				t.Error("FindDirect must not see the old snapshot")
			}
			if l.Apply(first.snap(directDoc("c1", "u1", "u2", 1))) {
				t.Error("Apply without a subscription should be ignored")
			}
		})
	}
	store := newFakeStore()
	store.fail["subscribe"] = backend.ErrInvalidQuery
	if _, err := NewChatList(store).Subscribe(context.Background(), "u1"); !pErrors.Is(err, pErrors.KindSubscription) {
		t.Errorf("err = %v, want subscription error", err)
	}
}

func TestChatList_SnapshotError(t *testing.T) {
	l, sub := subscribeList(t, newFakeStore())
	l.Apply(sub.snap(directDoc("a", "u1", "u2", 1)))
	l.Apply(backend.Snapshot{Token: sub.token, Err: backend.ErrUnauthorized})
	if l.Len() != 0 || l.Err() == nil {
		t.Errorf("after error: len=%d err=%v", l.Len(), l.Err())
	}
	l.Apply(sub.snap(directDoc("a", "u1", "u2", 1)))
	if l.Err() != nil {
		t.Errorf("error should clear on the next good snapshot: %v", l.Err())
	}
}

func TestChatList_NoIdentity(t *testing.T) {
	store := newFakeStore()
	l := NewChatList(store)
	if _, err := l.Subscribe(context.Background(), ""); !pErrors.Is(err, pErrors.KindInvalid) {
		t.Errorf("err = %v", err)
	}
	if len(store.callsOf("subscribe")) != 0 {
		t.Error("no subscription should be attempted")
	}
}

func TestChatList_FindDirect(t *testing.T) {
	l, sub := subscribeList(t, newFakeStore())
	group := chatDoc("g", backend.Fields{"kind": "group", "name": "x", "participants": []any{"u1", "u2"}})
	l.Apply(sub.snap(group, directDoc("d", "u2", "u1", 1)))

	tests := []struct {
		a, b string
		want string
	}{
		{"u1", "u2", "d"},
		{"u2", "u1", "d"},
		{"u1", "u3", ""},
	}
	for _, tt := range tests {
		c, ok := l.FindDirect(tt.a, tt.b)
		if tt.want == "" {
			if ok {
				t.Errorf("FindDirect(%s,%s) = %s, want none", tt.a, tt.b, c.ID)
			}
			continue
		}
		if !ok || c.ID != tt.want {
			t.Errorf("FindDirect(%s,%s) = %s,%v", tt.a, tt.b, c.ID, ok)
		}
	}
}

func TestChatList_Reset(t *testing.T) {
	l, sub := subscribeList(t, newFakeStore())
	l.Apply(sub.snap(directDoc("a", "u1", "u2", 1)))
	l.Reset()
	if !sub.cancelled || l.Len() != 0 || l.Token() != 0 {
		t.Errorf("Reset: cancelled=%v len=%d token=%d", sub.cancelled, l.Len(), l.Token())
	}
}
