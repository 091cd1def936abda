package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
)

var testClock = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// engines returns a fresh store per engine so every behaviour is checked
// against both persistence layers.
func engines(t *testing.T) map[string]*Store {
	t.Helper()
	dir := t.TempDir()

	bolt, err := OpenBolt(filepath.Join(dir, "bolt", "parley.db"))
	if err != nil {
		t.Fatalf("OpenBolt: %v", err)
	}
	lite, err := OpenSQL("sqlite3", filepath.Join(dir, "sqlite", "parley.sqlite"))
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}

	out := map[string]*Store{"bolt": New(bolt), "sqlite3": New(lite)}
	for _, s := range out {
		s.SetClock(func() time.Time { return testClock })
		st := s
		t.Cleanup(func() { st.Close() })
	}
	return out
}

func recv(t *testing.T, sub backend.Subscription) backend.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return backend.Snapshot{}
}

func TestStore_CreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			id, err := s.Create(ctx, backend.Chats, backend.Fields{
				"kind":         "group",
				"name":         "team",
				"participants": []string{"u1", "u2"},
				"createdAt":    backend.ServerTimestamp,
				"lastMessage": map[string]any{
					"text":     "Group created",
					"senderId": backend.SystemSender,
					"sentAt":   backend.ServerTimestamp,
				},
			})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if id == "" {
				t.Fatal("Create returned empty id")
			}

			doc, err := s.Get(ctx, backend.ChatPath(id))
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			chat := backend.ChatFromDoc(doc)
			if chat.Name != "team" || len(chat.Participants) != 2 {
				t.Errorf("chat = %+v", chat)
			}
			if !chat.CreatedAt.Equal(testClock) {
				t.Errorf("createdAt = %v, want server clock %v", chat.CreatedAt, testClock)
			}

			err = s.Update(ctx, backend.ChatPath(id), backend.Fields{
				"lastMessage.text":     "hello",
				"lastMessage.senderId": "u1",
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			doc, _ = s.Get(ctx, backend.ChatPath(id))
			chat = backend.ChatFromDoc(doc)
			if chat.LastMessage == nil || chat.LastMessage.Text != "hello" {
				t.Fatalf("lastMessage = %+v", chat.LastMessage)
			}
			if !chat.LastMessage.SentAt.Equal(testClock) {
				t.Error("dotted update should keep the untouched sentAt")
			}
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	ctx := context.Background()
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, backend.UserPath("nobody"))
			if !backend.IsNotFound(err) {
				t.Errorf("expected ErrNotFound, got %v", err)
			}
			if !pErrors.Is(err, pErrors.KindNotFound) {
				t.Errorf("kind = %v, want not found", pErrors.GetKind(err))
			}

			err = s.Update(ctx, backend.UserPath("nobody"), backend.Fields{"theme": "dark"})
			if !backend.IsNotFound(err) {
				t.Errorf("Update on missing doc: expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStore_SetIfAbsent(t *testing.T) {
	ctx := context.Background()
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			path := backend.UserPath("u1")
			created, err := s.SetIfAbsent(ctx, path, backend.Fields{"theme": "light"})
			if err != nil || !created {
				t.Fatalf("first SetIfAbsent = %v, %v", created, err)
			}
			created, err = s.SetIfAbsent(ctx, path, backend.Fields{"theme": "dark"})
			if err != nil || created {
				t.Fatalf("second SetIfAbsent = %v, %v", created, err)
			}
			doc, _ := s.Get(ctx, path)
			if doc.Fields.String("theme") != "light" {
				t.Error("SetIfAbsent must not overwrite")
			}
		})
	}
}

func TestStore_InvalidPaths(t *testing.T) {
	ctx := context.Background()
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Create(ctx, "chats/c1", backend.Fields{}); !pErrors.Is(err, pErrors.KindInvalid) {
				t.Errorf("Create into document path: %v", err)
			}
			if err := s.Set(ctx, "users", backend.Fields{}); !pErrors.Is(err, pErrors.KindInvalid) {
				t.Errorf("Set on collection path: %v", err)
			}
		})
	}
}

func TestStore_SubscribeFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			q := backend.Query{Collection: backend.Chats, OrderBy: "createdAt", Desc: true}.
				Where("participants", backend.OpArrayContains, "u1")

			sub, err := s.Subscribe(ctx, q)
			if err != nil {
				t.Fatalf("Subscribe: %v", err)
			}
			defer sub.Cancel()

			if snap := recv(t, sub); len(snap.Docs) != 0 || snap.Token != sub.Token() {
				t.Fatalf("initial snapshot = %+v", snap)
			}

			clock := testClock
			s.SetClock(func() time.Time { return clock })
			if err := s.Set(ctx, backend.ChatPath("old"), backend.Fields{
				"participants": []string{"u1", "u2"}, "createdAt": backend.ServerTimestamp,
			}); err != nil {
				t.Fatal(err)
			}
			recv(t, sub)

			clock = testClock.Add(time.Minute)
			s.SetClock(func() time.Time { return clock })
			if err := s.Set(ctx, backend.ChatPath("other"), backend.Fields{
				"participants": []string{"u2", "u3"}, "createdAt": backend.ServerTimestamp,
			}); err != nil {
				t.Fatal(err)
			}
			if err := s.Set(ctx, backend.ChatPath("new"), backend.Fields{
				"participants": []string{"u1", "u3"}, "createdAt": backend.ServerTimestamp,
			}); err != nil {
				t.Fatal(err)
			}

			// only the latest unread snapshot is kept
			snap := recv(t, sub)
			if len(snap.Docs) != 2 {
				t.Fatalf("got %d docs, want 2", len(snap.Docs))
			}
			if snap.Docs[0].ID != "new" || snap.Docs[1].ID != "old" {
				t.Errorf("order = %s, %s; want new, old", snap.Docs[0].ID, snap.Docs[1].ID)
			}
		})
	}
}

func TestStore_MessageTiesKeepArrivalOrder(t *testing.T) {
	ctx := context.Background()
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			coll := backend.MessagesOf("c1")
			for _, text := range []string{"first", "second", "third"} {
				msg := backend.Message{Text: text, SenderID: "u1"}
				if _, err := s.Create(ctx, coll, msg.Fields()); err != nil {
					t.Fatal(err)
				}
			}

			docs, err := s.Query(ctx, backend.Query{Collection: coll, OrderBy: "sentAt"})
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, d := range docs {
				got = append(got, backend.MessageFromDoc(d).Text)
			}
			if len(got) != 3 || got[0] != "first" || got[1] != "second" || got[2] != "third" {
				t.Errorf("order = %v", got)
			}
		})
	}
}

func TestStore_CancelClosesChannel(t *testing.T) {
	ctx := context.Background()
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			sub, err := s.Subscribe(ctx, backend.Query{Collection: backend.Users})
			if err != nil {
				t.Fatal(err)
			}
			recv(t, sub)

			sub.Cancel()
			sub.Cancel()

			if _, ok := <-sub.Snapshots(); ok {
				t.Error("channel should be closed after Cancel")
			}
			if err := s.Set(ctx, backend.UserPath("u1"), backend.Fields{"email": "a@b.c"}); err != nil {
				t.Fatalf("write after cancel: %v", err)
			}
			if s.Hub().Len() != 0 {
				t.Errorf("hub still holds %d subscriptions", s.Hub().Len())
			}
		})
	}
}

func TestStore_SubscriptionOutlivesSetupContext(t *testing.T) {
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			sub, err := s.Subscribe(ctx, backend.Query{Collection: backend.Users})
			if err != nil {
				t.Fatal(err)
			}
			defer sub.Cancel()
			recv(t, sub)
			cancel()

			if err := s.Set(context.Background(), backend.UserPath("u1"), backend.Fields{"email": "a@b.c"}); err != nil {
				t.Fatal(err)
			}
			select {
			case snap, ok := <-sub.Snapshots():
				if !ok {
					t.Fatal("subscription ended with its setup context")
				}
				if len(snap.Docs) != 1 {
					t.Errorf("docs = %d, want 1", len(snap.Docs))
				}
			case <-time.After(2 * time.Second):
				t.Fatal("no snapshot after write")
			}
			if s.Hub().Len() != 1 {
				t.Errorf("hub holds %d subscriptions, want 1", s.Hub().Len())
			}
		})
	}
}

func TestStore_SubscribeInvalidQuery(t *testing.T) {
	for name, s := range engines(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Subscribe(context.Background(), backend.Query{Collection: "chats/c1"})
			if !pErrors.Is(err, pErrors.KindSubscription) {
				t.Errorf("kind = %v, want subscription error", pErrors.GetKind(err))
			}
		})
	}
}

func TestSQLEngine_Rebind(t *testing.T) {
	pg := &SQLEngine{driver: "postgres"}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	my := &SQLEngine{driver: "mysql"}
	if got := my.rebind("a = ?"); got != "a = ?" {
		t.Errorf("mysql rebind = %q", got)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("redis", "", t.TempDir())
	if !pErrors.Is(err, pErrors.KindInvalid) {
		t.Errorf("kind = %v, want invalid", pErrors.GetKind(err))
	}
}
