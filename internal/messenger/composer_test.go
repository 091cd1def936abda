package messenger

import (
	"context"
	"errors"
	"testing"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
)

var ann = backend.Identity{ID: "u1", Email: "ann@example.com", DisplayName: "Ann", PhotoURL: "https://x/ann.png"}

func TestComposer_Take(t *testing.T) {
	tests := []struct {
		name    string
		draft   string
		want    string
		wantErr error
	}{
		{"plain", "hello", "hello", nil},
		{"trimmed", "  hello \n", "hello", nil},
		{"empty", "", "", ErrEmptyMessage},
		{"whitespace", " \t\n ", "", ErrEmptyMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComposer(newFakeStore())
			c.SetDraft(tt.draft)
			got, err := c.Take()
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if err == nil && c.Draft() != "" {
				t.Error("draft should be cleared after Take")
			}
			if err != nil && c.Draft() != tt.draft {
				t.Error("draft should be kept on error")
			}
		})
	}
}

func TestComposer_AttachmentUnsupported(t *testing.T) {
	c := NewComposer(newFakeStore())
	c.SetDraft("look")
	c.Attach([]byte("png"))
	if _, err := c.Take(); !errors.Is(err, ErrAttachmentUnsupported) {
		t.Errorf("err = %v", err)
	}
	c.Clear()
	if c.Attached() || c.Draft() != "" {
		t.Error("Clear should drop draft and image")
	}
}

func TestComposer_Send(t *testing.T) {
	store := newFakeStore()
	store.put(backend.ChatPath("c1"), backend.Fields{"kind": "direct"})
	c := NewComposer(store)

	if err := c.Send(context.Background(), "c1", "hello", ann); err != nil {
		t.Fatalf("Send: %v", err)
	}

	creates := store.callsOf("create")
	if len(creates) != 1 || creates[0].path != "chats/c1/messages" {
		t.Fatalf("creates = %+v", creates)
	}
	msg := creates[0].fields
	if msg["text"] != "hello" || msg["senderId"] != "u1" || msg["senderName"] != "Ann" || msg["sentAt"] != backend.ServerTimestamp {
		t.Errorf("message fields = %+v", msg)
	}

	updates := store.callsOf("update")
	if len(updates) != 1 || updates[0].path != "chats/c1" {
		t.Fatalf("updates = %+v", updates)
	}
	last := updates[0].fields["lastMessage"].(map[string]any)
	if last["text"] != "hello" || last["senderId"] != "u1" || last["sentAt"] != backend.ServerTimestamp {
		t.Errorf("lastMessage = %+v", last)
	}
}

func TestComposer_SendRejectsBlank(t *testing.T) {
	store := newFakeStore()
	c := NewComposer(store)
	if err := c.Send(context.Background(), "c1", "   ", ann); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("err = %v", err)
	}
	if len(store.calls) != 0 {
		t.Error("blank send reached the store")
	}
}

func TestComposer_SendFailures(t *testing.T) {
	t.Run("message write", func(t *testing.T) {
		store := newFakeStore()
		store.fail["create"] = errBoom
		err := NewComposer(store).Send(context.Background(), "c1", "hi", ann)
		if !pErrors.Is(err, pErrors.KindWrite) || errors.Is(err, ErrSummaryNotUpdated) {
			t.Errorf("err = %v", err)
		}
		if len(store.callsOf("update")) != 0 {
			t.Error("summary should not be written when the message failed")
		}
	})

	t.Run("summary write", func(t *testing.T) {
		store := newFakeStore()
		store.fail["update"] = errBoom
		err := NewComposer(store).Send(context.Background(), "c1", "hi", ann)
		if !errors.Is(err, ErrSummaryNotUpdated) || !errors.Is(err, errBoom) {
			t.Errorf("err = %v", err)
		}
	})
}

func TestComposer_Restore(t *testing.T) {
	c := NewComposer(newFakeStore())
	c.SetDraft("hello")
	text, _ := c.Take()

	c.Restore(text)
	if c.Draft() != "hello" {
		t.Errorf("draft = %q", c.Draft())
	}

	c.SetDraft("typed meanwhile")
	c.Restore("failed")
	if c.Draft() != "failed\ntyped meanwhile" {
		t.Errorf("draft = %q", c.Draft())
	}
}
