package notification

import (
	"errors"
	"strings"
	"testing"
)

// mockNotification records calls to the notification function
type mockNotification struct {
	calls []struct {
		title   string
		message string
	}
	err error
}

func (m *mockNotification) notify(title, message string, _ any) error {
	m.calls = append(m.calls, struct {
		title   string
		message string
	}{title, message})
	return m.err
}

func TestSend(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		message     string
		mockErr     error
		expectError bool
	}{
		{"successful notification", "Title", "Message", nil, false},
		{"notification error", "Title", "Message", errors.New("notification failed"), true},
		{"empty message", "Title", "", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockNotification{err: tt.mockErr}
			SetNotifier(mock.notify)
			defer ResetNotifier()

			err := Send(tt.title, tt.message)
			if (err != nil) != tt.expectError {
				t.Errorf("err = %v, expectError %v", err, tt.expectError)
			}
			if len(mock.calls) != 1 {
				t.Fatalf("expected 1 call, got %d", len(mock.calls))
			}
			if mock.calls[0].title != tt.title || mock.calls[0].message != tt.message {
				t.Errorf("call = %+v", mock.calls[0])
			}
		})
	}
}

func TestNewMessage(t *testing.T) {
	mock := &mockNotification{}
	SetNotifier(mock.notify)
	defer ResetNotifier()

	if err := NewMessage("Bob", "hello\n  there"); err != nil {
		t.Fatal(err)
	}
	if mock.calls[0].title != AppName || mock.calls[0].message != "Bob: hello there" {
		t.Errorf("call = %+v", mock.calls[0])
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "hi", "hi"},
		{"whitespace collapsed", " a \n\t b ", "a b"},
		{"long", strings.Repeat("x", 100), strings.Repeat("x", 77) + "..."},
		{"unicode", strings.Repeat("é", 81), strings.Repeat("é", 77) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.in); got != tt.want {
				t.Errorf("Preview(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
