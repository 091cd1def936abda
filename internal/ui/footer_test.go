package ui

import (
	"strings"
	"testing"
	"time"
)

func TestNewFooter(t *testing.T) {
	footer := NewFooter()

	if footer == nil {
		t.Fatal("NewFooter() returned nil")
	}
	if len(footer.bindings) == 0 {
		t.Error("Expected default bindings to be set")
	}
	if footer.flashMessage != nil {
		t.Error("Expected no flash message initially")
	}
}

func TestFooter_SetFlash(t *testing.T) {
	footer := NewFooter()

	footer.SetFlash("Test error message", FlashError)

	if footer.flashMessage == nil {
		t.Fatal("Expected flash message to be set")
	}
	if footer.flashMessage.Text != "Test error message" {
		t.Errorf("Expected text 'Test error message', got %q", footer.flashMessage.Text)
	}
	if footer.flashMessage.Type != FlashError {
		t.Errorf("Expected type FlashError, got %v", footer.flashMessage.Type)
	}
	if footer.flashMessage.Duration != DefaultFlashDuration {
		t.Errorf("Expected duration %v, got %v", DefaultFlashDuration, footer.flashMessage.Duration)
	}
}

func TestFooter_SetFlashWithDuration(t *testing.T) {
	footer := NewFooter()
	footer.SetFlashWithDuration("Custom duration", FlashInfo, 10*time.Second)

	if footer.flashMessage.Duration != 10*time.Second {
		t.Errorf("Expected duration 10s, got %v", footer.flashMessage.Duration)
	}
}

func TestFooter_ClearFlash(t *testing.T) {
	footer := NewFooter()

	footer.SetFlash("Test message", FlashInfo)
	if !footer.HasFlash() {
		t.Error("Expected HasFlash() to return true")
	}

	footer.ClearFlash()
	if footer.HasFlash() {
		t.Error("Expected HasFlash() to return false after ClearFlash()")
	}
}

func TestFlashMessage_IsExpired(t *testing.T) {
	msg := &FlashMessage{Text: "Test", CreatedAt: time.Now(), Duration: 5 * time.Second}
	if msg.IsExpired() {
		t.Error("New message should not be expired")
	}

	expiredMsg := &FlashMessage{Text: "Test", CreatedAt: time.Now().Add(-10 * time.Second), Duration: 5 * time.Second}
	if !expiredMsg.IsExpired() {
		t.Error("Old message should be expired")
	}
}

func TestFooter_ClearIfExpired(t *testing.T) {
	footer := NewFooter()

	footer.SetFlash("Not expired", FlashInfo)
	if footer.ClearIfExpired() {
		t.Error("Should not clear non-expired message")
	}

	footer.flashMessage = &FlashMessage{
		Text:      "Expired",
		CreatedAt: time.Now().Add(-10 * time.Second),
		Duration:  5 * time.Second,
	}
	if !footer.ClearIfExpired() {
		t.Error("Should clear expired message")
	}
	if footer.HasFlash() {
		t.Error("Flash should be cleared")
	}
}

func TestFooter_FlashTypes(t *testing.T) {
	tests := []struct {
		name         string
		flashType    FlashType
		expectedIcon string
	}{
		{"Error", FlashError, "✕"},
		{"Warning", FlashWarning, "⚠"},
		{"Info", FlashInfo, "ℹ"},
		{"Success", FlashSuccess, "✓"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			footer := NewFooter()
			footer.SetWidth(80)
			footer.SetFlash("Test message", tt.flashType)

			view := footer.View()
			if !strings.Contains(view, tt.expectedIcon) {
				t.Errorf("Expected %s flash to contain icon %q", tt.name, tt.expectedIcon)
			}
			if !strings.Contains(view, "Test message") {
				t.Error("Flash text should be visible")
			}
		})
	}
}

func TestFlashTick(t *testing.T) {
	if FlashTick() == nil {
		t.Error("FlashTick() should return a command")
	}
}

func TestFooter_Bindings(t *testing.T) {
	tests := []struct {
		name                              string
		signedIn, hasChat, sidebar, kitty bool
		want, wantNot                     []string
	}{
		{
			name:    "signed out",
			want:    []string{"submit", "quit"},
			wantNot: []string{"new chat", "send"},
		},
		{
			name:     "sidebar without chat",
			signedIn: true, sidebar: true,
			want:    []string{"new chat", "new group", "settings", "theme", "help", "quit"},
			wantNot: []string{"switch pane", "send"},
		},
		{
			name:     "sidebar with chat",
			signedIn: true, hasChat: true, sidebar: true,
			want:    []string{"switch pane", "new chat"},
			wantNot: []string{"send"},
		},
		{
			name:     "chat focused",
			signedIn: true, hasChat: true,
			want:    []string{"send", "opt+enter", "copy last", "close chat"},
			wantNot: []string{"new group", "shift+enter"},
		},
		{
			name:     "chat focused with kitty keyboard",
			signedIn: true, hasChat: true, kitty: true,
			want:    []string{"shift+enter"},
			wantNot: []string{"opt+enter"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			footer := NewFooter()
			footer.SetWidth(200)
			footer.SetContext(tt.signedIn, tt.hasChat, tt.sidebar, tt.kitty)
			view := footer.View()
			for _, s := range tt.want {
				if !strings.Contains(view, s) {
					t.Errorf("view should contain %q", s)
				}
			}
			for _, s := range tt.wantNot {
				if strings.Contains(view, s) {
					t.Errorf("view should not contain %q", s)
				}
			}
		})
	}
}

func TestFooter_FlashTakesPriority(t *testing.T) {
	footer := NewFooter()
	footer.SetWidth(120)
	footer.SetContext(true, true, true, false)
	footer.SetFlash("Could not send", FlashError)

	view := footer.View()
	if !strings.Contains(view, "Could not send") {
		t.Error("Flash message should be visible")
	}
	if strings.Contains(view, "new group") {
		t.Error("Bindings should not show when flash is active")
	}
}
