package ui

import (
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
)

var sidebarNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

func newTestSidebar(entries ...SidebarEntry) *Sidebar {
	s := NewSidebar()
	s.now = func() time.Time { return sidebarNow }
	s.SetSize(40, 20)
	s.SetFocused(true)
	s.SetEntries(entries)
	return s
}

func entries(ids ...string) []SidebarEntry {
	out := make([]SidebarEntry, len(ids))
	for i, id := range ids {
		out[i] = SidebarEntry{ChatID: id, Name: "Chat " + id}
	}
	return out
}

func press(s *Sidebar, key string) {
	var msg tea.KeyPressMsg
	switch key {
	case "up":
		msg = tea.KeyPressMsg{Code: tea.KeyUp}
	case "down":
		msg = tea.KeyPressMsg{Code: tea.KeyDown}
	default:
		msg = tea.KeyPressMsg{Code: rune(key[0]), Text: key}
	}
	s.Update(msg)
}

func TestSidebar_Navigation(t *testing.T) {
	s := newTestSidebar(entries("a", "b", "c")...)

	if got := s.SelectedChatID(); got != "a" {
		t.Fatalf("initial selection = %q", got)
	}
	press(s, "down")
	press(s, "j")
	if got := s.SelectedChatID(); got != "c" {
		t.Errorf("after two downs = %q", got)
	}
	press(s, "down")
	if got := s.SelectedChatID(); got != "c" {
		t.Errorf("down past the end moved to %q", got)
	}
	press(s, "up")
	if got := s.SelectedChatID(); got != "b" {
		t.Errorf("after up = %q", got)
	}
	press(s, "k")
	press(s, "k")
	if got := s.SelectedChatID(); got != "a" {
		t.Errorf("up past the start moved to %q", got)
	}
}

func TestSidebar_IgnoresKeysWhenBlurred(t *testing.T) {
	s := newTestSidebar(entries("a", "b")...)
	s.SetFocused(false)
	press(s, "down")
	if got := s.SelectedChatID(); got != "a" {
		t.Errorf("blurred sidebar moved to %q", got)
	}
}

func TestSidebar_SelectionFollowsChatAcrossReorder(t *testing.T) {
	s := newTestSidebar(entries("a", "b", "c")...)
	s.SelectChat("b")

	// b received a message and moved to the top
	s.SetEntries(entries("b", "a", "c"))
	if got := s.SelectedChatID(); got != "b" {
		t.Errorf("selection = %q, want b", got)
	}

	// b disappeared; index is clamped
	s.SelectChat("c")
	s.SetEntries(entries("a"))
	if got := s.SelectedChatID(); got != "a" {
		t.Errorf("selection = %q, want a", got)
	}

	s.SetEntries(nil)
	if got := s.SelectedChatID(); got != "" {
		t.Errorf("empty list selection = %q", got)
	}
}

func TestSidebar_SelectChatUnknown(t *testing.T) {
	s := newTestSidebar(entries("a")...)
	if s.SelectChat("zzz") {
		t.Error("SelectChat should report false for unknown chats")
	}
}

func TestSidebar_ViewEmpty(t *testing.T) {
	s := newTestSidebar()
	if view := ansi.Strip(s.View()); !strings.Contains(view, "No chats yet") {
		t.Errorf("view = %q", view)
	}
}

func TestSidebar_ViewError(t *testing.T) {
	s := newTestSidebar(entries("a")...)
	s.SetError("Could not load chats")
	view := ansi.Strip(s.View())
	if !strings.Contains(view, "Could not load chats") {
		t.Errorf("view = %q", view)
	}
	if strings.Contains(view, "Chat a") {
		t.Error("error should replace the list")
	}
}

func TestSidebar_ViewEntry(t *testing.T) {
	s := newTestSidebar(
		SidebarEntry{ChatID: "1", Name: "Bob Stone", Preview: "Bob: see\nyou there", Time: sidebarNow.Add(-time.Hour), Unread: true},
		SidebarEntry{ChatID: "2", Name: "Weekend plans", Group: true, Preview: "Group created", Time: sidebarNow.AddDate(0, 0, -3)},
	)

	view := ansi.Strip(s.View())
	for _, want := range []string{"BS", "● Bob Stone", "14:00", "Bob: see you there", "WP", "Weekend plans", "Mar 11", "Group created"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestSidebar_TruncatesWideNames(t *testing.T) {
	s := newTestSidebar(SidebarEntry{ChatID: "1", Name: strings.Repeat("名前", 20)})
	for _, line := range strings.Split(ansi.Strip(s.View()), "\n") {
		if w := ansi.StringWidth(line); w > 40 {
			t.Errorf("line width %d exceeds panel: %q", w, line)
		}
	}
}

func TestSidebar_ScrollKeepsSelectionVisible(t *testing.T) {
	ids := make([]string, 30)
	for i := range ids {
		ids[i] = string(rune('A' + i))
	}
	s := newTestSidebar(entries(ids...)...)
	for range 20 {
		press(s, "down")
	}
	if s.scrollOffset == 0 {
		t.Fatal("expected the list to scroll")
	}
	if !strings.Contains(ansi.Strip(s.View()), "Chat "+ids[20]) {
		t.Error("selected entry should be rendered")
	}
}

func TestFormatChatTime(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want string
	}{
		{"zero", time.Time{}, ""},
		{"today", sidebarNow.Add(-2 * time.Hour), "13:00"},
		{"this year", time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC), "Jan 5"},
		{"last year", time.Date(2025, 12, 31, 9, 0, 0, 0, time.UTC), "2025-12-31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatChatTime(tt.at, sidebarNow); got != tt.want {
				t.Errorf("formatChatTime = %q, want %q", got, tt.want)
			}
		})
	}
}
