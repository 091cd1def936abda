package ui

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"

	"github.com/zhubert/parley/internal/avatar"
	"github.com/zhubert/parley/internal/keys"
)

// SidebarEntry is one chat row in the sidebar.
type SidebarEntry struct {
	ChatID  string
	Name    string
	Group   bool
	Preview string    // last message summary, already prefixed with the sender
	Time    time.Time // zero hides the time column
	Unread  bool      // lastMessage changed while the chat was not open
}

// Sidebar represents the left panel with the chat list
type Sidebar struct {
	entries      []SidebarEntry
	selectedIdx  int
	scrollOffset int
	width        int
	height       int
	focused      bool
	errText      string
	now          func() time.Time
}

// NewSidebar creates a new sidebar
func NewSidebar() *Sidebar {
	return &Sidebar{now: time.Now}
}

// SetSize sets the sidebar dimensions
func (s *Sidebar) SetSize(width, height int) {
	s.width = width
	s.height = height

	ctx := GetViewContext()
	ctx.Log("Sidebar.SetSize",
		"outerWidth", width,
		"outerHeight", height,
		"innerWidth", ctx.InnerWidth(width),
		"innerHeight", ctx.InnerHeight(height),
	)
}

// Width returns the sidebar width
func (s *Sidebar) Width() int {
	return s.width
}

// SetFocused sets the focus state
func (s *Sidebar) SetFocused(focused bool) {
	s.focused = focused
}

// IsFocused returns the focus state
func (s *Sidebar) IsFocused() bool {
	return s.focused
}

// SetEntries replaces the rows. The selection follows the selected chat ID
// when it is still present; otherwise the index is clamped.
func (s *Sidebar) SetEntries(entries []SidebarEntry) {
	selected := s.SelectedChatID()
	s.entries = entries
	if selected != "" {
		for i, e := range entries {
			if e.ChatID == selected {
				s.selectedIdx = i
				s.ensureVisible()
				return
			}
		}
	}
	if s.selectedIdx >= len(entries) {
		s.selectedIdx = len(entries) - 1
	}
	if s.selectedIdx < 0 {
		s.selectedIdx = 0
	}
	s.ensureVisible()
}

// Entries returns the current rows.
func (s *Sidebar) Entries() []SidebarEntry {
	return s.entries
}

// SetError shows text in place of the list; an empty string clears it.
func (s *Sidebar) SetError(text string) {
	s.errText = text
}

// SelectedChatID returns the chat under the cursor, or "".
func (s *Sidebar) SelectedChatID() string {
	if s.selectedIdx < 0 || s.selectedIdx >= len(s.entries) {
		return ""
	}
	return s.entries[s.selectedIdx].ChatID
}

// SelectChat moves the cursor to chatID if it is listed.
func (s *Sidebar) SelectChat(chatID string) bool {
	for i, e := range s.entries {
		if e.ChatID == chatID {
			s.selectedIdx = i
			s.ensureVisible()
			return true
		}
	}
	return false
}

// Update handles navigation keys while focused.
func (s *Sidebar) Update(msg tea.Msg) (*Sidebar, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyPressMsg)
	if !ok || !s.focused {
		return s, nil
	}

	switch keyMsg.String() {
	case keys.Up, "k":
		if s.selectedIdx > 0 {
			s.selectedIdx--
		}
	case keys.Down, "j":
		if s.selectedIdx < len(s.entries)-1 {
			s.selectedIdx++
		}
	case keys.Home:
		s.selectedIdx = 0
	case keys.End:
		if len(s.entries) > 0 {
			s.selectedIdx = len(s.entries) - 1
		}
	default:
		return s, nil
	}
	s.ensureVisible()
	return s, nil
}

// visibleRows is how many entries fit in the panel.
func (s *Sidebar) visibleRows() int {
	rows := GetViewContext().InnerHeight(s.height) / SidebarRowHeight
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (s *Sidebar) ensureVisible() {
	rows := s.visibleRows()
	if s.selectedIdx < s.scrollOffset {
		s.scrollOffset = s.selectedIdx
	}
	if s.selectedIdx >= s.scrollOffset+rows {
		s.scrollOffset = s.selectedIdx - rows + 1
	}
	if s.scrollOffset < 0 {
		s.scrollOffset = 0
	}
}

// View renders the sidebar
func (s *Sidebar) View() string {
	ctx := GetViewContext()

	style := PanelStyle
	if s.focused {
		style = PanelFocusedStyle
	}

	var content string
	switch {
	case s.errText != "":
		content = StatusErrorStyle.Render(s.errText)
	case len(s.entries) == 0:
		content = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true).
			Render("No chats yet.\nPress n to find someone by email.")
	default:
		innerWidth := ctx.InnerWidth(s.width)
		end := min(s.scrollOffset+s.visibleRows(), len(s.entries))
		var lines []string
		for i := s.scrollOffset; i < end; i++ {
			lines = append(lines, s.renderEntry(s.entries[i], i == s.selectedIdx, innerWidth))
		}
		content = strings.Join(lines, "\n")
	}

	return style.Width(s.width).Height(s.height).Render(content)
}

// renderEntry renders the two-line row: badge, name and time, then the
// preview indented under the name.
func (s *Sidebar) renderEntry(e SidebarEntry, selected bool, innerWidth int) string {
	itemStyle := SidebarItemStyle
	if selected {
		itemStyle = SidebarSelectedStyle
	}
	textWidth := innerWidth - itemStyle.GetHorizontalPadding()

	badgeStyle := AvatarBadgeStyle
	if e.Group {
		badgeStyle = AvatarGroupBadgeStyle
	}
	badge := badgeStyle.Render(avatar.Initials(e.Name))
	gutter := lipgloss.Width(badge) + 1

	timeLabel := formatChatTime(e.Time, s.now())
	nameWidth := textWidth - gutter - runewidth.StringWidth(timeLabel) - 1
	if nameWidth < 1 {
		nameWidth = 1
	}

	name := e.Name
	if e.Unread {
		name = "● " + name
	}
	name = runewidth.FillRight(ansi.Truncate(name, nameWidth, "…"), nameWidth)
	if e.Unread {
		name = SidebarUnreadStyle.Render(name)
	}

	first := badge + " " + name + " " + SidebarTimeStyle.Render(timeLabel)

	previewWidth := max(textWidth-gutter, 1)
	preview := ansi.Truncate(strings.Join(strings.Fields(e.Preview), " "), previewWidth, "…")
	second := strings.Repeat(" ", gutter) + SidebarPreviewStyle.Render(preview)

	return itemStyle.Width(innerWidth).Render(first + "\n" + second)
}

// formatChatTime labels a chat's last activity: a clock time today, a day
// this year, a full date otherwise.
func formatChatTime(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.In(now.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := now.Date()
	switch {
	case y1 == y2 && m1 == m2 && d1 == d2:
		return t.Format("15:04")
	case y1 == y2:
		return t.Format("Jan 2")
	default:
		return t.Format("2006-01-02")
	}
}
