package ui

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
)

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key  string
	Desc string
}

// FlashType selects the icon and color of a flash message.
type FlashType int

const (
	FlashInfo FlashType = iota
	FlashSuccess
	FlashWarning
	FlashError
)

// DefaultFlashDuration is how long a flash message stays up.
const DefaultFlashDuration = 4 * time.Second

// FlashMessage is a transient status line shown in place of the bindings.
type FlashMessage struct {
	Text      string
	Type      FlashType
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired reports whether the message has been shown long enough.
func (f *FlashMessage) IsExpired() bool {
	return time.Since(f.CreatedAt) >= f.Duration
}

// FlashTickMsg drives flash expiry.
type FlashTickMsg time.Time

// FlashTick schedules the next expiry check.
func FlashTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return FlashTickMsg(t)
	})
}

// Footer represents the bottom footer bar with keybindings
type Footer struct {
	width          int
	bindings       []KeyBinding
	signedIn       bool
	hasChat        bool // A chat is open in the chat panel
	sidebarFocused bool
	kittyKeyboard  bool // Terminal reports shift+enter distinctly
	flashMessage   *FlashMessage
}

// NewFooter creates a new footer
func NewFooter() *Footer {
	return &Footer{
		bindings: []KeyBinding{
			{Key: "enter", Desc: "open"},
			{Key: "tab", Desc: "switch pane"},
			{Key: "n", Desc: "new chat"},
			{Key: "g", Desc: "new group"},
			{Key: "s", Desc: "settings"},
			{Key: "t", Desc: "theme"},
			{Key: "?", Desc: "help"},
			{Key: "q", Desc: "quit"},
		},
		sidebarFocused: true,
	}
}

// SetContext updates the footer's context for conditional bindings
func (f *Footer) SetContext(signedIn, hasChat, sidebarFocused, kittyKeyboard bool) {
	f.signedIn = signedIn
	f.hasChat = hasChat
	f.sidebarFocused = sidebarFocused
	f.kittyKeyboard = kittyKeyboard
}

// SetWidth sets the footer width
func (f *Footer) SetWidth(width int) {
	f.width = width
}

// SetBindings allows custom keybindings
func (f *Footer) SetBindings(bindings []KeyBinding) {
	f.bindings = bindings
}

// SetFlash shows a message for DefaultFlashDuration.
func (f *Footer) SetFlash(text string, flashType FlashType) {
	f.SetFlashWithDuration(text, flashType, DefaultFlashDuration)
}

// SetFlashWithDuration shows a message for d.
func (f *Footer) SetFlashWithDuration(text string, flashType FlashType, d time.Duration) {
	f.flashMessage = &FlashMessage{
		Text:      text,
		Type:      flashType,
		CreatedAt: time.Now(),
		Duration:  d,
	}
}

// ClearFlash removes the flash message.
func (f *Footer) ClearFlash() {
	f.flashMessage = nil
}

// HasFlash reports whether a flash message is showing.
func (f *Footer) HasFlash() bool {
	return f.flashMessage != nil
}

// ClearIfExpired drops an expired message and reports whether it did.
func (f *Footer) ClearIfExpired() bool {
	if f.flashMessage != nil && f.flashMessage.IsExpired() {
		f.flashMessage = nil
		return true
	}
	return false
}

func (f *Footer) renderFlash() string {
	var icon string
	color := ColorInfo
	switch f.flashMessage.Type {
	case FlashError:
		icon, color = "✕", ColorError
	case FlashWarning:
		icon, color = "⚠", ColorWarning
	case FlashSuccess:
		icon, color = "✓", ColorSuccess
	default:
		icon = "ℹ"
	}
	style := lipgloss.NewStyle().Foreground(color)
	return FooterStyle.Width(f.width).Render(style.Render(icon + " " + f.flashMessage.Text))
}

// currentBindings picks the bindings for the focus and session state.
func (f *Footer) currentBindings() []KeyBinding {
	if !f.signedIn {
		return []KeyBinding{
			{Key: "enter", Desc: "submit"},
			{Key: "tab", Desc: "next field"},
			{Key: "ctrl+r", Desc: "sign in/up"},
			{Key: "ctrl+c", Desc: "quit"},
		}
	}

	if !f.sidebarFocused && f.hasChat {
		newline := "opt+enter"
		if f.kittyKeyboard {
			newline = "shift+enter"
		}
		return []KeyBinding{
			{Key: "enter", Desc: "send"},
			{Key: newline, Desc: "newline"},
			{Key: "ctrl+y", Desc: "copy last"},
			{Key: "tab", Desc: "switch pane"},
			{Key: "pgup/dn", Desc: "scroll"},
			{Key: "esc", Desc: "close chat"},
		}
	}

	var out []KeyBinding
	for _, b := range f.bindings {
		if b.Key == "tab" && !f.hasChat {
			continue
		}
		out = append(out, b)
	}
	return out
}

// View renders the footer
func (f *Footer) View() string {
	if f.flashMessage != nil {
		return f.renderFlash()
	}

	var parts []string
	for _, b := range f.currentBindings() {
		key := FooterKeyStyle.Render(b.Key)
		desc := FooterDescStyle.Render(": " + b.Desc)
		parts = append(parts, key+desc)
	}

	content := strings.Join(parts, "  "+lipgloss.NewStyle().Foreground(ColorBorder).Render("|")+"  ")

	return FooterStyle.Width(f.width).Render(content)
}
