package ui

import (
	"strings"

	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/zhubert/parley/internal/messenger"
	"github.com/zhubert/parley/internal/ui/modals"
)

// Chat represents the right panel: the open chat's messages and the composer
type Chat struct {
	viewport viewport.Model
	input    textarea.Model
	width    int
	height   int
	focused  bool

	hasChat bool
	rows    []messenger.Row
	sending bool   // a send is in flight
	errText string // stream failure, shown in place of messages
}

// NewChat creates a new chat panel
func NewChat() *Chat {
	ti := textarea.New()
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 0
	ti.SetHeight(TextareaHeight)
	ti.ShowLineNumbers = false
	ti.Prompt = ""
	modals.ApplyTextareaStyles(&ti)

	vp := viewport.New()
	vp.MouseWheelEnabled = true
	vp.MouseWheelDelta = 3

	c := &Chat{
		viewport: vp,
		input:    ti,
	}
	c.updateContent()
	return c
}

// SetSize sets the chat panel dimensions
func (c *Chat) SetSize(width, height int) {
	c.width = width
	c.height = height

	ctx := GetViewContext()

	chatPanelHeight := height - InputTotalHeight
	innerWidth := ctx.InnerWidth(width)
	viewportHeight := max(ctx.InnerHeight(chatPanelHeight), 1)

	c.viewport.SetWidth(innerWidth)
	c.viewport.SetHeight(viewportHeight)

	c.input.SetWidth(ctx.InnerWidth(width) - InputPaddingWidth)

	ctx.Log("Chat.SetSize", "width", width, "height", height, "viewportHeight", viewportHeight)
	c.updateContent()
}

// SetFocused sets the focus state
func (c *Chat) SetFocused(focused bool) {
	c.focused = focused
	if focused {
		c.input.Focus()
	} else {
		c.input.Blur()
	}
}

// IsFocused returns the focus state
func (c *Chat) IsFocused() bool {
	return c.focused
}

// OpenChat shows an empty message list for a newly activated chat.
func (c *Chat) OpenChat() {
	c.hasChat = true
	c.rows = nil
	c.errText = ""
	c.sending = false
	c.updateContent()
}

// CloseChat returns to the placeholder. The draft is kept by the caller.
func (c *Chat) CloseChat() {
	c.hasChat = false
	c.rows = nil
	c.errText = ""
	c.sending = false
	c.updateContent()
}

// RefreshStyles re-applies the current theme to the composer and messages.
func (c *Chat) RefreshStyles() {
	modals.ApplyTextareaStyles(&c.input)
	c.updateContent()
}

// HasChat reports whether a chat is open.
func (c *Chat) HasChat() bool {
	return c.hasChat
}

// SetRows replaces the rendered messages.
func (c *Chat) SetRows(rows []messenger.Row) {
	c.rows = rows
	c.updateContent()
}

// SetError shows a load failure instead of the messages; "" clears it.
func (c *Chat) SetError(text string) {
	c.errText = text
	c.updateContent()
}

// SetSending toggles the in-flight indicator.
func (c *Chat) SetSending(sending bool) {
	c.sending = sending
	c.updateContent()
}

// IsSending reports whether a send is in flight.
func (c *Chat) IsSending() bool {
	return c.sending
}

// GetInput returns the composer text
func (c *Chat) GetInput() string {
	return c.input.Value()
}

// SetInput replaces the composer text
func (c *Chat) SetInput(value string) {
	c.input.SetValue(value)
}

// ClearInput empties the composer
func (c *Chat) ClearInput() {
	c.input.Reset()
}

// InsertNewline adds a line break at the cursor.
func (c *Chat) InsertNewline() {
	c.input.InsertString("\n")
}

func (c *Chat) updateContent() {
	if !c.hasChat {
		c.viewport.SetContent(renderNoChatMessage())
		return
	}

	wrapWidth := c.viewport.Width()
	if wrapWidth <= 0 {
		wrapWidth = DefaultWrapWidth
	}

	var sb strings.Builder
	switch {
	case c.errText != "":
		sb.WriteString(StatusErrorStyle.Render(c.errText))
	case len(c.rows) == 0:
		sb.WriteString(lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Italic(true).
			Render("No messages yet. Say hello!"))
	default:
		for i, row := range c.rows {
			if i > 0 {
				sb.WriteString("\n")
				if row.ShowAvatar {
					sb.WriteString("\n")
				}
			}
			sb.WriteString(renderRow(row, wrapWidth))
		}
	}

	if c.sending {
		sb.WriteString("\n\n")
		sb.WriteString(lipgloss.PlaceHorizontal(wrapWidth, lipgloss.Right, StatusLoadingStyle.Render("Sending...")))
	}

	c.viewport.SetContent(sb.String())
	c.viewport.GotoBottom()
}

// Update handles messages
func (c *Chat) Update(msg tea.Msg) (*Chat, tea.Cmd) {
	var cmds []tea.Cmd

	if c.focused && c.hasChat {
		if keyMsg, isKey := msg.(tea.KeyPressMsg); isKey {
			switch keyMsg.String() {
			case "pgup", "pgdown", "ctrl+up", "ctrl+down", "home", "end",
				"page up", "page down", "ctrl+u", "ctrl+d":
				var cmd tea.Cmd
				c.viewport, cmd = c.viewport.Update(msg)
				return c, cmd
			}
		}

		var cmd tea.Cmd
		c.input, cmd = c.input.Update(msg)
		cmds = append(cmds, cmd)

		// Typing must not scroll the viewport.
		if _, isKey := msg.(tea.KeyPressMsg); isKey {
			return c, tea.Batch(cmds...)
		}
	}

	var cmd tea.Cmd
	c.viewport, cmd = c.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return c, tea.Batch(cmds...)
}

// View renders the chat panel
func (c *Chat) View() string {
	panelStyle := PanelStyle
	if c.focused {
		panelStyle = PanelFocusedStyle
	}

	if !c.hasChat {
		return panelStyle.Width(c.width).Height(c.height).Render(renderNoChatMessage())
	}

	chatPanelHeight := c.height - InputTotalHeight
	chatPanel := panelStyle.Width(c.width).Height(chatPanelHeight).Render(c.viewport.View())

	inputStyle := ChatInputStyle
	if c.focused {
		inputStyle = ChatInputFocusedStyle
	}
	inputArea := inputStyle.Width(c.width).Render(c.input.View())

	return lipgloss.JoinVertical(lipgloss.Left, chatPanel, inputArea)
}
