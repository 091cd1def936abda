package ui

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/x/ansi"

	"github.com/zhubert/parley/internal/backend"
	"github.com/zhubert/parley/internal/messenger"
)

// PendingTime is shown instead of a clock time until the server stamps a
// message.
const PendingTime = "..."

var (
	boldPattern       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	inlineCodePattern = regexp.MustCompile("`([^`]+)`")
	linkPattern       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
)

// highlightCode applies syntax highlighting to code using chroma
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(CurrentTheme().CodeStyle)
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}

	return strings.TrimRight(buf.String(), "\n")
}

// renderInline applies bold, inline code and link formatting to a line.
func renderInline(line string) string {
	// Code spans are swapped out first so nothing inside them is formatted.
	var spans []string
	line = inlineCodePattern.ReplaceAllStringFunc(line, func(match string) string {
		code := inlineCodePattern.FindStringSubmatch(match)[1]
		spans = append(spans, MarkdownInlineCodeStyle.Render(code))
		return fmt.Sprintf("\x00%d\x00", len(spans)-1)
	})

	line = boldPattern.ReplaceAllStringFunc(line, func(match string) string {
		return MarkdownBoldStyle.Render(boldPattern.FindStringSubmatch(match)[1])
	})
	line = linkPattern.ReplaceAllStringFunc(line, func(match string) string {
		parts := linkPattern.FindStringSubmatch(match)
		return MarkdownLinkStyle.Render(parts[1]) + " (" + parts[2] + ")"
	})

	for i, span := range spans {
		line = strings.Replace(line, fmt.Sprintf("\x00%d\x00", i), span, 1)
	}
	return line
}

// wrapText wraps text to width, handling ANSI escape codes and breaking
// words longer than a line.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	return ansi.Wrap(text, width, "")
}

// renderMessageText renders a message body: fenced code blocks are
// highlighted, everything else gets inline formatting and wrapping.
func renderMessageText(content string, width int) string {
	if width <= 0 {
		width = DefaultWrapWidth
	}

	var out []string
	var code strings.Builder
	inCode := false
	lang := ""

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if !inCode {
				inCode = true
				lang = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
				code.Reset()
				continue
			}
			inCode = false
			out = append(out, wrapText(highlightCode(code.String(), lang), width))
			continue
		}
		if inCode {
			if code.Len() > 0 {
				code.WriteString("\n")
			}
			code.WriteString(line)
			continue
		}
		out = append(out, wrapText(renderInline(line), width))
	}

	// An unterminated fence still renders what it has.
	if inCode {
		out = append(out, wrapText(highlightCode(code.String(), lang), width))
	}

	return strings.Join(out, "\n")
}

// messageTime is HH:MM in local time, or PendingTime before the server
// stamps the message.
func messageTime(m backend.Message) string {
	if m.SentAt.IsZero() {
		return PendingTime
	}
	return m.SentAt.Local().Format("15:04")
}

// senderLabel names the author of a run.
func senderLabel(row messenger.Row) string {
	if row.Own {
		return "You"
	}
	if row.SenderName != "" {
		return row.SenderName
	}
	return messenger.UnknownUser
}

// renderRow renders one message inside a panel of the given width. Own
// messages are right-aligned; the sender label appears on the first message
// of a run.
func renderRow(row messenger.Row, width int) string {
	if row.SenderID == backend.SystemSender {
		line := ChatSystemStyle.Render("· " + row.Text + " ·")
		return lipgloss.PlaceHorizontal(width, lipgloss.Center, line)
	}

	bubbleStyle := ChatOtherBubbleStyle
	nameStyle := ChatOtherNameStyle
	align := lipgloss.Left
	if row.Own {
		bubbleStyle = ChatOwnBubbleStyle
		nameStyle = ChatOwnNameStyle
		align = lipgloss.Right
	}

	maxBubble := int(float64(width) * BubbleMaxRatio)
	frame := bubbleStyle.GetHorizontalFrameSize()
	textWidth := max(maxBubble-frame, 1)

	body := renderMessageText(strings.TrimRight(row.Text, "\n"), textWidth)
	stamp := ChatTimeStyle.Render(messageTime(row.Message))
	bodyWidth := max(lipgloss.Width(body), lipgloss.Width(stamp))
	body += "\n" + lipgloss.PlaceHorizontal(bodyWidth, lipgloss.Right, stamp)

	bubble := bubbleStyle.Render(body)

	var parts []string
	if row.ShowAvatar {
		parts = append(parts, lipgloss.PlaceHorizontal(width, align, nameStyle.Render(senderLabel(row))))
	}
	parts = append(parts, lipgloss.PlaceHorizontal(width, align, bubble))
	return strings.Join(parts, "\n")
}

// renderNoChatMessage renders the placeholder shown when no chat is open.
func renderNoChatMessage() string {
	msgStyle := lipgloss.NewStyle().Foreground(ColorTextMuted)
	keyStyle := lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	var sb strings.Builder
	sb.WriteString(msgStyle.Italic(true).Render("No chat selected"))
	sb.WriteString("\n\n")
	sb.WriteString(keyStyle.Render("enter") + msgStyle.Render("  open the selected chat\n"))
	sb.WriteString(keyStyle.Render("n") + msgStyle.Render("      find someone by email\n"))
	sb.WriteString(keyStyle.Render("g") + msgStyle.Render("      start a group"))
	return sb.String()
}
