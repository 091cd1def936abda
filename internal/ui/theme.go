package ui

import (
	"charm.land/lipgloss/v2"

	"github.com/zhubert/parley/internal/backend"
)

// Theme defines a complete color palette for the application.
type Theme struct {
	// Name is the display name of the theme
	Name string

	// Primary is the main accent color (focus, highlights, header)
	Primary string
	// Secondary is used for keys in the footer and section titles
	Secondary string

	Bg         string // Main background
	BgSelected string // Selected item background (defaults to Primary if empty)

	Text        string // Primary text
	TextMuted   string // Secondary/muted text
	TextInverse string // Text on colored backgrounds

	Own     string // Own message labels and bubbles
	Other   string // Other participants' labels
	System  string // System messages ("Group created")
	Warning string
	Error   string
	Info    string
	Success string

	Border      string // Default borders
	BorderFocus string // Focused element borders (defaults to Primary if empty)

	CodeBg     string // Inline code background
	InlineCode string // Inline code foreground
	Link       string

	// CodeStyle is the chroma style used for fenced code blocks
	CodeStyle string
}

// GetBgSelected returns the selected background color, defaulting to Primary
func (t Theme) GetBgSelected() string {
	if t.BgSelected != "" {
		return t.BgSelected
	}
	return t.Primary
}

// GetBorderFocus returns the focused border color, defaulting to Primary
func (t Theme) GetBorderFocus() string {
	if t.BorderFocus != "" {
		return t.BorderFocus
	}
	return t.Primary
}

// DefaultTheme is used before an identity supplies its own.
const DefaultTheme = backend.ThemeLight

// BuiltinThemes maps the persisted theme value to its palette.
var BuiltinThemes = map[backend.Theme]Theme{
	backend.ThemeLight: {
		Name:        "Light",
		Primary:     "#6366F1",
		Secondary:   "#0891B2",
		Bg:          "#FFFFFF",
		BgSelected:  "#E0E7FF",
		Text:        "#1F2937",
		TextMuted:   "#6B7280",
		TextInverse: "#FFFFFF",
		Own:         "#7C3AED",
		Other:       "#0891B2",
		System:      "#9CA3AF",
		Warning:     "#D97706",
		Error:       "#DC2626",
		Info:        "#0891B2",
		Success:     "#16A34A",
		Border:      "#D1D5DB",
		BorderFocus: "#6366F1",
		CodeBg:      "#F3F4F6",
		InlineCode:  "#059669",
		Link:        "#0891B2",
		CodeStyle:   "friendly",
	},
	backend.ThemeDark: {
		Name:        "Dark",
		Primary:     "#7C3AED",
		Secondary:   "#06B6D4",
		Bg:          "#1F2937",
		Text:        "#F9FAFB",
		TextMuted:   "#9CA3AF",
		TextInverse: "#1F2937",
		Own:         "#A78BFA",
		Other:       "#22D3EE",
		System:      "#6B7280",
		Warning:     "#F59E0B",
		Error:       "#EF4444",
		Info:        "#06B6D4",
		Success:     "#10B981",
		Border:      "#374151",
		CodeBg:      "#1E1E2E",
		InlineCode:  "#67E8F9",
		Link:        "#67E8F9",
		CodeStyle:   "monokai",
	},
}

// GetTheme returns a palette, defaulting to light for unknown values.
func GetTheme(name backend.Theme) Theme {
	if theme, ok := BuiltinThemes[name]; ok {
		return theme
	}
	return BuiltinThemes[DefaultTheme]
}

var (
	currentTheme     = BuiltinThemes[DefaultTheme]
	currentThemeName = DefaultTheme
)

// CurrentTheme returns the currently active palette
func CurrentTheme() Theme {
	return currentTheme
}

// CurrentThemeName returns the key of the active palette.
func CurrentThemeName() backend.Theme {
	return currentThemeName
}

// SetTheme sets the active theme and regenerates all styles
func SetTheme(name backend.Theme) {
	if _, ok := BuiltinThemes[name]; !ok {
		name = DefaultTheme
	}
	currentThemeName = name
	currentTheme = BuiltinThemes[name]
	regenerateStyles()
	RefreshModalStyles()
}

func init() {
	SetTheme(DefaultTheme)
}

// regenerateStyles updates all style variables based on the current theme
func regenerateStyles() {
	t := currentTheme

	ColorPrimary = lipgloss.Color(t.Primary)
	ColorSecondary = lipgloss.Color(t.Secondary)
	ColorBorder = lipgloss.Color(t.Border)
	ColorBorderFocus = lipgloss.Color(t.GetBorderFocus())
	ColorBg = lipgloss.Color(t.Bg)
	ColorText = lipgloss.Color(t.Text)
	ColorTextMuted = lipgloss.Color(t.TextMuted)
	ColorTextInverse = lipgloss.Color(t.TextInverse)
	ColorOwn = lipgloss.Color(t.Own)
	ColorOther = lipgloss.Color(t.Other)
	ColorSystem = lipgloss.Color(t.System)
	ColorWarning = lipgloss.Color(t.Warning)
	ColorInfo = lipgloss.Color(t.Info)
	ColorError = lipgloss.Color(t.Error)
	ColorSuccess = lipgloss.Color(t.Success)

	HeaderStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorText).
		Background(ColorPrimary).
		Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
		Foreground(ColorTextMuted).
		Padding(0, 1)

	FooterKeyStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorSecondary)

	FooterDescStyle = lipgloss.NewStyle().
		Foreground(ColorTextMuted)

	PanelStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	PanelFocusedStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorderFocus)

	SidebarItemStyle = lipgloss.NewStyle().
		Padding(0, 1)

	SidebarSelectedStyle = lipgloss.NewStyle().
		Background(lipgloss.Color(t.GetBgSelected())).
		Foreground(ColorText).
		Bold(true).
		Padding(0, 1)

	SidebarPreviewStyle = lipgloss.NewStyle().
		Foreground(ColorTextMuted)

	SidebarTimeStyle = lipgloss.NewStyle().
		Foreground(ColorTextMuted)

	SidebarUnreadStyle = lipgloss.NewStyle().
		Foreground(ColorPrimary).
		Bold(true)

	AvatarBadgeStyle = lipgloss.NewStyle().
		Foreground(ColorTextInverse).
		Background(ColorSecondary).
		Bold(true).
		Width(4).
		Align(lipgloss.Center)

	AvatarGroupBadgeStyle = AvatarBadgeStyle.
		Background(ColorPrimary)

	ChatOwnNameStyle = lipgloss.NewStyle().
		Foreground(ColorOwn).
		Bold(true)

	ChatOtherNameStyle = lipgloss.NewStyle().
		Foreground(ColorOther).
		Bold(true)

	ChatSystemStyle = lipgloss.NewStyle().
		Foreground(ColorSystem).
		Italic(true)

	ChatMessageStyle = lipgloss.NewStyle().
		Foreground(ColorText)

	ChatOwnBubbleStyle = lipgloss.NewStyle().
		Foreground(ColorText).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorOwn).
		Padding(0, 1)

	ChatOtherBubbleStyle = lipgloss.NewStyle().
		Foreground(ColorText).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	ChatTimeStyle = lipgloss.NewStyle().
		Foreground(ColorTextMuted)

	ChatInputStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Padding(0, 1)

	ChatInputFocusedStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorderFocus).
		Padding(0, 1)

	ModalStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorPrimary).
		Padding(1, 2).
		Width(ModalWidth)

	ModalTitleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorPrimary).
		MarginBottom(1)

	ModalHelpStyle = lipgloss.NewStyle().
		Foreground(ColorTextMuted).
		Italic(true).
		MarginTop(1)

	StatusLoadingStyle = lipgloss.NewStyle().
		Foreground(ColorSecondary).
		Italic(true)

	StatusErrorStyle = lipgloss.NewStyle().
		Foreground(ColorError).
		Bold(true)

	MarkdownBoldStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorText)

	MarkdownInlineCodeStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.InlineCode)).
		Background(lipgloss.Color(t.CodeBg))

	MarkdownLinkStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color(t.Link)).
		Underline(true)
}
