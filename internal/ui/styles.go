package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Color palette. Values are assigned by regenerateStyles.
var (
	ColorPrimary     color.Color
	ColorSecondary   color.Color
	ColorBorder      color.Color
	ColorBorderFocus color.Color
	ColorBg          color.Color
	ColorText        color.Color
	ColorTextMuted   color.Color
	ColorTextInverse color.Color
	ColorOwn         color.Color
	ColorOther       color.Color
	ColorSystem      color.Color
	ColorWarning     color.Color
	ColorInfo        color.Color
	ColorError       color.Color
	ColorSuccess     color.Color
)

// Header and footer styles
var (
	HeaderStyle     lipgloss.Style
	FooterStyle     lipgloss.Style
	FooterKeyStyle  lipgloss.Style
	FooterDescStyle lipgloss.Style
)

// Panel styles
var (
	PanelStyle        lipgloss.Style
	PanelFocusedStyle lipgloss.Style
)

// Sidebar styles
var (
	SidebarItemStyle      lipgloss.Style
	SidebarSelectedStyle  lipgloss.Style
	SidebarPreviewStyle   lipgloss.Style
	SidebarTimeStyle      lipgloss.Style
	SidebarUnreadStyle    lipgloss.Style
	AvatarBadgeStyle      lipgloss.Style
	AvatarGroupBadgeStyle lipgloss.Style
)

// Chat styles
var (
	ChatOwnNameStyle      lipgloss.Style
	ChatOtherNameStyle    lipgloss.Style
	ChatSystemStyle       lipgloss.Style
	ChatMessageStyle      lipgloss.Style
	ChatOwnBubbleStyle    lipgloss.Style
	ChatOtherBubbleStyle  lipgloss.Style
	ChatTimeStyle         lipgloss.Style
	ChatInputStyle        lipgloss.Style
	ChatInputFocusedStyle lipgloss.Style
)

// Modal styles
var (
	ModalStyle      lipgloss.Style
	ModalTitleStyle lipgloss.Style
	ModalHelpStyle  lipgloss.Style
)

// Status styles
var (
	StatusLoadingStyle lipgloss.Style
	StatusErrorStyle   lipgloss.Style
)

// Inline markdown styles
var (
	MarkdownBoldStyle       lipgloss.Style
	MarkdownInlineCodeStyle lipgloss.Style
	MarkdownLinkStyle       lipgloss.Style
)
