// Package ui provides the user interface components for the parley TUI.
//
// # Layout System
//
//	┌─────────────────────────────────────────────────────┐
//	│ Header (1 line)                                     │
//	├─────────────────┬───────────────────────────────────┤
//	│                 │                                   │
//	│   Sidebar       │         Chat Panel                │
//	│   (1/3 width)   │         (2/3 width)               │
//	│                 │                                   │
//	├─────────────────┴───────────────────────────────────┤
//	│ Footer (1 line)                                     │
//	└─────────────────────────────────────────────────────┘
//
// # Components
//
// ViewContext: Singleton that manages centralized layout calculations.
//
// Header: Application title on a gradient, plus the open chat's name and,
// for groups, the member count.
//
// Footer: Context-aware keyboard shortcuts, replaced by a flash message
// while one is showing.
//
// Sidebar: The chat list, newest activity first, with an initials badge,
// the resolved name and a one-line preview of the last message.
//
// Chat: The message viewport and the composer textarea.
//
// Modal: Wraps a modals.ModalState (sign in, find user, new group,
// settings, help) and centers it over the screen.
//
// # Themes
//
// Two palettes exist, light and dark, keyed by backend.Theme. SetTheme
// regenerates every style variable, including the ones injected into the
// modals package.
package ui
