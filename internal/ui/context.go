package ui

import (
	"log/slog"
	"sync"

	"github.com/zhubert/parley/internal/logger"
)

// ViewContext holds centralized layout calculations and provides debug logging.
// All size calculations should go through this to avoid duplication.
type ViewContext struct {
	// Terminal dimensions
	TerminalWidth  int
	TerminalHeight int

	// Calculated dimensions
	HeaderHeight  int
	FooterHeight  int
	ContentHeight int
	SidebarWidth  int
	ChatWidth     int

	mu  sync.Mutex
	log *slog.Logger
}

var ctx *ViewContext
var ctxOnce sync.Once

// GetViewContext returns the singleton ViewContext instance
func GetViewContext() *ViewContext {
	ctxOnce.Do(func() {
		ctx = &ViewContext{
			HeaderHeight: HeaderHeight,
			FooterHeight: FooterHeight,
			log:          logger.ComponentLogger("ui"),
		}
		ctx.log.Debug("ViewContext initialized")
	})
	return ctx
}

// Log writes a structured debug record.
func (v *ViewContext) Log(msg string, args ...any) {
	v.log.Debug(msg, args...)
}

// UpdateTerminalSize recalculates all dimensions when the terminal is
// resized. Called from the main event loop.
func (v *ViewContext) UpdateTerminalSize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	if height < MinTerminalHeight {
		height = MinTerminalHeight
	}

	v.TerminalWidth = width
	v.TerminalHeight = height
	v.HeaderHeight = HeaderHeight
	v.FooterHeight = FooterHeight

	v.ContentHeight = height - v.HeaderHeight - v.FooterHeight

	v.SidebarWidth = width / SidebarWidthRatio
	v.ChatWidth = width - v.SidebarWidth

	v.log.Debug("Terminal size updated",
		"width", width,
		"height", height,
		"contentHeight", v.ContentHeight,
		"sidebarWidth", v.SidebarWidth,
		"chatWidth", v.ChatWidth,
	)
}

// InnerWidth returns the usable width inside a panel with borders
func (v *ViewContext) InnerWidth(panelWidth int) int {
	return panelWidth - BorderSize
}

// InnerHeight returns the usable height inside a panel with borders
func (v *ViewContext) InnerHeight(panelHeight int) int {
	return panelHeight - BorderSize
}
