package ui

// Layout constants for panel sizing
const (
	// HeaderHeight is the height of the header in lines
	HeaderHeight = 1

	// FooterHeight is the height of the footer in lines
	FooterHeight = 1

	// BorderSize is the total border width (1 on each side)
	BorderSize = 2

	// SidebarWidthRatio is the denominator for sidebar width (1/3 of total width)
	SidebarWidthRatio = 3

	// TextareaHeight is the number of lines for the chat input textarea
	TextareaHeight = 3

	// TextareaBorderHeight is the border size around the textarea
	TextareaBorderHeight = 2

	// InputPaddingWidth is the horizontal padding inside the input area
	InputPaddingWidth = 2

	// InputTotalHeight is the total height of the input area (textarea + borders)
	InputTotalHeight = TextareaHeight + TextareaBorderHeight

	// DefaultWrapWidth is used when the viewport width is still unknown
	DefaultWrapWidth = 80

	// MinTerminalWidth and MinTerminalHeight keep layout math positive
	MinTerminalWidth  = 40
	MinTerminalHeight = 10

	// SidebarRowHeight is the number of lines one chat occupies in the sidebar
	SidebarRowHeight = 2

	// BubbleMaxRatio is the share of the chat width a message may take
	BubbleMaxRatio = 0.75
)

// Modal dimensions
const (
	// ModalWidth is the default width of modals
	ModalWidth = 60

	// ModalInputCharLimit is the character limit for modal text inputs
	ModalInputCharLimit = 256

	// ModalInputWidth is the width of modal text inputs
	ModalInputWidth = 50

	// HelpModalMaxVisible is the list height of the help modal
	HelpModalMaxVisible = 16
)
