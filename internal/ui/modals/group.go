package modals

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	huh "charm.land/huh/v2"
	"charm.land/lipgloss/v2"
)

// Description limit for groups.
const GroupDescriptionCharLimit = 500

// ImageChoice is an optional picture chosen in a modal: either a file path
// or image bytes pasted from the clipboard. Pasted bytes win.
type ImageChoice struct {
	Path   string
	Pasted []byte
}

// Empty reports whether no image was chosen.
func (c ImageChoice) Empty() bool {
	return c.Path == "" && len(c.Pasted) == 0
}

func imageStatus(c ImageChoice) string {
	switch {
	case len(c.Pasted) > 0:
		return fmt.Sprintf("Pasted image attached (%d KB)", len(c.Pasted)/1024)
	case c.Path != "":
		return "Image: " + c.Path
	default:
		return "No image (Ctrl+V pastes one from the clipboard)"
	}
}

// NewGroupState collects the fields of a new group chat.
type NewGroupState struct {
	name        string
	description string
	imagePath   string
	pasted      []byte

	form *huh.Form
}

func (*NewGroupState) modalState() {}

func (s *NewGroupState) Title() string { return "New Group" }

func (s *NewGroupState) Help() string {
	return "Tab: next field  Ctrl+V: paste image  Enter: create  Esc: cancel"
}

func (s *NewGroupState) Render() string {
	title := ModalTitleStyle.Render(s.Title())
	status := renderMuted(TruncateString(imageStatus(s.Image()), ModalInputWidth))
	help := ModalHelpStyle.Render(s.Help())
	return lipgloss.JoinVertical(lipgloss.Left, title, s.form.View(), status, help)
}

func (s *NewGroupState) Update(msg tea.Msg) (ModalState, tea.Cmd) {
	var cmd tea.Cmd
	s.form, cmd = huhFormUpdate(s.form, msg)
	return s, cmd
}

// Name returns the trimmed group name.
func (s *NewGroupState) Name() string { return strings.TrimSpace(s.name) }

// Description returns the trimmed description.
func (s *NewGroupState) Description() string { return strings.TrimSpace(s.description) }

// Image returns the chosen group photo, if any.
func (s *NewGroupState) Image() ImageChoice {
	return ImageChoice{Path: strings.TrimSpace(s.imagePath), Pasted: s.pasted}
}

// SetPastedImage attaches image bytes from the clipboard.
func (s *NewGroupState) SetPastedImage(data []byte) {
	s.pasted = data
}

// NewNewGroupState creates an empty group form.
func NewNewGroupState() *NewGroupState {
	s := &NewGroupState{}
	s.form = newModalForm(ModalInputWidth,
		huh.NewInput().
			Title("Name").
			Placeholder("Weekend plans").
			CharLimit(ModalInputCharLimit).
			Value(&s.name),
		huh.NewText().
			Title("Description").
			Placeholder("optional").
			CharLimit(GroupDescriptionCharLimit).
			Lines(3).
			Value(&s.description),
		huh.NewInput().
			Title("Image file").
			Description("PNG, JPEG or GIF; cropped to a square").
			Placeholder("~/Pictures/group.png").
			CharLimit(ModalInputCharLimit).
			Value(&s.imagePath),
	)
	return s
}
