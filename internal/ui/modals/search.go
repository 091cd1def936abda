package modals

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	huh "charm.land/huh/v2"
	"charm.land/lipgloss/v2"
)

// UserMatch is the user found by an email search.
type UserMatch struct {
	ID    string
	Name  string
	Email string
}

// SearchUserState finds a user by email and then offers to start a direct
// chat with them. Enter searches while there is no match and starts the
// chat once there is one.
type SearchUserState struct {
	email    string
	searched string // email the current match belongs to
	match    *UserMatch

	form *huh.Form
}

func (*SearchUserState) modalState() {}

func (s *SearchUserState) Title() string { return "New Chat" }

func (s *SearchUserState) Help() string {
	if s.match != nil {
		return "Enter: start chat  Esc: cancel"
	}
	return "Enter: search  Esc: cancel"
}

func (s *SearchUserState) Render() string {
	title := ModalTitleStyle.Render(s.Title())
	parts := []string{title, s.form.View()}

	if s.match != nil {
		name := lipgloss.NewStyle().Foreground(ColorText).Bold(true).
			Render(TruncateString(s.match.Name, ModalInputWidth))
		parts = append(parts,
			renderSectionHeader("Found"),
			"  "+name,
			"  "+renderMuted(TruncateString(s.match.Email, ModalInputWidth)),
		)
	}

	parts = append(parts, ModalHelpStyle.Render(s.Help()))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (s *SearchUserState) Update(msg tea.Msg) (ModalState, tea.Cmd) {
	var cmd tea.Cmd
	s.form, cmd = huhFormUpdate(s.form, msg)
	s.dropStaleMatch()
	return s, cmd
}

// dropStaleMatch forgets the match once the query no longer matches it.
func (s *SearchUserState) dropStaleMatch() {
	if s.match != nil && s.Email() != s.searched {
		s.match = nil
	}
}

// Email returns the trimmed query.
func (s *SearchUserState) Email() string {
	return strings.TrimSpace(s.email)
}

// SetMatch records the user found for the current query.
func (s *SearchUserState) SetMatch(m UserMatch) {
	s.match = &m
	s.searched = s.Email()
}

// ClearMatch forgets the previous result.
func (s *SearchUserState) ClearMatch() {
	s.match = nil
	s.searched = ""
}

// Match returns the found user, if any.
func (s *SearchUserState) Match() (UserMatch, bool) {
	if s.match == nil {
		return UserMatch{}, false
	}
	return *s.match, true
}

// NewSearchUserState creates an empty user search.
func NewSearchUserState() *SearchUserState {
	s := &SearchUserState{}
	s.form = newModalForm(ModalInputWidth,
		huh.NewInput().
			Title("Email").
			Description("Find someone by their exact email address").
			Placeholder("friend@example.com").
			CharLimit(ModalInputCharLimit).
			Value(&s.email),
	)
	return s
}
