package modals

import (
	"errors"
	"strings"

	tea "charm.land/bubbletea/v2"
	huh "charm.land/huh/v2"
	"charm.land/lipgloss/v2"
)

// AuthMode selects between signing in and creating an account.
type AuthMode int

const (
	ModeSignIn AuthMode = iota
	ModeSignUp
)

func (m AuthMode) String() string {
	if m == ModeSignUp {
		return "Sign up"
	}
	return "Sign in"
}

// Validation failures caught before any backend call.
var (
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
)

// AuthCredentials is what the auth modal submits.
type AuthCredentials struct {
	Mode        AuthMode
	Email       string
	Password    string
	DisplayName string // sign up only
}

// AuthState is the sign in / sign up form shown while signed out.
type AuthState struct {
	Mode        AuthMode
	email       string
	password    string
	displayName string

	form *huh.Form
}

func (*AuthState) modalState() {}

func (s *AuthState) Title() string { return s.Mode.String() }

func (s *AuthState) Help() string {
	other := ModeSignUp
	if s.Mode == ModeSignUp {
		other = ModeSignIn
	}
	return "Tab: next field  Enter: " + strings.ToLower(s.Mode.String()) +
		"  Ctrl+R: " + strings.ToLower(other.String())
}

func (s *AuthState) Render() string {
	title := ModalTitleStyle.Render(s.Title())
	help := ModalHelpStyle.Render(s.Help())
	return lipgloss.JoinVertical(lipgloss.Left, title, s.form.View(), help)
}

func (s *AuthState) Update(msg tea.Msg) (ModalState, tea.Cmd) {
	var cmd tea.Cmd
	s.form, cmd = huhFormUpdate(s.form, msg)
	return s, cmd
}

// ToggleMode switches between sign in and sign up, keeping what was typed.
func (s *AuthState) ToggleMode() {
	if s.Mode == ModeSignIn {
		s.Mode = ModeSignUp
	} else {
		s.Mode = ModeSignIn
	}
	s.buildForm()
}

// Credentials returns the trimmed form values, or a validation error.
// The password is passed through untouched.
func (s *AuthState) Credentials() (AuthCredentials, error) {
	c := AuthCredentials{
		Mode:     s.Mode,
		Email:    strings.TrimSpace(s.email),
		Password: s.password,
	}
	if s.Mode == ModeSignUp {
		c.DisplayName = strings.TrimSpace(s.displayName)
	}
	if c.Email == "" {
		return c, ErrEmailRequired
	}
	if c.Password == "" {
		return c, ErrPasswordRequired
	}
	return c, nil
}

// ClearPassword empties the password after a failed attempt.
func (s *AuthState) ClearPassword() {
	s.password = ""
	s.buildForm()
}

func (s *AuthState) buildForm() {
	fields := []huh.Field{
		huh.NewInput().
			Key("email").
			Title("Email").
			Placeholder("you@example.com").
			CharLimit(ModalInputCharLimit).
			Value(&s.email),
		huh.NewInput().
			Key("password").
			Title("Password").
			EchoMode(huh.EchoModePassword).
			CharLimit(ModalInputCharLimit).
			Value(&s.password),
	}
	if s.Mode == ModeSignUp {
		fields = append(fields, huh.NewInput().
			Key("displayName").
			Title("Display name").
			Description("Shown to the people you chat with").
			Placeholder("optional").
			CharLimit(ModalInputCharLimit).
			Value(&s.displayName))
	}
	s.form = newModalForm(ModalInputWidth, fields...)
	if s.email != "" {
		s.form.NextField()
	}
}

// NewAuthState creates the auth form, prefilled with the last used email.
func NewAuthState(mode AuthMode, lastEmail string) *AuthState {
	s := &AuthState{Mode: mode, email: lastEmail}
	s.buildForm()
	return s
}
