package modals

import (
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	huh "charm.land/huh/v2"
	"charm.land/lipgloss/v2"

	"github.com/zhubert/parley/internal/backend"
)

const optionNotifications = "notifications"

// Settings is what the settings modal submits.
type Settings struct {
	DisplayName   string
	Avatar        ImageChoice
	Theme         backend.Theme
	Notifications bool
}

// ProfileChanged reports whether the profile needs an update call.
func (s Settings) ProfileChanged(current string) bool {
	return s.DisplayName != current || !s.Avatar.Empty()
}

// SettingsState edits the profile and local preferences.
type SettingsState struct {
	OriginalName  string
	OriginalTheme backend.Theme

	displayName    string
	avatarPath     string
	pasted         []byte
	theme          string
	generalOptions []string

	form *huh.Form
}

func (*SettingsState) modalState() {}

func (s *SettingsState) Title() string { return "Settings" }

func (s *SettingsState) Help() string {
	return "Tab: next field  Ctrl+V: paste avatar  Enter: save  Esc: cancel"
}

func (s *SettingsState) Render() string {
	title := ModalTitleStyle.Render(s.Title())
	status := renderMuted(TruncateString(imageStatus(s.avatar()), ModalInputWidth))
	help := ModalHelpStyle.Render(s.Help())
	return lipgloss.JoinVertical(lipgloss.Left, title, s.form.View(), status, help)
}

func (s *SettingsState) Update(msg tea.Msg) (ModalState, tea.Cmd) {
	var cmd tea.Cmd
	s.form, cmd = huhFormUpdate(s.form, msg)
	return s, cmd
}

// SetPastedAvatar attaches avatar bytes from the clipboard.
func (s *SettingsState) SetPastedAvatar(data []byte) {
	s.pasted = data
}

func (s *SettingsState) avatar() ImageChoice {
	return ImageChoice{Path: strings.TrimSpace(s.avatarPath), Pasted: s.pasted}
}

// Values returns the edited settings. A blank display name keeps the
// original one.
func (s *SettingsState) Values() Settings {
	name := strings.TrimSpace(s.displayName)
	if name == "" {
		name = s.OriginalName
	}
	return Settings{
		DisplayName:   name,
		Avatar:        s.avatar(),
		Theme:         backend.ParseTheme(s.theme),
		Notifications: slices.Contains(s.generalOptions, optionNotifications),
	}
}

// NewSettingsState creates the settings form with the current values.
func NewSettingsState(displayName string, theme backend.Theme, notificationsEnabled bool) *SettingsState {
	s := &SettingsState{
		OriginalName:  displayName,
		OriginalTheme: theme,
		displayName:   displayName,
		theme:         string(theme),
	}
	if notificationsEnabled {
		s.generalOptions = append(s.generalOptions, optionNotifications)
	}

	s.form = newModalForm(ModalInputWidth,
		huh.NewInput().
			Title("Display name").
			CharLimit(ModalInputCharLimit).
			Value(&s.displayName),
		huh.NewInput().
			Title("Avatar file").
			Description("PNG, JPEG or GIF; cropped to a square").
			Placeholder("~/Pictures/me.png").
			CharLimit(ModalInputCharLimit).
			Value(&s.avatarPath),
		huh.NewSelect[string]().
			Title("Theme").
			Options(
				huh.NewOption("Light", string(backend.ThemeLight)),
				huh.NewOption("Dark", string(backend.ThemeDark)),
			).
			Value(&s.theme),
		huh.NewMultiSelect[string]().
			Title("Options").
			Options(huh.NewOption("Desktop notifications", optionNotifications).
				Selected(notificationsEnabled)).
			Value(&s.generalOptions),
	)
	return s
}
