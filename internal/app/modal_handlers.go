package app

import (
	"errors"

	tea "charm.land/bubbletea/v2"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/keys"
	"github.com/zhubert/parley/internal/messenger"
	"github.com/zhubert/parley/internal/ui/modals"
)

// handleModalKey handles key presses while a modal is shown. Enter and Esc
// are handled here per modal; other keys go to the modal's form.
func (m *Model) handleModalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == keys.CtrlC {
		return m.quit()
	}
	if m.modal.IsLoading() {
		return m, nil
	}

	switch s := m.modal.State.(type) {
	case *modals.AuthState:
		switch key {
		case keys.Enter:
			return m.submitAuth(s)
		case keys.CtrlR:
			s.ToggleMode()
			m.modal.SetError("")
			return m, nil
		case keys.Escape:
			// the sign-in form cannot be dismissed
			return m, nil
		}

	case *modals.SearchUserState:
		switch key {
		case keys.Enter:
			return m.submitSearch(s)
		case keys.Escape:
			m.modal.Hide()
			return m, nil
		}

	case *modals.NewGroupState:
		switch key {
		case keys.Enter:
			return m.submitGroup(s)
		case keys.CtrlV:
			return m, readClipboardImage(pasteGroup)
		case keys.Escape:
			m.modal.Hide()
			return m, nil
		}

	case *modals.SettingsState:
		switch key {
		case keys.Enter:
			return m.submitSettings(s)
		case keys.CtrlV:
			return m, readClipboardImage(pasteAvatar)
		case keys.Escape:
			m.modal.Hide()
			return m, nil
		}

	case *modals.HelpState:
		switch key {
		case keys.Enter:
			if s.IsFiltering() {
				break
			}
			return m, s.Trigger()
		case keys.Escape:
			if s.IsFiltering() {
				break
			}
			m.modal.Hide()
			return m, nil
		}
	}

	modal, cmd := m.modal.Update(msg)
	m.modal = modal
	return m, cmd
}

// authValidationText is the form text for a locally rejected submission.
func authValidationText(err error) string {
	switch {
	case errors.Is(err, modals.ErrEmailRequired):
		return "Enter your email address."
	case errors.Is(err, modals.ErrPasswordRequired):
		return "Enter your password."
	default:
		return err.Error()
	}
}

func (m *Model) submitAuth(s *modals.AuthState) (tea.Model, tea.Cmd) {
	creds, err := s.Credentials()
	if err != nil {
		m.modal.SetError(authValidationText(err))
		return m, nil
	}

	if creds.Mode == modals.ModeSignUp {
		m.modal.SetLoading("Creating account...")
	} else {
		m.modal.SetLoading("Signing in...")
	}

	auth := m.be.Auth
	ctx, cancel := m.opContext()
	return m, func() tea.Msg {
		defer cancel()
		var err error
		if creds.Mode == modals.ModeSignUp {
			_, err = auth.SignUp(ctx, creds.Email, creds.Password, creds.DisplayName)
		} else {
			_, err = auth.SignIn(ctx, creds.Email, creds.Password)
		}
		return AuthResultMsg{Email: creds.Email, Err: err}
	}
}

func (m *Model) handleAuthResult(msg AuthResultMsg) (tea.Model, tea.Cmd) {
	s, showing := m.modal.State.(*modals.AuthState)
	if msg.Err != nil {
		m.log.Warn("authentication failed", "email", msg.Email, "error", msg.Err)
		if showing {
			s.ClearPassword()
			m.modal.SetError(pErrors.AuthMessage(msg.Err))
		}
		return m, nil
	}

	m.config.SetLastEmail(msg.Email)
	cmd := m.saveConfigOrFlash()
	// The identity push hides the form; keep the spinner until it arrives.
	if showing && m.gate.State() != messenger.SignedIn {
		m.modal.SetLoading("Loading chats...")
	}
	return m, cmd
}

func (m *Model) submitSearch(s *modals.SearchUserState) (tea.Model, tea.Cmd) {
	self := m.selfID()
	if self == "" {
		return m, nil
	}

	if match, ok := s.Match(); ok {
		m.modal.SetLoading("Opening chat...")
		mutations := m.mutations
		cached := append([]backend.Chat(nil), m.chatList.Chats()...)
		ctx, cancel := m.opContext()
		return m, func() tea.Msg {
			defer cancel()
			id, created, err := mutations.CreateDirect(ctx, self, match.ID, cached)
			return DirectChatMsg{ChatID: id, Name: match.Name, Created: created, Err: err}
		}
	}

	email := s.Email()
	if email == "" {
		m.modal.SetError(messenger.SearchMessage(pErrors.E(pErrors.KindInvalid, "email is required")))
		return m, nil
	}
	s.ClearMatch()
	m.modal.SetLoading("Searching...")

	mutations := m.mutations
	ctx, cancel := m.opContext()
	return m, func() tea.Msg {
		defer cancel()
		user, err := mutations.SearchByEmail(ctx, self, email)
		return SearchResultMsg{Email: email, User: user, Err: err}
	}
}

func (m *Model) handleSearchResult(msg SearchResultMsg) (tea.Model, tea.Cmd) {
	s, ok := m.modal.State.(*modals.SearchUserState)
	if !ok {
		return m, nil
	}
	if msg.Err != nil {
		m.modal.SetError(messenger.SearchMessage(msg.Err))
		return m, nil
	}
	m.modal.SetLoading("")
	res := messenger.UserDisplay(msg.User)
	s.SetMatch(modals.UserMatch{ID: msg.User.ID, Name: res.Name, Email: msg.User.Email})
	return m, nil
}

func (m *Model) handleDirectChat(msg DirectChatMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if _, ok := m.modal.State.(*modals.SearchUserState); ok {
			m.modal.SetError(messenger.SearchMessage(msg.Err))
			return m, nil
		}
		return m, m.ShowFlashError("Could not start chat: " + msg.Err.Error())
	}
	m.modal.Hide()
	return m, m.openChat(msg.ChatID, msg.Name)
}

func (m *Model) submitGroup(s *modals.NewGroupState) (tea.Model, tea.Cmd) {
	self := m.selfID()
	if self == "" {
		return m, nil
	}
	if s.Name() == "" {
		m.modal.SetError("Enter a group name.")
		return m, nil
	}
	m.modal.SetLoading("Creating group...")

	req := messenger.GroupRequest{Name: s.Name(), Description: s.Description()}
	choice := s.Image()
	mutations := m.mutations
	ctx, cancel := m.opContext()
	return m, func() tea.Msg {
		defer cancel()
		img, err := loadImage(choice)
		if err != nil {
			return GroupCreatedMsg{Name: req.Name, Err: pErrors.E(pErrors.KindIO, "could not read image", err)}
		}
		req.Image = img
		id, err := mutations.CreateGroup(ctx, self, req)
		return GroupCreatedMsg{ChatID: id, Name: req.Name, Err: err}
	}
}

func (m *Model) handleGroupCreated(msg GroupCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.log.Warn("group not created", "error", msg.Err)
		text := "Could not create group: " + msg.Err.Error()
		if errors.Is(msg.Err, messenger.ErrNameRequired) {
			text = "Enter a group name."
		}
		if _, ok := m.modal.State.(*modals.NewGroupState); ok {
			m.modal.SetError(text)
			return m, nil
		}
		return m, m.ShowFlashError(text)
	}
	m.modal.Hide()
	return m, tea.Batch(
		m.ShowFlashSuccess("Group \""+msg.Name+"\" created"),
		m.openChat(msg.ChatID, msg.Name),
	)
}

func (m *Model) submitSettings(s *modals.SettingsState) (tea.Model, tea.Cmd) {
	vals := s.Values()
	var cmds []tea.Cmd

	if vals.Theme != m.gate.Theme() {
		m.gate.SetTheme(vals.Theme)
		m.applyTheme(vals.Theme)
		m.config.SetTheme(string(vals.Theme))
		cmds = append(cmds, m.persistTheme(vals.Theme))
	}
	m.config.SetNotificationsEnabled(vals.Notifications)
	cmds = append(cmds, m.saveConfigOrFlash())

	uid := m.selfID()
	if uid == "" || !vals.ProfileChanged(s.OriginalName) {
		m.modal.Hide()
		cmds = append(cmds, m.ShowFlashSuccess("Settings saved"))
		return m, tea.Batch(cmds...)
	}

	m.modal.SetLoading("Saving...")
	req := messenger.ProfileRequest{}
	if vals.DisplayName != s.OriginalName {
		req.DisplayName = vals.DisplayName
	}
	choice := vals.Avatar
	mutations := m.mutations
	ctx, cancel := m.opContext()
	cmds = append(cmds, func() tea.Msg {
		defer cancel()
		img, err := loadImage(choice)
		if err != nil {
			return ProfileSavedMsg{Err: pErrors.E(pErrors.KindIO, "could not read image", err)}
		}
		req.Avatar = img
		update, err := mutations.UpdateProfile(ctx, uid, req)
		return ProfileSavedMsg{Update: update, Err: err}
	})
	return m, tea.Batch(cmds...)
}

func (m *Model) handleProfileSaved(msg ProfileSavedMsg) (tea.Model, tea.Cmd) {
	if id := m.gate.Identity(); id != nil {
		p := *id
		p.Theme = m.gate.Theme()
		if msg.Update.DisplayName != nil {
			p.DisplayName = *msg.Update.DisplayName
		}
		if msg.Update.PhotoURL != nil {
			p.PhotoURL = *msg.Update.PhotoURL
		}
		m.gate.SetProfile(p)
	}

	if msg.Err != nil {
		m.log.Error("profile update failed", "error", msg.Err)
		text := "Could not save profile: " + msg.Err.Error()
		if _, ok := m.modal.State.(*modals.SettingsState); ok {
			m.modal.SetError(text)
			return m, nil
		}
		return m, m.ShowFlashError(text)
	}
	m.modal.Hide()
	return m, m.ShowFlashSuccess("Profile saved")
}
