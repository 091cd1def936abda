package messenger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zhubert/parley/internal/avatar"
	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrSelfChat     = errors.New("cannot start a chat with yourself")
	ErrNameRequired = errors.New("group name is required")
)

// GroupCreatedText is the system lastMessage of a new group.
const GroupCreatedText = "Group created"

// Mutations issues chat and profile writes. Results are observed through the
// live subscriptions; nothing is echoed locally.
type Mutations struct {
	auth  backend.Auth
	docs  backend.DocumentStore
	blobs backend.BlobStore
	now   func() time.Time
	log   *slog.Logger
}

func NewMutations(auth backend.Auth, docs backend.DocumentStore, blobs backend.BlobStore) *Mutations {
	return &Mutations{
		auth:  auth,
		docs:  docs,
		blobs: blobs,
		now:   time.Now,
		log:   logger.ComponentLogger("Mutations"),
	}
}

// SearchByEmail finds the user registered with email.
func (m *Mutations) SearchByEmail(ctx context.Context, selfID, email string) (backend.Identity, error) {
	const op = pErrors.Op("messenger.SearchByEmail")
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return backend.Identity{}, pErrors.E(op, pErrors.KindInvalid, "email is required")
	}

	docs, err := m.docs.Query(ctx, backend.Query{Collection: backend.Users}.Where("email", backend.OpEqual, email))
	if err != nil {
		m.log.Error("search failed", "error", err)
		return backend.Identity{}, pErrors.E(op, err)
	}
	if len(docs) == 0 {
		return backend.Identity{}, pErrors.E(op, pErrors.KindNotFound, ErrUserNotFound)
	}
	found := backend.IdentityFromDoc(docs[0])
	if found.ID == selfID {
		return backend.Identity{}, pErrors.E(op, pErrors.KindInvalid, ErrSelfChat)
	}
	return found, nil
}

// SearchMessage is the text shown in the search modal for err.
func SearchMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUserNotFound):
		return "User not found."
	case errors.Is(err, ErrSelfChat):
		return "You cannot write to yourself."
	case pErrors.Is(err, pErrors.KindInvalid):
		return "Enter an email address."
	default:
		return "Search error: " + err.Error()
	}
}

// CreateDirect returns the direct chat between selfID and targetID, creating
// it unless cached already holds one. created reports whether a write was
// issued. Two clients creating the same chat at once can still both write.
func (m *Mutations) CreateDirect(ctx context.Context, selfID, targetID string, cached []backend.Chat) (string, bool, error) {
	const op = pErrors.Op("messenger.CreateDirect")
	if selfID == "" || targetID == "" {
		return "", false, pErrors.E(op, pErrors.KindInvalid, "both participants are required")
	}
	if selfID == targetID {
		return "", false, pErrors.E(op, pErrors.KindInvalid, ErrSelfChat)
	}
	if chat, ok := findDirect(cached, selfID, targetID); ok {
		return chat.ID, false, nil
	}

	id, err := m.docs.Create(ctx, backend.Chats, backend.Fields{
		"kind":         string(backend.KindDirect),
		"participants": []string{selfID, targetID},
		"createdAt":    backend.ServerTimestamp,
		"createdBy":    selfID,
	})
	if err != nil {
		return "", false, pErrors.WriteFailed(op, backend.Chats, err)
	}
	m.log.Info("direct chat created", "chatID", id, "with", targetID)
	return id, true, nil
}

// GroupRequest describes a new group.
type GroupRequest struct {
	Name        string
	Description string
	// Image is optional raw image data.
	Image []byte
}

// CreateGroup creates a group owned by selfID, who is its only participant.
// An image that cannot be processed or uploaded is dropped in favour of the
// generated placeholder.
func (m *Mutations) CreateGroup(ctx context.Context, selfID string, req GroupRequest) (string, error) {
	const op = pErrors.Op("messenger.CreateGroup")
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", pErrors.E(op, pErrors.KindInvalid, ErrNameRequired)
	}

	photo := avatar.PlaceholderURL(name)
	if len(req.Image) > 0 {
		if u, err := m.upload(ctx, "groups/"+uuid.NewString()+".png", req.Image); err != nil {
			m.log.Warn("group image dropped", "group", name, "error", err)
		} else {
			photo = u
		}
	}

	fields := backend.Fields{
		"kind":         string(backend.KindGroup),
		"name":         name,
		"participants": []string{selfID},
		"photoURL":     photo,
		"createdAt":    backend.ServerTimestamp,
		"createdBy":    selfID,
		"lastMessage": map[string]any{
			"text":     GroupCreatedText,
			"senderId": backend.SystemSender,
			"sentAt":   backend.ServerTimestamp,
		},
	}
	if d := strings.TrimSpace(req.Description); d != "" {
		fields["description"] = d
	}

	id, err := m.docs.Create(ctx, backend.Chats, fields)
	if err != nil {
		return "", pErrors.WriteFailed(op, backend.Chats, err)
	}
	m.log.Info("group created", "chatID", id, "name", name)
	return id, nil
}

// ProfileRequest carries the settings form. Empty fields are left alone.
type ProfileRequest struct {
	DisplayName string
	Avatar      []byte
}

// UpdateProfile uploads the avatar, then updates the auth identity, then the
// users/{id} document. A failure part way leaves the earlier writes in place.
// It returns the fields written.
func (m *Mutations) UpdateProfile(ctx context.Context, identityID string, req ProfileRequest) (backend.IdentityUpdate, error) {
	const op = pErrors.Op("messenger.UpdateProfile")
	var update backend.IdentityUpdate

	if name := strings.TrimSpace(req.DisplayName); name != "" {
		update.DisplayName = &name
	}
	if len(req.Avatar) > 0 {
		p := fmt.Sprintf("avatars/%s_%d.png", identityID, m.now().UnixMilli())
		u, err := m.upload(ctx, p, req.Avatar)
		if err != nil {
			return update, pErrors.E(op, err)
		}
		update.PhotoURL = &u
	}
	if update.DisplayName == nil && update.PhotoURL == nil {
		return update, nil
	}

	if err := m.auth.UpdateIdentity(ctx, update); err != nil {
		return update, pErrors.E(op, err)
	}

	fields := backend.Fields{}
	if update.DisplayName != nil {
		fields["displayName"] = *update.DisplayName
	}
	if update.PhotoURL != nil {
		fields["photoURL"] = *update.PhotoURL
	}
	if err := m.docs.Update(ctx, backend.UserPath(identityID), fields); err != nil {
		m.log.Error("profile document out of sync with identity", "uid", identityID, "error", err)
		return update, pErrors.WriteFailed(op, backend.UserPath(identityID), err)
	}
	return update, nil
}

// PersistTheme stores theme on the profile. Failures are logged only.
func (m *Mutations) PersistTheme(ctx context.Context, identityID string, theme backend.Theme) {
	err := m.docs.Update(ctx, backend.UserPath(identityID), backend.Fields{"theme": string(theme)})
	if err != nil {
		m.log.Warn("theme not persisted", "uid", identityID, "theme", theme, "error", err)
	}
}

// ToggleTheme flips the gate's theme and persists the new value. The local
// flag stays flipped whether or not persisting succeeds. Before the profile
// has loaded the write is left to the gate's pending theme.
func (m *Mutations) ToggleTheme(ctx context.Context, gate *Gate) backend.Theme {
	theme := gate.ToggleTheme()
	if id := gate.Identity(); id != nil && gate.ProfileLoaded() {
		m.PersistTheme(ctx, id.ID, theme)
	}
	return theme
}

func (m *Mutations) upload(ctx context.Context, path string, data []byte) (string, error) {
	img, err := avatar.Normalize(data)
	if err != nil {
		return "", pErrors.E(pErrors.KindInvalid, err)
	}
	h, err := m.blobs.Upload(ctx, path, img)
	if err != nil {
		return "", err
	}
	return m.blobs.RetrievalURL(ctx, h)
}
