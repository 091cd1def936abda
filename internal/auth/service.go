// Package auth implements parley's credential service: bcrypt-hashed
// passwords kept in the document store, signed session tokens, and a
// per-process client implementing backend.Auth.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"

	"github.com/google/uuid"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
	"github.com/zhubert/parley/internal/logger"
)

// PasswordMinEntropyBits is the minimum password strength accepted at sign-up.
const PasswordMinEntropyBits = 40

// ErrInvalidEmail is returned for addresses net/mail cannot parse.
var ErrInvalidEmail = errors.New("invalid email address")

// Service owns the credential records. It runs wherever the document store
// lives: in-process for the embedded backend, or inside `parley serve`.
type Service struct {
	docs   backend.DocumentStore
	tokens *Tokens
	log    *slog.Logger
	cost   int
}

// NewService creates a credential service over docs.
func NewService(docs backend.DocumentStore, tokens *Tokens) *Service {
	return &Service{
		docs:   docs,
		tokens: tokens,
		log:    logger.ComponentLogger("Auth"),
		cost:   bcrypt.DefaultCost,
	}
}

// Session is the result of a successful sign-in or sign-up.
type Session struct {
	Identity backend.Identity `json:"identity"`
	Token    string           `json:"token"`
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func credentialPath(email string) string {
	return backend.DocPath(backend.Credentials, url.PathEscape(email))
}

func identityFromCredential(f backend.Fields) backend.Identity {
	return backend.Identity{
		ID:          f.String("uid"),
		Email:       f.String("email"),
		DisplayName: f.String("displayName"),
		PhotoURL:    f.String("photoURL"),
	}
}

// SignUp registers a new account.
func (s *Service) SignUp(ctx context.Context, email, password, displayName string) (Session, error) {
	const op = pErrors.Op("auth.SignUp")

	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, pErrors.E(op, pErrors.KindInvalid, err)
	}
	if err := passwordvalidator.Validate(password, PasswordMinEntropyBits); err != nil {
		return Session{}, pErrors.E(op, pErrors.KindAuth, err.Error(), pErrors.ErrWeakPassword)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Session{}, pErrors.E(op, pErrors.KindAuth, err)
	}

	id := backend.Identity{
		ID:          uuid.NewString(),
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
	}
	created, err := s.docs.SetIfAbsent(ctx, credentialPath(email), backend.Fields{
		"uid":         id.ID,
		"email":       id.Email,
		"displayName": id.DisplayName,
		"hash":        string(hash),
		"createdAt":   backend.ServerTimestamp,
	})
	if err != nil {
		return Session{}, pErrors.E(op, err)
	}
	if !created {
		return Session{}, pErrors.E(op, pErrors.KindAuth, pErrors.ErrEmailInUse)
	}

	s.log.Info("account created", "uid", id.ID)
	return s.session(op, id)
}

// SignIn checks a password. Unknown email and wrong password are reported
// the same way.
func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	const op = pErrors.Op("auth.SignIn")

	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, pErrors.E(op, pErrors.KindAuth, pErrors.ErrInvalidCredential)
	}

	doc, err := s.docs.Get(ctx, credentialPath(email))
	if backend.IsNotFound(err) {
		return Session{}, pErrors.E(op, pErrors.KindAuth, pErrors.ErrInvalidCredential)
	}
	if err != nil {
		return Session{}, pErrors.E(op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(doc.Fields.String("hash")), []byte(password)); err != nil {
		s.log.Debug("password mismatch", "uid", doc.Fields.String("uid"))
		return Session{}, pErrors.E(op, pErrors.KindAuth, pErrors.ErrInvalidCredential)
	}

	return s.session(op, identityFromCredential(doc.Fields))
}

// Resume exchanges a session token for the identity it was issued to.
func (s *Service) Resume(ctx context.Context, token string) (Session, error) {
	const op = pErrors.Op("auth.Resume")

	claims, err := s.tokens.Verify(token)
	if err != nil {
		return Session{}, pErrors.E(op, pErrors.KindAuth, err)
	}
	id, err := s.lookup(ctx, claims.Email)
	if err != nil {
		return Session{}, pErrors.E(op, err)
	}
	if id.ID != claims.UserID {
		return Session{}, pErrors.E(op, pErrors.KindAuth, "token does not match account")
	}
	return Session{Identity: id, Token: token}, nil
}

// UpdateIdentity changes the auth-side display name and photo.
func (s *Service) UpdateIdentity(ctx context.Context, email string, update backend.IdentityUpdate) (backend.Identity, error) {
	const op = pErrors.Op("auth.UpdateIdentity")

	patch := backend.Fields{}
	if update.DisplayName != nil {
		patch["displayName"] = strings.TrimSpace(*update.DisplayName)
	}
	if update.PhotoURL != nil {
		patch["photoURL"] = *update.PhotoURL
	}
	if len(patch) > 0 {
		if err := s.docs.Update(ctx, credentialPath(email), patch); err != nil {
			return backend.Identity{}, pErrors.E(op, err)
		}
	}
	id, err := s.lookup(ctx, email)
	if err != nil {
		return backend.Identity{}, pErrors.E(op, err)
	}
	return id, nil
}

// VerifyToken returns the claims of a valid token.
func (s *Service) VerifyToken(token string) (*Claims, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, pErrors.E(pErrors.Op("auth.VerifyToken"), pErrors.KindAuth, err)
	}
	return claims, nil
}

func (s *Service) lookup(ctx context.Context, email string) (backend.Identity, error) {
	doc, err := s.docs.Get(ctx, credentialPath(email))
	if err != nil {
		return backend.Identity{}, err
	}
	return identityFromCredential(doc.Fields), nil
}

func (s *Service) session(op pErrors.Op, id backend.Identity) (Session, error) {
	token, err := s.tokens.Issue(id.ID, id.Email)
	if err != nil {
		return Session{}, pErrors.E(op, pErrors.KindAuth, err)
	}
	return Session{Identity: id, Token: token}, nil
}
