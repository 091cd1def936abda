// Package backend defines the collaborator contract parley is built on:
// authentication, a document store with live queries, and blob storage.
// The embedded store and the websocket relay both implement it.
package backend

import (
	"context"
	"errors"
	"sync/atomic"
)

// Sentinel errors returned (wrapped) by implementations.
var (
	ErrNotFound     = errors.New("document not found")
	ErrInvalidPath  = errors.New("invalid document path")
	ErrInvalidQuery = errors.New("invalid query")
	ErrClosed       = errors.New("backend closed")
	ErrUnauthorized = errors.New("not signed in")
)

// Token identifies one live-query registration. A later registration always
// gets a larger token, so a snapshot can be checked against the handle the
// caller currently holds.
type Token uint64

var lastToken atomic.Uint64

// NextToken returns a process-unique, increasing token.
func NextToken() Token {
	return Token(lastToken.Add(1))
}

// Snapshot is the full result set of a live query at one point in time.
// Err is set when the query failed after setup; Docs is then empty.
type Snapshot struct {
	Token Token
	Docs  []Document
	Err   error
}

// Subscription is a cancellable handle on a live query.
//
// Snapshots delivers full result sets in emission order. Implementations keep
// at most one undelivered snapshot: a newer one replaces an unread older one.
// The channel is closed after Cancel or when the connection backing the
// subscription is lost.
type Subscription interface {
	Token() Token
	Snapshots() <-chan Snapshot
	Cancel()
}

// IdentityUpdate carries the auth-profile fields to change. Nil fields are
// left alone.
type IdentityUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	PhotoURL    *string `json:"photoURL,omitempty"`
}

// Auth is the credential and session collaborator.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, email, password, displayName string) (Identity, error)
	SignOut(ctx context.Context) error
	// CurrentUser returns the signed-in identity, or nil.
	CurrentUser() *Identity
	// OnIdentityChange registers fn. fn is called once with the current state
	// and then on every change, in order, from a goroutine owned by the
	// implementation. A nil identity means signed out.
	OnIdentityChange(fn func(*Identity)) (stop func())
	UpdateIdentity(ctx context.Context, update IdentityUpdate) error
}

// DocumentStore is the document database with live queries.
type DocumentStore interface {
	Subscribe(ctx context.Context, q Query) (Subscription, error)
	// Get returns ErrNotFound (wrapped) when the document is absent.
	Get(ctx context.Context, path string) (Document, error)
	Create(ctx context.Context, collection string, fields Fields) (string, error)
	Set(ctx context.Context, path string, fields Fields) error
	// SetIfAbsent writes fields only when no document exists at path.
	SetIfAbsent(ctx context.Context, path string, fields Fields) (bool, error)
	// Update merges fields into an existing document. Dotted keys replace
	// nested values.
	Update(ctx context.Context, path string, fields Fields) error
	Query(ctx context.Context, q Query) ([]Document, error)
}

// Handle refers to an uploaded blob.
type Handle struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	ContentType string `json:"contentType,omitempty"`
}

// BlobStore stores binary objects and issues retrieval URLs.
type BlobStore interface {
	Upload(ctx context.Context, path string, data []byte) (Handle, error)
	RetrievalURL(ctx context.Context, h Handle) (string, error)
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
