// Package relay exposes a document store, credential service and blob store
// over one websocket per client, and provides the matching client.
package relay

import (
	"encoding/json"
	"errors"

	"github.com/zhubert/parley/internal/auth"
	"github.com/zhubert/parley/internal/backend"
	pErrors "github.com/zhubert/parley/internal/errors"
)

// Frame types.
const (
	TypeReply       = "reply"
	TypeSnapshot    = "snapshot"
	TypeClosed      = "closed"
	TypeSignIn      = "signIn"
	TypeSignUp      = "signUp"
	TypeResume      = "resume"
	TypeSignOut     = "signOut"
	TypeUpdateIdent = "updateIdentity"
	TypeGet         = "get"
	TypeCreate      = "create"
	TypeSet         = "set"
	TypeSetIfAbsent = "setIfAbsent"
	TypeUpdate      = "update"
	TypeQuery       = "query"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeUpload      = "upload"
	TypeURL         = "url"
)

// Frame is one websocket message in either direction. Requests carry an ID
// that the reply echoes. Token names a subscription and is chosen by the
// client.
type Frame struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Token   backend.Token   `json:"token,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *WireError      `json:"error,omitempty"`
}

// WireError carries an error's kind and, when known, a reason code that the
// client maps back to a sentinel.
type WireError struct {
	Kind    pErrors.Kind `json:"kind"`
	Reason  string       `json:"reason,omitempty"`
	Message string       `json:"message"`
}

var reasons = []struct {
	code string
	err  error
}{
	{"invalid-credential", pErrors.ErrInvalidCredential},
	{"email-already-in-use", pErrors.ErrEmailInUse},
	{"weak-password", pErrors.ErrWeakPassword},
	{"invalid-email", auth.ErrInvalidEmail},
	{"not-found", backend.ErrNotFound},
	{"unauthorized", backend.ErrUnauthorized},
	{"invalid-query", backend.ErrInvalidQuery},
	{"invalid-path", backend.ErrInvalidPath},
}

func toWire(err error) *WireError {
	if err == nil {
		return nil
	}
	w := &WireError{Kind: pErrors.GetKind(err), Message: err.Error()}
	for _, r := range reasons {
		if errors.Is(err, r.err) {
			w.Reason = r.code
			break
		}
	}
	return w
}

func fromWire(op pErrors.Op, w *WireError) error {
	for _, r := range reasons {
		if r.code == w.Reason {
			return pErrors.E(op, w.Kind, w.Message, r.err)
		}
	}
	return pErrors.E(op, w.Kind, w.Message)
}

// Request and reply payloads.

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
}

type resumeRequest struct {
	Token string `json:"token"`
}

type pathRequest struct {
	Path   string         `json:"path"`
	Fields backend.Fields `json:"fields,omitempty"`
}

type createRequest struct {
	Collection string         `json:"collection"`
	Fields     backend.Fields `json:"fields"`
}

type createReply struct {
	ID string `json:"id"`
}

type setIfAbsentReply struct {
	Created bool `json:"created"`
}

type uploadRequest struct {
	Path string `json:"path"`
	Data []byte `json:"data"`
}

type urlReply struct {
	URL string `json:"url"`
}

type snapshotPayload struct {
	Docs  []backend.Document `json:"docs"`
	Error *WireError         `json:"error,omitempty"`
}
