// Package errors provides structured error types for parley.
// These errors carry the operation that failed and a Kind that the UI
// uses to decide how to degrade (flash, restore input, empty list).
package errors

import (
	"errors"
	"fmt"
)

// Op describes an operation, usually as "package.function".
type Op string

// Kind categorizes the type of error.
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindInvalid
	KindPermission
	KindIO
	KindNetwork
	KindConfig
	KindAuth
	KindSubscription
	KindWrite
	KindInvariant
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalid:
		return "invalid"
	case KindPermission:
		return "permission denied"
	case KindIO:
		return "I/O error"
	case KindNetwork:
		return "network error"
	case KindConfig:
		return "configuration error"
	case KindAuth:
		return "authentication error"
	case KindSubscription:
		return "subscription error"
	case KindWrite:
		return "write error"
	case KindInvariant:
		return "invariant violation"
	case KindTimeout:
		return "timeout"
	default:
		return "unknown error"
	}
}

// Error is the structured error type for parley.
type Error struct {
	Op      Op     // Operation that failed
	Kind    Kind   // Category of error
	Err     error  // Underlying error
	Context string // Additional context
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Context, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// E creates a new Error. Arguments can be:
// - Op: the operation name
// - Kind: the error kind
// - string: context message
// - error: the underlying error
//
// When the underlying error is itself an *Error and no Kind was given,
// the inner Kind is inherited.
func E(args ...interface{}) error {
	e := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Op:
			e.Op = a
		case Kind:
			e.Kind = a
		case string:
			e.Context = a
		case error:
			e.Err = a
		}
	}
	if e.Err == nil {
		e.Err = errors.New(e.Context)
		e.Context = ""
	}
	if e.Kind == KindUnknown {
		var inner *Error
		if errors.As(e.Err, &inner) {
			e.Kind = inner.Kind
		}
	}
	return e
}

// Is reports whether err is of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// GetKind returns the Kind of an error.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Auth failure reasons. Wrapped with KindAuth by the auth service.
var (
	ErrInvalidCredential = errors.New("invalid email or password")
	ErrEmailInUse        = errors.New("email already in use")
	ErrWeakPassword      = errors.New("password too weak")
)

// AuthMessage maps an auth failure to the text shown under the sign-in form.
func AuthMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCredential):
		return "Wrong email or password."
	case errors.Is(err, ErrEmailInUse):
		return "This email is already in use."
	case errors.Is(err, ErrWeakPassword):
		return "Password is too weak (use a longer or more varied password)."
	default:
		return "Something went wrong: " + err.Error()
	}
}

// Config errors
func ConfigLoadFailed(path string, err error) error {
	return E(Op("config.Load"), KindConfig, fmt.Sprintf("failed to load config from %s", path), err)
}

func ConfigSaveFailed(path string, err error) error {
	return E(Op("config.Save"), KindConfig, fmt.Sprintf("failed to save config to %s", path), err)
}

func ConfigInvalid(reason string) error {
	return E(Op("config.Validate"), KindInvalid, reason)
}

// Subscription errors
func SubscriptionFailed(collection string, err error) error {
	return E(Op("store.Subscribe"), KindSubscription, fmt.Sprintf("live query on %s rejected", collection), err)
}

// Write errors
func WriteFailed(op Op, path string, err error) error {
	return E(op, KindWrite, fmt.Sprintf("write to %s failed", path), err)
}

// Invariant errors
func DirectChatInvariant(chatID string, participants int) error {
	return E(Op("messenger.Resolve"), KindInvariant,
		fmt.Sprintf("direct chat %s has no single counterparty (%d participants)", chatID, participants))
}

// Connection errors
func ConnectionLost(err error) error {
	return E(Op("relay.Client"), KindNetwork, "connection to server lost", err)
}
