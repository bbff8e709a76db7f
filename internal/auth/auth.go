// Package auth defines the identity-provider capability shared by the
// transport, the session guard and the navigation shell, and the
// process-wide Manager that implements it.
package auth

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrSessionNotFound is returned by a SessionStore for an unknown key.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidCredentials is returned when the identity provider refuses a sign-in.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshRejected is returned when the identity provider refuses a refresh token.
	ErrRefreshRejected = errors.New("refresh token rejected")
	// ErrNoSessionKey is returned when an operation needs a session key and ctx has none.
	ErrNoSessionKey = errors.New("no session key in context")
)

// EventType names a session transition.
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
)

// Event is published on every session transition.
type Event struct {
	Type       EventType
	SessionKey string
	At         time.Time
}

// User identifies the signed-in principal.
type User struct {
	ID    string
	Email string
}

// Session is an authenticated browser session.
type Session struct {
	Key          string
	AccessToken  string
	RefreshToken string
	TokenType    string
	// ExpiresAt is the access token expiry; zero when unknown.
	ExpiresAt time.Time
	User      User
}

// Expired reports whether the access token expires within margin of now.
// An unknown expiry never counts as expired.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// Subscription is a registered session-change listener.
type Subscription interface {
	// Unsubscribe stops delivery. Safe to call more than once.
	Unsubscribe()
}

// Provider is the identity capability consumed by the web layer.
//
// CurrentSession returns (nil, nil) when no session is present.
type Provider interface {
	CurrentSession(ctx context.Context) (*Session, error)
	OnSessionChange(ctx context.Context, handler func(Event)) Subscription
	SignOut(ctx context.Context) error
}

// SessionStore persists sessions by key.
type SessionStore interface {
	Get(ctx context.Context, key string) (*Session, error)
	Put(ctx context.Context, session *Session) error
	Delete(ctx context.Context, key string) error
}

// Grant is a token response from the identity provider.
type Grant struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	ExpiresAt    int64
	User         User
}

// IdentityClient talks to the remote identity provider.
type IdentityClient interface {
	PasswordGrant(ctx context.Context, email, password string) (*Grant, error)
	RefreshGrant(ctx context.Context, refreshToken string) (*Grant, error)
	Logout(ctx context.Context, accessToken string) error
}

// Forwarder relays locally published events to other instances.
type Forwarder interface {
	Forward(ctx context.Context, event Event) error
}

type noopSubscription struct{}

func (noopSubscription) Unsubscribe() {}
