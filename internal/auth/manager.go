package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"kern/internal/log"
	"kern/internal/metrics"
)

// RefreshMargin is how close to expiry an access token gets refreshed.
const RefreshMargin = 10 * time.Second

// Manager is the process-wide Provider. It owns the session store and
// keeps tokens fresh.
type Manager struct {
	store      SessionStore
	identity   IdentityClient
	broker     *Broker
	forwarders []Forwarder
	now        func() time.Time
	margin     time.Duration
	logger     *log.Logger
	refresh    singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithForwarder relays every locally published event through f.
func WithForwarder(f Forwarder) Option {
	return func(m *Manager) { m.forwarders = append(m.forwarders, f) }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager wires a Manager.
func NewManager(store SessionStore, identity IdentityClient, broker *Broker, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		identity: identity,
		broker:   broker,
		now:      time.Now,
		margin:   RefreshMargin,
		logger:   log.New(log.DefaultConfig()).WithComponent(log.ComponentAuth),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Broker exposes the manager's event hub.
func (m *Manager) Broker() *Broker { return m.broker }

// SignIn exchanges credentials for a new session under a fresh key.
func (m *Manager) SignIn(ctx context.Context, email, password string) (*Session, error) {
	grant, err := m.identity.PasswordGrant(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("password grant: %w", err)
	}

	s := m.sessionFromGrant(uuid.NewString(), grant)
	if err := m.store.Put(ctx, s); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	m.publish(ctx, EventSignedIn, s.Key, s.User.Email)
	return s, nil
}

// CurrentSession returns the session bound to ctx, refreshing an expiring
// access token first. Absent sessions are (nil, nil).
func (m *Manager) CurrentSession(ctx context.Context) (*Session, error) {
	key, ok := SessionKeyFrom(ctx)
	if !ok {
		return nil, nil
	}

	s, err := m.store.Get(ctx, key)
	if errors.Is(err, ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = tokenExpiry(s.AccessToken)
	}
	if !s.Expired(m.now(), m.margin) {
		return s, nil
	}

	v, err, _ := m.refresh.Do(key, func() (any, error) {
		return m.refreshSession(context.WithoutCancel(ctx), s)
	})
	if errors.Is(err, ErrRefreshRejected) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

func (m *Manager) refreshSession(ctx context.Context, s *Session) (*Session, error) {
	grant, err := m.identity.RefreshGrant(ctx, s.RefreshToken)
	if errors.Is(err, ErrRefreshRejected) {
		m.logger.WarnContext(ctx, "Refresh rejected, dropping session",
			log.FieldSessionKey, log.ShortKey(s.Key))
		if delErr := m.store.Delete(ctx, s.Key); delErr != nil {
			m.logger.ErrorContext(ctx, "Failed to delete session", log.FieldError, delErr)
		}
		m.publish(ctx, EventSignedOut, s.Key, s.User.Email)
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("refresh grant: %w", err)
	}

	fresh := m.sessionFromGrant(s.Key, grant)
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = s.RefreshToken
	}
	if fresh.User.ID == "" {
		fresh.User = s.User
	}
	if err := m.store.Put(ctx, fresh); err != nil {
		return nil, fmt.Errorf("store refreshed session: %w", err)
	}

	m.publish(ctx, EventTokenRefreshed, s.Key, s.User.Email)
	return fresh, nil
}

// OnSessionChange subscribes handler to transitions of the session bound
// to ctx. Without a session key nothing can ever be delivered.
func (m *Manager) OnSessionChange(ctx context.Context, handler func(Event)) Subscription {
	key, ok := SessionKeyFrom(ctx)
	if !ok {
		return noopSubscription{}
	}
	return m.broker.Subscribe(key, handler)
}

// SignOut ends the session bound to ctx. The local session is removed
// and SIGNED_OUT published even when the remote logout fails; that
// failure is returned for logging.
func (m *Manager) SignOut(ctx context.Context) error {
	key, ok := SessionKeyFrom(ctx)
	if !ok {
		return ErrNoSessionKey
	}

	var remoteErr error
	s, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrSessionNotFound):
	case err != nil:
		remoteErr = fmt.Errorf("load session: %w", err)
	default:
		if err := m.identity.Logout(ctx, s.AccessToken); err != nil {
			remoteErr = fmt.Errorf("remote logout: %w", err)
		}
	}

	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrSessionNotFound) {
		m.logger.ErrorContext(ctx, "Failed to delete session", log.FieldError, err)
	}
	m.publish(ctx, EventSignedOut, key, "")
	return remoteErr
}

func (m *Manager) sessionFromGrant(key string, g *Grant) *Session {
	return &Session{
		Key:          key,
		AccessToken:  g.AccessToken,
		RefreshToken: g.RefreshToken,
		TokenType:    g.TokenType,
		ExpiresAt:    expiryOf(g, m.now()),
		User:         g.User,
	}
}

func (m *Manager) publish(ctx context.Context, t EventType, key, email string) {
	event := Event{Type: t, SessionKey: key, At: m.now()}
	metrics.SessionEvents.WithLabelValues(string(t)).Inc()
	log.NewStructuredLogger(m.logger).LogSessionEvent(ctx, string(t), key, email)
	m.broker.Publish(event)

	for _, f := range m.forwarders {
		if err := f.Forward(ctx, event); err != nil {
			m.logger.WarnContext(ctx, "Failed to forward session event",
				log.FieldEvent, string(t),
				log.FieldError, err)
		}
	}
}
