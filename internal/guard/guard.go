// Package guard decides route admission for the protected area. A Guard
// lives for one mount: it resolves the session once, then follows
// sign-out notifications until it is unmounted.
package guard

import (
	"context"
	"sync"

	"kern/internal/auth"
	"kern/internal/metrics"
)

// State is the guard's admission state.
type State int

const (
	Resolving State = iota
	Authenticated
	Redirecting
)

func (s State) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	case Redirecting:
		return "redirecting"
	default:
		return "unknown"
	}
}

// LoginPath is where a redirecting guard sends the browser.
const LoginPath = "/login"

// Guard is the per-mount state machine. The zero value is not usable;
// create one with New.
type Guard struct {
	provider   auth.Provider
	onRedirect func()

	mu         sync.Mutex
	state      State
	email      string
	sub        auth.Subscription
	unmounted  bool
	redirected chan struct{}
	redirect   sync.Once
}

// New creates a guard in the Resolving state. onRedirect, if set, runs
// exactly once when the guard first moves to Redirecting.
func New(provider auth.Provider, onRedirect func()) *Guard {
	return &Guard{
		provider:   provider,
		onRedirect: onRedirect,
		state:      Resolving,
		redirected: make(chan struct{}),
	}
}

// Mount resolves the session bound to ctx. The sign-out subscription is
// taken before the lookup so a sign-out racing the lookup is not lost.
// A failed lookup is treated like an absent session.
func (g *Guard) Mount(ctx context.Context) (State, error) {
	sub := g.provider.OnSessionChange(ctx, g.handle)

	g.mu.Lock()
	if g.unmounted {
		g.mu.Unlock()
		sub.Unsubscribe()
		return Redirecting, nil
	}
	g.sub = sub
	g.mu.Unlock()

	session, err := g.provider.CurrentSession(ctx)
	if err != nil || session == nil {
		g.toRedirecting()
		return g.State(), err
	}

	g.mu.Lock()
	if g.state == Resolving {
		g.state = Authenticated
		g.email = session.User.Email
	}
	state := g.state
	g.mu.Unlock()

	if state == Authenticated {
		metrics.GuardDecisions.WithLabelValues(Authenticated.String()).Inc()
	}
	return state, nil
}

func (g *Guard) handle(e auth.Event) {
	if e.Type == auth.EventSignedOut {
		g.toRedirecting()
	}
}

func (g *Guard) toRedirecting() {
	g.mu.Lock()
	if g.unmounted || g.state == Redirecting {
		g.mu.Unlock()
		return
	}
	g.state = Redirecting
	g.mu.Unlock()

	g.redirect.Do(func() {
		metrics.GuardDecisions.WithLabelValues(Redirecting.String()).Inc()
		close(g.redirected)
		if g.onRedirect != nil {
			g.onRedirect()
		}
	})
}

// Redirected is closed when the guard moves to Redirecting.
func (g *Guard) Redirected() <-chan struct{} {
	return g.redirected
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Email returns the signed-in user's email once Authenticated.
func (g *Guard) Email() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.email
}

// Unmount releases the sign-out subscription. Events arriving afterwards
// are ignored. Safe to call more than once.
func (g *Guard) Unmount() {
	g.mu.Lock()
	sub := g.sub
	g.sub = nil
	g.unmounted = true
	g.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}
