package guard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"kern/internal/auth"
	"kern/internal/htmx"
	"kern/internal/log"
	"kern/internal/metrics"
)

type guardCtx struct{}

// FromContext returns the admitting guard of a protected request.
func FromContext(ctx context.Context) (*Guard, bool) {
	g, ok := ctx.Value(guardCtx{}).(*Guard)
	return g, ok
}

// Middleware admits requests to protected routes.
type Middleware struct {
	provider auth.Provider
	logger   *log.Logger
}

// NewMiddleware creates the admission middleware.
func NewMiddleware(provider auth.Provider, logger *log.Logger) *Middleware {
	return &Middleware{provider: provider, logger: logger.WithComponent(log.ComponentGuard)}
}

// Handler mounts a guard for the lifetime of the request. Nothing
// downstream runs unless the session resolves; a sign-out during the
// request cancels the downstream context.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		g := New(m.provider, cancel)
		defer g.Unmount()

		state, err := g.Mount(ctx)
		if err != nil {
			m.logger.WarnContext(ctx, "Session lookup failed, redirecting to login",
				log.FieldPath, r.URL.Path,
				log.FieldError, err)
		}
		if state != Authenticated {
			htmx.Redirect(w, r, LoginPath)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, guardCtx{}, g)))
	})
}

// Watch streams server-sent events for the mounted guard: periodic
// comments while the session lasts, then a single "redirect" event once
// it is signed out. Closing draining ends every open stream without a
// redirect so the browser reconnects elsewhere.
func (m *Middleware) Watch(heartbeat time.Duration, draining <-chan struct{}) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g, ok := FromContext(r.Context())
		if !ok {
			http.Error(w, "guard not mounted", http.StatusInternalServerError)
			return
		}

		rc := http.NewResponseController(w)
		// Streams outlive the server's write timeout.
		_ = rc.SetWriteDeadline(time.Time{})

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		if err := rc.Flush(); err != nil {
			m.logger.WarnContext(r.Context(), "Event stream not flushable", log.FieldError, err)
			return
		}

		metrics.ActiveWatchers.Inc()
		defer metrics.ActiveWatchers.Dec()

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-g.Redirected():
				sendRedirect(w, rc)
				return
			case <-r.Context().Done():
				// Sign-out cancels the context too; the redirect still goes out.
				select {
				case <-g.Redirected():
					sendRedirect(w, rc)
				default:
				}
				return
			case <-draining:
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
				if err := rc.Flush(); err != nil {
					return
				}
			}
		}
	}
}

func sendRedirect(w http.ResponseWriter, rc *http.ResponseController) {
	fmt.Fprintf(w, "event: redirect\ndata: %s\n\n", LoginPath)
	_ = rc.Flush()
}
