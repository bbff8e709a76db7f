package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kern/internal/api"
	"kern/internal/auth"
	"kern/internal/dashboard"
	"kern/internal/format"
	"kern/internal/guard"
	"kern/internal/htmx"
	"kern/internal/log"
	"kern/internal/middleware/ratelimit"
	"kern/internal/middleware/security"
	"kern/internal/middleware/trace"
	"kern/internal/nav"
	appweb "kern/web"
)

// DefaultHeartbeat is the keep-alive interval of the sign-out event stream.
const DefaultHeartbeat = 15 * time.Second

// Authenticator is the identity provider plus password sign-in.
// *auth.Manager implements it.
type Authenticator interface {
	auth.Provider
	SignIn(ctx context.Context, email, password string) (*auth.Session, error)
}

// Options configures NewServer.
type Options struct {
	Addr               string
	Logger             *log.Logger
	Auth               Authenticator
	API                *api.Client
	Ready              func(context.Context) error
	CookieSecure       bool
	LoginRatePerMinute int
	Heartbeat          time.Duration
	Now                func() time.Time
}

// Server renders the dashboard and proxies user actions to the backend.
type Server struct {
	http.Server
	templates    *template.Template
	logger       *log.Logger
	auth         Authenticator
	api          *api.Client
	overview     *dashboard.Loader
	ready        func(context.Context) error
	limiter      *ratelimit.Limiter
	detector     *security.Detector
	cookieSecure bool
	now          func() time.Time

	draining     chan struct{}
	drainOnce    sync.Once
	shutdownOnce sync.Once
}

var templateFuncs = template.FuncMap{
	"currency":       format.Currency,
	"signedCurrency": format.SignedCurrency,
	"date":           format.Date,
	"orPlaceholder":  format.OrPlaceholder,
}

// ParseTemplates parses the embedded page templates.
func ParseTemplates() (*template.Template, error) {
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = DefaultHeartbeat
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Ready == nil {
		opts.Ready = func(context.Context) error { return nil }
	}

	templates, err := ParseTemplates()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	s := &Server{
		templates:    templates,
		logger:       logger,
		auth:         opts.Auth,
		api:          opts.API,
		overview:     dashboard.NewLoader(opts.API),
		ready:        opts.Ready,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.LoginRatePerMinute}),
		detector:     security.NewDetector(opts.Logger),
		cookieSecure: opts.CookieSecure,
		now:          opts.Now,
		draining:     make(chan struct{}),
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.Logger, opts.Heartbeat),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	// Shutdown does not cancel request contexts; event streams watch this.
	s.Server.RegisterOnShutdown(func() { s.drainOnce.Do(func() { close(s.draining) }) })
	return s, nil
}

func (s *Server) routes(logger *log.Logger, heartbeat time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)
	r.Use(auth.CookieMiddleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Handle("/metrics", promhttp.Handler())

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssetMiddleware(time.Hour)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})

	r.Group(func(r chi.Router) {
		r.Use(security.NoStore)
		r.Get("/login", s.handleLoginPage)
		r.With(s.limiter.Middleware(s.detector.ExtractClientIP, s.handleLoginLimited)).Post("/login", s.handleLogin)
		r.Post("/logout", nav.SignOutHandler(s.auth, s.cookieSecure, logger))
	})

	gm := guard.NewMiddleware(s.auth, logger)
	r.Route("/dashboard", func(r chi.Router) {
		r.Use(security.NoStore)
		r.Use(gm.Handler)

		r.Get("/", s.handleDashboard)
		r.Get("/partials/overview", s.handleOverview)
		r.Get("/events", gm.Watch(heartbeat, s.draining))

		r.Get("/transactions", s.handleTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Put("/transactions/{id}/status", s.handleUpdateTransactionStatus)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)

		r.Get("/documents", s.handleDocuments)
		r.Post("/documents/upload", s.handleUploadDocument)
		r.Post("/documents/{id}/process", s.handleProcessDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)

		r.Get("/reports", s.handleReports)
		r.Get("/categories", s.handleCategories)
		r.Get("/settings", s.handleSettings)
	})

	return r
}

// Shutdown stops the limiter cleanup loop and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// page is the data every full page renders with.
type page struct {
	Title string
	Email string
	Nav   []nav.Link
	Data  any
}

func (s *Server) page(r *http.Request, title string, data any) page {
	p := page{Title: title, Nav: nav.Links(r.URL.Path), Data: data}
	if g, ok := guard.FromContext(r.Context()); ok {
		p.Email = g.Email()
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.renderWith(w, r, NewHTMXResponse(), name, data)
}

// renderWith executes the template into a buffer first so a failing
// template never leaves a half-written page.
func (s *Server) renderWith(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Template rendering failed",
			err, log.ComponentHTTP, log.OpRender, log.LogFields{"template": name})
		InternalServerError("Something went wrong").Write(w)
		return
	}
	b.BodyHTML(buf.Bytes()).Write(w)
}

// apiFailed reports a failed backend call. Nothing is written when the
// request was already cancelled, which is how a sign-out mid-request ends.
// Full page loads keep the nav shell around the error; htmx requests get
// the bare fragment plus a notification.
func (s *Server) apiFailed(w http.ResponseWriter, r *http.Request, what string, err error) {
	if r.Context().Err() != nil || errors.Is(err, context.Canceled) {
		return
	}

	log.FromContext(r.Context()).WarnContext(r.Context(), "Backend call failed",
		log.FieldOperation, what,
		log.FieldError, err)

	status, msg := http.StatusBadGateway, "Failed to "+what+". Please try again."
	notify := false
	switch {
	case api.IsStatus(err, http.StatusNotFound):
		status, msg, notify = http.StatusNotFound, "Not found", true
	case api.IsStatus(err, http.StatusBadRequest), api.IsStatus(err, http.StatusUnprocessableEntity):
		status, msg, notify = http.StatusBadRequest, "The request was rejected", true
		var se *api.StatusError
		if errors.As(err, &se) && se.Detail != "" {
			msg = se.Detail
		}
	}

	if r.Method == http.MethodGet && !htmx.IsRequest(r) {
		s.renderWith(w, r, NewHTMXResponse().Status(status), "error_page",
			s.page(r, pageTitle(r.URL.Path), errorPage{Message: msg}))
		return
	}

	b := ErrorResponse(status, msg)
	if notify {
		b.TriggerErrorNotification(msg)
	}
	b.Write(w)
}

type errorPage struct {
	Message string
}

// pageTitle names a protected page after its nav entry.
func pageTitle(path string) string {
	for _, item := range nav.Items() {
		if item.Href == path {
			return item.Label
		}
	}
	return "Error"
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.ready(ctx); err != nil {
		s.logger.WarnContext(ctx, "Readiness check failed", log.FieldError, err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
