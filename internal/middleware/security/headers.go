package security

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Directive is one Content-Security-Policy entry.
type Directive struct {
	Name    string
	Sources []string
}

// HeadersConfig describes the headers sent with every response.
type HeadersConfig struct {
	CSP []Directive
	// HSTS is only sent on TLS connections; zero disables it.
	HSTS                  time.Duration
	HSTSIncludeSubdomains bool
	// Static holds headers sent verbatim.
	Static map[string]string
}

// DefaultHeadersConfig returns the headers for the dashboard pages. htmx
// is loaded from unpkg; everything else is same-origin.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: []Directive{
			{"default-src", []string{"'self'"}},
			{"script-src", []string{"'self'", "https://unpkg.com"}},
			{"style-src", []string{"'self'", "'unsafe-inline'"}},
			{"img-src", []string{"'self'", "data:"}},
			{"connect-src", []string{"'self'"}},
			{"object-src", []string{"'none'"}},
			{"frame-ancestors", []string{"'none'"}},
			{"base-uri", []string{"'self'"}},
			{"form-action", []string{"'self'"}},
		},
		HSTS:                  365 * 24 * time.Hour,
		HSTSIncludeSubdomains: true,
		Static: map[string]string{
			"X-Frame-Options":              "DENY",
			"X-Content-Type-Options":       "nosniff",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Permissions-Policy":           "geolocation=(), microphone=(), camera=(), payment=()",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
	}
}

// HeadersMiddleware applies a precomputed header set.
type HeadersMiddleware struct {
	fixed http.Header
	hsts  string
}

// NewHeadersMiddleware renders config once.
func NewHeadersMiddleware(config HeadersConfig) *HeadersMiddleware {
	fixed := make(http.Header, len(config.Static)+1)
	for name, value := range config.Static {
		if value != "" {
			fixed.Set(name, value)
		}
	}
	if len(config.CSP) > 0 {
		parts := make([]string, 0, len(config.CSP))
		for _, d := range config.CSP {
			parts = append(parts, d.Name+" "+strings.Join(d.Sources, " "))
		}
		fixed.Set("Content-Security-Policy", strings.Join(parts, "; "))
	}

	var hsts string
	if config.HSTS > 0 {
		hsts = fmt.Sprintf("max-age=%d", int64(config.HSTS.Seconds()))
		if config.HSTSIncludeSubdomains {
			hsts += "; includeSubDomains"
		}
	}

	return &HeadersMiddleware{fixed: fixed, hsts: hsts}
}

// Middleware returns the HTTP middleware function.
func (h *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for name, values := range h.fixed {
			dst[name] = values
		}
		if r.TLS != nil && h.hsts != "" {
			dst.Set("Strict-Transport-Security", h.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// NoStore marks responses as uncacheable. Protected pages depend on the
// session and must not be served from a cache after sign-out.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets browsers cache embedded assets for maxAge.
func StaticAssetMiddleware(maxAge time.Duration) func(http.Handler) http.Handler {
	value := fmt.Sprintf("public, max-age=%d", int64(maxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
