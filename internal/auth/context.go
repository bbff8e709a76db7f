package auth

import (
	"context"
	"net/http"
	"time"
)

type sessionKeyCtx struct{}

// CookieName carries the opaque session key in the browser.
const CookieName = "kern_session"

// WithSessionKey returns a copy of ctx carrying the browser session key.
func WithSessionKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, sessionKeyCtx{}, key)
}

// SessionKeyFrom returns the session key carried by ctx, if any.
func SessionKeyFrom(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(sessionKeyCtx{}).(string)
	return key, ok && key != ""
}

// SessionCookie builds the cookie that binds a browser to key.
func SessionCookie(key string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    key,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearedCookie expires the session cookie.
func ClearedCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// CookieMiddleware copies the session cookie into the request context.
func CookieMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
			r = r.WithContext(WithSessionKey(r.Context(), c.Value))
		}
		next.ServeHTTP(w, r)
	})
}
