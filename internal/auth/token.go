package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry reads the exp claim of a JWT without verifying its
// signature. Tokens are opaque to this service; the claim only decides
// when to refresh. Returns the zero time when the claim is unreadable.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// expiryOf picks the most precise expiry a grant carries.
func expiryOf(g *Grant, now time.Time) time.Time {
	switch {
	case g.ExpiresAt > 0:
		return time.Unix(g.ExpiresAt, 0)
	case g.ExpiresIn > 0:
		return now.Add(time.Duration(g.ExpiresIn) * time.Second)
	default:
		return tokenExpiry(g.AccessToken)
	}
}
