// Package nav is the navigation shell of the protected area.
package nav

import (
	"net/http"

	"kern/internal/auth"
	"kern/internal/htmx"
	"kern/internal/log"
)

// Item is one navigation entry.
type Item struct {
	Href  string
	Label string
	Icon  string
}

var items = []Item{
	{Href: "/dashboard", Label: "Dashboard", Icon: "home"},
	{Href: "/dashboard/transactions", Label: "Transactions", Icon: "receipt"},
	{Href: "/dashboard/documents", Label: "Documents", Icon: "file"},
	{Href: "/dashboard/reports", Label: "Reports", Icon: "chart"},
	{Href: "/dashboard/categories", Label: "Categories", Icon: "tag"},
	{Href: "/dashboard/settings", Label: "Settings", Icon: "gear"},
}

// Items returns the fixed, ordered entries.
func Items() []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Active reports whether item is the current route. Only an exact path
// match counts; "/dashboard" is not active on "/dashboard/reports".
func Active(current string, item Item) bool {
	return current == item.Href
}

// Link is an Item with its highlight resolved for rendering.
type Link struct {
	Item
	Active bool
}

// Links resolves every entry against the current path.
func Links(current string) []Link {
	out := make([]Link, 0, len(items))
	for _, it := range items {
		out = append(out, Link{Item: it, Active: Active(current, it)})
	}
	return out
}

// SignOutHandler ends the session and always lands on the login page,
// whether or not the provider confirmed the sign-out.
func SignOutHandler(provider auth.Provider, secureCookie bool, logger *log.Logger) http.HandlerFunc {
	logger = logger.WithComponent(log.ComponentNav)
	return func(w http.ResponseWriter, r *http.Request) {
		if err := provider.SignOut(r.Context()); err != nil {
			logger.WarnContext(r.Context(), "Sign-out failed, clearing local session anyway",
				log.FieldOperation, log.OpSignOut,
				log.FieldError, err)
		}
		http.SetCookie(w, auth.ClearedCookie(secureCookie))
		htmx.Redirect(w, r, "/login")
	}
}
