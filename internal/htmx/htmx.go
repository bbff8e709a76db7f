// Package htmx holds the request and response headers of the htmx protocol.
package htmx

import "net/http"

const (
	HeaderRequest  = "HX-Request"
	HeaderRedirect = "HX-Redirect"
	HeaderTrigger  = "HX-Trigger"
	HeaderRetarget = "HX-Retarget"
	HeaderReswap   = "HX-Reswap"
)

// IsRequest reports whether r was issued by htmx.
func IsRequest(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) == "true"
}

// Redirect sends the browser to target. htmx requests get an HX-Redirect
// header so the whole page navigates instead of swapping a fragment.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if IsRequest(r) {
		w.Header().Set(HeaderRedirect, target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
