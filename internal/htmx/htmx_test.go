package htmx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedirect(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	w := httptest.NewRecorder()
	Redirect(w, r, "/login")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	r.Header.Set(HeaderRequest, "true")
	w = httptest.NewRecorder()
	Redirect(w, r, "/login")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/login", w.Header().Get(HeaderRedirect))
	assert.Empty(t, w.Header().Get("Location"))
}
