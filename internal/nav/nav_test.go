package nav

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"kern/internal/auth"
	"kern/internal/htmx"
	"kern/internal/log"
)

func TestItemsOrder(t *testing.T) {
	var labels []string
	for _, it := range Items() {
		labels = append(labels, it.Label)
	}
	assert.Equal(t, []string{"Dashboard", "Transactions", "Documents", "Reports", "Categories", "Settings"}, labels)

	got := Items()
	got[0].Label = "changed"
	assert.Equal(t, "Dashboard", Items()[0].Label)
}

func TestActiveExactMatchOnly(t *testing.T) {
	dash := Item{Href: "/dashboard"}
	assert.True(t, Active("/dashboard", dash))
	assert.False(t, Active("/dashboard/reports", dash))
	assert.False(t, Active("/dashboard/", dash))

	var active []string
	for _, l := range Links("/dashboard/reports") {
		if l.Active {
			active = append(active, l.Href)
		}
	}
	assert.Equal(t, []string{"/dashboard/reports"}, active)

	for _, l := range Links("/dashboard/reports/2024") {
		assert.False(t, l.Active)
	}
}

type stubProvider struct {
	err    error
	called bool
}

func (s *stubProvider) CurrentSession(context.Context) (*auth.Session, error) { return nil, nil }

func (s *stubProvider) OnSessionChange(context.Context, func(auth.Event)) auth.Subscription {
	return nil
}

func (s *stubProvider) SignOut(context.Context) error {
	s.called = true
	return s.err
}

func TestSignOutHandlerAlwaysRedirects(t *testing.T) {
	for name, err := range map[string]error{"success": nil, "remote failure": errors.New("provider down")} {
		t.Run(name, func(t *testing.T) {
			p := &stubProvider{err: err}
			w := httptest.NewRecorder()
			SignOutHandler(p, false, log.Discard()).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/logout", nil))

			assert.True(t, p.called)
			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, "/login", w.Header().Get("Location"))

			cookies := w.Result().Cookies()
			if assert.Len(t, cookies, 1) {
				assert.Equal(t, auth.CookieName, cookies[0].Name)
				assert.Equal(t, -1, cookies[0].MaxAge)
			}
		})
	}
}

func TestSignOutHandlerHTMX(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/logout", nil)
	r.Header.Set(htmx.HeaderRequest, "true")
	w := httptest.NewRecorder()
	SignOutHandler(&stubProvider{}, false, log.Discard()).ServeHTTP(w, r)
	assert.Equal(t, "/login", w.Header().Get(htmx.HeaderRedirect))
}
