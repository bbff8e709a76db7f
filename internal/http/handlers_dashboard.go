package http

import (
	"errors"
	"net/http"

	"kern/internal/dashboard"
	"kern/internal/htmx"
	"kern/internal/log"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "dashboard_page", s.page(r, "Dashboard", nil))
}

type overviewData struct {
	Email string
	View  dashboard.View
}

// handleOverview renders the whole overview or a single failure state.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	view, err := s.overview.Load(r.Context())
	if errors.Is(err, dashboard.ErrDiscarded) {
		return
	}
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentDashboard).WarnContext(r.Context(), "Dashboard load failed",
			log.FieldOperation, log.OpFetch,
			log.FieldError, err)
		// htmx leaves the skeleton in place on 5xx, so the failure state
		// it swaps in goes out as 200.
		status := http.StatusBadGateway
		if htmx.IsRequest(r) {
			status = http.StatusOK
		}
		s.renderWith(w, r, NewHTMXResponse().Status(status), "overview_error", nil)
		return
	}

	s.render(w, r, "overview", overviewData{Email: s.page(r, "", nil).Email, View: view})
}
