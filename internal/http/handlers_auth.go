package http

import (
	"errors"
	"net/http"
	"strings"

	"kern/internal/auth"
	"kern/internal/htmx"
	"kern/internal/log"
)

type loginData struct {
	Email string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// Already signed in: skip the form.
	if session, err := s.auth.CurrentSession(r.Context()); err == nil && session != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login", loginData{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx).WithComponent(log.ComponentAuth)

	if err := r.ParseForm(); err != nil {
		s.renderWith(w, r, NewHTMXResponse().Status(http.StatusBadRequest), "login",
			loginData{Error: "Invalid form submission"})
		return
	}

	form := loginForm{
		Email:    strings.ToLower(FormValue(r, "email")),
		Password: r.FormValue("password"),
	}
	email := form.Email
	if errs := validateForm(form); errs != nil {
		msg := "Email and password are required"
		if form.Email != "" && form.Password != "" {
			msg = errs.First("email", "password")
		}
		s.renderWith(w, r, NewHTMXResponse().Status(http.StatusBadRequest), "login",
			loginData{Email: email, Error: msg})
		return
	}

	session, err := s.auth.SignIn(ctx, email, form.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			logger.InfoContext(ctx, "Sign-in rejected",
				log.FieldOperation, log.OpSignIn,
				log.FieldEmail, email)
			s.renderWith(w, r, NewHTMXResponse().Status(http.StatusUnauthorized), "login",
				loginData{Email: email, Error: "Invalid email or password"})
			return
		}
		logger.ErrorContext(ctx, "Sign-in failed",
			log.FieldOperation, log.OpSignIn,
			log.FieldError, err)
		s.renderWith(w, r, NewHTMXResponse().Status(http.StatusBadGateway), "login",
			loginData{Email: email, Error: "Sign-in is unavailable right now. Please try again."})
		return
	}

	http.SetCookie(w, auth.SessionCookie(session.Key, s.cookieSecure))
	htmx.Redirect(w, r, "/dashboard")
}

func (s *Server) handleLoginLimited(w http.ResponseWriter, r *http.Request) {
	s.renderWith(w, r, NewHTMXResponse().Status(http.StatusTooManyRequests), "login",
		loginData{Email: FormValue(r, "email"), Error: "Too many sign-in attempts. Please wait a moment."})
}
