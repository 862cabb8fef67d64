package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/Jobin06/EV-Fleet-MVP/internal/auth"
	"github.com/Jobin06/EV-Fleet-MVP/pkg/logger"
)

type sessionKey struct{}

// SessionFromContext returns the session attached by RequireLogin
func SessionFromContext(ctx context.Context) (*auth.Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*auth.Session)
	return s, ok
}

// AuthHandler serves login and logout and guards every other route
// ⭐ SSOT: session cookies are read and written here only
type AuthHandler struct {
	auth         *auth.Service
	pages        *Templates
	cookieName   string
	secureCookie bool
	proxies      TrustedProxies
	logger       *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *auth.Service, pages *Templates, cookieName string, secureCookie bool, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         svc,
		pages:        pages,
		cookieName:   cookieName,
		secureCookie: secureCookie,
		logger:       log,
	}
}

// WithTrustedProxies lets the listed peers report the client address in X-Forwarded-For
func (h *AuthHandler) WithTrustedProxies(proxies TrustedProxies) *AuthHandler {
	h.proxies = proxies
	return h
}

type loginPage struct {
	pageData
	Error        string
	LastUsername string
}

// LoginPage renders the login form
// GET /login
func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session(r); err == nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	h.pages.Render(w, http.StatusOK, "login.html", loginPage{pageData: pageData{Title: "Login"}})
}

// Login checks the submitted credentials and sets the session cookie
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.pages.Render(w, http.StatusBadRequest, "login.html", loginPage{pageData: pageData{Title: "Login"}, Error: "Invalid form submission."})
		return
	}

	username := r.PostFormValue("username")
	session, err := h.auth.Login(r.Context(), clientIP(r, h.proxies), username, r.PostFormValue("password"))
	if err != nil {
		status, msg := http.StatusInternalServerError, "Login is unavailable, please try again later."
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			status, msg = http.StatusUnauthorized, "Invalid credentials. Please try again."
		case errors.Is(err, auth.ErrRateLimited):
			status, msg = http.StatusTooManyRequests, "Too many login attempts. Please wait a minute."
		default:
			h.logger.WithError(err).Error("Login failed")
		}
		h.pages.Render(w, status, "login.html", loginPage{pageData: pageData{Title: "Login"}, Error: msg, LastUsername: username})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		MaxAge:   int(h.auth.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// Logout drops the session and clears the cookie
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.cookieName); err == nil {
		if err := h.auth.Logout(r.Context(), c.Value); err != nil {
			h.logger.WithError(err).Warn("Failed to delete session")
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
	})
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) session(r *http.Request) (*auth.Session, error) {
	c, err := r.Cookie(h.cookieName)
	if err != nil {
		return nil, auth.ErrSessionNotFound
	}
	return h.auth.Session(r.Context(), c.Value)
}

// public reports whether path is reachable without a session
func public(r *http.Request) bool {
	if r.Method == http.MethodOptions {
		return true
	}
	p := r.URL.Path
	return p == "/login" || p == "/health" || strings.HasPrefix(p, "/static/")
}

// RequireLogin redirects anonymous page requests to /login and answers 401 on the API
func (h *AuthHandler) RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if public(r) {
			next.ServeHTTP(w, r)
			return
		}

		session, err := h.session(r)
		if err != nil {
			if !errors.Is(err, auth.ErrSessionNotFound) {
				h.logger.WithError(err).Error("Session lookup failed")
			}
			if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/ws/") {
				respondError(w, http.StatusUnauthorized, "login required")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}
