package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/service"
)

const (
	stateCookie = "oauth_state"
	nextCookie  = "login_next"
	loginWindow = 10 * time.Minute
)

// OAuthProvider is the external login. *auth.GitHubProvider implements it;
// tests substitute a fake.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages the GitHub login round trip.
//
// HANDLER RESPONSIBILITIES:
//   - HandleLogin          → remember ?next=, redirect to GitHub
//   - HandleGitHubCallback → check state, upsert the user, set the token
//     cookie, go back to next
//   - HandleLogout         → clear the token cookie
//   - HandleMe             → the signed-in user's profile
type AuthHandler struct {
	provider OAuthProvider
	auth     *service.AuthService
	tokenTTL time.Duration
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. provider may be nil when no OAuth
// app is configured; login then answers 503.
func NewAuthHandler(provider OAuthProvider, authSvc *service.AuthService, tokenTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		provider: provider,
		auth:     authSvc,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// HandleLogin starts the login.
//
// HTTP: GET /auth/login/?next=/follow/
//
// CSRF PROTECTION VIA STATE:
// A random state goes into a short-lived HttpOnly cookie and into the
// GitHub URL; the callback only proceeds when both match. next travels the
// same way, and only local paths survive auth.SafeNext.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "login_unavailable",
			Message: "no login provider is configured",
			Path:    r.URL.Path,
		})
		return
	}

	state := auth.NewState()
	next := auth.SafeNext(r.URL.Query().Get("next"), "/")

	setShortCookie(w, stateCookie, state)
	setShortCookie(w, nextCookie, next)

	redirect(w, r, h.provider.AuthURL(state))
}

// HandleGitHubCallback completes the login.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		NotFound(w, r)
		return
	}

	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || r.URL.Query().Get("state") != state.Value {
		h.logger.Warn("auth callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_state",
			Message: "invalid OAuth state",
			Path:    r.URL.Path,
		})
		return
	}
	clearCookie(w, stateCookie)

	next := "/"
	if c, err := r.Cookie(nextCookie); err == nil {
		next = auth.SafeNext(c.Value, "/")
	}
	clearCookie(w, nextCookie)

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		redirect(w, r, "/")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "missing OAuth code",
			Path:    r.URL.Path,
		})
		return
	}

	ghUser, err := h.provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		writeError(w, r, err)
		return
	}

	session, err := h.auth.SignInWithGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		writeError(w, r, err)
		return
	}

	// Secure should be set when served over HTTPS.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    session.Token,
		Path:     "/",
		MaxAge:   int(h.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	redirect(w, r, next)
}

// HandleLogout clears the token cookie. The token itself stays valid until
// it expires; without the cookie the browser no longer sends it.
//
// HTTP: POST /auth/logout/
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /auth/me (behind auth.RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.auth.CurrentUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func setShortCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(loginWindow.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:   name,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
}
