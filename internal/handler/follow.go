package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/authz"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/service"
)

// FollowHandler subscribes and unsubscribes the caller. Both endpoints are
// GETs that redirect back to the author's profile.
type FollowHandler struct {
	follows *service.FollowService
	gate    *authz.Gate
	logger  *slog.Logger
}

func NewFollowHandler(follows *service.FollowService, gate *authz.Gate, logger *slog.Logger) *FollowHandler {
	return &FollowHandler{follows: follows, gate: gate, logger: logger}
}

// HandleFollow: GET /{username}/follow/
// Following yourself or someone already followed still redirects.
func (h *FollowHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if divert(w, r, h.gate.RequireLogin(a, authz.Follow, r.URL.RequestURI())) {
		return
	}

	author, err := h.follows.Follow(r.Context(), a.UserID, chi.URLParam(r, "username"))
	h.finish(w, r, author, err)
}

// HandleUnfollow: GET /{username}/unfollow/
// Unfollowing someone you do not follow is a 404.
func (h *FollowHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if divert(w, r, h.gate.RequireLogin(a, authz.Unfollow, r.URL.RequestURI())) {
		return
	}

	author, err := h.follows.Unfollow(r.Context(), a.UserID, chi.URLParam(r, "username"))
	h.finish(w, r, author, err)
}

// finish redirects back to the profile. A token whose user no longer exists
// is treated like no token and sent to login.
func (h *FollowHandler) finish(w http.ResponseWriter, r *http.Request, author *model.User, err error) {
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		redirect(w, r, h.gate.LoginURL(r.URL.RequestURI()))
	case err != nil:
		writeError(w, r, err)
	default:
		redirect(w, r, profileURL(author.Username))
	}
}
