// Package handler is the HTTP boundary of the blog.
//
// HANDLER RESPONSIBILITIES:
//  1. Read the acting identity (set by auth.OptionalAuth) and path values
//  2. Ask the authz gate whether to continue or redirect
//  3. Call one service method
//  4. Write JSON, a redirect, or an error
//
// Handlers hold no business rules. Services return apperror values and the
// helpers in response.go turn them into status codes.
package handler

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/yatube/internal/authz"
	"github.com/sakif/yatube/internal/service"
)

// FeedHandler serves the read-only timelines and the post detail view.
type FeedHandler struct {
	feeds  *service.FeedService
	gate   *authz.Gate
	logger *slog.Logger
}

func NewFeedHandler(feeds *service.FeedService, gate *authz.Gate, logger *slog.Logger) *FeedHandler {
	return &FeedHandler{feeds: feeds, gate: gate, logger: logger}
}

// PostDetailResponse is the detail view plus the comment form.
type PostDetailResponse struct {
	*service.PostDetail
	CommentForm *FormView `json:"commentForm"`
}

// HandleIndex serves the global timeline. HTTP: GET /?page=N
func (h *FeedHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	feed, err := h.feeds.Global(r.Context(), pageParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// HandleGroup serves one group's timeline. HTTP: GET /group/{slug}/
func (h *FeedHandler) HandleGroup(w http.ResponseWriter, r *http.Request) {
	feed, err := h.feeds.Group(r.Context(), chi.URLParam(r, "slug"), pageParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// HandleFollowFeed serves the posts of the authors the caller follows.
// Anonymous callers are sent to log in. HTTP: GET /follow/
func (h *FeedHandler) HandleFollowFeed(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if divert(w, r, h.gate.RequireLogin(a, authz.ViewFollowFeed, r.URL.RequestURI())) {
		return
	}

	feed, err := h.feeds.Following(r.Context(), a.UserID, pageParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// HandleProfile serves an author's timeline. HTTP: GET /{username}/
func (h *FeedHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	feed, err := h.feeds.Profile(r.Context(), actor(r).UserID, chi.URLParam(r, "username"), pageParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

// HandlePostDetail serves one post with its comments.
// HTTP: GET /{username}/{post_id}/
func (h *FeedHandler) HandlePostDetail(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	postID := chi.URLParam(r, "post_id")

	detail, err := h.feeds.PostDetail(r.Context(), actor(r).UserID, username, postID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PostDetailResponse{
		PostDetail: detail,
		CommentForm: &FormView{
			Action: commentURL(username, postID),
			Method: http.MethodPost,
			Values: map[string]string{"text": ""},
		},
	})
}

func pageParam(r *http.Request) int {
	return service.ParsePage(r.URL.Query().Get("page"))
}

func profileURL(username string) string {
	return "/" + url.PathEscape(username) + "/"
}

func postURL(username, postID string) string {
	return profileURL(username) + url.PathEscape(postID) + "/"
}

func editURL(username, postID string) string {
	return postURL(username, postID) + "edit"
}

func commentURL(username, postID string) string {
	return postURL(username, postID) + "comment/"
}
