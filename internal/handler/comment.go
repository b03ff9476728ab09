package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/authz"
	"github.com/sakif/yatube/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
	gate     *authz.Gate
	logger   *slog.Logger
}

func NewCommentHandler(comments *service.CommentService, gate *authz.Gate, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, gate: gate, logger: logger}
}

// HandleCreate adds a comment and redirects back to the post.
// HTTP: POST /{username}/{post_id}/comment/
func (h *CommentHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if divert(w, r, h.gate.RequireLogin(a, authz.Comment, r.URL.RequestURI())) {
		return
	}

	username := chi.URLParam(r, "username")
	postID := chi.URLParam(r, "post_id")
	form := &FormView{Action: commentURL(username, postID), Method: http.MethodPost}

	sub, err := readSubmission(w, r, "text")
	if err != nil {
		writeErrorWithForm(w, r, err, form)
		return
	}
	defer sub.Close()
	form.Values = sub.Values

	_, err = h.comments.Create(r.Context(), a.UserID, username, postID, commentFormFrom(sub))
	switch {
	case errors.Is(err, apperror.ErrUnauthenticated):
		redirect(w, r, h.gate.LoginURL(r.URL.RequestURI()))
	case err != nil:
		writeErrorWithForm(w, r, err, form)
	default:
		redirect(w, r, postURL(username, postID))
	}
}
