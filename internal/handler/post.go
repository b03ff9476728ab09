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

// PostHandler serves the new-post and edit-post forms.
type PostHandler struct {
	posts  *service.PostService
	groups *service.GroupService
	gate   *authz.Gate
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, groups *service.GroupService, gate *authz.Gate, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, groups: groups, gate: gate, logger: logger}
}

// HandleNewForm returns the empty post form. HTTP: GET /new/
func (h *PostHandler) HandleNewForm(w http.ResponseWriter, r *http.Request) {
	if divert(w, r, h.gate.RequireLogin(actor(r), authz.CreatePost, r.URL.RequestURI())) {
		return
	}

	form, err := h.form(r, "/new/", false, map[string]string{"text": "", "group": ""})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// HandleCreate stores a new post and redirects to the global timeline.
// Invalid input is answered with 400 and the form to re-present.
// HTTP: POST /new/
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	a := actor(r)
	if divert(w, r, h.gate.RequireLogin(a, authz.CreatePost, r.URL.RequestURI())) {
		return
	}

	sub, err := readSubmission(w, r, "text", "group")
	if err != nil {
		h.formError(w, r, err, "/new/", false, nil)
		return
	}
	defer sub.Close()

	if _, err := h.posts.Create(r.Context(), a.UserID, postFormFrom(sub), sub.Image); err != nil {
		h.formError(w, r, err, "/new/", false, sub.Values)
		return
	}
	redirect(w, r, "/")
}

// HandleEditForm returns the post form filled with the current values.
// HTTP: GET /{username}/{post_id}/edit
func (h *PostHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	post, ok := h.editable(w, r)
	if !ok {
		return
	}

	action := editURL(post.AuthorUsername, post.ID)
	form, err := h.form(r, action, true, map[string]string{
		"text":  post.Text,
		"group": post.GroupSlug,
		"image": post.ImageRef,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, form)
}

// HandleUpdate applies the edit and redirects to the post.
// HTTP: POST /{username}/{post_id}/edit
func (h *PostHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	post, ok := h.editable(w, r)
	if !ok {
		return
	}
	detail := postURL(post.AuthorUsername, post.ID)
	action := editURL(post.AuthorUsername, post.ID)

	sub, err := readSubmission(w, r, "text", "group")
	if err != nil {
		h.formError(w, r, err, action, true, nil)
		return
	}
	defer sub.Close()

	_, err = h.posts.Update(r.Context(), actor(r).UserID, post.ID, postFormFrom(sub), sub.Image)
	switch {
	case errors.Is(err, apperror.ErrForbidden):
		// ownership changed hands between the gate and the write; treat
		// it like any other non-owner
		redirect(w, r, detail)
	case err != nil:
		h.formError(w, r, err, action, true, sub.Values)
	default:
		redirect(w, r, detail)
	}
}

// editable runs the edit gate:
//
//	anonymous            → login, next = this URL
//	no such post         → 404
//	signed in, not owner → post detail
//
// It returns the post when the caller may edit it.
func (h *PostHandler) editable(w http.ResponseWriter, r *http.Request) (*model.Post, bool) {
	a := actor(r)
	if divert(w, r, h.gate.RequireLogin(a, authz.EditPost, r.URL.RequestURI())) {
		return nil, false
	}

	username := chi.URLParam(r, "username")
	postID := chi.URLParam(r, "post_id")

	post, err := h.posts.Get(r.Context(), username, postID)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}

	d := h.gate.CanEditPost(a, authz.Resource{OwnerID: post.AuthorID}, r.URL.RequestURI(), postURL(username, postID))
	if divert(w, r, d) {
		return nil, false
	}
	return post, true
}

func (h *PostHandler) form(r *http.Request, action string, isEdit bool, values map[string]string) (*FormView, error) {
	groups, err := h.groups.List(r.Context())
	if err != nil {
		return nil, err
	}
	return &FormView{
		Action: action,
		Method: http.MethodPost,
		IsEdit: isEdit,
		Values: values,
		Groups: groups,
	}, nil
}

// formError answers a failed submission. Validation failures re-present
// the form with what the client sent; an expired session goes to login.
func (h *PostHandler) formError(w http.ResponseWriter, r *http.Request, err error, action string, isEdit bool, values map[string]string) {
	if errors.Is(err, apperror.ErrUnauthenticated) {
		redirect(w, r, h.gate.LoginURL(r.URL.RequestURI()))
		return
	}
	if !errors.Is(err, apperror.ErrValidation) {
		writeError(w, r, err)
		return
	}

	if values == nil {
		values = map[string]string{}
	}
	form, ferr := h.form(r, action, isEdit, values)
	if ferr != nil {
		writeError(w, r, ferr)
		return
	}
	writeErrorWithForm(w, r, err, form)
}
