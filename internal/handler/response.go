package handler

// RESPONSE HELPERS:
// Every handler answers in one of three ways:
//
//	writeJSON(w, status, data)    → a page, a form or a result
//	redirect(w, r, location)      → 302 after a mutation or a gate decision
//	writeError(w, r, err)         → an apperror mapped to a status
//
// ERROR FORMAT:
// Every error body has the same shape:
//
//	{"error":"not_found","message":"user not found with id ghost","path":"/ghost/"}
//
// Validation errors also carry "fields" (field → message) and, where the
// request came from a form, the form to re-present.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/authz"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Path    string            `json:"path,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Form    *FormView         `json:"form,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// headers are already sent
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to a status code.
//
// ERROR MAPPING:
//
//	ErrValidation      → 400 validation_error (+ fields)
//	ErrUnauthenticated → 401 unauthorized
//	ErrForbidden       → 403 forbidden
//	ErrNotFound        → 404 not_found
//	ErrConflict        → 409 conflict
//	anything else      → 500 internal_error, details never leave the server
//
// Handlers that redirect anonymous or non-owner callers check for those
// cases before falling back to writeError.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorWithForm(w, r, err, nil)
}

func writeErrorWithForm(w http.ResponseWriter, r *http.Request, err error, form *FormView) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		slog.Error("unhandled error",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
			Path:    r.URL.Path,
		})
		return
	}

	status := http.StatusInternalServerError
	errorType := "internal_error"
	resp := ErrorResponse{Message: appErr.Message, Path: r.URL.Path}

	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
		errorType = "validation_error"
		resp.Fields = appErr.Fields
		if form != nil {
			form.Errors = appErr.Fields
			resp.Form = form
		}
	case errors.Is(err, apperror.ErrUnauthenticated):
		status = http.StatusUnauthorized
		errorType = "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
		errorType = "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
		errorType = "not_found"
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
		errorType = "conflict"
	}

	resp.Error = errorType
	writeJSON(w, status, resp)
}

// redirect always uses 302, like the form-driven site it mirrors.
func redirect(w http.ResponseWriter, r *http.Request, location string) {
	http.Redirect(w, r, location, http.StatusFound)
}

// divert carries out a gate decision. It returns true when the request
// was answered with a redirect and the handler must stop.
func divert(w http.ResponseWriter, r *http.Request, d authz.Decision) bool {
	if d.Allowed() {
		return false
	}
	redirect(w, r, d.Location)
	return true
}

// actor is the acting identity of the request; anonymous when no valid
// token cookie was presented.
func actor(r *http.Request) authz.Actor {
	userID, _ := auth.UserIDFromContext(r.Context())
	return authz.Actor{UserID: userID}
}

// NotFound is the router's 404 handler.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorResponse{
		Error:   "not_found",
		Message: "no page at " + r.URL.Path,
		Path:    r.URL.Path,
	})
}

// MethodNotAllowed is the router's 405 handler.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Error:   "method_not_allowed",
		Message: r.Method + " is not allowed on " + r.URL.Path,
		Path:    r.URL.Path,
	})
}

// Recoverer turns a panic into the JSON 500 body. chi's Recoverer logs the
// stack; this one answers in the same shape as every other error.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic serving request",
						slog.String("path", r.URL.Path),
						slog.Any("panic", rec),
					)
					writeJSON(w, http.StatusInternalServerError, ErrorResponse{
						Error:   "internal_error",
						Message: "An internal error occurred",
						Path:    r.URL.Path,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
