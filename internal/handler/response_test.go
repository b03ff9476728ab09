package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/authz"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"validation", apperror.ValidationFailed("text", "text is required"), http.StatusBadRequest, "validation_error"},
		{"unauthenticated", apperror.Unauthenticated("follow"), http.StatusUnauthorized, "unauthorized"},
		{"forbidden", apperror.Forbidden("not yours"), http.StatusForbidden, "forbidden"},
		{"not found", apperror.NotFound("user", "ghost"), http.StatusNotFound, "not_found"},
		{"conflict", apperror.Conflict("group", "cats"), http.StatusConflict, "conflict"},
		{"wrapped not found", fmt.Errorf("loading: %w", apperror.NotFound("post", "p1")), http.StatusNotFound, "not_found"},
		{"plain error", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/leo/p1/", nil)
			rr := httptest.NewRecorder()

			writeError(rr, req, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.Equal(t, "/leo/p1/", body.Path)
			assert.NotContains(t, body.Message, "disk on fire")
		})
	}
}

func TestWriteErrorWithForm(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/new/", nil)
	rr := httptest.NewRecorder()
	form := &FormView{Action: "/new/", Method: http.MethodPost, Values: map[string]string{"text": ""}}

	writeErrorWithForm(rr, req, apperror.InvalidForm(map[string]string{"text": "text is required"}), form)

	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.NotNil(t, body.Form)
	assert.Equal(t, "/new/", body.Form.Action)
	assert.Equal(t, "text is required", body.Form.Errors["text"])
	assert.Equal(t, "text is required", body.Fields["text"])
}

func TestDivert(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/follow/", nil)

	rr := httptest.NewRecorder()
	assert.False(t, divert(rr, req, authz.Decision{Kind: authz.Allow}))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	assert.True(t, divert(rr, req, authz.Decision{Kind: authz.RedirectLogin, Location: "/auth/login/?next=%2Ffollow%2F"}))
	assert.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, "/auth/login/?next=%2Ffollow%2F", rr.Header().Get("Location"))
}

func TestNotFound(t *testing.T) {
	rr := httptest.NewRecorder()
	NotFound(rr, httptest.NewRequest(http.MethodGet, "/no/such/page/", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "/no/such/page/", body.Path)
}

func TestRecoverer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	h := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/leo/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Error)
	assert.Equal(t, "/leo/", body.Path)
	assert.NotContains(t, rr.Body.String(), "boom")
}
