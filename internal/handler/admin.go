package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sakif/yatube/internal/auth"
	"github.com/sakif/yatube/internal/cache"
)

// AdminHandler exposes maintenance operations to operators holding the
// admin token. Only the bcrypt hash of the token is configured.
type AdminHandler struct {
	cache     *cache.PageCache
	hasher    *auth.SecretHasher
	tokenHash string
	logger    *slog.Logger
}

func NewAdminHandler(pages *cache.PageCache, hasher *auth.SecretHasher, tokenHash string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{cache: pages, hasher: hasher, tokenHash: tokenHash, logger: logger}
}

// HandleFlushCache drops the cached global timeline so the next request
// recomposes it.
//
// HTTP: POST /admin/cache/flush
// Auth: Authorization: Bearer <admin token>
func (h *AdminHandler) HandleFlushCache(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		w.Header().Set("WWW-Authenticate", `Bearer realm="yatube-admin"`)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "a valid admin token is required",
			Path:    r.URL.Path,
		})
		return
	}

	h.cache.Flush()
	h.logger.Info("page cache flushed", slog.String("remote", r.RemoteAddr))
	writeJSON(w, http.StatusOK, map[string]string{"message": "cache flushed"})
}

func (h *AdminHandler) authorized(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" || h.tokenHash == "" {
		return false
	}

	err := h.hasher.Verify(h.tokenHash, token)
	if err != nil && !errors.Is(err, auth.ErrSecretMismatch) {
		h.logger.Error("admin token hash is unusable", slog.String("error", err.Error()))
	}
	return err == nil
}
