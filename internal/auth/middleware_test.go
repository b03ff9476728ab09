package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// echoIdentity writes the user ID found in the context, or "anonymous".
var echoIdentity = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if id, ok := UserIDFromContext(r.Context()); ok {
		w.Write([]byte(id))
		return
	}
	w.Write([]byte("anonymous"))
})

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("user-1")
	expired, _ := ts.GenerateWithDuration("user-1", -time.Minute)

	tests := []struct {
		name   string
		cookie string
		want   string
	}{
		{"no cookie", "", "anonymous"},
		{"valid token", valid, "user-1"},
		{"expired token", expired, "anonymous"},
		{"garbage token", "abc.def.ghi", "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: TokenCookie, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()

			OptionalAuth(ts)(echoIdentity).ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rr.Code)
			}
			if got := rr.Body.String(); got != tt.want {
				t.Errorf("identity = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Generate("user-2")

	rr := httptest.NewRecorder()
	RequireAuth(ts)(echoIdentity).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.AddCookie(&http.Cookie{Name: TokenCookie, Value: valid})
	rr = httptest.NewRecorder()
	RequireAuth(ts)(echoIdentity).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("authenticated status = %d, want 200", rr.Code)
	}
	if rr.Body.String() != "user-2" {
		t.Errorf("identity = %q, want %q", rr.Body.String(), "user-2")
	}
}
