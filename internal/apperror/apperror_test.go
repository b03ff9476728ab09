// Each constructor must wrap exactly one sentinel: the handler boundary
// picks the status code with errors.Is, so a constructor that matched two
// sentinels (or none) would change what the visitor sees.
package apperror

import (
	"errors"
	"fmt"
	"testing"
)

var sentinels = map[string]error{
	"ErrNotFound":        ErrNotFound,
	"ErrValidation":      ErrValidation,
	"ErrConflict":        ErrConflict,
	"ErrForbidden":       ErrForbidden,
	"ErrUnauthenticated": ErrUnauthenticated,
}

func TestConstructorsWrapOneSentinel(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string // key in sentinels
	}{
		{"unknown username", NotFound("user", "ghost"), "ErrNotFound"},
		{"unknown post", NotFound("post", "p1"), "ErrNotFound"},
		{"missing follow edge", NotFound("follow", "leo->bob"), "ErrNotFound"},
		{"empty text", ValidationFailed("text", "text is required"), "ErrValidation"},
		{"several fields", InvalidForm(map[string]string{"text": "required", "group": "unknown"}), "ErrValidation"},
		{"slug taken", Conflict("group", "cats"), "ErrConflict"},
		{"edit by non-author", Forbidden("only the author may edit this post"), "ErrForbidden"},
		{"anonymous follow", Unauthenticated("following"), "ErrUnauthenticated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for name, sentinel := range sentinels {
				got := errors.Is(tt.err, sentinel)
				if got != (name == tt.want) {
					t.Errorf("errors.Is(err, %s) = %v", name, got)
				}
			}
		})
	}
}

func TestMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("service: loading profile: %w", NotFound("user", "ghost"))

	if !errors.Is(err, ErrNotFound) {
		t.Fatal("wrapped NotFound should still match ErrNotFound")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Fatal("errors.As should find the *AppError")
	}
	if appErr.Message != "user not found with id ghost" {
		t.Errorf("Message = %q", appErr.Message)
	}
}

func TestMessages(t *testing.T) {
	tests := []struct {
		err  *AppError
		want string
	}{
		{NotFound("post", "p1"), "post not found with id p1"},
		{Conflict("group", "cats"), "group conflict with id cats"},
		{Unauthenticated("commenting"), "commenting requires an authenticated user"},
		{ValidationFailed("image", "upload a valid image"), "upload a valid image"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestValidationFields(t *testing.T) {
	single := ValidationFailed("text", "text is required")
	if single.Field != "text" || single.Fields["text"] != "text is required" {
		t.Errorf("ValidationFailed fields = %q / %v", single.Field, single.Fields)
	}

	multi := InvalidForm(map[string]string{"text": "text is required", "group": "group cats does not exist"})
	if multi.Field != "group" {
		t.Errorf("InvalidForm Field = %q, want the alphabetically first field %q", multi.Field, "group")
	}
	if len(multi.Fields) != 2 {
		t.Errorf("InvalidForm Fields = %v, want 2 entries", multi.Fields)
	}
}
