package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/clock"
)

func newTestCommentService(store *memStore) *CommentService {
	return NewCommentService(store, store, store, clock.NewFake(base), testLogger())
}

func TestCreateComment(t *testing.T) {
	store := newMemStore()
	leo := store.addUser("leo")
	ann := store.addUser("ann")
	post := store.addPost(leo, nil, 1)
	svc := newTestCommentService(store)

	comment, err := svc.Create(context.Background(), ann.ID, "leo", post.ID, CommentForm{Text: " nice post "})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if comment.PostID != post.ID {
		t.Errorf("PostID = %q, want %q", comment.PostID, post.ID)
	}
	if comment.AuthorID != ann.ID {
		t.Errorf("AuthorID = %q, want %q", comment.AuthorID, ann.ID)
	}
	if comment.Text != "nice post" {
		t.Errorf("Text = %q, want %q", comment.Text, "nice post")
	}
	if !comment.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", comment.CreatedAt, base)
	}

	comments, _ := store.ListComments(context.Background(), post.ID)
	if len(comments) != 1 {
		t.Errorf("stored comments = %d, want 1", len(comments))
	}
}

func TestCreateComment_Errors(t *testing.T) {
	store := newMemStore()
	leo := store.addUser("leo")
	ann := store.addUser("ann")
	post := store.addPost(leo, nil, 1)
	svc := newTestCommentService(store)

	tests := []struct {
		name     string
		actorID  string
		username string
		postID   string
		text     string
		want     error
	}{
		{"anonymous", "", "leo", post.ID, "hi", apperror.ErrUnauthenticated},
		{"deleted user", "ghost-user-id", "leo", post.ID, "hi", apperror.ErrUnauthenticated},
		{"unknown post", ann.ID, "leo", "missing", "hi", apperror.ErrNotFound},
		{"wrong author in URL", ann.ID, "ann", post.ID, "hi", apperror.ErrNotFound},
		{"blank text", ann.ID, "leo", post.ID, "   ", apperror.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), tt.actorID, tt.username, tt.postID, CommentForm{Text: tt.text})
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}

	comments, _ := store.ListComments(context.Background(), post.ID)
	if len(comments) != 0 {
		t.Errorf("stored comments = %d, want 0", len(comments))
	}
}

func TestCreateComment_StoreFailure(t *testing.T) {
	store := newMemStore()
	leo := store.addUser("leo")
	post := store.addPost(leo, nil, 1)
	store.commentErr = errors.New("locked")
	svc := newTestCommentService(store)

	_, err := svc.Create(context.Background(), leo.ID, "leo", post.ID, CommentForm{Text: "hi"})
	if err == nil || errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("error = %v, want a store failure", err)
	}
}
