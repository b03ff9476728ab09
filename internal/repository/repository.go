// Package repository declares the storage contracts the service layer depends
// on. The concrete implementation lives in repository/sqlite; tests substitute
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/yatube/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// PostFilter narrows a post listing. Empty fields are ignored, so the zero
// value selects every post (the global timeline).
type PostFilter struct {
	GroupID    string // posts tagged with this group
	AuthorID   string // posts written by this user
	FollowerID string // posts by authors this user follows
}

type UserRepository interface {
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
}

// PostRepository lists posts newest first (created_at DESC, id DESC).
type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id string) (*model.Post, error)
	UpdatePost(ctx context.Context, post *model.Post) error
	ListPosts(ctx context.Context, filter PostFilter, opts ListOptions) ([]model.Post, error)
	CountPosts(ctx context.Context, filter PostFilter) (int, error)
}

type GroupRepository interface {
	CreateGroup(ctx context.Context, group *model.Group) error
	GetGroupBySlug(ctx context.Context, slug string) (*model.Group, error)
	ListGroups(ctx context.Context) ([]model.Group, error)
	DeleteGroup(ctx context.Context, slug string) error
}

type CommentRepository interface {
	CreateComment(ctx context.Context, comment *model.Comment) error
	ListComments(ctx context.Context, postID string) ([]model.Comment, error)
}

// FollowRepository stores follow edges. CreateFollow returns an
// apperror.ErrConflict error when the edge already exists and DeleteFollow
// returns apperror.ErrNotFound when it does not.
type FollowRepository interface {
	CreateFollow(ctx context.Context, follow *model.Follow) error
	DeleteFollow(ctx context.Context, userID, authorID string) error
	IsFollowing(ctx context.Context, userID, authorID string) (bool, error)
	CountFollowers(ctx context.Context, authorID string) (int, error)
	CountFollowing(ctx context.Context, userID string) (int, error)
}
