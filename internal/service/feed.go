// Package service contains the business logic layer of the blog.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses and redirects
//	Service (Business layer) → validates, enforces rules, composes feeds
//	Repository (Data layer)  → reads/writes SQLite
//
// Services take the acting identity as a plain user ID string ("" for an
// anonymous visitor) and never see *http.Request. They return apperror
// values; the handler decides which status code or redirect each becomes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// DefaultPageSize is used when the configured page size is not positive.
const DefaultPageSize = 10

// Feed is one page of posts.
type Feed struct {
	Posts []model.Post `json:"posts"`
	Page  Page         `json:"page"`
}

// GroupFeed is a group's timeline.
type GroupFeed struct {
	Group *model.Group `json:"group"`
	Feed
}

// ProfileFeed is an author's timeline plus the viewer's relation to them.
type ProfileFeed struct {
	Author         *model.User `json:"author"`
	Following      bool        `json:"following"`
	PostCount      int         `json:"postCount"`
	FollowerCount  int         `json:"followerCount"`
	FollowingCount int         `json:"followingCount"`
	Feed
}

// PostDetail is a single post with its comments.
type PostDetail struct {
	Post            *model.Post     `json:"post"`
	Author          *model.User     `json:"author"`
	AuthorPostCount int             `json:"authorPostCount"`
	Following       bool            `json:"following"`
	Comments        []model.Comment `json:"comments"`
}

// FeedService composes the four timelines (global, group, profile and
// following) and the post detail view. It is read-only.
//
// Every timeline uses the same page size and the same order: newest first,
// ties broken by ID.
type FeedService struct {
	posts    repository.PostRepository
	groups   repository.GroupRepository
	users    repository.UserRepository
	follows  repository.FollowRepository
	comments repository.CommentRepository
	pageSize int
	logger   *slog.Logger
}

func NewFeedService(
	posts repository.PostRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	follows repository.FollowRepository,
	comments repository.CommentRepository,
	pageSize int,
	logger *slog.Logger,
) *FeedService {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return &FeedService{
		posts:    posts,
		groups:   groups,
		users:    users,
		follows:  follows,
		comments: comments,
		pageSize: pageSize,
		logger:   logger,
	}
}

// PageSize reports the number of posts per page.
func (s *FeedService) PageSize() int {
	return s.pageSize
}

// Global returns every post.
func (s *FeedService) Global(ctx context.Context, page int) (*Feed, error) {
	return s.compose(ctx, repository.PostFilter{}, page)
}

// Group returns the posts of the group with the given slug.
// Returns apperror.ErrNotFound if the slug is unknown.
func (s *FeedService) Group(ctx context.Context, slug string, page int) (*GroupFeed, error) {
	group, err := s.groups.GetGroupBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	feed, err := s.compose(ctx, repository.PostFilter{GroupID: group.ID}, page)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Feed: *feed}, nil
}

// Profile returns an author's posts, counters, and whether viewerID follows
// them. Returns apperror.ErrNotFound if the username is unknown.
func (s *FeedService) Profile(ctx context.Context, viewerID, username string, page int) (*ProfileFeed, error) {
	author, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	feed, err := s.compose(ctx, repository.PostFilter{AuthorID: author.ID}, page)
	if err != nil {
		return nil, err
	}

	following, err := isFollowing(ctx, s.follows, viewerID, author.ID)
	if err != nil {
		return nil, err
	}
	followers, err := s.follows.CountFollowers(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("counting followers of %s: %w", author.ID, err)
	}
	followingCount, err := s.follows.CountFollowing(ctx, author.ID)
	if err != nil {
		return nil, fmt.Errorf("counting follows of %s: %w", author.ID, err)
	}

	return &ProfileFeed{
		Author:         author,
		Following:      following,
		PostCount:      feed.Page.TotalCount,
		FollowerCount:  followers,
		FollowingCount: followingCount,
		Feed:           *feed,
	}, nil
}

// Following returns the posts of every author viewerID follows.
// An anonymous viewer gets apperror.ErrUnauthenticated before any query runs.
func (s *FeedService) Following(ctx context.Context, viewerID string, page int) (*Feed, error) {
	if viewerID == "" {
		return nil, apperror.Unauthenticated("following feed")
	}
	return s.compose(ctx, repository.PostFilter{FollowerID: viewerID}, page)
}

// PostDetail returns the post postID written by username together with its
// comments. A post that exists but belongs to someone else is NotFound.
func (s *FeedService) PostDetail(ctx context.Context, viewerID, username, postID string) (*PostDetail, error) {
	author, post, err := resolvePost(ctx, s.users, s.posts, username, postID)
	if err != nil {
		return nil, err
	}

	count, err := s.posts.CountPosts(ctx, repository.PostFilter{AuthorID: author.ID})
	if err != nil {
		return nil, fmt.Errorf("counting posts of %s: %w", author.ID, err)
	}
	comments, err := s.comments.ListComments(ctx, post.ID)
	if err != nil {
		return nil, fmt.Errorf("listing comments of %s: %w", post.ID, err)
	}
	following, err := isFollowing(ctx, s.follows, viewerID, author.ID)
	if err != nil {
		return nil, err
	}

	return &PostDetail{
		Post:            post,
		Author:          author,
		AuthorPostCount: count,
		Following:       following,
		Comments:        comments,
	}, nil
}

// compose counts the matching posts, clamps the requested page and loads it.
func (s *FeedService) compose(ctx context.Context, filter repository.PostFilter, requested int) (*Feed, error) {
	total, err := s.posts.CountPosts(ctx, filter)
	if err != nil {
		s.logger.Error("failed to count posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("counting posts: %w", err)
	}

	page := NewPage(requested, total, s.pageSize)

	posts, err := s.posts.ListPosts(ctx, filter, repository.ListOptions{
		Limit:  page.Size,
		Offset: page.Offset(),
	})
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	return &Feed{Posts: posts, Page: page}, nil
}

// resolvePost looks up /{username}/{postID}/: the author must exist and the
// post must belong to them. Either miss is apperror.ErrNotFound.
func resolvePost(
	ctx context.Context,
	users repository.UserRepository,
	posts repository.PostRepository,
	username, postID string,
) (*model.User, *model.Post, error) {
	author, err := users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, nil, err
	}

	post, err := posts.GetPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post.AuthorID != author.ID {
		return nil, nil, apperror.NotFound("post", postID)
	}
	return author, post, nil
}

// requireActor checks that actorID names an existing user. A signed token
// outlives a deleted account, so an unknown ID counts as no identity.
func requireActor(ctx context.Context, users repository.UserRepository, actorID, action string) error {
	if actorID == "" {
		return apperror.Unauthenticated(action)
	}
	if _, err := users.GetUserByID(ctx, actorID); err != nil {
		if isNotFound(err) {
			return apperror.Unauthenticated(action)
		}
		return err
	}
	return nil
}

// isFollowing is false for anonymous viewers and for viewers looking at
// themselves, without consulting the store.
func isFollowing(ctx context.Context, follows repository.FollowRepository, viewerID, authorID string) (bool, error) {
	if viewerID == "" || viewerID == authorID {
		return false, nil
	}
	ok, err := follows.IsFollowing(ctx, viewerID, authorID)
	if err != nil {
		return false, fmt.Errorf("checking follow %s->%s: %w", viewerID, authorID, err)
	}
	return ok, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperror.ErrNotFound)
}
