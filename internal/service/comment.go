package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/yatube/internal/clock"
	"github.com/sakif/yatube/internal/metrics"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// CommentService adds comments to posts. Comments are not cached anywhere,
// so a new comment shows up in the next PostDetail.
type CommentService struct {
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	clock    clock.Clock
	logger   *slog.Logger
}

func NewCommentService(
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	clk clock.Clock,
	logger *slog.Logger,
) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		users:    users,
		clock:    clk,
		logger:   logger,
	}
}

// Create adds a comment by actorID to the post at /{username}/{postID}/.
// The post and author are taken from the URL and the identity, never from
// the form.
func (s *CommentService) Create(ctx context.Context, actorID, username, postID string, form CommentForm) (*model.Comment, error) {
	if err := requireActor(ctx, s.users, actorID, "commenting"); err != nil {
		return nil, err
	}

	_, post, err := resolvePost(ctx, s.users, s.posts, username, postID)
	if err != nil {
		return nil, err
	}

	form.normalize()
	if err := validateForm(&form); err != nil {
		return nil, err
	}

	comment := &model.Comment{
		PostID:    post.ID,
		AuthorID:  actorID,
		Text:      form.Text,
		CreatedAt: s.clock.Now(),
	}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		s.logger.Error("failed to create comment",
			slog.String("post", post.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating comment: %w", err)
	}

	metrics.RecordMutation("comment")
	s.logger.Info("comment added",
		slog.String("id", comment.ID),
		slog.String("post", post.ID),
		slog.String("preview", comment.Preview()),
	)
	return comment, nil
}
