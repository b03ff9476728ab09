package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/clock"
	"github.com/sakif/yatube/internal/metrics"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// FollowService manages the follow graph.
//
// The operations are deliberately asymmetric:
//   - Follow is idempotent. Following yourself, or someone you already
//     follow, succeeds without writing anything.
//   - Unfollow of an edge that does not exist is apperror.ErrNotFound.
//
// Uniqueness under concurrency is the store's job (primary key on the
// edge); a Conflict from the store is treated exactly like "already
// following".
type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
	clock   clock.Clock
	logger  *slog.Logger
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, clk clock.Clock, logger *slog.Logger) *FollowService {
	return &FollowService{
		follows: follows,
		users:   users,
		clock:   clk,
		logger:  logger,
	}
}

// Follow makes actorID follow the user called username and returns that
// user.
func (s *FollowService) Follow(ctx context.Context, actorID, username string) (*model.User, error) {
	if err := requireActor(ctx, s.users, actorID, "following"); err != nil {
		return nil, err
	}

	author, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if author.ID == actorID {
		metrics.RecordFollow(metrics.FollowSelf)
		return author, nil
	}

	err = s.follows.CreateFollow(ctx, &model.Follow{
		UserID:    actorID,
		AuthorID:  author.ID,
		CreatedAt: s.clock.Now(),
	})
	switch {
	case errors.Is(err, apperror.ErrConflict):
		metrics.RecordFollow(metrics.FollowExisting)
		return author, nil
	case err != nil:
		s.logger.Error("failed to follow",
			slog.String("user", actorID),
			slog.String("author", author.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("following %s: %w", username, err)
	}

	metrics.RecordFollow(metrics.FollowCreated)
	s.logger.Info("follow created", slog.String("user", actorID), slog.String("author", author.ID))
	return author, nil
}

// Unfollow removes the edge actorID → username. A missing edge is
// apperror.ErrNotFound, not a silent success.
func (s *FollowService) Unfollow(ctx context.Context, actorID, username string) (*model.User, error) {
	if err := requireActor(ctx, s.users, actorID, "unfollowing"); err != nil {
		return nil, err
	}

	author, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := s.follows.DeleteFollow(ctx, actorID, author.ID); err != nil {
		if isNotFound(err) {
			metrics.RecordFollow(metrics.FollowNoSuchEdge)
			return nil, err
		}
		s.logger.Error("failed to unfollow",
			slog.String("user", actorID),
			slog.String("author", author.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("unfollowing %s: %w", username, err)
	}

	metrics.RecordFollow(metrics.FollowRemoved)
	s.logger.Info("unfollow", slog.String("user", actorID), slog.String("author", author.ID))
	return author, nil
}

// IsFollowing reports whether viewerID follows authorID. Always false for
// an anonymous viewer or when viewer and author are the same user.
func (s *FollowService) IsFollowing(ctx context.Context, viewerID, authorID string) (bool, error) {
	return isFollowing(ctx, s.follows, viewerID, authorID)
}
