package sqlite

import (
	"context"
	"fmt"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

var _ repository.FollowRepository = (*DB)(nil)

// CreateFollow inserts the edge (follow.UserID, follow.AuthorID).
//
// Uniqueness is enforced by the table's primary key, not by a SELECT before
// the INSERT, so concurrent requests cannot both succeed. The losing INSERT
// comes back as apperror.ErrConflict. An edge naming a user that no longer
// exists is apperror.ErrNotFound.
func (db *DB) CreateFollow(ctx context.Context, follow *model.Follow) error {
	follow.CreatedAt = stamp(follow.CreatedAt)

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO follows (user_id, author_id, created_at) VALUES (?, ?, ?)`,
		follow.UserID,
		follow.AuthorID,
		toUnix(follow.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("follow", follow.UserID+"->"+follow.AuthorID)
		}
		if isForeignKeyViolation(err) {
			return apperror.NotFound("user", follow.UserID+" or "+follow.AuthorID)
		}
		return fmt.Errorf("sqlite: creating follow %s->%s: %w", follow.UserID, follow.AuthorID, err)
	}
	return nil
}

// DeleteFollow removes the edge. A missing edge is apperror.ErrNotFound.
func (db *DB) DeleteFollow(ctx context.Context, userID, authorID string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM follows WHERE user_id = ? AND author_id = ?`, userID, authorID)
	if err != nil {
		return fmt.Errorf("sqlite: deleting follow %s->%s: %w", userID, authorID, err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("follow", userID+"->"+authorID)
	}
	return nil
}

func (db *DB) IsFollowing(ctx context.Context, userID, authorID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM follows WHERE user_id = ? AND author_id = ?)`,
		userID, authorID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking follow %s->%s: %w", userID, authorID, err)
	}
	return exists, nil
}

func (db *DB) CountFollowers(ctx context.Context, authorID string) (int, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM follows WHERE author_id = ?`, authorID)
}

func (db *DB) CountFollowing(ctx context.Context, userID string) (int, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM follows WHERE user_id = ?`, userID)
}

func (db *DB) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite: counting follows: %w", err)
	}
	return n, nil
}
