package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rs/xid"
	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

var _ repository.PostRepository = (*DB)(nil)

// postSelect joins the author and group so that every post read carries
// AuthorUsername and GroupSlug.
const postSelect = `
	SELECT p.id, p.text, p.created_at, p.author_id, u.username,
	       COALESCE(p.group_id, ''), COALESCE(g.slug, ''), p.image_ref
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN blog_groups g ON g.id = p.group_id`

// CreatePost inserts a post. ID is generated here; CreatedAt is kept if the
// caller already stamped it, otherwise it is set to the current time.
func (db *DB) CreatePost(ctx context.Context, post *model.Post) error {
	post.ID = xid.New().String()
	post.CreatedAt = stamp(post.CreatedAt)

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO posts (id, text, created_at, author_id, group_id, image_ref)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.Text,
		toUnix(post.CreatedAt),
		post.AuthorID,
		nullString(post.GroupID),
		post.ImageRef,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperror.NotFound("post author or group", post.AuthorID)
		}
		return fmt.Errorf("sqlite: creating post: %w", err)
	}
	return nil
}

// GetPost retrieves a single post by ID.
func (db *DB) GetPost(ctx context.Context, id string) (*model.Post, error) {
	row := db.conn.QueryRowContext(ctx, postSelect+` WHERE p.id = ?`, id)

	var p model.Post
	var createdAt int64
	err := row.Scan(
		&p.ID, &p.Text, &createdAt, &p.AuthorID, &p.AuthorUsername,
		&p.GroupID, &p.GroupSlug, &p.ImageRef,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlite: getting post %s: %w", id, err)
	}
	p.CreatedAt = fromUnix(createdAt)
	return &p, nil
}

// UpdatePost writes the mutable fields of a post: text, group and image.
// ID, author and creation time are never part of the UPDATE.
func (db *DB) UpdatePost(ctx context.Context, post *model.Post) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE posts SET text = ?, group_id = ?, image_ref = ? WHERE id = ?`,
		post.Text,
		nullString(post.GroupID),
		post.ImageRef,
		post.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating post %s: %w", post.ID, err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("post", post.ID)
	}
	return nil
}

// ListPosts returns one page of posts matching filter, newest first with
// ties broken by ID.
func (db *DB) ListPosts(ctx context.Context, filter repository.PostFilter, opts repository.ListOptions) ([]model.Post, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	where, args := postWhere(filter)
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx,
		postSelect+where+` ORDER BY p.created_at DESC, p.id DESC LIMIT ? OFFSET ?`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		var p model.Post
		var createdAt int64
		if err := rows.Scan(
			&p.ID, &p.Text, &createdAt, &p.AuthorID, &p.AuthorUsername,
			&p.GroupID, &p.GroupSlug, &p.ImageRef,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning post row: %w", err)
		}
		p.CreatedAt = fromUnix(createdAt)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating posts: %w", err)
	}

	return posts, nil
}

// CountPosts returns how many posts match filter.
func (db *DB) CountPosts(ctx context.Context, filter repository.PostFilter) (int, error) {
	where, args := postWhere(filter)

	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM posts p`+where, args...,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting posts: %w", err)
	}
	return n, nil
}

// postWhere builds the WHERE clause for a filter. Only fixed SQL fragments
// are concatenated; values always travel as ? arguments.
func postWhere(filter repository.PostFilter) (string, []any) {
	var conds []string
	var args []any

	if filter.GroupID != "" {
		conds = append(conds, "p.group_id = ?")
		args = append(args, filter.GroupID)
	}
	if filter.AuthorID != "" {
		conds = append(conds, "p.author_id = ?")
		args = append(args, filter.AuthorID)
	}
	if filter.FollowerID != "" {
		conds = append(conds, "p.author_id IN (SELECT author_id FROM follows WHERE user_id = ?)")
		args = append(args, filter.FollowerID)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
