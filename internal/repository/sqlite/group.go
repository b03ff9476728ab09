package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

var _ repository.GroupRepository = (*DB)(nil)

// CreateGroup inserts a group. A duplicate slug is reported as
// apperror.ErrConflict.
func (db *DB) CreateGroup(ctx context.Context, group *model.Group) error {
	group.ID = xid.New().String()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO blog_groups (id, title, slug, description) VALUES (?, ?, ?, ?)`,
		group.ID,
		group.Title,
		group.Slug,
		group.Description,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("group", group.Slug)
		}
		return fmt.Errorf("sqlite: creating group %s: %w", group.Slug, err)
	}
	return nil
}

func (db *DB) GetGroupBySlug(ctx context.Context, slug string) (*model.Group, error) {
	var g model.Group
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, slug, description FROM blog_groups WHERE slug = ?`, slug,
	).Scan(&g.ID, &g.Title, &g.Slug, &g.Description)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("group", slug)
		}
		return nil, fmt.Errorf("sqlite: getting group %s: %w", slug, err)
	}
	return &g, nil
}

// ListGroups returns every group ordered by title, for form choices.
func (db *DB) ListGroups(ctx context.Context) ([]model.Group, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, slug, description FROM blog_groups ORDER BY title, slug`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing groups: %w", err)
	}
	defer rows.Close()

	groups := make([]model.Group, 0)
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.ID, &g.Title, &g.Slug, &g.Description); err != nil {
			return nil, fmt.Errorf("sqlite: scanning group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating groups: %w", err)
	}
	return groups, nil
}

// DeleteGroup removes a group. Posts tagged with it survive with their
// group cleared (ON DELETE SET NULL).
func (db *DB) DeleteGroup(ctx context.Context, slug string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM blog_groups WHERE slug = ?`, slug)
	if err != nil {
		return fmt.Errorf("sqlite: deleting group %s: %w", slug, err)
	}

	n, err := rowsAffected(result)
	if err != nil {
		return err
	}
	if n == 0 {
		return apperror.NotFound("group", slug)
	}
	return nil
}
