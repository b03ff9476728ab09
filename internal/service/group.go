package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// GroupService administers groups. Groups are created and removed from the
// command line; the web surface only lists them.
type GroupService struct {
	groups repository.GroupRepository
	logger *slog.Logger
}

func NewGroupService(groups repository.GroupRepository, logger *slog.Logger) *GroupService {
	return &GroupService{groups: groups, logger: logger}
}

// Create validates form and stores a new group. A taken slug is
// apperror.ErrConflict.
func (s *GroupService) Create(ctx context.Context, form GroupForm) (*model.Group, error) {
	form.normalize()
	if err := validateForm(&form); err != nil {
		return nil, err
	}

	group := &model.Group{
		Title:       form.Title,
		Slug:        form.Slug,
		Description: form.Description,
	}
	if err := s.groups.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	s.logger.Info("group created", slog.String("slug", group.Slug))
	return group, nil
}

func (s *GroupService) List(ctx context.Context) ([]model.Group, error) {
	groups, err := s.groups.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	return groups, nil
}

// Delete removes a group; its posts stay, untagged.
func (s *GroupService) Delete(ctx context.Context, slug string) error {
	if err := s.groups.DeleteGroup(ctx, slug); err != nil {
		return err
	}
	s.logger.Info("group deleted", slog.String("slug", slug))
	return nil
}
