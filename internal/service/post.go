package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/clock"
	"github.com/sakif/yatube/internal/metrics"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// ImageStore persists uploaded post images. Save returns an
// apperror.ErrValidation error for content that is not an image.
type ImageStore interface {
	Save(ctx context.Context, r io.Reader) (ref string, err error)
	Remove(ref string) error
}

// PostService creates and edits posts.
//
// SERVER-BOUND FIELDS:
// The author comes from the acting identity, the creation time from the
// clock and the ID from the store. PostForm has no field for any of them,
// so a client cannot smuggle them in. On edit only text, group and image
// are written back.
type PostService struct {
	posts  repository.PostRepository
	users  repository.UserRepository
	groups repository.GroupRepository
	images ImageStore
	clock  clock.Clock
	logger *slog.Logger
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	groups repository.GroupRepository,
	images ImageStore,
	clk clock.Clock,
	logger *slog.Logger,
) *PostService {
	return &PostService{
		posts:  posts,
		users:  users,
		groups: groups,
		images: images,
		clock:  clk,
		logger: logger,
	}
}

// Create validates form and stores a new post written by actorID.
// image may be nil.
func (s *PostService) Create(ctx context.Context, actorID string, form PostForm, image io.Reader) (*model.Post, error) {
	if err := requireActor(ctx, s.users, actorID, "creating a post"); err != nil {
		return nil, err
	}

	group, err := s.clean(ctx, &form)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		Text:      form.Text,
		AuthorID:  actorID,
		CreatedAt: s.clock.Now(),
	}
	if group != nil {
		post.GroupID = group.ID
		post.GroupSlug = group.Slug
	}

	if image != nil {
		ref, err := s.images.Save(ctx, image)
		if err != nil {
			return nil, err
		}
		post.ImageRef = ref
	}

	if err := s.posts.CreatePost(ctx, post); err != nil {
		s.discardImage(post.ImageRef)
		s.logger.Error("failed to create post",
			slog.String("author", actorID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating post: %w", err)
	}

	metrics.RecordMutation("post")
	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("author", actorID),
		slog.String("preview", post.Preview()),
	)
	return post, nil
}

// Get returns the post postID written by username, for the edit form.
func (s *PostService) Get(ctx context.Context, username, postID string) (*model.Post, error) {
	_, post, err := resolvePost(ctx, s.users, s.posts, username, postID)
	return post, err
}

// Update applies form to the post postID. Only its author may do so; anyone
// else gets apperror.ErrForbidden and nothing is written. image replaces
// the current image when non-nil and keeps it otherwise.
func (s *PostService) Update(ctx context.Context, actorID, postID string, form PostForm, image io.Reader) (*model.Post, error) {
	if actorID == "" {
		return nil, apperror.Unauthenticated("editing a post")
	}

	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != actorID {
		return nil, apperror.Forbidden("only the author can edit this post")
	}

	group, err := s.clean(ctx, &form)
	if err != nil {
		return nil, err
	}

	post.Text = form.Text
	post.GroupID, post.GroupSlug = "", ""
	if group != nil {
		post.GroupID = group.ID
		post.GroupSlug = group.Slug
	}

	previousImage := post.ImageRef
	if image != nil {
		ref, err := s.images.Save(ctx, image)
		if err != nil {
			return nil, err
		}
		post.ImageRef = ref
	}

	if err := s.posts.UpdatePost(ctx, post); err != nil {
		if post.ImageRef != previousImage {
			s.discardImage(post.ImageRef)
		}
		s.logger.Error("failed to update post",
			slog.String("id", postID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating post: %w", err)
	}

	if post.ImageRef != previousImage {
		s.discardImage(previousImage)
	}

	s.logger.Info("post updated",
		slog.String("id", post.ID),
		slog.String("preview", post.Preview()),
	)
	return post, nil
}

// clean normalizes and validates form and resolves its group. Every
// invalid field is reported at once; an unknown group is a field error,
// never silently dropped.
func (s *PostService) clean(ctx context.Context, form *PostForm) (*model.Group, error) {
	form.normalize()

	fields, err := fieldErrors(form)
	if err != nil {
		return nil, err
	}

	var group *model.Group
	if _, bad := fields["group"]; !bad && form.Group != "" {
		group, err = s.groups.GetGroupBySlug(ctx, form.Group)
		switch {
		case isNotFound(err):
			if fields == nil {
				fields = map[string]string{}
			}
			fields["group"] = "group " + form.Group + " does not exist"
		case err != nil:
			return nil, fmt.Errorf("resolving group %s: %w", form.Group, err)
		}
	}

	if len(fields) > 0 {
		return nil, apperror.InvalidForm(fields)
	}
	return group, nil
}

func (s *PostService) discardImage(ref string) {
	if ref == "" {
		return
	}
	if err := s.images.Remove(ref); err != nil {
		s.logger.Warn("failed to remove image", slog.String("ref", ref), slog.String("error", err.Error()))
	}
}
