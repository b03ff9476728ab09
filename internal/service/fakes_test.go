package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// memStore is an in-memory implementation of every repository interface.
// Tests that need a failing store set one of the *Err fields.
type memStore struct {
	mu       sync.Mutex
	seq      int
	users    map[string]*model.User
	posts    map[string]*model.Post
	groups   map[string]*model.Group // keyed by slug
	comments []model.Comment
	follows  map[[2]string]time.Time

	upsertErr     error
	getByIDErr    error
	createPostErr error
	updatePostErr error
	createFollErr error
	commentErr    error
}

var (
	_ repository.UserRepository    = (*memStore)(nil)
	_ repository.PostRepository    = (*memStore)(nil)
	_ repository.GroupRepository   = (*memStore)(nil)
	_ repository.CommentRepository = (*memStore)(nil)
	_ repository.FollowRepository  = (*memStore)(nil)
)

func newMemStore() *memStore {
	return &memStore{
		users:   make(map[string]*model.User),
		posts:   make(map[string]*model.Post),
		groups:  make(map[string]*model.Group),
		follows: make(map[[2]string]time.Time),
	}
}

// nextID returns zero-padded IDs so that lexical order is creation order,
// like xid.
func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s%04d", prefix, m.seq)
}

func (m *memStore) Upsert(ctx context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	var match *model.User
	for _, existing := range m.users {
		if existing.GitHubID == user.GitHubID {
			match = existing
		}
	}
	for _, existing := range m.users {
		if existing != match && existing.Username == user.Username {
			return apperror.Conflict("user", user.Username)
		}
	}
	if match != nil {
		match.Username = user.Username
		match.Email = user.Email
		match.AvatarURL = user.AvatarURL
		match.UpdatedAt = time.Now()
		*user = *match
		return nil
	}
	user.ID = m.nextID("u")
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getByIDErr != nil {
		return nil, m.getByIDErr
	}
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (m *memStore) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", username)
}

func (m *memStore) CreatePost(ctx context.Context, post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createPostErr != nil {
		return m.createPostErr
	}
	post.ID = m.nextID("p")
	copied := *post
	m.posts[post.ID] = &copied
	return nil
}

func (m *memStore) GetPost(ctx context.Context, id string) (*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	copied := m.project(*p)
	return &copied, nil
}

func (m *memStore) UpdatePost(ctx context.Context, post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updatePostErr != nil {
		return m.updatePostErr
	}
	p, ok := m.posts[post.ID]
	if !ok {
		return apperror.NotFound("post", post.ID)
	}
	p.Text = post.Text
	p.GroupID = post.GroupID
	p.ImageRef = post.ImageRef
	return nil
}

func (m *memStore) ListPosts(ctx context.Context, filter repository.PostFilter, opts repository.ListOptions) ([]model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	matched := m.filter(filter)
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	if opts.Offset >= len(matched) {
		return []model.Post{}, nil
	}
	end := opts.Offset + opts.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[opts.Offset:end], nil
}

func (m *memStore) CountPosts(ctx context.Context, filter repository.PostFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.filter(filter)), nil
}

func (m *memStore) filter(filter repository.PostFilter) []model.Post {
	var out []model.Post
	for _, p := range m.posts {
		if filter.GroupID != "" && p.GroupID != filter.GroupID {
			continue
		}
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		if filter.FollowerID != "" {
			if _, ok := m.follows[[2]string{filter.FollowerID, p.AuthorID}]; !ok {
				continue
			}
		}
		out = append(out, m.project(*p))
	}
	return out
}

// project fills the read-only username and slug columns the real store
// joins in.
func (m *memStore) project(p model.Post) model.Post {
	if u, ok := m.users[p.AuthorID]; ok {
		p.AuthorUsername = u.Username
	}
	p.GroupSlug = ""
	for _, g := range m.groups {
		if g.ID == p.GroupID {
			p.GroupSlug = g.Slug
		}
	}
	return p
}

func (m *memStore) CreateGroup(ctx context.Context, group *model.Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.groups[group.Slug]; ok {
		return apperror.Conflict("group", group.Slug)
	}
	group.ID = m.nextID("g")
	copied := *group
	m.groups[group.Slug] = &copied
	return nil
}

func (m *memStore) GetGroupBySlug(ctx context.Context, slug string) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[slug]
	if !ok {
		return nil, apperror.NotFound("group", slug)
	}
	copied := *g
	return &copied, nil
}

func (m *memStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

func (m *memStore) DeleteGroup(ctx context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.groups[slug]
	if !ok {
		return apperror.NotFound("group", slug)
	}
	for _, p := range m.posts {
		if p.GroupID == g.ID {
			p.GroupID = ""
		}
	}
	delete(m.groups, slug)
	return nil
}

func (m *memStore) CreateComment(ctx context.Context, comment *model.Comment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.commentErr != nil {
		return m.commentErr
	}
	comment.ID = m.nextID("c")
	if u, ok := m.users[comment.AuthorID]; ok {
		comment.AuthorUsername = u.Username
	}
	m.comments = append(m.comments, *comment)
	return nil
}

func (m *memStore) ListComments(ctx context.Context, postID string) ([]model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Comment
	for i := len(m.comments) - 1; i >= 0; i-- {
		if m.comments[i].PostID == postID {
			out = append(out, m.comments[i])
		}
	}
	return out, nil
}

func (m *memStore) CreateFollow(ctx context.Context, follow *model.Follow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createFollErr != nil {
		return m.createFollErr
	}
	key := [2]string{follow.UserID, follow.AuthorID}
	if _, ok := m.follows[key]; ok {
		return apperror.Conflict("follow", follow.UserID+"->"+follow.AuthorID)
	}
	m.follows[key] = follow.CreatedAt
	return nil
}

func (m *memStore) DeleteFollow(ctx context.Context, userID, authorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{userID, authorID}
	if _, ok := m.follows[key]; !ok {
		return apperror.NotFound("follow", userID+"->"+authorID)
	}
	delete(m.follows, key)
	return nil
}

func (m *memStore) IsFollowing(ctx context.Context, userID, authorID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.follows[[2]string{userID, authorID}]
	return ok, nil
}

func (m *memStore) CountFollowers(ctx context.Context, authorID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.follows {
		if key[1] == authorID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountFollowing(ctx context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.follows {
		if key[0] == userID {
			n++
		}
	}
	return n, nil
}

// addUser registers a user directly, bypassing any service.
func (m *memStore) addUser(username string) *model.User {
	m.mu.Lock()
	gh := int64(len(m.users) + 1)
	m.mu.Unlock()
	u := &model.User{GitHubID: gh, Username: username}
	if err := m.Upsert(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

func (m *memStore) addGroup(slug string) *model.Group {
	g := &model.Group{Title: "Group " + slug, Slug: slug}
	if err := m.CreateGroup(context.Background(), g); err != nil {
		panic(err)
	}
	return g
}

// addPost stores a post by author created at base + n seconds.
func (m *memStore) addPost(author *model.User, group *model.Group, n int) *model.Post {
	p := &model.Post{
		Text:      fmt.Sprintf("post %d", n),
		AuthorID:  author.ID,
		CreatedAt: base.Add(time.Duration(n) * time.Second),
	}
	if group != nil {
		p.GroupID = group.ID
	}
	if err := m.CreatePost(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

// emptyFilter selects every post.
var emptyFilter = repository.PostFilter{}

var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// fakeImages records saved and removed refs. Content starting with
// "not an image" is rejected the way the media store rejects non-images.
type fakeImages struct {
	mu      sync.Mutex
	seq     int
	saved   map[string][]byte
	removed []string
}

func newFakeImages() *fakeImages {
	return &fakeImages{saved: make(map[string][]byte)}
}

func (f *fakeImages) Save(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if bytes.HasPrefix(data, []byte("not an image")) {
		return "", apperror.ValidationFailed("image", "upload a valid image")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ref := fmt.Sprintf("posts/img%d.png", f.seq)
	f.saved[ref] = data
	return ref, nil
}

func (f *fakeImages) Remove(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.saved[ref]; !ok {
		return errors.New("no such image")
	}
	delete(f.saved, ref)
	f.removed = append(f.removed, ref)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}
