package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sakif/yatube/internal/apperror"
	"github.com/sakif/yatube/internal/model"
	"github.com/sakif/yatube/internal/repository"
)

// newTestDB returns a fresh in-memory database with the full schema.
// Each test gets its own database; t.Cleanup closes it.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// newMockDB wraps a go-sqlmock connection so driver failures can be
// simulated without touching SQLite.
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &DB{conn: conn}, mock
}

var nextGitHubID int64 = 1000

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	nextGitHubID++
	user := &model.User{
		GitHubID: nextGitHubID,
		Username: username,
		Email:    username + "@example.com",
	}
	if err := db.Upsert(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func createTestGroup(t *testing.T, db *DB, slug string) *model.Group {
	t.Helper()
	group := &model.Group{Title: "Group " + slug, Slug: slug, Description: "about " + slug}
	if err := db.CreateGroup(context.Background(), group); err != nil {
		t.Fatalf("failed to create test group: %v", err)
	}
	return group
}

// base is the creation time of the first post made by createTestPost;
// each later post is one second newer.
var base = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func createTestPost(t *testing.T, db *DB, author *model.User, group *model.Group, n int) *model.Post {
	t.Helper()
	post := &model.Post{
		Text:      fmt.Sprintf("post %d by %s", n, author.Username),
		AuthorID:  author.ID,
		CreatedAt: base.Add(time.Duration(n) * time.Second),
	}
	if group != nil {
		post.GroupID = group.ID
	}
	if err := db.CreatePost(context.Background(), post); err != nil {
		t.Fatalf("failed to create test post: %v", err)
	}
	return post
}

// =========================================================================
// SCHEMA / LIFECYCLE TESTS
// =========================================================================

func TestNew_MigrationsAreIdempotent(t *testing.T) {
	db := newTestDB(t)
	if err := db.migrate(); err != nil {
		t.Fatalf("second migrate() error = %v", err)
	}
}

func TestCascade_DeletingAuthorRemovesPostsCommentsAndEdges(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	reader := createTestUser(t, db, "reader")
	post := createTestPost(t, db, author, nil, 1)
	readerPost := createTestPost(t, db, reader, nil, 2)

	if err := db.CreateComment(ctx, &model.Comment{PostID: readerPost.ID, AuthorID: author.ID, Text: "hi"}); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}
	if err := db.CreateFollow(ctx, &model.Follow{UserID: reader.ID, AuthorID: author.ID}); err != nil {
		t.Fatalf("CreateFollow() error = %v", err)
	}

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, author.ID); err != nil {
		t.Fatalf("deleting author: %v", err)
	}

	if _, err := db.GetPost(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetPost() after author delete error = %v, want ErrNotFound", err)
	}
	comments, err := db.ListComments(ctx, readerPost.ID)
	if err != nil {
		t.Fatalf("ListComments() error = %v", err)
	}
	if len(comments) != 0 {
		t.Errorf("len(comments) = %d, want 0", len(comments))
	}
	following, err := db.CountFollowing(ctx, reader.ID)
	if err != nil {
		t.Fatalf("CountFollowing() error = %v", err)
	}
	if following != 0 {
		t.Errorf("CountFollowing() = %d, want 0", following)
	}
}

func TestCascade_DeletingPostRemovesComments(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	post := createTestPost(t, db, author, nil, 1)
	if err := db.CreateComment(ctx, &model.Comment{PostID: post.ID, AuthorID: author.ID, Text: "first"}); err != nil {
		t.Fatalf("CreateComment() error = %v", err)
	}

	if _, err := db.conn.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, post.ID); err != nil {
		t.Fatalf("deleting post: %v", err)
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM comments`).Scan(&n); err != nil {
		t.Fatalf("counting comments: %v", err)
	}
	if n != 0 {
		t.Errorf("comments after post delete = %d, want 0", n)
	}
}

func TestCascade_DeletingGroupKeepsPosts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	author := createTestUser(t, db, "author")
	group := createTestGroup(t, db, "cats")
	post := createTestPost(t, db, author, group, 1)

	if err := db.DeleteGroup(ctx, "cats"); err != nil {
		t.Fatalf("DeleteGroup() error = %v", err)
	}

	found, err := db.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost() error = %v", err)
	}
	if found.GroupID != "" {
		t.Errorf("GroupID = %q, want empty", found.GroupID)
	}
	if found.GroupSlug != "" {
		t.Errorf("GroupSlug = %q, want empty", found.GroupSlug)
	}
}

// =========================================================================
// DRIVER FAILURE TESTS (sqlmock)
// =========================================================================

func TestListPosts_QueryError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(".*").WillReturnError(errors.New("disk I/O error"))

	_, err := db.ListPosts(context.Background(), repository.PostFilter{}, repository.ListOptions{Limit: 10})
	if err == nil {
		t.Fatal("ListPosts() should propagate driver errors")
	}
	if errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("driver error must not look like NotFound: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateFollow_ExecErrorIsNotConflict(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("INSERT INTO follows").WillReturnError(errors.New("database is locked"))

	err := db.CreateFollow(context.Background(), &model.Follow{UserID: "a", AuthorID: "b"})
	if err == nil {
		t.Fatal("CreateFollow() should return an error")
	}
	if errors.Is(err, apperror.ErrConflict) {
		t.Errorf("plain driver error reported as conflict: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdatePost_NoRowsIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE posts").WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.UpdatePost(context.Background(), &model.Post{ID: "missing", Text: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdatePost() error = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCountPosts_ScanError(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow("not-a-number"))

	if _, err := db.CountPosts(context.Background(), repository.PostFilter{}); err == nil {
		t.Fatal("CountPosts() should fail when the count cannot be scanned")
	}
}
