package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crop-doctor/internal/domain"
	"crop-doctor/internal/repository"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, NewUserRepository(db).Init(ctx))
	require.NoError(t, NewPostRepository(db).Init(ctx))
	require.NoError(t, NewCommentRepository(db).Init(ctx))
	return db
}

func createUser(t *testing.T, repo repository.UserRepository, username, email string) int64 {
	t.Helper()
	id, err := repo.Create(context.Background(), &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: "x",
	})
	require.NoError(t, err)
	return id
}

func TestUserRepositoryCreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	id := createUser(t, repo, "alice", "a@x.com")
	assert.Equal(t, int64(1), id)

	byEmail, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", byEmail.Username)
	assert.False(t, byEmail.CreatedAt.IsZero())

	byID, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", byID.Email)

	_, err = repo.GetByEmail(ctx, "nobody@x.com")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestUserRepositoryDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	createUser(t, repo, "alice", "a@x.com")

	_, err := repo.Create(ctx, &domain.User{Username: "bob", Email: "a@x.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestIsUniqueViolation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)

	createUser(t, repo, "alice", "a@x.com")

	// the driver's typed constraint error is recognized
	_, err := repo.Create(context.Background(), &domain.User{Username: "bob", Email: "a@x.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// string fallback for errors that lost the typed chain
	assert.True(t, isUniqueViolation(fmt.Errorf("constraint failed: UNIQUE constraint failed: users.email")))
	assert.False(t, isUniqueViolation(fmt.Errorf("disk I/O error")))
	assert.False(t, isUniqueViolation(nil))
}

func TestPostRepositoryFeedOrdering(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	userID := createUser(t, users, "alice", "a@x.com")

	for i := 0; i < 3; i++ {
		_, err := posts.Create(ctx, &domain.Post{
			UserID:  userID,
			Caption: fmt.Sprintf("post %d", i),
		})
		require.NoError(t, err)
	}

	items, err := posts.ListFeed(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)

	// newest first, even when creation timestamps collide
	assert.Equal(t, "post 2", items[0].Caption)
	assert.Equal(t, "post 1", items[1].Caption)
	assert.Equal(t, "post 0", items[2].Caption)
	assert.Equal(t, "alice", items[0].Username)
}

func TestPostRepositoryRoundTrip(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	userID := createUser(t, users, "alice", "a@x.com")

	caption := "Leaf spots on my tomatoes?! 🍅"
	image := "https://cdn.example.com/uploads/leaf.jpg"
	_, err := posts.Create(ctx, &domain.Post{UserID: userID, Caption: caption, ImageURL: image})
	require.NoError(t, err)

	items, err := posts.ListFeed(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, caption, items[0].Caption)
	assert.Equal(t, image, items[0].ImageURL)
	assert.Empty(t, items[0].Comments)
}

func TestPostRepositoryExists(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	ctx := context.Background()

	userID := createUser(t, users, "alice", "a@x.com")
	postID, err := posts.Create(ctx, &domain.Post{UserID: userID, Caption: "hello"})
	require.NoError(t, err)

	exists, err := posts.Exists(ctx, postID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = posts.Exists(ctx, 999)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCommentRepositoryOrdering(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	posts := NewPostRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	alice := createUser(t, users, "alice", "a@x.com")
	bob := createUser(t, users, "bob", "b@x.com")

	first, err := posts.Create(ctx, &domain.Post{UserID: alice, Caption: "first"})
	require.NoError(t, err)
	second, err := posts.Create(ctx, &domain.Post{UserID: alice, Caption: "second"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := comments.Create(ctx, &domain.Comment{
			PostID: first,
			UserID: bob,
			Text:   fmt.Sprintf("comment %d", i),
		})
		require.NoError(t, err)
	}

	byPost, err := comments.ListByPosts(ctx, []int64{first, second})
	require.NoError(t, err)

	require.Len(t, byPost[first], 3)
	assert.Empty(t, byPost[second])

	// oldest first within a post
	assert.Equal(t, "comment 0", byPost[first][0].Text)
	assert.Equal(t, "comment 1", byPost[first][1].Text)
	assert.Equal(t, "comment 2", byPost[first][2].Text)
	assert.Equal(t, "bob", byPost[first][0].Username)
}

func TestCommentRepositoryEmptyPostList(t *testing.T) {
	db := setupTestDB(t)
	comments := NewCommentRepository(db)

	byPost, err := comments.ListByPosts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, byPost)
}

func TestCommentRepositoryRejectsUnknownPost(t *testing.T) {
	db := setupTestDB(t)
	comments := NewCommentRepository(db)

	// foreign keys are the backstop when the existence check races a delete
	_, err := comments.Create(context.Background(), &domain.Comment{PostID: 1, UserID: 1, Text: "hi"})
	assert.Error(t, err)
}
