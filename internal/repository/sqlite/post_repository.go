package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"crop-doctor/internal/domain"
	"crop-doctor/internal/repository"
)

const createPostsTable = `
CREATE TABLE IF NOT EXISTS posts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL REFERENCES users(id),
	caption TEXT NOT NULL,
	image TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostsTable); err != nil {
		return fmt.Errorf("create posts table: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) (int64, error) {
	post.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO posts (user_id, caption, image, created_at)
VALUES (?, ?, ?, ?)`,
		post.UserID,
		post.Caption,
		post.ImageURL,
		post.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("post last insert id: %w", err)
	}
	post.ID = id
	return id, nil
}

func (r *PostRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check post exists: %w", err)
	}
	return true, nil
}

// ListFeed returns every post joined with its author's username, ordered
// newest first. The id tiebreak keeps ordering strict when two posts share
// a creation timestamp.
func (r *PostRepository) ListFeed(ctx context.Context) ([]domain.FeedItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT p.id, p.caption, p.image, p.created_at, u.username
FROM posts p
JOIN users u ON p.user_id = u.id
ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query feed posts: %w", err)
	}
	defer rows.Close()

	items := []domain.FeedItem{}
	for rows.Next() {
		var item domain.FeedItem
		if err := rows.Scan(
			&item.PostID,
			&item.Caption,
			&item.ImageURL,
			&item.CreatedAt,
			&item.Username,
		); err != nil {
			return nil, fmt.Errorf("scan feed post: %w", err)
		}
		item.Comments = []domain.FeedComment{}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed posts: %w", err)
	}
	return items, nil
}
