package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"crop-doctor/internal/domain"
	"crop-doctor/internal/repository"
)

const createCommentsTable = `
CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	post_id INTEGER NOT NULL REFERENCES posts(id),
	user_id INTEGER NOT NULL REFERENCES users(id),
	comment TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
`

type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) repository.CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createCommentsTable); err != nil {
		return fmt.Errorf("create comments table: %w", err)
	}
	return nil
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) (int64, error) {
	comment.CreatedAt = time.Now().UTC()

	res, err := r.db.ExecContext(ctx, `
INSERT INTO comments (post_id, user_id, comment, created_at)
VALUES (?, ?, ?, ?)`,
		comment.PostID,
		comment.UserID,
		comment.Text,
		comment.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert comment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("comment last insert id: %w", err)
	}
	comment.ID = id
	return id, nil
}

// ListByPosts returns comments for the given posts keyed by post id, each
// list ordered oldest first.
func (r *CommentRepository) ListByPosts(ctx context.Context, postIDs []int64) (map[int64][]domain.FeedComment, error) {
	byPost := make(map[int64][]domain.FeedComment, len(postIDs))
	if len(postIDs) == 0 {
		return byPost, nil
	}

	placeholders := strings.Repeat("?,", len(postIDs))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, len(postIDs))
	for i, id := range postIDs {
		args[i] = id
	}

	query := fmt.Sprintf(`
SELECT c.post_id, c.comment, c.created_at, u.username
FROM comments c
JOIN users u ON c.user_id = u.id
WHERE c.post_id IN (%s)
ORDER BY c.created_at ASC, c.id ASC`, placeholders)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fc domain.FeedComment
		if err := rows.Scan(&fc.PostID, &fc.Text, &fc.CreatedAt, &fc.Username); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		byPost[fc.PostID] = append(byPost[fc.PostID], fc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return byPost, nil
}
