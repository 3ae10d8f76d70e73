package repository

import (
	"context"

	"crop-doctor/internal/domain"
)

// CommentRepository defines persistence operations for Comment entities.
type CommentRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, comment *domain.Comment) (int64, error)
	// ListByPosts returns comments for the given post ids joined with
	// commenter usernames, oldest first within each post.
	ListByPosts(ctx context.Context, postIDs []int64) (map[int64][]domain.FeedComment, error)
}
