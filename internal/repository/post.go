package repository

import (
	"context"

	"crop-doctor/internal/domain"
)

// PostRepository defines persistence operations for Post entities.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// ListFeed returns all posts joined with author usernames, newest first.
	ListFeed(ctx context.Context) ([]domain.FeedItem, error)
}
