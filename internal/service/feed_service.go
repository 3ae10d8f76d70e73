package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"crop-doctor/internal/domain"
	"crop-doctor/internal/repository"
)

// ErrPostNotFound is returned when commenting on a post id with no row behind it.
var ErrPostNotFound = errors.New("post not found")

// FeedLimits bounds user-supplied content lengths.
type FeedLimits struct {
	MaxCaptionLen int
	MaxCommentLen int
}

// DefaultFeedLimits mirror what the browser client truncates to.
var DefaultFeedLimits = FeedLimits{
	MaxCaptionLen: 200,
	MaxCommentLen: 150,
}

// FeedService coordinates post and comment operations and assembles the feed.
type FeedService interface {
	CreatePost(ctx context.Context, userID int64, caption, imageURL string) (int64, error)
	CreateComment(ctx context.Context, postID, userID int64, text string) error
	ListFeed(ctx context.Context) ([]domain.FeedItem, error)
}

type feedService struct {
	posts        repository.PostRepository
	comments     repository.CommentRepository
	limits       FeedLimits
	storeTimeout time.Duration
}

func NewFeedService(posts repository.PostRepository, comments repository.CommentRepository, limits FeedLimits, storeTimeout time.Duration) FeedService {
	if limits.MaxCaptionLen <= 0 {
		limits.MaxCaptionLen = DefaultFeedLimits.MaxCaptionLen
	}
	if limits.MaxCommentLen <= 0 {
		limits.MaxCommentLen = DefaultFeedLimits.MaxCommentLen
	}
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &feedService{
		posts:        posts,
		comments:     comments,
		limits:       limits,
		storeTimeout: storeTimeout,
	}
}

func (s *feedService) CreatePost(ctx context.Context, userID int64, caption, imageURL string) (int64, error) {
	if strings.TrimSpace(caption) == "" {
		return 0, fmt.Errorf("%w: caption is required", ErrInvalidInput)
	}
	// bounds count characters, not bytes, matching the client's truncation
	if utf8.RuneCountInString(caption) > s.limits.MaxCaptionLen {
		return 0, fmt.Errorf("%w: caption exceeds %d characters", ErrInvalidInput, s.limits.MaxCaptionLen)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	post := &domain.Post{
		UserID:   userID,
		Caption:  caption,
		ImageURL: imageURL,
	}
	return s.posts.Create(storeCtx, post)
}

// CreateComment verifies the target post exists before inserting; the
// foreign key constraint remains the backstop for concurrent deletes.
func (s *feedService) CreateComment(ctx context.Context, postID, userID int64, text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: comment is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(text) > s.limits.MaxCommentLen {
		return fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidInput, s.limits.MaxCommentLen)
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	exists, err := s.posts.Exists(storeCtx, postID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrPostNotFound
	}

	comment := &domain.Comment{
		PostID: postID,
		UserID: userID,
		Text:   text,
	}
	_, err = s.comments.Create(storeCtx, comment)
	return err
}

// ListFeed reads posts newest first, then attaches each post's comments
// oldest first. The two reads are separate queries; the snapshot between
// them is not required to be transactionally consistent.
func (s *feedService) ListFeed(ctx context.Context) ([]domain.FeedItem, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	items, err := s.posts.ListFeed(storeCtx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return []domain.FeedItem{}, nil
	}

	ids := make([]int64, len(items))
	for i := range items {
		ids[i] = items[i].PostID
	}

	byPost, err := s.comments.ListByPosts(storeCtx, ids)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if comments, ok := byPost[items[i].PostID]; ok {
			items[i].Comments = comments
		}
	}
	return items, nil
}
