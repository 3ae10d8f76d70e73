package domain

import "time"

// Post is a community feed entry. Posts are immutable once created.
type Post struct {
	ID        int64
	UserID    int64
	Caption   string
	ImageURL  string
	CreatedAt time.Time
}

// Comment belongs to exactly one post. Comments are immutable once created.
type Comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Text      string
	CreatedAt time.Time
}

// FeedComment is a comment joined with its author's username for feed reads.
type FeedComment struct {
	PostID    int64
	Text      string
	Username  string
	CreatedAt time.Time
}

// FeedItem is a post joined with its author's username and its ordered
// comment list. Assembled fresh on every feed read, never persisted.
type FeedItem struct {
	PostID    int64
	Caption   string
	ImageURL  string
	Username  string
	CreatedAt time.Time
	Comments  []FeedComment
}
