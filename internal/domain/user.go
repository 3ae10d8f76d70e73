package domain

import "time"

// User represents a registered account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	AvatarURL    string
	CreatedAt    time.Time
}
