package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"crop-doctor/internal/domain"
	"crop-doctor/internal/mail"
	"crop-doctor/internal/repository"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken is returned when registering with an email that already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidInput indicates a request field is missing, malformed or oversized.
	ErrInvalidInput = errors.New("invalid input")
)

// UserService describes account lifecycle operations.
type UserService interface {
	Register(ctx context.Context, username, email, password string) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

type userService struct {
	users        repository.UserRepository
	notifier     mail.Notifier
	logger       *logrus.Logger
	storeTimeout time.Duration
}

func NewUserService(users repository.UserRepository, notifier mail.Notifier, logger *logrus.Logger, storeTimeout time.Duration) UserService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &userService{
		users:        users,
		notifier:     notifier,
		logger:       logger,
		storeTimeout: storeTimeout,
	}
}

// Register creates a new account. The unique constraint on email is the
// authoritative duplicate check, so concurrent signups with the same email
// cannot both succeed. The welcome mail is dispatched on a detached
// goroutine and never blocks or fails the registration.
func (s *userService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)

	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if _, err := s.users.Create(storeCtx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	go s.sendWelcome(user.Email, user.Username)

	return sanitizeUser(user), nil
}

// Authenticate verifies credentials. Unknown email and wrong password both
// return ErrInvalidCredentials so the response cannot be used as an oracle.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	password = strings.TrimSpace(password)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByEmail(storeCtx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	out := sanitizeUser(user)
	out.AvatarURL = avatarURL(user.Email)
	return out, nil
}

func (s *userService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	user, err := s.users.GetByID(storeCtx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) sendWelcome(email, username string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := s.notifier.SendWelcome(ctx, email, username); err != nil {
		s.logger.Warnf("send welcome mail to %s: %v", email, err)
	}
}

// avatarURL derives a deterministic placeholder avatar from the email.
func avatarURL(email string) string {
	return fmt.Sprintf("https://i.pravatar.cc/40?u=%s", url.QueryEscape(email))
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}
