package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"crop-doctor/internal/domain"
	"crop-doctor/internal/repository"
)

type mockUserRepo struct {
	users  map[int64]*domain.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:  make(map[int64]*domain.User),
		nextID: 1,
	}
}

func (m *mockUserRepo) Init(ctx context.Context) error { return nil }

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) (int64, error) {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return 0, fmt.Errorf("insert user: %w", repository.ErrDuplicate)
		}
	}
	user.ID = m.nextID
	m.nextID++
	copied := *user
	m.users[user.ID] = &copied
	return user.ID, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

type recordingNotifier struct {
	sent chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{sent: make(chan string, 8)}
}

func (n *recordingNotifier) SendWelcome(ctx context.Context, email, username string) error {
	n.sent <- email
	return nil
}

func newTestUserService(repo *mockUserRepo, notifier *recordingNotifier) UserService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewUserService(repo, notifier, logger, time.Second)
}

func TestRegister(t *testing.T) {
	repo := newMockUserRepo()
	notifier := newRecordingNotifier()
	svc := newTestUserService(repo, notifier)

	user, err := svc.Register(context.Background(), "alice", "a@x.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.ID)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "a@x.com", user.Email)

	// stored credential must be a verifiable hash, never the plain password
	stored := repo.users[1]
	assert.NotEqual(t, "password1", stored.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("password1")))

	select {
	case email := <-notifier.sent:
		assert.Equal(t, "a@x.com", email)
	case <-time.After(2 * time.Second):
		t.Fatal("welcome mail was never dispatched")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, newRecordingNotifier())

	_, err := svc.Register(context.Background(), "alice", "a@x.com", "password1")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "bob", "a@x.com", "password2")
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Len(t, repo.users, 1)
}

func TestRegisterValidation(t *testing.T) {
	svc := newTestUserService(newMockUserRepo(), newRecordingNotifier())

	cases := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{"empty username", "", "a@x.com", "password1"},
		{"empty email", "alice", "", "password1"},
		{"email without at sign", "alice", "not-an-email", "password1"},
		{"short password", "alice", "a@x.com", "pw1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tc.username, tc.email, tc.password)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestRegisterIDsMonotonic(t *testing.T) {
	svc := newTestUserService(newMockUserRepo(), newRecordingNotifier())

	var lastID int64
	for i := 0; i < 5; i++ {
		user, err := svc.Register(context.Background(), "user", fmt.Sprintf("u%d@x.com", i), "password1")
		require.NoError(t, err)
		assert.Greater(t, user.ID, lastID)
		lastID = user.ID
	}
}

func TestAuthenticate(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, newRecordingNotifier())

	_, err := svc.Register(context.Background(), "alice", "a@x.com", "password1")
	require.NoError(t, err)

	user, err := svc.Authenticate(context.Background(), "a@x.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "https://i.pravatar.cc/40?u=a%40x.com", user.AvatarURL)
	assert.Empty(t, user.PasswordHash)
}

func TestAuthenticateRejectsMismatches(t *testing.T) {
	repo := newMockUserRepo()
	svc := newTestUserService(repo, newRecordingNotifier())

	_, err := svc.Register(context.Background(), "alice", "a@x.com", "password1")
	require.NoError(t, err)

	// wrong password and unknown email must be indistinguishable
	_, wrongPassErr := svc.Authenticate(context.Background(), "a@x.com", "wrong")
	_, unknownErr := svc.Authenticate(context.Background(), "nobody@x.com", "password1")
	assert.ErrorIs(t, wrongPassErr, ErrInvalidCredentials)
	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.Equal(t, wrongPassErr, unknownErr)
}
