package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/rbac"
	"github.com/launchthat/storefront/internal/users"
)

type mockUserRepo struct {
	users  map[string]*users.User
	nextID int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*users.User), nextID: 1}
}

func (m *mockUserRepo) Get(ctx context.Context, id string) (*users.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, httpx.ErrNotFound
}

func (m *mockUserRepo) GetMany(ctx context.Context, ids []string) ([]users.User, error) {
	var out []users.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockUserRepo) Create(ctx context.Context, u users.User) (string, error) {
	if u.ID == "" {
		u.ID = "user-" + string(rune('0'+m.nextID))
		m.nextID++
	}
	m.users[u.ID] = &u
	return u.ID, nil
}

func (m *mockUserRepo) SetDownloadRole(ctx context.Context, id, role string) error {
	u, ok := m.users[id]
	if !ok {
		return httpx.ErrNotFound
	}
	u.DownloadRole = role
	return nil
}

func seedUser(repo *mockUserRepo, id, email, password string, active bool) {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	repo.users[id] = &users.User{
		ID:           id,
		Email:        email,
		PasswordHash: string(hash),
		DownloadRole: rbac.RoleUploader,
		IsActive:     active,
	}
}

func TestAuthenticate(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "a@example.com", "correct-horse", true)
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "a@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
}

func TestAuthenticateWrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "a@example.com", "correct-horse", true)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "a@example.com", "wrong")
	assert.True(t, errors.Is(err, httpx.ErrUnauthorized))
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	svc := NewService(newMockUserRepo())
	_, err := svc.Authenticate(context.Background(), "missing@example.com", "whatever")
	assert.True(t, errors.Is(err, httpx.ErrUnauthorized))
}

func TestAuthenticateInactiveUser(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "a@example.com", "correct-horse", false)
	svc := NewService(repo)

	_, err := svc.Authenticate(context.Background(), "a@example.com", "correct-horse")
	assert.True(t, errors.Is(err, httpx.ErrUnauthorized))
}

func TestRegister(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:    "  New@Example.com ",
		Name:     "New User",
		Password: "long-enough",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", user.Email)
	assert.Equal(t, rbac.DefaultRole, user.DownloadRole)
	assert.True(t, user.IsActive)

	// The stored hash must verify against the original password.
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("long-enough")))
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "a@example.com", "whatever1", true)
	svc := NewService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "long-enough"})
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestRegisterShortPassword(t *testing.T) {
	svc := NewService(newMockUserRepo())
	_, err := svc.Register(context.Background(), RegisterInput{Email: "a@example.com", Password: "short"})
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestPrincipal(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "a@example.com", "correct-horse", true)
	repo.users["user-1"].Role = "admin"
	svc := NewService(repo)

	p := svc.Principal(context.Background(), "user-1")
	assert.True(t, p.Admin)
	assert.Equal(t, rbac.RoleUploader, p.DownloadRole)

	assert.False(t, svc.Principal(context.Background(), "").Authenticated())
	assert.False(t, svc.Principal(context.Background(), "missing").Authenticated())
}

func TestPrincipalInactiveUserIsGuest(t *testing.T) {
	repo := newMockUserRepo()
	seedUser(repo, "user-1", "a@example.com", "correct-horse", false)
	svc := NewService(repo)

	assert.False(t, svc.Principal(context.Background(), "user-1").Authenticated())
}
