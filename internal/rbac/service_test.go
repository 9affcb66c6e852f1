package rbac

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchthat/storefront/internal/audit"
	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/users"
)

type mockRoleRepo struct {
	roles  map[string]*Role
	nextID int
}

func newMockRoleRepo() *mockRoleRepo {
	return &mockRoleRepo{roles: make(map[string]*Role), nextID: 1}
}

func (m *mockRoleRepo) List(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRoleRepo) Get(ctx context.Context, id string) (*Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

func (m *mockRoleRepo) Create(ctx context.Context, role Role) (string, error) {
	if role.ID == "" {
		role.ID = "role-" + string(rune('0'+m.nextID))
		m.nextID++
	}
	m.roles[role.ID] = &role
	return role.ID, nil
}

func (m *mockRoleRepo) Delete(ctx context.Context, id string) (int64, error) {
	if _, ok := m.roles[id]; !ok {
		return 0, nil
	}
	delete(m.roles, id)
	return 1, nil
}

type mockUserRepo struct {
	users map[string]*users.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*users.User)}
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

type recordingAudit struct {
	entries []audit.Entry
}

func (r *recordingAudit) Record(ctx context.Context, entry audit.Entry) error {
	r.entries = append(r.entries, entry)
	return nil
}

func newTestService() (*Service, *mockRoleRepo, *mockUserRepo, *recordingAudit) {
	repo := newMockRoleRepo()
	userRepo := newMockUserRepo()
	recorder := &recordingAudit{}
	return NewService(repo, userRepo, recorder, nil), repo, userRepo, recorder
}

var adminActor = Principal{UserID: "admin-1", Admin: true}

func TestCreateRoleRequiresManagementGate(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.CreateRole(context.Background(), Principal{UserID: "user-1", DownloadRole: RoleManager}, CreateRoleInput{Name: "Editors"})
	assert.True(t, IsAccessDenied(err))
}

func TestCreateRole(t *testing.T) {
	svc, _, _, recorder := newTestService()
	role, err := svc.CreateRole(context.Background(), adminActor, CreateRoleInput{
		Name:         "Editors",
		Description:  "Content editors",
		Scope:        OrganizationScope("org-1"),
		Priority:     50,
		IsAssignable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Editors", role.Name)
	assert.Equal(t, ScopeOrganization, role.Scope.Kind())
	assert.Equal(t, "org-1", role.Scope.OrgID())
	require.Len(t, recorder.entries, 1)
	assert.Equal(t, "role.create", recorder.entries[0].Action)
}

func TestCreateRoleEmptyName(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.CreateRole(context.Background(), adminActor, CreateRoleInput{Name: "   "})
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestDeleteSystemRoleFailsSoftly(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.roles["role-sys"] = &Role{ID: "role-sys", Name: "Admin", IsSystem: true, Scope: GlobalScope()}

	result, err := svc.DeleteRole(context.Background(), adminActor, "role-sys")
	require.NoError(t, err)
	assert.False(t, result.Success)

	// Role must be left intact.
	_, err = repo.Get(context.Background(), "role-sys")
	assert.NoError(t, err)
}

func TestDeleteRole(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.roles["role-1"] = &Role{ID: "role-1", Name: "Editors", Scope: GlobalScope()}

	result, err := svc.DeleteRole(context.Background(), adminActor, "role-1")
	require.NoError(t, err)
	assert.True(t, result.Success)

	_, err = repo.Get(context.Background(), "role-1")
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestDeleteRoleNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.DeleteRole(context.Background(), adminActor, "missing")
	assert.True(t, errors.Is(err, httpx.ErrNotFound))
}

func TestAssignDownloadRole(t *testing.T) {
	svc, _, userRepo, _ := newTestService()
	userRepo.users["user-1"] = &users.User{ID: "user-1", Email: "u@example.com"}

	require.NoError(t, svc.AssignDownloadRole(context.Background(), adminActor, "user-1", RoleUploader))
	assert.Equal(t, RoleUploader, userRepo.users["user-1"].DownloadRole)
}

func TestAssignDownloadRoleRejectsUnknownRole(t *testing.T) {
	svc, _, userRepo, _ := newTestService()
	userRepo.users["user-1"] = &users.User{ID: "user-1"}

	err := svc.AssignDownloadRole(context.Background(), adminActor, "user-1", "overlord")
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestAssignDownloadRoleAdminOnly(t *testing.T) {
	svc, _, _, _ := newTestService()
	err := svc.AssignDownloadRole(context.Background(), Principal{UserID: "user-2", DownloadRole: RoleManager}, "user-1", RoleViewer)
	assert.True(t, IsAccessDenied(err))
}
