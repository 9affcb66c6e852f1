package downloads

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/launchthat/storefront/internal/audit"
	"github.com/launchthat/storefront/internal/catalog"
	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/rbac"
	"github.com/launchthat/storefront/internal/users"
)

type mockDownloadRepo struct {
	downloads map[string]*Download
	nextID    int
}

func newMockDownloadRepo() *mockDownloadRepo {
	return &mockDownloadRepo{downloads: make(map[string]*Download), nextID: 1}
}

func (m *mockDownloadRepo) Get(ctx context.Context, id string) (*Download, error) {
	d, ok := m.downloads[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	copied := *d
	copied.AccessibleUserIDs = append([]string(nil), d.AccessibleUserIDs...)
	return &copied, nil
}

func (m *mockDownloadRepo) Create(ctx context.Context, d Download) (string, error) {
	if d.ID == "" {
		d.ID = fmt.Sprintf("dl-%d", m.nextID)
		m.nextID++
	}
	m.downloads[d.ID] = &d
	return d.ID, nil
}

func (m *mockDownloadRepo) Update(ctx context.Context, id string, patch Patch) error {
	d, ok := m.downloads[id]
	if !ok {
		return httpx.ErrNotFound
	}
	if patch.Title != nil {
		d.Title = *patch.Title
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	if patch.IsPublic != nil {
		d.IsPublic = *patch.IsPublic
	}
	if patch.RequiredProductID != nil {
		d.RequiredProductID = *patch.RequiredProductID
	}
	if patch.RequiredCourseID != nil {
		d.RequiredCourseID = *patch.RequiredCourseID
	}
	return nil
}

func (m *mockDownloadRepo) Grant(ctx context.Context, id, userID string) error {
	d, ok := m.downloads[id]
	if !ok {
		return httpx.ErrNotFound
	}
	for _, existing := range d.AccessibleUserIDs {
		if existing == userID {
			return nil
		}
	}
	d.AccessibleUserIDs = append(d.AccessibleUserIDs, userID)
	return nil
}

func (m *mockDownloadRepo) Revoke(ctx context.Context, id, userID string) error {
	d, ok := m.downloads[id]
	if !ok {
		return httpx.ErrNotFound
	}
	kept := d.AccessibleUserIDs[:0]
	for _, existing := range d.AccessibleUserIDs {
		if existing != userID {
			kept = append(kept, existing)
		}
	}
	d.AccessibleUserIDs = kept
	return nil
}

type mockCatalogRepo struct {
	products   map[string]*catalog.Product
	purchasers map[string][]string
	enrollees  map[string][]string
}

func newMockCatalogRepo() *mockCatalogRepo {
	return &mockCatalogRepo{
		products:   make(map[string]*catalog.Product),
		purchasers: make(map[string][]string),
		enrollees:  make(map[string][]string),
	}
}

func (m *mockCatalogRepo) GetProduct(ctx context.Context, id string) (*catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return p, nil
}

func (m *mockCatalogRepo) ListProductsByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockCatalogRepo) ListProductIDs(ctx context.Context) ([]string, error) {
	var ids []string
	for id := range m.products {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *mockCatalogRepo) HasCompletedPurchase(ctx context.Context, userID, productID string) (bool, error) {
	for _, id := range m.purchasers[productID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCatalogRepo) ListCompletedPurchasers(ctx context.Context, productID string) ([]string, error) {
	return m.purchasers[productID], nil
}

func (m *mockCatalogRepo) HasActiveEnrollment(ctx context.Context, userID, courseID string) (bool, error) {
	for _, id := range m.enrollees[courseID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockCatalogRepo) ListActiveEnrollees(ctx context.Context, courseID string) ([]string, error) {
	return m.enrollees[courseID], nil
}

func (m *mockCatalogRepo) CountCompletedPurchases(ctx context.Context, productID string) (int64, error) {
	return int64(len(m.purchasers[productID])), nil
}

func (m *mockCatalogRepo) SetPurchaseCount(ctx context.Context, productID string, count int64) error {
	p, ok := m.products[productID]
	if !ok {
		return httpx.ErrNotFound
	}
	p.PurchaseCount = count
	return nil
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

func newTestService() (*Service, *mockDownloadRepo, *mockCatalogRepo, *mockUserRepo) {
	repo := newMockDownloadRepo()
	cat := newMockCatalogRepo()
	userRepo := newMockUserRepo()
	return NewService(repo, cat, userRepo, &recordingAudit{}, nil), repo, cat, userRepo
}

var (
	admin    = rbac.Principal{UserID: "admin-1", Admin: true}
	owner    = rbac.Principal{UserID: "owner-1", DownloadRole: rbac.RoleUploader}
	stranger = rbac.Principal{UserID: "stranger-1", DownloadRole: rbac.RoleViewer}
	guest    = rbac.Principal{}
)

func TestCheckAccessAdminAlwaysAllowed(t *testing.T) {
	svc, _, _, _ := newTestService()

	// Even for a download that does not exist.
	ok, err := svc.CheckAccess(context.Background(), admin, "missing")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckAccessMissingDeniesWithoutError(t *testing.T) {
	svc, _, _, _ := newTestService()
	ok, err := svc.CheckAccess(context.Background(), stranger, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckAccessPublic(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1", IsPublic: true}

	ok, err := svc.CheckAccess(context.Background(), guest, "dl-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckAccessOwner(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1"}

	ok, err := svc.CheckAccess(context.Background(), owner, "dl-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckAccess(context.Background(), stranger, "dl-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckAccessExplicitGrant(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1", AccessibleUserIDs: []string{"stranger-1"}}

	ok, err := svc.CheckAccess(context.Background(), stranger, "dl-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckAccessPurchaseGate(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1", RequiredProductID: "prod-1"}
	cat.purchasers["prod-1"] = []string{"buyer-1"}

	ok, err := svc.CheckAccess(context.Background(), rbac.Principal{UserID: "buyer-1"}, "dl-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.CheckAccess(context.Background(), stranger, "dl-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckAccessEnrollmentGate(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1", RequiredCourseID: "course-1"}
	cat.enrollees["course-1"] = []string{"student-1"}

	ok, err := svc.CheckAccess(context.Background(), rbac.Principal{UserID: "student-1"}, "dl-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGrantAccessIdempotent(t *testing.T) {
	svc, repo, _, userRepo := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1"}
	userRepo.users["user-2"] = &users.User{ID: "user-2"}

	require.NoError(t, svc.GrantAccess(context.Background(), owner, "dl-1", "user-2"))
	require.NoError(t, svc.GrantAccess(context.Background(), owner, "dl-1", "user-2"))

	assert.Equal(t, []string{"user-2"}, repo.downloads["dl-1"].AccessibleUserIDs)
}

func TestGrantAccessRequiresOwnerOrEditAny(t *testing.T) {
	svc, repo, _, userRepo := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1"}
	userRepo.users["user-2"] = &users.User{ID: "user-2"}

	err := svc.GrantAccess(context.Background(), stranger, "dl-1", "user-2")
	assert.True(t, rbac.IsAccessDenied(err))

	manager := rbac.Principal{UserID: "mgr-1", DownloadRole: rbac.RoleManager}
	assert.NoError(t, svc.GrantAccess(context.Background(), manager, "dl-1", "user-2"))
}

func TestRevokeAccess(t *testing.T) {
	svc, repo, cat, _ := newTestService()
	repo.downloads["dl-1"] = &Download{
		ID:                "dl-1",
		UploadedBy:        "owner-1",
		AccessibleUserIDs: []string{"user-2"},
		RequiredProductID: "prod-1",
	}
	cat.purchasers["prod-1"] = []string{"user-2"}

	require.NoError(t, svc.RevokeAccess(context.Background(), owner, "dl-1", "user-2"))
	assert.Empty(t, repo.downloads["dl-1"].AccessibleUserIDs)

	// Revoking again is a no-op.
	require.NoError(t, svc.RevokeAccess(context.Background(), owner, "dl-1", "user-2"))

	// Purchase-derived access survives the revocation.
	ok, err := svc.CheckAccess(context.Background(), rbac.Principal{UserID: "user-2"}, "dl-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetAccessListDeduplicatesAndTags(t *testing.T) {
	svc, repo, cat, userRepo := newTestService()
	repo.downloads["dl-1"] = &Download{
		ID:                "dl-1",
		UploadedBy:        "owner-1",
		AccessibleUserIDs: []string{"user-2", "buyer-1"},
		RequiredProductID: "prod-1",
		RequiredCourseID:  "course-1",
	}
	cat.purchasers["prod-1"] = []string{"buyer-1", "buyer-2"}
	cat.enrollees["course-1"] = []string{"buyer-2", "student-1"}
	userRepo.users["owner-1"] = &users.User{ID: "owner-1", Name: "Owner", Email: "owner@example.com"}
	userRepo.users["user-2"] = &users.User{ID: "user-2", Name: "Grantee", Email: "grantee@example.com"}

	entries, err := svc.GetAccessList(context.Background(), owner, "dl-1")
	require.NoError(t, err)

	byUser := make(map[string]AccessEntry, len(entries))
	for _, e := range entries {
		_, dup := byUser[e.UserID]
		require.False(t, dup, "user %s listed twice", e.UserID)
		byUser[e.UserID] = e
	}

	assert.Equal(t, AccessOwner, byUser["owner-1"].AccessType)
	assert.Equal(t, AccessExplicit, byUser["user-2"].AccessType)
	// Explicit grant wins over the purchase path.
	assert.Equal(t, AccessExplicit, byUser["buyer-1"].AccessType)
	// Purchase path wins over enrollment.
	assert.Equal(t, AccessProduct, byUser["buyer-2"].AccessType)
	assert.Equal(t, AccessCourse, byUser["student-1"].AccessType)

	assert.Equal(t, "owner@example.com", byUser["owner-1"].Email)
	assert.Equal(t, "Grantee", byUser["user-2"].Name)
}

func TestGetAccessListRequiresOwnerOrEditAny(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1"}

	_, err := svc.GetAccessList(context.Background(), stranger, "dl-1")
	assert.True(t, rbac.IsAccessDenied(err))
}

func TestUpdateOwnerOnly(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1", Title: "Old"}

	title := "New"
	_, err := svc.Update(context.Background(), stranger, "dl-1", Patch{Title: &title})
	assert.True(t, rbac.IsAccessDenied(err))

	d, err := svc.Update(context.Background(), owner, "dl-1", Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "New", d.Title)
}

func TestCreateRequiresUploadPermission(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), stranger, CreateInput{Title: "Guide"})
	assert.True(t, rbac.IsAccessDenied(err))

	d, err := svc.Create(context.Background(), owner, CreateInput{Title: "Guide"})
	require.NoError(t, err)
	assert.Equal(t, "owner-1", d.UploadedBy)
}

func TestCreateEmptyTitle(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Create(context.Background(), owner, CreateInput{Title: "   "})
	assert.True(t, errors.Is(err, httpx.ErrValidation))
}

func TestGetDeniedForbidden(t *testing.T) {
	svc, repo, _, _ := newTestService()
	repo.downloads["dl-1"] = &Download{ID: "dl-1", UploadedBy: "owner-1"}

	_, err := svc.Get(context.Background(), stranger, "dl-1")
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
}
