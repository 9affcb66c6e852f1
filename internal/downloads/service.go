package downloads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/launchthat/storefront/internal/audit"
	"github.com/launchthat/storefront/internal/catalog"
	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/rbac"
	"github.com/launchthat/storefront/internal/users"
)

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Service orchestrates download ownership, grants and access decisions.
type Service struct {
	repo    Repository
	catalog catalog.Repository
	users   users.Repository
	audit   AuditRecorder
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, cat catalog.Repository, userRepo users.Repository, recorder AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: cat, users: userRepo, audit: recorder, logger: logger}
}

// CheckAccess decides whether the principal may access the download.
// The checks run in a fixed order and the first match wins:
// admin, public, owner, explicit grant, purchase gate, enrollment gate.
// A missing download denies rather than erroring so callers can probe
// ids without leaking existence.
func (s *Service) CheckAccess(ctx context.Context, p rbac.Principal, downloadID string) (bool, error) {
	if p.Admin {
		return true, nil
	}
	d, err := s.repo.Get(ctx, downloadID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if d.IsPublic {
		return true, nil
	}
	if !p.Authenticated() {
		return false, nil
	}
	if d.UploadedBy == p.UserID {
		return true, nil
	}
	for _, id := range d.AccessibleUserIDs {
		if id == p.UserID {
			return true, nil
		}
	}
	if d.RequiredProductID != "" {
		ok, err := s.catalog.HasCompletedPurchase(ctx, p.UserID, d.RequiredProductID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	if d.RequiredCourseID != "" {
		ok, err := s.catalog.HasActiveEnrollment(ctx, p.UserID, d.RequiredCourseID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// Get returns the download if the principal may access it.
func (s *Service) Get(ctx context.Context, p rbac.Principal, downloadID string) (*Download, error) {
	ok, err := s.CheckAccess(ctx, p, downloadID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &rbac.AccessDenied{Reason: "no access to this download"}
	}
	d, err := s.repo.Get(ctx, downloadID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", downloadID, err)
	}
	return d, nil
}

// CreateInput carries the attributes of a new download.
type CreateInput struct {
	Title             string
	Description       string
	IsPublic          bool
	RequiredProductID string
	RequiredCourseID  string
}

// Create registers a new download owned by the actor. Requires the
// upload permission.
func (s *Service) Create(ctx context.Context, actor rbac.Principal, in CreateInput) (*Download, error) {
	if err := rbac.RequirePermission(actor, rbac.PermUpload); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title required", httpx.ErrValidation)
	}
	id, err := s.repo.Create(ctx, Download{
		Title:             title,
		Description:       strings.TrimSpace(in.Description),
		UploadedBy:        actor.UserID,
		IsPublic:          in.IsPublic,
		RequiredProductID: in.RequiredProductID,
		RequiredCourseID:  in.RequiredCourseID,
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "download.create", id, map[string]any{"title": title})
	return s.repo.Get(ctx, id)
}

// Update applies a partial update. Owners may edit their own downloads;
// anyone else needs edit_any.
func (s *Service) Update(ctx context.Context, actor rbac.Principal, downloadID string, patch Patch) (*Download, error) {
	d, err := s.repo.Get(ctx, downloadID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", downloadID, err)
	}
	if err := rbac.RequireOwnerOrPermission(actor, d.UploadedBy, rbac.PermEditAny); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, downloadID, patch); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "download.update", downloadID, nil)
	return s.repo.Get(ctx, downloadID)
}

// GrantAccess adds an explicit per-user grant. Granting to a user who
// already holds one is a no-op, so retried requests cannot duplicate
// entries.
func (s *Service) GrantAccess(ctx context.Context, actor rbac.Principal, downloadID, userID string) error {
	d, err := s.repo.Get(ctx, downloadID)
	if err != nil {
		return fmt.Errorf("download %s: %w", downloadID, err)
	}
	if err := rbac.RequireOwnerOrPermission(actor, d.UploadedBy, rbac.PermEditAny); err != nil {
		return err
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	if err := s.repo.Grant(ctx, downloadID, userID); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "download.grant", downloadID, map[string]any{"userId": userID})
	return nil
}

// RevokeAccess removes an explicit grant. Revoking an absent grant is a
// no-op. Purchase- and enrollment-derived access is unaffected.
func (s *Service) RevokeAccess(ctx context.Context, actor rbac.Principal, downloadID, userID string) error {
	d, err := s.repo.Get(ctx, downloadID)
	if err != nil {
		return fmt.Errorf("download %s: %w", downloadID, err)
	}
	if err := rbac.RequireOwnerOrPermission(actor, d.UploadedBy, rbac.PermEditAny); err != nil {
		return err
	}
	if err := s.repo.Revoke(ctx, downloadID, userID); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "download.revoke", downloadID, map[string]any{"userId": userID})
	return nil
}

// GetAccessList returns every party with access and how they got it.
// A user reachable through several paths appears once, tagged with the
// highest-precedence reason (owner, then explicit, then product, then
// course).
func (s *Service) GetAccessList(ctx context.Context, actor rbac.Principal, downloadID string) ([]AccessEntry, error) {
	d, err := s.repo.Get(ctx, downloadID)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", downloadID, err)
	}
	if err := rbac.RequireOwnerOrPermission(actor, d.UploadedBy, rbac.PermEditAny); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var entries []AccessEntry
	add := func(userID string, at AccessType) {
		if userID == "" {
			return
		}
		if _, ok := seen[userID]; ok {
			return
		}
		seen[userID] = struct{}{}
		entries = append(entries, AccessEntry{UserID: userID, AccessType: at})
	}

	add(d.UploadedBy, AccessOwner)
	for _, id := range d.AccessibleUserIDs {
		add(id, AccessExplicit)
	}
	if d.RequiredProductID != "" {
		purchasers, err := s.catalog.ListCompletedPurchasers(ctx, d.RequiredProductID)
		if err != nil {
			return nil, err
		}
		for _, id := range purchasers {
			add(id, AccessProduct)
		}
	}
	if d.RequiredCourseID != "" {
		enrollees, err := s.catalog.ListActiveEnrollees(ctx, d.RequiredCourseID)
		if err != nil {
			return nil, err
		}
		for _, id := range enrollees {
			add(id, AccessCourse)
		}
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.UserID)
	}
	hydrated, err := s.users.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]users.User, len(hydrated))
	for _, u := range hydrated {
		byID[u.ID] = u
	}
	for i := range entries {
		if u, ok := byID[entries[i].UserID]; ok {
			entries[i].Name = u.Name
			entries[i].Email = u.Email
		}
	}
	return entries, nil
}

func (s *Service) recordAudit(ctx context.Context, actor rbac.Principal, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, audit.Entry{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "download",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}
