package rbac

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/launchthat/storefront/internal/audit"
	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/users"
)

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry audit.Entry) error
}

// Service orchestrates role administration.
type Service struct {
	repo   Repository
	users  users.Repository
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, userRepo users.Repository, recorder AuditRecorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, users: userRepo, audit: recorder, logger: logger}
}

// ListRoles returns all administrable roles. Requires the management gate.
func (s *Service) ListRoles(ctx context.Context, actor Principal) ([]Role, error) {
	if err := RequirePermission(actor, PermManagePermissions); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// CreateRoleInput carries the attributes of a new role.
type CreateRoleInput struct {
	Name         string
	Description  string
	Scope        Scope
	Priority     int
	IsAssignable bool
	ParentID     string
}

// CreateRole inserts a new non-system role. Requires the management gate.
func (s *Service) CreateRole(ctx context.Context, actor Principal, in CreateRoleInput) (*Role, error) {
	if err := RequirePermission(actor, PermManagePermissions); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name required", httpx.ErrValidation)
	}
	if in.ParentID != "" {
		if _, err := s.repo.Get(ctx, in.ParentID); err != nil {
			return nil, fmt.Errorf("parent role %s: %w", in.ParentID, err)
		}
	}
	role := Role{
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		Scope:        in.Scope,
		Priority:     in.Priority,
		IsAssignable: in.IsAssignable,
		ParentID:     in.ParentID,
	}
	id, err := s.repo.Create(ctx, role)
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actor, "role.create", id, map[string]any{"name": name, "scope": role.Scope.String()})
	return s.repo.Get(ctx, id)
}

// DeleteRoleResult reports the outcome of a deletion attempt.
type DeleteRoleResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// DeleteRole removes a role. System roles are immutable: the call reports
// failure and leaves the role intact rather than erroring.
func (s *Service) DeleteRole(ctx context.Context, actor Principal, roleID string) (DeleteRoleResult, error) {
	if err := RequirePermission(actor, PermManagePermissions); err != nil {
		return DeleteRoleResult{}, err
	}
	role, err := s.repo.Get(ctx, roleID)
	if err != nil {
		return DeleteRoleResult{}, fmt.Errorf("role %s: %w", roleID, err)
	}
	if role.IsSystem {
		return DeleteRoleResult{Success: false, Reason: "system roles cannot be deleted"}, nil
	}
	rows, err := s.repo.Delete(ctx, roleID)
	if err != nil {
		return DeleteRoleResult{}, err
	}
	if rows == 0 {
		return DeleteRoleResult{}, fmt.Errorf("role %s: %w", roleID, httpx.ErrNotFound)
	}
	s.recordAudit(ctx, actor, "role.delete", roleID, map[string]any{"name": role.Name})
	return DeleteRoleResult{Success: true}, nil
}

// AssignDownloadRole sets the downloads role on a user. Admin only;
// unknown role strings are rejected.
func (s *Service) AssignDownloadRole(ctx context.Context, actor Principal, userID, role string) error {
	if !actor.Admin {
		return &AccessDenied{Reason: "only admins can assign download roles"}
	}
	if !IsKnownRole(role) {
		return fmt.Errorf("%w: invalid role %q", httpx.ErrValidation, role)
	}
	if _, err := s.users.Get(ctx, userID); err != nil {
		return fmt.Errorf("user %s: %w", userID, err)
	}
	if err := s.users.SetDownloadRole(ctx, userID, role); err != nil {
		return err
	}
	s.recordAudit(ctx, actor, "role.assign", userID, map[string]any{"role": role})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor Principal, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, audit.Entry{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "role",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}
