package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/launchthat/storefront/internal/audit"
	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/rbac"
)

// Admin-only configuration management. Every write bumps the config
// cache version so slug lookups see the change immediately.

// ListConfigs returns checkout configurations, optionally filtered by
// status.
func (s *Service) ListConfigs(ctx context.Context, actor rbac.Principal, status string) ([]Config, error) {
	if !actor.Admin {
		return nil, &rbac.AccessDenied{Reason: "checkout administration requires admin"}
	}
	return s.repo.ListConfigs(ctx, status)
}

// CreateConfigInput carries the attributes of a new checkout configuration.
type CreateConfigInput struct {
	Title                  string
	Slug                   string
	Description            string
	ProductIDs             []string
	CollectEmail           bool
	CollectName            bool
	CollectPhone           bool
	CollectShippingAddress bool
	CollectBillingAddress  bool
	AllowCoupons           bool
	SuccessURL             string
	CancelURL              string
	Status                 string
}

// CreateConfig inserts a checkout configuration. Slugs are unique and
// every referenced product must exist.
func (s *Service) CreateConfig(ctx context.Context, actor rbac.Principal, in CreateConfigInput) (*Config, error) {
	if !actor.Admin {
		return nil, &rbac.AccessDenied{Reason: "checkout administration requires admin"}
	}
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		return nil, fmt.Errorf("%w: slug required", httpx.ErrValidation)
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("%w: title required", httpx.ErrValidation)
	}

	existing, err := s.repo.GetConfigBySlug(ctx, slug)
	if err != nil && !errors.Is(err, httpx.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: a checkout with slug %q already exists", httpx.ErrValidation, slug)
	}

	if err := s.verifyProducts(ctx, in.ProductIDs); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = ConfigStatusDraft
	}
	id, err := s.repo.CreateConfig(ctx, Config{
		Title:                  strings.TrimSpace(in.Title),
		Slug:                   slug,
		Description:            strings.TrimSpace(in.Description),
		ProductIDs:             in.ProductIDs,
		CollectEmail:           in.CollectEmail,
		CollectName:            in.CollectName,
		CollectPhone:           in.CollectPhone,
		CollectShippingAddress: in.CollectShippingAddress,
		CollectBillingAddress:  in.CollectBillingAddress,
		AllowCoupons:           in.AllowCoupons,
		SuccessURL:             in.SuccessURL,
		CancelURL:              in.CancelURL,
		Status:                 status,
		CreatedBy:              actor.UserID,
	})
	if err != nil {
		return nil, err
	}
	s.bumpConfigCache(ctx)
	s.recordConfigAudit(ctx, actor, "checkout.create", id, map[string]any{"slug": slug})
	return s.repo.GetConfig(ctx, id)
}

// UpdateConfig applies a partial update to a checkout configuration.
func (s *Service) UpdateConfig(ctx context.Context, actor rbac.Principal, id string, patch ConfigPatch) (*Config, error) {
	if !actor.Admin {
		return nil, &rbac.AccessDenied{Reason: "checkout administration requires admin"}
	}
	if _, err := s.repo.GetConfig(ctx, id); err != nil {
		return nil, fmt.Errorf("checkout %s: %w", id, err)
	}
	if patch.ProductIDs != nil {
		if err := s.verifyProducts(ctx, *patch.ProductIDs); err != nil {
			return nil, err
		}
	}
	if err := s.repo.UpdateConfig(ctx, id, patch); err != nil {
		return nil, err
	}
	s.bumpConfigCache(ctx)
	s.recordConfigAudit(ctx, actor, "checkout.update", id, nil)
	return s.repo.GetConfig(ctx, id)
}

// DeleteConfig removes a checkout configuration.
func (s *Service) DeleteConfig(ctx context.Context, actor rbac.Principal, id string) error {
	if !actor.Admin {
		return &rbac.AccessDenied{Reason: "checkout administration requires admin"}
	}
	cfg, err := s.repo.GetConfig(ctx, id)
	if err != nil {
		return fmt.Errorf("checkout %s: %w", id, err)
	}
	if err := s.repo.DeleteConfig(ctx, id); err != nil {
		return err
	}
	s.bumpConfigCache(ctx)
	s.recordConfigAudit(ctx, actor, "checkout.delete", id, map[string]any{"slug": cfg.Slug})
	return nil
}

func (s *Service) verifyProducts(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := s.catalog.GetProduct(ctx, id); err != nil {
			return fmt.Errorf("product %s: %w", id, err)
		}
	}
	return nil
}

func (s *Service) bumpConfigCache(ctx context.Context) {
	if err := s.cache.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("bump checkout config cache", slog.Any("error", err))
	}
}

func (s *Service) recordConfigAudit(ctx context.Context, actor rbac.Principal, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, audit.Entry{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "checkout",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil && s.logger != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}
