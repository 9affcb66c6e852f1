package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/launchthat/storefront/internal/platform/httpx"
)

// Handler exposes role administration over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers role routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listRoles)
	r.Post("/", h.createRole)
	r.Delete("/{roleID}", h.deleteRole)
	r.Get("/catalog", h.catalog)
	r.Post("/downloads/assign", h.assignDownloadRole)
}

type roleView struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Scope        string `json:"scope"`
	Priority     int    `json:"priority"`
	IsSystem     bool   `json:"isSystem"`
	IsAssignable bool   `json:"isAssignable"`
	ParentID     string `json:"parentId,omitempty"`
}

func toRoleView(role Role) roleView {
	return roleView{
		ID:           role.ID,
		Name:         role.Name,
		Description:  role.Description,
		Scope:        role.Scope.String(),
		Priority:     role.Priority,
		IsSystem:     role.IsSystem,
		IsAssignable: role.IsAssignable,
		ParentID:     role.ParentID,
	}
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]roleView, 0, len(roles))
	for _, role := range roles {
		views = append(views, toRoleView(role))
	}
	httpx.JSON(w, http.StatusOK, views)
}

type createRoleRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=64"`
	Description  string `json:"description"`
	Scope        string `json:"scope" validate:"omitempty,oneof=global organization"`
	OrgID        string `json:"orgId"`
	Priority     int    `json:"priority" validate:"gte=0,lte=1000"`
	IsAssignable bool   `json:"isAssignable"`
	ParentID     string `json:"parentId"`
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	scope := GlobalScope()
	if req.Scope == string(ScopeOrganization) {
		if req.OrgID == "" {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "orgId required for organization scope")
			return
		}
		scope = OrganizationScope(req.OrgID)
	}
	role, err := h.service.CreateRole(r.Context(), PrincipalFromContext(r.Context()), CreateRoleInput{
		Name:         req.Name,
		Description:  req.Description,
		Scope:        scope,
		Priority:     req.Priority,
		IsAssignable: req.IsAssignable,
		ParentID:     req.ParentID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRoleView(*role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DeleteRole(r.Context(), PrincipalFromContext(r.Context()), chi.URLParam(r, "roleID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	out := make(map[string][]Permission, len(rolePermissions))
	for _, name := range CatalogRoles() {
		perms := rolePermissions[name].List()
		out[name] = perms
	}
	httpx.JSON(w, http.StatusOK, out)
}

type assignRoleRequest struct {
	UserID string `json:"userId" validate:"required"`
	Role   string `json:"role" validate:"required"`
}

func (h *Handler) assignDownloadRole(w http.ResponseWriter, r *http.Request) {
	var req assignRoleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.AssignDownloadRole(r.Context(), PrincipalFromContext(r.Context()), req.UserID, req.Role); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
