package downloads

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/rbac"
)

// Handler exposes download management over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers download routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/{downloadID}", h.get)
	r.Patch("/{downloadID}", h.update)
	r.Get("/{downloadID}/access", h.accessCheck)
	r.Get("/{downloadID}/access/list", h.accessList)
	r.Post("/{downloadID}/access/grant", h.grant)
	r.Post("/{downloadID}/access/revoke", h.revoke)
}

type downloadView struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	Description       string    `json:"description,omitempty"`
	UploadedBy        string    `json:"uploadedBy"`
	IsPublic          bool      `json:"isPublic"`
	RequiredProductID string    `json:"requiredProductId,omitempty"`
	RequiredCourseID  string    `json:"requiredCourseId,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func toDownloadView(d Download) downloadView {
	return downloadView{
		ID:                d.ID,
		Title:             d.Title,
		Description:       d.Description,
		UploadedBy:        d.UploadedBy,
		IsPublic:          d.IsPublic,
		RequiredProductID: d.RequiredProductID,
		RequiredCourseID:  d.RequiredCourseID,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

type createRequest struct {
	Title             string `json:"title" validate:"required,min=1,max=200"`
	Description       string `json:"description" validate:"max=2000"`
	IsPublic          bool   `json:"isPublic"`
	RequiredProductID string `json:"requiredProductId"`
	RequiredCourseID  string `json:"requiredCourseId"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	d, err := h.service.Create(r.Context(), rbac.PrincipalFromContext(r.Context()), CreateInput{
		Title:             req.Title,
		Description:       req.Description,
		IsPublic:          req.IsPublic,
		RequiredProductID: req.RequiredProductID,
		RequiredCourseID:  req.RequiredCourseID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toDownloadView(*d))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), rbac.PrincipalFromContext(r.Context()), chi.URLParam(r, "downloadID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDownloadView(*d))
}

type updateRequest struct {
	Title             *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description       *string `json:"description" validate:"omitempty,max=2000"`
	IsPublic          *bool   `json:"isPublic"`
	RequiredProductID *string `json:"requiredProductId"`
	RequiredCourseID  *string `json:"requiredCourseId"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	d, err := h.service.Update(r.Context(), rbac.PrincipalFromContext(r.Context()), chi.URLParam(r, "downloadID"), Patch{
		Title:             req.Title,
		Description:       req.Description,
		IsPublic:          req.IsPublic,
		RequiredProductID: req.RequiredProductID,
		RequiredCourseID:  req.RequiredCourseID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDownloadView(*d))
}

func (h *Handler) accessCheck(w http.ResponseWriter, r *http.Request) {
	ok, err := h.service.CheckAccess(r.Context(), rbac.PrincipalFromContext(r.Context()), chi.URLParam(r, "downloadID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"hasAccess": ok})
}

func (h *Handler) accessList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetAccessList(r.Context(), rbac.PrincipalFromContext(r.Context()), chi.URLParam(r, "downloadID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []AccessEntry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

type grantRequest struct {
	UserID string `json:"userId" validate:"required"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.GrantAccess(r.Context(), rbac.PrincipalFromContext(r.Context()), chi.URLParam(r, "downloadID"), req.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.RevokeAccess(r.Context(), rbac.PrincipalFromContext(r.Context()), chi.URLParam(r, "downloadID"), req.UserID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
