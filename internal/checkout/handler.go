package checkout

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/launchthat/storefront/internal/platform/httpx"
	"github.com/launchthat/storefront/internal/rbac"
)

// Handler exposes the checkout flow over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the public checkout routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sessions/{sessionID}", h.getSession)
	r.Post("/sessions/{sessionID}/info", h.updateSessionInfo)
	r.Post("/sessions/{sessionID}/complete", h.completeSession)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Get("/{slug}", h.getCheckout)
	r.Post("/{slug}/sessions", h.createSession)
}

// MountAdminRoutes registers configuration management routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.listConfigs)
	r.Post("/", h.createConfig)
	r.Patch("/{checkoutID}", h.updateConfig)
	r.Delete("/{checkoutID}", h.deleteConfig)
}

type addressPayload struct {
	FullName        string `json:"fullName" validate:"required"`
	AddressLine1    string `json:"addressLine1" validate:"required"`
	AddressLine2    string `json:"addressLine2"`
	City            string `json:"city" validate:"required"`
	StateOrProvince string `json:"stateOrProvince" validate:"required"`
	PostalCode      string `json:"postalCode" validate:"required"`
	Country         string `json:"country" validate:"required"`
	PhoneNumber     string `json:"phoneNumber"`
}

func (a *addressPayload) toDomain() *Address {
	if a == nil {
		return nil
	}
	return &Address{
		FullName:        a.FullName,
		AddressLine1:    a.AddressLine1,
		AddressLine2:    a.AddressLine2,
		City:            a.City,
		StateOrProvince: a.StateOrProvince,
		PostalCode:      a.PostalCode,
		Country:         a.Country,
		PhoneNumber:     a.PhoneNumber,
	}
}

type configView struct {
	ID                     string    `json:"id"`
	Title                  string    `json:"title"`
	Slug                   string    `json:"slug"`
	Description            string    `json:"description,omitempty"`
	ProductIDs             []string  `json:"productIds"`
	CollectEmail           bool      `json:"collectEmail"`
	CollectName            bool      `json:"collectName"`
	CollectPhone           bool      `json:"collectPhone"`
	CollectShippingAddress bool      `json:"collectShippingAddress"`
	CollectBillingAddress  bool      `json:"collectBillingAddress"`
	AllowCoupons           bool      `json:"allowCoupons"`
	SuccessURL             string    `json:"successUrl,omitempty"`
	CancelURL              string    `json:"cancelUrl,omitempty"`
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
}

func toConfigView(c Config) configView {
	return configView{
		ID:                     c.ID,
		Title:                  c.Title,
		Slug:                   c.Slug,
		Description:            c.Description,
		ProductIDs:             c.ProductIDs,
		CollectEmail:           c.CollectEmail,
		CollectName:            c.CollectName,
		CollectPhone:           c.CollectPhone,
		CollectShippingAddress: c.CollectShippingAddress,
		CollectBillingAddress:  c.CollectBillingAddress,
		AllowCoupons:           c.AllowCoupons,
		SuccessURL:             c.SuccessURL,
		CancelURL:              c.CancelURL,
		Status:                 c.Status,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

type sessionView struct {
	ID              string      `json:"id"`
	CheckoutID      string      `json:"checkoutId"`
	CartID          string      `json:"cartId"`
	Email           string      `json:"email,omitempty"`
	Name            string      `json:"name,omitempty"`
	Phone           string      `json:"phone,omitempty"`
	ShippingAddress *Address    `json:"shippingAddress,omitempty"`
	BillingAddress  *Address    `json:"billingAddress,omitempty"`
	Status          string      `json:"status"`
	CurrentStep     string      `json:"currentStep"`
	Subtotal        float64     `json:"subtotal"`
	DiscountAmount  float64     `json:"discountAmount"`
	TaxAmount       float64     `json:"taxAmount"`
	ShippingAmount  float64     `json:"shippingAmount"`
	TotalAmount     float64     `json:"totalAmount"`
	ExpiresAt       time.Time   `json:"expiresAt"`
	Cart            *Cart       `json:"cart,omitempty"`
	Config          *configView `json:"checkout,omitempty"`
}

func toSessionView(d SessionDetail) sessionView {
	view := sessionView{
		ID:              d.Session.ID,
		CheckoutID:      d.Session.CheckoutID,
		CartID:          d.Session.CartID,
		Email:           d.Session.Email,
		Name:            d.Session.Name,
		Phone:           d.Session.Phone,
		ShippingAddress: d.Session.ShippingAddress,
		BillingAddress:  d.Session.BillingAddress,
		Status:          d.Session.Status,
		CurrentStep:     d.Session.CurrentStep,
		Subtotal:        d.Session.Subtotal,
		DiscountAmount:  d.Session.DiscountAmount,
		TaxAmount:       d.Session.TaxAmount,
		ShippingAmount:  d.Session.ShippingAmount,
		TotalAmount:     d.Session.TotalAmount,
		ExpiresAt:       d.Session.ExpiresAt,
		Cart:            d.Cart,
	}
	if d.Config != nil {
		cfg := toConfigView(*d.Config)
		view.Config = &cfg
	}
	return view
}

func (h *Handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.ActiveCheckoutBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"config":   toConfigView(view.Config),
		"products": view.Products,
	})
}

type createSessionRequest struct {
	Email string `json:"email" validate:"omitempty,email"`
	Name  string `json:"name" validate:"omitempty,max=200"`
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
			return
		}
		if err := h.validate.Struct(req); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	result, err := h.service.CreateSession(r.Context(), rbac.PrincipalFromContext(r.Context()),
		chi.URLParam(r, "slug"), req.Email, req.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSessionView(*detail))
}

type updateInfoRequest struct {
	Email           string          `json:"email" validate:"omitempty,email"`
	Name            string          `json:"name" validate:"omitempty,max=200"`
	Phone           string          `json:"phone" validate:"omitempty,max=40"`
	ShippingAddress *addressPayload `json:"shippingAddress"`
}

func (h *Handler) updateSessionInfo(w http.ResponseWriter, r *http.Request) {
	var req updateInfoRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	session, err := h.service.UpdateSessionInfo(r.Context(), chi.URLParam(r, "sessionID"), UpdateInfoInput{
		Email:           req.Email,
		Name:            req.Name,
		Phone:           req.Phone,
		ShippingAddress: req.ShippingAddress.toDomain(),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toSessionView(SessionDetail{Session: *session}))
}

type completeSessionRequest struct {
	PaymentMethod   string          `json:"paymentMethod" validate:"required"`
	PaymentIntentID string          `json:"paymentIntentId"`
	BillingAddress  *addressPayload `json:"billingAddress"`
}

func (h *Handler) completeSession(w http.ResponseWriter, r *http.Request) {
	var req completeSessionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.CompleteSession(r.Context(), chi.URLParam(r, "sessionID"), CompleteInput{
		PaymentMethod:   req.PaymentMethod,
		PaymentIntentID: req.PaymentIntentID,
		BillingAddress:  req.BillingAddress.toDomain(),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) listConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := h.service.ListConfigs(r.Context(), rbac.PrincipalFromContext(r.Context()), r.URL.Query().Get("status"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	views := make([]configView, 0, len(configs))
	for _, c := range configs {
		views = append(views, toConfigView(c))
	}
	httpx.JSON(w, http.StatusOK, views)
}

type createConfigRequest struct {
	Title                  string   `json:"title" validate:"required,min=1,max=200"`
	Slug                   string   `json:"slug" validate:"required,min=1,max=120"`
	Description            string   `json:"description"`
	ProductIDs             []string `json:"productIds" validate:"required,min=1"`
	CollectEmail           bool     `json:"collectEmail"`
	CollectName            bool     `json:"collectName"`
	CollectPhone           bool     `json:"collectPhone"`
	CollectShippingAddress bool     `json:"collectShippingAddress"`
	CollectBillingAddress  bool     `json:"collectBillingAddress"`
	AllowCoupons           bool     `json:"allowCoupons"`
	SuccessURL             string   `json:"successUrl" validate:"omitempty,url"`
	CancelURL              string   `json:"cancelUrl" validate:"omitempty,url"`
	Status                 string   `json:"status" validate:"omitempty,oneof=active draft archived"`
}

func (h *Handler) createConfig(w http.ResponseWriter, r *http.Request) {
	var req createConfigRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cfg, err := h.service.CreateConfig(r.Context(), rbac.PrincipalFromContext(r.Context()), CreateConfigInput{
		Title:                  req.Title,
		Slug:                   req.Slug,
		Description:            req.Description,
		ProductIDs:             req.ProductIDs,
		CollectEmail:           req.CollectEmail,
		CollectName:            req.CollectName,
		CollectPhone:           req.CollectPhone,
		CollectShippingAddress: req.CollectShippingAddress,
		CollectBillingAddress:  req.CollectBillingAddress,
		AllowCoupons:           req.AllowCoupons,
		SuccessURL:             req.SuccessURL,
		CancelURL:              req.CancelURL,
		Status:                 req.Status,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toConfigView(*cfg))
}

type updateConfigRequest struct {
	Title                  *string   `json:"title" validate:"omitempty,min=1,max=200"`
	Description            *string   `json:"description"`
	ProductIDs             *[]string `json:"productIds" validate:"omitempty,min=1"`
	CollectEmail           *bool     `json:"collectEmail"`
	CollectName            *bool     `json:"collectName"`
	CollectPhone           *bool     `json:"collectPhone"`
	CollectShippingAddress *bool     `json:"collectShippingAddress"`
	CollectBillingAddress  *bool     `json:"collectBillingAddress"`
	AllowCoupons           *bool     `json:"allowCoupons"`
	SuccessURL             *string   `json:"successUrl" validate:"omitempty,url"`
	CancelURL              *string   `json:"cancelUrl" validate:"omitempty,url"`
	Status                 *string   `json:"status" validate:"omitempty,oneof=active draft archived"`
}

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cfg, err := h.service.UpdateConfig(r.Context(), rbac.PrincipalFromContext(r.Context()), chi.URLParam(r, "checkoutID"), ConfigPatch{
		Title:                  req.Title,
		Description:            req.Description,
		ProductIDs:             req.ProductIDs,
		CollectEmail:           req.CollectEmail,
		CollectName:            req.CollectName,
		CollectPhone:           req.CollectPhone,
		CollectShippingAddress: req.CollectShippingAddress,
		CollectBillingAddress:  req.CollectBillingAddress,
		AllowCoupons:           req.AllowCoupons,
		SuccessURL:             req.SuccessURL,
		CancelURL:              req.CancelURL,
		Status:                 req.Status,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toConfigView(*cfg))
}

func (h *Handler) deleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteConfig(r.Context(), rbac.PrincipalFromContext(r.Context()), chi.URLParam(r, "checkoutID")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}
