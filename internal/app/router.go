package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/launchthat/storefront/internal/auth"
	"github.com/launchthat/storefront/internal/checkout"
	"github.com/launchthat/storefront/internal/downloads"
	"github.com/launchthat/storefront/internal/observability"
	"github.com/launchthat/storefront/internal/rbac"
	"github.com/launchthat/storefront/internal/shared"
	"github.com/launchthat/storefront/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	AuthService      *auth.Service
	AuthHandler      *auth.Handler
	RolesHandler     *rbac.Handler
	DownloadsHandler *downloads.Handler
	CheckoutHandler  *checkout.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with storefront defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		AuthService:    params.AuthService,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	guard := rbac.Middleware{}

	r.Route("/auth", params.AuthHandler.MountRoutes)
	if params.RolesHandler != nil {
		r.Route("/roles", func(r chi.Router) {
			r.Use(guard.RequireAny(rbac.PermManagePermissions))
			params.RolesHandler.MountRoutes(r)
		})
	}
	if params.DownloadsHandler != nil {
		r.Route("/downloads", func(r chi.Router) {
			params.DownloadsHandler.MountRoutes(r)
		})
	}
	if params.CheckoutHandler != nil {
		r.Route("/checkouts", func(r chi.Router) {
			params.CheckoutHandler.MountRoutes(r)
		})
		r.Route("/admin/checkouts", func(r chi.Router) {
			r.Use(guard.RequireAdmin)
			params.CheckoutHandler.MountAdminRoutes(r)
		})
	}
	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			r.Use(guard.RequireAdmin)
			params.JobHandler.MountRoutes(r)
		})
	}
	if params.Metrics != nil {
		r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			params.Metrics.Handler().ServeHTTP(w, r)
		})
	}

	return r
}
