package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leaddesk/leaddesk/internal/auth"
	"github.com/leaddesk/leaddesk/internal/leads"
	"github.com/leaddesk/leaddesk/internal/masterdata"
	"github.com/leaddesk/leaddesk/internal/observability"
	"github.com/leaddesk/leaddesk/internal/platform/httpx"
	"github.com/leaddesk/leaddesk/internal/rbac"
	"github.com/leaddesk/leaddesk/internal/shared"
	"github.com/leaddesk/leaddesk/internal/users"
	"github.com/leaddesk/leaddesk/internal/whatsapp"
	"github.com/leaddesk/leaddesk/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	SessionManager     *shared.SessionManager
	RBACMiddleware     rbac.Middleware
	AuthHandler        *auth.Handler
	LeadsHandler       *leads.Handler
	UsersHandler       *users.Handler
	LookupHandlers     map[masterdata.Kind]*masterdata.Handler
	WhatsAppHandler    *whatsapp.Handler
	PermissionsHandler *rbac.PermissionsHandler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

var lookupRoutes = map[masterdata.Kind]string{
	masterdata.KindCategory: "/categories",
	masterdata.KindCity:     "/cities",
	masterdata.KindSource:   "/sources",
}

// NewRouter constructs the chi.Router with LeadDesk defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		r.Group(func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireSession)
			if params.AuthHandler != nil {
				r.Get("/me", params.AuthHandler.Me)
			}
			if params.LeadsHandler != nil {
				r.Route("/leads", params.LeadsHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
			for kind, h := range params.LookupHandlers {
				if path, ok := lookupRoutes[kind]; ok && h != nil {
					r.Route(path, h.MountRoutes)
				}
			}
			if params.WhatsAppHandler != nil {
				r.Route("/whatsapp", params.WhatsAppHandler.MountRoutes)
			}
			if params.PermissionsHandler != nil {
				r.Route("/permissions", params.PermissionsHandler.MountRoutes)
			}
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "No route matches "+r.URL.Path)
	})
	return r
}
