package whatsapp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leaddesk/leaddesk/internal/platform/httpx"
	"github.com/leaddesk/leaddesk/internal/rbac"
	"github.com/leaddesk/leaddesk/internal/shared"
)

// TemplateLister lists gateway templates.
type TemplateLister interface {
	Templates(ctx context.Context) ([]Template, error)
}

// Handler exposes the template listing.
type Handler struct {
	logger    *slog.Logger
	templates TemplateLister
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, templates TemplateLister, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, templates: templates, rbac: rbac}
}

// MountRoutes registers WhatsApp routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermTemplatesView)).Get("/templates", h.listTemplates)
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.Templates(r.Context())
	if err != nil {
		h.logger.Error("list whatsapp templates", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "WhatsApp service is unavailable, please try again")
		return
	}
	if templates == nil {
		templates = []Template{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": templates})
}
