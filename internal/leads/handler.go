package leads

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leaddesk/leaddesk/internal/platform/httpx"
	"github.com/leaddesk/leaddesk/internal/rbac"
	"github.com/leaddesk/leaddesk/internal/shared"
)

// Handler exposes lead endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers lead routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermLeadView))
		r.Get("/", h.list)
		r.Get("/{id}", h.show)
		r.Get("/{id}/summary", h.summary)
	})
	r.With(h.rbac.RequireAny(shared.PermLeadCreate)).Post("/", h.create)
	r.With(h.rbac.RequireAny(shared.PermLeadEdit)).Put("/{id}", h.update)
	r.With(h.rbac.RequireAny(shared.PermLeadDelete)).Delete("/{id}", h.remove)
	r.With(h.rbac.RequireAny(shared.PermLeadVisit)).Post("/{id}/visit", h.visit)
	r.With(h.rbac.RequireAny(shared.PermLeadPropose)).Post("/{id}/proposal", h.proposal)
}

// ParseFilters reads list filters from query parameters.
func ParseFilters(values url.Values) (Filters, error) {
	var f Filters
	errs := FieldErrors{}
	if raw := values.Get("from"); raw != "" {
		t, err := shared.ParseDate(raw)
		if err != nil {
			errs.Add("from", "Use the YYYY-MM-DD format")
		} else {
			f.From = &t
		}
	}
	if raw := values.Get("to"); raw != "" {
		t, err := shared.ParseDate(raw)
		if err != nil {
			errs.Add("to", "Use the YYYY-MM-DD format")
		} else {
			f.To = &t
		}
	}
	f.Mobile = strings.TrimSpace(values.Get("mobile"))
	f.BusinessName = strings.TrimSpace(values.Get("name"))
	f.Status = Status(strings.TrimSpace(values.Get("status")))
	f.CityID = parseIntParam(values, "city", errs)
	f.CategoryID = parseIntParam(values, "category", errs)
	f.Page = int(parseIntParam(values, "page", errs))
	f.Limit = int(parseIntParam(values, "limit", errs))
	if err := errs.Err(); err != nil {
		return Filters{}, err
	}
	return f, nil
}

func parseIntParam(values url.Values, key string, errs FieldErrors) int64 {
	raw := strings.TrimSpace(values.Get(key))
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n < 0 {
		errs.Add(key, "Must be a positive number")
		return 0
	}
	return n
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	profile, _ := shared.ProfileFromContext(r.Context())
	filters, err := ParseFilters(r.URL.Query())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.List(r.Context(), profile, filters)
	if err != nil {
		h.logger.Error("list leads failed", slog.Int64("user_id", profile.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.ParseID(chi.URLParam(r, "id"))
	if !ok {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	profile, _ := shared.ProfileFromContext(r.Context())
	view, err := h.service.Get(r.Context(), profile, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.ParseID(chi.URLParam(r, "id"))
	if !ok {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	profile, _ := shared.ProfileFromContext(r.Context())
	text, err := h.service.Summary(r.Context(), profile, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"summary": text})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req LeadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	profile, _ := shared.ProfileFromContext(r.Context())
	lead, err := h.service.Create(r.Context(), profile, req)
	if err != nil {
		h.logger.Warn("create lead", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondMutation(w, r, http.StatusCreated, map[string]any{"lead": lead})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.ParseID(chi.URLParam(r, "id"))
	if !ok {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	var req LeadRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	profile, _ := shared.ProfileFromContext(r.Context())
	lead, err := h.service.Update(r.Context(), profile, id, req)
	if err != nil {
		h.logger.Warn("update lead", slog.Int64("lead_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.respondMutation(w, r, http.StatusOK, map[string]any{"lead": lead})
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.ParseID(chi.URLParam(r, "id"))
	if !ok {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	confirm, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	profile, _ := shared.ProfileFromContext(r.Context())
	if err := h.service.Delete(r.Context(), profile, id, confirm); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("lead deleted", slog.Int64("lead_id", id), slog.Int64("actor_id", profile.UserID))
	h.respondMutation(w, r, http.StatusOK, map[string]any{"deleted": id})
}

func (h *Handler) visit(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.ParseID(chi.URLParam(r, "id"))
	if !ok {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	var req VisitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	profile, _ := shared.ProfileFromContext(r.Context())
	lead, err := h.service.MarkVisited(r.Context(), profile, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.respondMutation(w, r, http.StatusOK, map[string]any{"lead": lead})
}

func (h *Handler) proposal(w http.ResponseWriter, r *http.Request) {
	id, ok := httpx.ParseID(chi.URLParam(r, "id"))
	if !ok {
		httpx.RespondError(w, ErrNotFound)
		return
	}
	var req ProposalRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	profile, _ := shared.ProfileFromContext(r.Context())
	err := h.service.SendProposal(r.Context(), profile, id, req)
	if errors.Is(err, ErrProposalFailed) {
		httpx.Problem(w, http.StatusBadGateway, "Bad Gateway", "The proposal could not be sent, please try again")
		return
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondMutation writes body, adding the refreshed list when the client sends
// refresh=true with its current list filters. The mutation has committed, so a
// failed refresh only drops the list.
func (h *Handler) respondMutation(w http.ResponseWriter, r *http.Request, status int, body map[string]any) {
	if refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh")); refresh {
		if list, err := h.refresh(r); err != nil {
			h.logger.Error("refresh lead list failed", slog.Any("error", err))
		} else {
			body["list"] = list
		}
	}
	httpx.JSON(w, status, body)
}

func (h *Handler) refresh(r *http.Request) (ListResult, error) {
	profile, _ := shared.ProfileFromContext(r.Context())
	filters, err := ParseFilters(r.URL.Query())
	if err != nil {
		return ListResult{}, err
	}
	return h.service.List(r.Context(), profile, filters)
}
