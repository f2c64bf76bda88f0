package leads

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leaddesk/leaddesk/internal/rbac"
	"github.com/leaddesk/leaddesk/internal/shared"
)

func newTestRouter(f *serviceFixture, profile shared.Profile) http.Handler {
	h := NewHandler(discardLogger(), f.svc, rbac.Middleware{Service: rbac.NewService(), Logger: discardLogger()})
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithSession(req.Context(), &shared.Session{Profile: profile})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/leads", h.MountRoutes)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestParseFilters(t *testing.T) {
	v := url.Values{}
	v.Set("from", "2025-03-01")
	v.Set("to", "2025-03-05T00:00:00+05:30")
	v.Set("city", "2")
	v.Set("status", "Followup")
	v.Set("page", "3")
	v.Set("name", " acme ")

	f, err := ParseFilters(v)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-01", f.From.Format("2006-01-02"))
	assert.Equal(t, 5, f.To.Day())
	assert.Equal(t, int64(2), f.CityID)
	assert.Equal(t, StatusFollowup, f.Status)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, "acme", f.BusinessName)

	_, err = ParseFilters(url.Values{"page": {"x"}, "from": {"yesterday"}})
	fe, ok := shared.AsFieldErrors(err)
	require.True(t, ok)
	assert.Contains(t, fe, "page")
	assert.Contains(t, fe, "from")
}

func TestCreateAndListOverHTTP(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(f, admin)

	body := `{"name":"Acme","mobile":"9876543210","city_id":1,"category_id":1,"source_id":1,"status":"Fresh Data"}`
	rec := doJSON(t, router, http.MethodPost, "/api/leads?refresh=true&page=1", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Lead Lead       `json:"lead"`
		List ListResult `json:"list"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "Acme", created.Lead.Name)
	assert.Equal(t, 1, created.List.TotalCount)

	rec = doJSON(t, router, http.MethodPost, "/api/leads", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Mobile number already exists")

	rec = doJSON(t, router, http.MethodGet, "/api/leads?page=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list ListResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Empty(t, list.Leads)
	assert.Equal(t, "No leads on page 4. The last page is 1.", list.EmptyMessage)
}

func TestDeleteOverHTTP(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(f, admin)
	body := `{"name":"Acme","mobile":"9876543210","city_id":1,"category_id":1,"source_id":1,"status":"Fresh Data"}`
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/leads", body).Code)

	assert.Equal(t, http.StatusPreconditionRequired, doJSON(t, router, http.MethodDelete, "/api/leads/1", "").Code)
	assert.Equal(t, http.StatusOK, doJSON(t, router, http.MethodDelete, "/api/leads/1?confirm=true", "").Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, router, http.MethodGet, "/api/leads/1", "").Code)
}

func TestRoleGuards(t *testing.T) {
	f := newServiceFixture(t)
	assert.Equal(t, http.StatusForbidden, doJSON(t, newTestRouter(f, telecaller), http.MethodDelete, "/api/leads/1?confirm=true", "").Code)
	assert.Equal(t, http.StatusForbidden, doJSON(t, newTestRouter(f, admin), http.MethodPost, "/api/leads/1/visit", `{"reason":"Deal Closed"}`).Code)
}

func TestProposalGatewayFailure(t *testing.T) {
	f := newServiceFixture(t)
	router := newTestRouter(f, admin)
	body := `{"name":"Acme","mobile":"9876543210","city_id":1,"category_id":1,"source_id":1,"status":"Fresh Data"}`
	require.Equal(t, http.StatusCreated, doJSON(t, router, http.MethodPost, "/api/leads", body).Code)

	assert.Equal(t, http.StatusNoContent, doJSON(t, router, http.MethodPost, "/api/leads/1/proposal", `{"template_id":"intro"}`).Code)
	f.proposals.err = errStoreDown
	assert.Equal(t, http.StatusBadGateway, doJSON(t, router, http.MethodPost, "/api/leads/1/proposal", `{"template_id":"intro"}`).Code)
}
