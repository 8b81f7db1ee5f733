package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qrmfg/portal/pkg/auth"
	"github.com/qrmfg/portal/pkg/middleware"
	"github.com/qrmfg/portal/pkg/observability"
	"github.com/qrmfg/portal/pkg/rbac"
)

type staticDecoder struct {
	claims map[string]*auth.Claims
}

func (d *staticDecoder) Decode(ctx context.Context, raw string) (*auth.Claims, error) {
	if c, ok := d.claims[raw]; ok {
		return c, nil
	}
	return nil, errors.New("invalid credential")
}

func testTokens() map[string]*auth.Claims {
	return map[string]*auth.Claims{
		"admin-token": {Subject: "root", Roles: []string{"ADMIN"}},
		"cqs-token":   {Subject: "alice", Roles: []string{"CQS_USER"}, Plants: []string{"1102"}},
		"plant-token": {Subject: "pavel", Roles: []string{"PLANT_USER"}, Plants: []string{"1103"}, PrimaryPlant: "1103"},
		"view-token":  {Subject: "vera", Roles: []string{"VIEWER"}},
	}
}

func newTestServer(t *testing.T) (*Server, *QueryStore) {
	t.Helper()

	log := observability.NewLogger(observability.DebugLevel, &bytes.Buffer{})
	session := auth.NewSession(&staticDecoder{claims: testTokens()})
	principals := rbac.NewPrincipalContext(session, nil, log)
	engine := rbac.NewEngine(rbac.EngineOptions{Principals: principals, Logger: log})
	queries := NewQueryStore()

	server := NewServer(ServerOptions{
		Principals:  principals,
		Engine:      engine,
		Queries:     queries,
		Logger:      log,
		PrincipalMW: middleware.NewPrincipalMiddleware(session, principals, log),
	})
	return server, queries
}

func do(t *testing.T, server *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestMenuRequiresAuthentication(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/qrmfg/api/menu", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMenuPerRole(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		token string
		want  []string
	}{
		{"admin-token", []string{"dashboard", "queries", "workflows", "reports", "plants", "users", "cache", "audit"}},
		{"cqs-token", []string{"dashboard", "queries", "workflows", "reports"}},
		{"plant-token", []string{"dashboard", "queries", "workflows", "plants"}},
		{"view-token", []string{"dashboard"}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			rec := do(t, server, http.MethodGet, "/qrmfg/api/menu", tt.token, nil)
			require.Equal(t, http.StatusOK, rec.Code)

			var resp struct {
				Entries []rbac.NavigationEntry `json:"entries"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

			keys := make([]string, 0, len(resp.Entries))
			for _, e := range resp.Entries {
				keys = append(keys, e.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}

func TestAccessCheckScreen(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/qrmfg/api/access/check", "cqs-token",
		accessCheckRequest{Kind: rbac.KindScreen, Path: "/qrmfg/admin"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp accessCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Granted)
	assert.Equal(t, rbac.SourceLocal, resp.Source)

	rec = do(t, server, http.MethodPost, "/qrmfg/api/access/check", "admin-token",
		accessCheckRequest{Kind: rbac.KindScreen, Path: "/qrmfg/admin"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Granted)
}

func TestAccessCheckUnknownRoleDenies(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/qrmfg/api/access/check", "admin-token",
		accessCheckRequest{Kind: rbac.KindRoles, Roles: []string{"SUPERUSER"}})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp accessCheckResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Granted, "an unknown role denies even for an admin")
}

func TestAccessCheckBadKind(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/qrmfg/api/access/check", "admin-token",
		accessCheckRequest{Kind: "widget"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListQueriesPlantScoped(t *testing.T) {
	server, queries := newTestServer(t)
	queries.Add(Query{Title: "coating defect", Plant: "1102"})
	queries.Add(Query{Title: "label mismatch", Plant: "1103"})
	queries.Add(Query{Title: "viscosity drift", Plant: "1103"})

	rec := do(t, server, http.MethodGet, "/qrmfg/api/queries", "plant-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Queries []Query `json:"queries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Queries, 2)
	assert.Equal(t, "label mismatch", resp.Queries[0].Title)
	assert.Equal(t, "viscosity drift", resp.Queries[1].Title)
}

func TestListQueriesAdminSeesAll(t *testing.T) {
	server, queries := newTestServer(t)
	queries.Add(Query{Title: "a", Plant: "1102"})
	queries.Add(Query{Title: "b", Plant: "1103"})

	rec := do(t, server, http.MethodGet, "/qrmfg/api/queries", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Queries []Query `json:"queries"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Queries, 2)
}

func TestListQueriesViewerDenied(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/qrmfg/api/queries", "view-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "a denied dataset looks like a missing route")
}

func TestCreateQuery(t *testing.T) {
	server, queries := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/qrmfg/api/queries", "plant-token",
		createQueryRequest{Title: "seal failure on batch 7", Plant: "1103", MaterialCode: "M-204"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Query
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "OPEN", created.Status)
	assert.Equal(t, "pavel", created.RaisedBy)
	assert.Len(t, queries.List(), 1)
}

func TestCreateQueryOutsidePlantScope(t *testing.T) {
	server, queries := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/qrmfg/api/queries", "plant-token",
		createQueryRequest{Title: "seal failure", Plant: "1102"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, queries.List())
}

func TestCreateQueryRejectsInjection(t *testing.T) {
	server, queries := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/qrmfg/api/queries", "plant-token",
		createQueryRequest{Title: `<script>alert(1)</script>`, Plant: "1103"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "script tag detected")
	assert.Empty(t, queries.List())
}

func TestCreateQueryEscapesMarkup(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/qrmfg/api/queries", "plant-token",
		createQueryRequest{Title: "tolerance <2mm", Plant: "1103"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created Query
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "tolerance &lt;2mm", created.Title)
}

func TestCreateQueryMissingFields(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodPost, "/qrmfg/api/queries", "plant-token",
		createQueryRequest{Description: "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheStatsAdminOnly(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/qrmfg/api/cache/stats", "cqs-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, server, http.MethodGet, "/qrmfg/api/cache/stats", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "decision_cache"))
}

func TestAuditAdminOnly(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/qrmfg/api/audit", "view-token", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, server, http.MethodGet, "/qrmfg/api/audit", "admin-token", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "entries")
}

func TestUnauthenticatedGatedRoute(t *testing.T) {
	server, _ := newTestServer(t)

	rec := do(t, server, http.MethodGet, "/qrmfg/api/queries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
