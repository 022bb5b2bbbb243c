package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamsonidarshan/mcp-inspector/pkg/agent"
	"github.com/iamsonidarshan/mcp-inspector/pkg/config"
	"github.com/iamsonidarshan/mcp-inspector/pkg/indexer"
	"github.com/iamsonidarshan/mcp-inspector/pkg/mcp"
	"github.com/iamsonidarshan/mcp-inspector/pkg/profile"
)

func newTestServer(t *testing.T, authToken string) *Server {
	t.Helper()
	dir := t.TempDir()

	profiles, err := profile.NewStore(dir)
	require.NoError(t, err)
	idx, err := indexer.New(dir, profiles)
	require.NoError(t, err)

	// The client connects lazily; no subprocess is spawned in these tests.
	mcpClient, err := mcp.NewClient(mcp.Config{Command: "true"})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.SetDefaults()
	cfg.Server.AuthToken = authToken

	return New(cfg, agent.New(), profiles, idx, mcpClient)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	rec := doJSON(t, s.Router(), http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t, "sekrit")
	router := s.Router()

	rec := doJSON(t, router, http.MethodGet, "/api/agent/state", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/agent/state", nil,
		map[string]string{"Authorization": "Bearer wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/agent/state", nil,
		map[string]string{"Authorization": "Bearer sekrit"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open.
	rec = doJSON(t, router, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAgentStartWithoutConfigureConflicts(t *testing.T) {
	s := newTestServer(t, "")
	rec := doJSON(t, s.Router(), http.MethodPost, "/api/agent/start", nil, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAgentStateReturnsIdleSnapshot(t *testing.T) {
	s := newTestServer(t, "")
	rec := doJSON(t, s.Router(), http.MethodGet, "/api/agent/state", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var state map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, "idle", state["status"])
}

func TestProfileLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, "")
	router := s.Router()

	rec := doJSON(t, router, http.MethodPost, "/api/profiles/", map[string]any{
		"displayName": "Alice",
		"colorTag":    "blue",
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)

	rec = doJSON(t, router, http.MethodPost, "/api/profiles/"+id+"/activate", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/profiles/active", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alice")

	rec = doJSON(t, router, http.MethodGet, "/api/profiles/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, id, list["activeProfileId"])

	rec = doJSON(t, router, http.MethodDelete, "/api/profiles/"+id+"/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/profiles/"+id+"/", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileCreateRejectsBadColorTag(t *testing.T) {
	s := newTestServer(t, "")
	rec := doJSON(t, s.Router(), http.MethodPost, "/api/profiles/", map[string]any{
		"displayName": "Alice",
		"colorTag":    "mauve",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResourceEndpoints(t *testing.T) {
	s := newTestServer(t, "")
	router := s.Router()

	added := s.indexer.IndexResponse("", "listIssues",
		map[string]any{"id": "53c296c2-7d56-4e3c-9ed3-7685b45c2b83"})
	require.Len(t, added, 1)

	rec := doJSON(t, router, http.MethodGet, "/api/resources/", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "listIssues")

	rec = doJSON(t, router, http.MethodDelete, "/api/resources/"+added[0].EntryID, nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodDelete, "/api/resources/", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, s.indexer.Count())
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, "")
	rec := doJSON(t, s.Router(), http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "inspector_")
}
