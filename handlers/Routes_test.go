package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"social-service/metrics"
	"social-service/model"
	"social-service/repo"
	"social-service/service"
	"social-service/util"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestSocialService(t *testing.T) *service.SocialService {
	t.Helper()
	logger := zap.NewNop()
	users := repo.NewMemoryUsersRepository([]model.User{
		{ID: "alice", Email: "alice@example.com", Profile: model.Profile{Name: "Alice", College: "college1"}},
		{ID: "bob", Email: "bob@example.com", Profile: model.Profile{Name: "Bob", College: "college2"}},
		{ID: "carol", Email: "carol@example.com", Profile: model.Profile{Name: "Carol", College: "college1"}},
	}, logger)
	recommendations := repo.NewMemoryRecommendationsRepository([]model.Recommendation{
		{ID: "r1", User: "alice", RecommendedUser: "carol"},
	}, logger)
	return service.NewSocialService(users, repo.NewMemoryConnectionsRepository(nil, logger),
		recommendations, service.DefaultConfig(), logger)
}

type testEnvelope struct {
	Data        json.RawMessage `json:"_data"`
	Description *string         `json:"_description"`
	Links       []Link          `json:"_links"`
}

func do(t *testing.T, r http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data any) testEnvelope {
	t.Helper()
	var env testEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env
}

func rels(links []Link) []string {
	out := make([]string, 0, len(links))
	for _, l := range links {
		out = append(out, l.Rel)
	}
	return out
}

func TestGetUser(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})

	w := do(t, r, http.MethodGet, "/users/alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var user UserView
	env := decode(t, w, &user)
	assert.Equal(t, UserView{ID: "alice", Name: "Alice", Email: "alice@example.com", College: "college1"}, user)
	assert.Nil(t, env.Description)
	assert.Equal(t, []string{"self", "connections", "recommendations"}, rels(env.Links))
	assert.Equal(t, "/users/alice/connections", env.Links[1].Href)
	assert.Equal(t, []string{"application/json"}, env.Links[0].Types)

	w = do(t, r, http.MethodGet, "/users/nobody", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateUser(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})

	w := do(t, r, http.MethodPost, "/users", gin.H{
		"email": "mscott@dunder-mifflin.com", "name": "Michael Scott", "college": "Scranton University",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created UserView
	decode(t, w, &created)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "/users/"+created.ID, w.Header().Get("Location"))

	w = do(t, r, http.MethodGet, w.Header().Get("Location"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var fetched UserView
	decode(t, w, &fetched)
	assert.Equal(t, created, fetched)
}

func TestCreateUserRejectsIncompleteBody(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})

	tests := []struct {
		name string
		body any
	}{
		{"missing college", gin.H{"email": "a@example.com", "name": "A"}},
		{"bad email", gin.H{"email": "not-an-email", "name": "A", "college": "c"}},
		{"not an object", []string{"a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, r, http.MethodPost, "/users", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "unable to parse one of the following")
		})
	}
}

func TestPatchUser(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})

	w := do(t, r, http.MethodPatch, "/users/alice", gin.H{"name": "X", "email": "evil@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/users/alice", w.Header().Get("Location"))
	var user UserView
	decode(t, w, &user)
	assert.Equal(t, "X", user.Name)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, "college1", user.College)

	w = do(t, r, http.MethodPatch, "/users/alice", gin.H{"name": 42})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPatch, "/users/nobody", gin.H{"name": "X"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUser(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})

	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/users/carol", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users/carol", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/users/carol", nil).Code)
}

func TestConnectionLifecycle(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})

	w := do(t, r, http.MethodPost, "/users/alice/connections", gin.H{"id": "bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, []string{"self"}, rels(decode(t, w, nil).Links))

	w = do(t, r, http.MethodPost, "/users/bob/connections", gin.H{"id": "alice"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodGet, "/users/bob/connections", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var peers []PeerView
	env := decode(t, w, &peers)
	assert.Equal(t, []PeerView{{ID: "alice", Name: "Alice"}}, peers)
	require.Equal(t, []string{"next", "self"}, rels(env.Links))
	assert.Equal(t, "/users/bob/connections?limit=50&offset=1", env.Links[0].Href)

	w = do(t, r, http.MethodGet, "/users/alice/connections/bob", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var check struct {
		Connected bool `json:"connected"`
	}
	decode(t, w, &check)
	assert.True(t, check.Connected)

	assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodDelete, "/users/alice/connections", nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/users/alice/connections?user=bob", nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodDelete, "/users/alice/connections?user=bob", nil).Code)

	w = do(t, r, http.MethodGet, "/users/bob/connections/alice", nil)
	decode(t, w, &check)
	assert.False(t, check.Connected)
}

func TestCreateConnectionErrors(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})

	tests := []struct {
		name   string
		path   string
		body   any
		status int
	}{
		{"self loop", "/users/alice/connections", gin.H{"id": "alice"}, http.StatusBadRequest},
		{"missing id", "/users/alice/connections", gin.H{}, http.StatusBadRequest},
		{"unknown peer", "/users/alice/connections", gin.H{"id": "nobody"}, http.StatusNotFound},
		{"unknown owner", "/users/nobody/connections", gin.H{"id": "alice"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, do(t, r, http.MethodPost, tt.path, tt.body).Code)
		})
	}
}

func TestListConnectionsValidatesPaging(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})

	for _, query := range []string{"?limit=0", "?offset=-1", "?limit=abc"} {
		t.Run(query, func(t *testing.T) {
			assert.Equal(t, http.StatusBadRequest, do(t, r, http.MethodGet, "/users/alice/connections"+query, nil).Code)
		})
	}
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users/nobody/connections", nil).Code)
}

func TestListConnectionsPagesThrough(t *testing.T) {
	svc := newTestSocialService(t)
	r := NewRouter(svc, RouterOptions{})
	require.NoError(t, svc.AddConnection(context.Background(), "alice", "bob"))
	require.NoError(t, svc.AddConnection(context.Background(), "alice", "carol"))

	w := do(t, r, http.MethodGet, "/users/alice/connections?limit=1", nil)
	var first []PeerView
	env := decode(t, w, &first)
	require.Len(t, first, 1)
	assert.Equal(t, "bob", first[0].ID)

	w = do(t, r, http.MethodGet, env.Links[0].Href, nil)
	var second []PeerView
	decode(t, w, &second)
	require.Len(t, second, 1)
	assert.Equal(t, "carol", second[0].ID)
}

func TestRemovedUserLeavesConnectionPages(t *testing.T) {
	svc := newTestSocialService(t)
	r := NewRouter(svc, RouterOptions{})
	ctx := context.Background()

	dave, err := svc.AddUser(ctx, "dave@example.com", "Dave", "college3")
	require.NoError(t, err)
	for _, other := range []string{"bob", "carol", dave.ID} {
		require.NoError(t, svc.AddConnection(ctx, "alice", other))
	}
	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/users/bob", nil).Code)

	var check struct {
		Connected bool `json:"connected"`
	}
	decode(t, do(t, r, http.MethodGet, "/users/alice/connections/bob", nil), &check)
	assert.False(t, check.Connected)

	var seen []string
	href := "/users/alice/connections?limit=2"
	for i := 0; i < 3; i++ {
		var peers []PeerView
		env := decode(t, do(t, r, http.MethodGet, href, nil), &peers)
		if len(peers) == 0 {
			break
		}
		for _, p := range peers {
			seen = append(seen, p.ID)
		}
		href = env.Links[0].Href
	}
	assert.Equal(t, []string{"carol", dave.ID}, seen)
}

func TestUserCollectionHasNoListing(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})
	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users", nil).Code)
}

func TestBatchConnections(t *testing.T) {
	svc := newTestSocialService(t)
	reg := prometheus.NewRegistry()
	r := NewRouter(svc, RouterOptions{Metrics: metrics.New(reg)})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = svc.RunBatchWorker(ctx) }()

	w := do(t, r, http.MethodPost, "/users/alice/connections/batch", gin.H{"ids": []string{"bob", "carol", "nobody"}})
	require.Equal(t, http.StatusAccepted, w.Code)
	var job struct {
		JobID string `json:"job_id"`
	}
	decode(t, w, &job)
	assert.NotEmpty(t, job.JobID)

	assert.Eventually(t, func() bool {
		n, err := svc.Connections.Count(context.Background())
		return err == nil && n == 2
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, http.StatusBadRequest,
		do(t, r, http.MethodPost, "/users/alice/connections/batch", gin.H{"ids": []string{}}).Code)
	assert.Equal(t, http.StatusNotFound,
		do(t, r, http.MethodPost, "/users/nobody/connections/batch", gin.H{"ids": []string{"bob"}}).Code)
}

func TestRecommendations(t *testing.T) {
	r := NewRouter(newTestSocialService(t), RouterOptions{})

	w := do(t, r, http.MethodGet, "/users/alice/recommendations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var peers []PeerView
	env := decode(t, w, &peers)
	assert.Equal(t, []PeerView{{ID: "carol", Name: "Carol"}}, peers)
	assert.Equal(t, "/users/alice/recommendations?limit=50&offset=1", env.Links[0].Href)

	w = do(t, r, http.MethodPut, "/users/alice/recommendations", gin.H{"ids": []string{"nobody"}})
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, r, http.MethodPut, "/users/alice/recommendations", gin.H{"ids": []string{"bob", "bob"}})
	require.Equal(t, http.StatusNoContent, w.Code)
	decode(t, do(t, r, http.MethodGet, "/users/alice/recommendations", nil), &peers)
	assert.Equal(t, []PeerView{{ID: "bob", Name: "Bob"}}, peers)

	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodDelete, "/users/alice/recommendations", nil).Code)
	decode(t, do(t, r, http.MethodGet, "/users/alice/recommendations", nil), &peers)
	assert.Empty(t, peers)

	assert.Equal(t, http.StatusNotFound, do(t, r, http.MethodGet, "/users/nobody/recommendations", nil).Code)
}

func TestRouterAuth(t *testing.T) {
	tokens := util.NewTokenManager("test-secret")
	r := NewRouter(newTestSocialService(t), RouterOptions{Tokens: tokens})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/users/alice", nil).Code)

	token, err := tokens.GenerateToken("alice", "alice", "user", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/users/alice", nil, "Authorization", "Bearer "+token).Code)
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	healthy := true
	r := NewRouter(newTestSocialService(t), RouterOptions{
		Metrics:  metrics.New(reg),
		Gatherer: reg,
		Health: func(context.Context) error {
			if !healthy {
				return assert.AnError
			}
			return nil
		},
	})

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", nil).Code)
	healthy = false
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/health", nil).Code)

	do(t, r, http.MethodGet, "/users/nobody", nil)
	w := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `social_requests_total{route="/users/:user_id",status="404",transport="http"} 1`)
	assert.Contains(t, w.Body.String(), `social_errors_total{error="not_found",transport="http"} 1`)
}
