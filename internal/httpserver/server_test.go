package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/socialclone/server/internal/config"
	"github.com/socialclone/server/internal/domain"
	"github.com/socialclone/server/internal/metrics"
)

type memRepo struct {
	posts    []domain.Post
	nextID   int64
	readyErr error
}

func (r *memRepo) CreatePost(_ context.Context, content, author string) (*domain.Post, error) {
	if content == "" || author == "" {
		return nil, &domain.ValidationError{Msg: "content and author required"}
	}
	r.nextID++
	p := domain.Post{ID: r.nextID, Content: content, Author: author, CreatedAt: time.Now().UTC()}
	r.posts = append(r.posts, p)
	return &p, nil
}

func (r *memRepo) ListRecent(_ context.Context, limit int) ([]domain.Post, error) {
	if r.readyErr != nil {
		return nil, r.readyErr
	}
	out := make([]domain.Post, 0, limit)
	for i := len(r.posts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.posts[i])
	}
	return out, nil
}

func (r *memRepo) CountPosts(context.Context) (int64, error) {
	return int64(len(r.posts)), nil
}

func (r *memRepo) Ready(context.Context) error { return r.readyErr }

type failingNotifier struct{}

func (failingNotifier) SendSimpleMessage(context.Context, string) error {
	return errors.New("webhook unreachable")
}

func (failingNotifier) SendAlertNotification(context.Context, string, string, string) error {
	return errors.New("webhook unreachable")
}

type serverOpts struct {
	notifier domain.Notifier
	repo     *memRepo
}

func newTestServer(t *testing.T, opts serverOpts) (*Server, *memRepo) {
	t.Helper()

	repo := opts.repo
	if repo == nil {
		repo = &memRepo{}
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()
	svc := domain.NewPostService(repo, opts.notifier, nil, m, logger, domain.PostServiceConfig{
		ProjectKey:     "DEMO",
		NotifyNewPosts: opts.notifier != nil,
	})
	cfg := &config.Config{Port: 0, Environment: "test"}
	return NewServer(cfg, svc, m, logger), repo
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	w := doJSON(t, srv.Handler(), "GET", "/health", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status       string            `json:"status"`
		Version      string            `json:"version"`
		Integrations map[string]string `json:"integrations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "disabled", resp.Integrations["slack"])
	assert.Equal(t, "disabled", resp.Integrations["jira"])
}

func TestListPosts_Empty(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	w := doJSON(t, srv.Handler(), "GET", "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)

	var posts []domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	assert.NotNil(t, posts, "empty list serializes as [], not null")
	assert.Empty(t, posts)
}

func TestCreateThenList_NewestFirst(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	handler := srv.Handler()

	w := doJSON(t, handler, "POST", "/api/posts", `{"content":"first","author":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var first domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	w = doJSON(t, handler, "POST", "/api/posts", `{"content":"second","author":"bob"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var second domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	assert.Greater(t, second.ID, first.ID)

	w = doJSON(t, handler, "GET", "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)

	var posts []domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[0].Content, "newest post comes first")
	assert.Equal(t, "first", posts[1].Content)
}

func TestCreatePost_MissingFields(t *testing.T) {
	srv, repo := newTestServer(t, serverOpts{})
	handler := srv.Handler()

	for _, body := range []string{
		`{"content":"","author":"alice"}`,
		`{"content":"hello","author":""}`,
		`{}`,
	} {
		w := doJSON(t, handler, "POST", "/api/posts", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, "body %s", body)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp["error"])
	}
	assert.Empty(t, repo.posts, "no rows persisted for rejected requests")
}

func TestCreatePost_InvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	w := doJSON(t, srv.Handler(), "POST", "/api/posts", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPosts_CappedAt50(t *testing.T) {
	repo := &memRepo{}
	for i := range 60 {
		repo.nextID++
		repo.posts = append(repo.posts, domain.Post{
			ID:        repo.nextID,
			Content:   fmt.Sprintf("post %d", i),
			Author:    "alice",
			CreatedAt: time.Now().UTC(),
		})
	}
	srv, _ := newTestServer(t, serverOpts{repo: repo})

	w := doJSON(t, srv.Handler(), "GET", "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)

	var posts []domain.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	assert.Len(t, posts, 50)
	assert.Equal(t, int64(60), posts[0].ID)
}

func TestCreatePost_NotifierFailureDoesNotFailRequest(t *testing.T) {
	srv, repo := newTestServer(t, serverOpts{notifier: failingNotifier{}})

	w := doJSON(t, srv.Handler(), "POST", "/api/posts", `{"content":"hello","author":"alice"}`)
	require.Equal(t, http.StatusOK, w.Code, "delivery failure must never abort post creation")
	assert.Len(t, repo.posts, 1)
}

func TestListPosts_StorageFailure(t *testing.T) {
	repo := &memRepo{readyErr: &domain.StorageError{Op: "query posts", Err: errors.New("down")}}
	srv, _ := newTestServer(t, serverOpts{repo: repo})

	w := doJSON(t, srv.Handler(), "GET", "/api/posts", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Database error", resp["error"])
}

func TestTriggerAlert_NoIntegrations(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})

	w := doJSON(t, srv.Handler(), "POST", "/api/trigger-alert", `{"alertType":"test","severity":"warning"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Success      bool               `json:"success"`
		Integrations domain.AlertResult `json:"integrations"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "disabled", resp.Integrations.Slack)
	assert.Equal(t, "not triggered", resp.Integrations.Jira)
}

func TestTriggerAlert_NotifierFailure(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{notifier: failingNotifier{}})

	w := doJSON(t, srv.Handler(), "POST", "/api/trigger-alert", `{"severity":"warning"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSystemStatus(t *testing.T) {
	repo := &memRepo{}
	repo.posts = append(repo.posts, domain.Post{ID: 1, Content: "x", Author: "system"})
	srv, _ := newTestServer(t, serverOpts{repo: repo})

	w := doJSON(t, srv.Handler(), "GET", "/api/system-status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Database   string  `json:"database"`
		PostsCount int64   `json:"postsCount"`
		Uptime     float64 `json:"uptime"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Database)
	assert.Equal(t, int64(1), resp.PostsCount)
	assert.GreaterOrEqual(t, resp.Uptime, float64(0))
}

func TestSystemStatus_DatabaseDown(t *testing.T) {
	repo := &memRepo{readyErr: errors.New("connection refused")}
	srv, _ := newTestServer(t, serverOpts{repo: repo})

	w := doJSON(t, srv.Handler(), "GET", "/api/system-status", "")
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp["database"])
	assert.NotEmpty(t, resp["error"])
}

func TestMetricsEndpoint_RecordsRequests(t *testing.T) {
	srv, _ := newTestServer(t, serverOpts{})
	handler := srv.Handler()

	doJSON(t, handler, "POST", "/api/posts", `{"content":"hello","author":"alice"}`)
	doJSON(t, handler, "GET", "/api/posts", "")

	w := doJSON(t, handler, "GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.Contains(t, body, `posts_created_total{author="alice"} 1`)
	assert.Contains(t, body, `http_requests_total{method="POST",route="/api/posts",status_code="200"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",route="/api/posts",status_code="200"} 1`)
}

func TestRoutePattern(t *testing.T) {
	mux := http.NewServeMux()
	var got string
	mux.HandleFunc("GET /api/posts", func(w http.ResponseWriter, r *http.Request) {})

	wrapped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r)
		got = routePattern(r)
	})

	req := httptest.NewRequest("GET", "/api/posts", nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "/api/posts", got)

	req = httptest.NewRequest("GET", "/no/such/route", nil)
	wrapped.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "/no/such/route", got, "unmatched requests fall back to the raw path")
}
