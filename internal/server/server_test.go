package server

import (
	"bufio"
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/akio-byte/navaltutka/internal/config"
	"github.com/akio-byte/navaltutka/internal/relay"
	"github.com/akio-byte/navaltutka/internal/upstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testSnapshot = `{
  "apiVersion": "1.0",
  "generatedAtUtc": "2026-03-01T06:00:00Z",
  "items": [
    {"id": "a", "category": "US_NAVAL", "title": "CSG transit", "summary": "Moved north.", "location": {"lat": 20.1, "lon": 38.5, "name": "Red Sea"}},
    {"id": "b", "category": "IRAN", "title": "Drill", "summary": "Naval drill."}
  ]
}`

type scriptedProvider struct {
	reply  string
	chunks []string
}

func (p scriptedProvider) Generate(context.Context, string, string) (string, error) {
	return p.reply, nil
}

func (p scriptedProvider) Stream(ctx context.Context, _, _ string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, c := range p.chunks {
			if ctx.Err() != nil {
				yield("", ctx.Err())
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(testSnapshot), 0o644))

	cfg := config.Default()
	cfg.Snapshot.Path = path
	cfg.Logging.Level = "error"
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, p upstream.Provider) *Server {
	t.Helper()
	opts := Options{}
	if p != nil {
		opts.Provider = func(context.Context, string) (upstream.Provider, error) { return p, nil }
	}
	srv, err := New(cfg, opts)
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	srv.GetRouter().ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) relay.Envelope {
	t.Helper()
	var env relay.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestChatWithoutKey(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	w := do(srv, http.MethodPost, "/api/ai/chat", `{"message":"status?"}`, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	env := envelope(t, w)
	assert.False(t, env.OK)
	assert.Equal(t, relay.CodeUpstreamMissingKey, env.Code)
	assert.Equal(t, w.Header().Get("X-Request-ID"), env.RequestID)
}

func TestChatStreamEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upstream.APIKey = "test-key"
	srv := newTestServer(t, cfg, scriptedProvider{chunks: []string{"Two ", "destroyers ", "sighted."}})

	w := do(srv, http.MethodPost, "/api/ai/chat", `{"message":"what changed?","stream":true}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, relay.ContentTypeNDJSON, w.Header().Get("Content-Type"))

	var (
		text     strings.Builder
		terminal relay.Record
	)
	sc := bufio.NewScanner(w.Body)
	for sc.Scan() {
		var rec relay.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		if rec.Type == relay.RecordChunk {
			text.WriteString(rec.Text)
			continue
		}
		terminal = rec
	}

	assert.Equal(t, "Two destroyers sighted.", text.String())
	assert.Equal(t, relay.RecordDone, terminal.Type)
	assert.NotEmpty(t, terminal.RequestID)
}

func TestRateLimitTwentyFirstRequest(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upstream.APIKey = "test-key"
	srv := newTestServer(t, cfg, scriptedProvider{reply: "ok"})

	client := map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}
	for i := 0; i < 20; i++ {
		w := do(srv, http.MethodPost, "/api/ai/chat", `{"message":"hi"}`, client)
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
	}

	w := do(srv, http.MethodPost, "/api/ai/chat", `{"message":"hi"}`, client)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	env := envelope(t, w)
	assert.Equal(t, relay.CodeRateLimitExceeded, env.Code)
	assert.Equal(t, "Too many requests", env.Message)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// a different client has its own window
	w = do(srv, http.MethodPost, "/api/ai/chat", `{"message":"hi"}`, map[string]string{"X-Forwarded-For": "198.51.100.1"})
	assert.Equal(t, http.StatusOK, w.Code)

	// reads are not rate limited
	w = do(srv, http.MethodGet, "/api/snapshot", "", client)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOversizedBody(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	body := `{"message":"hi","context":"` + strings.Repeat("x", 31000) + `"}`
	w := do(srv, http.MethodPost, "/api/ai/chat", body, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, relay.CodePayloadTooLarge, envelope(t, w).Code)
}

func TestRankFiltersHallucinatedIDs(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upstream.APIKey = "test-key"
	srv := newTestServer(t, cfg, scriptedProvider{reply: "```json\n{\"ids\":[\"a\",\"b\"]}\n```"})

	w := do(srv, http.MethodPost, "/api/ai/rank", `{"query":"carrier","itemsMini":[{"id":"a","t":"CSG transit","s":"Moved north."}]}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK   bool          `json:"ok"`
		Data relay.Ranking `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, []string{"a"}, body.Data.IDs)
}

func TestSnapshotAndBriefExport(t *testing.T) {
	srv := newTestServer(t, testConfig(t), nil)

	w := do(srv, http.MethodGet, "/api/snapshot", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=3600", w.Header().Get("Cache-Control"))
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = do(srv, http.MethodGet, "/api/snapshot", "", map[string]string{"If-None-Match": etag})
	assert.Equal(t, http.StatusNotModified, w.Code)

	w = do(srv, http.MethodGet, "/api/brief", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Monitoring 2 active developments across the region.")
	assert.Contains(t, w.Body.String(), "- **CSG transit** (Red Sea): Moved north.")
}

func TestHealthAndMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Health.MaxFailures = 1
	srv := newTestServer(t, cfg, nil)
	srv.State().Checker.CheckAll(context.Background())

	w := do(srv, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var health struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	// no key configured: degraded, still serving
	assert.Equal(t, "degraded", health.Status)

	do(srv, http.MethodPost, "/api/ai/chat", `{"message":"hi"}`, nil)
	w = do(srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `relay_requests_total{code="UPSTREAM_MISSING_KEY",endpoint="/api/ai/chat"} 1`)
}

func TestAdminRequiresToken(t *testing.T) {
	cfg := testConfig(t)
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg.Admin.Email = "ops@example.org"
	cfg.Admin.PasswordHash = string(hash)
	cfg.Admin.JWTSecret = "test-secret"
	srv := newTestServer(t, cfg, nil)

	w := do(srv, http.MethodGet, "/admin/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(srv, http.MethodPost, "/admin/login", `{"email":"ops@example.org","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(srv, http.MethodPost, "/admin/login", `{"email":"ops@example.org","password":"hunter22"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = do(srv, http.MethodGet, "/admin/status", "", map[string]string{"Authorization": "Bearer " + login.Token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"circuit_breaker"`)
	assert.Contains(t, w.Body.String(), `"tracked_clients"`)
}

func TestKeyPoolEnabledForSeveralKeys(t *testing.T) {
	cfg := testConfig(t)
	cfg.Upstream.APIKeys = []string{"k1", "k2"}
	srv := newTestServer(t, cfg, scriptedProvider{reply: "ok"})

	require.NotNil(t, srv.State().Keys)
	assert.Equal(t, 2, srv.State().Keys.Len())

	w := do(srv, http.MethodPost, "/api/ai/brief", `{"item":{"id":"a","title":"CSG transit","summary":"Moved north."}}`, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
