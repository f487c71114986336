package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"threadpulse/internal/config"
	"threadpulse/internal/database"
	"threadpulse/internal/models"
	"threadpulse/internal/threads"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret-key-12345678901234567890123456789012"

// MockThreadsAPI is a mock of the threads.API interface
type MockThreadsAPI struct {
	mock.Mock
}

func (m *MockThreadsAPI) GetProfile(ctx context.Context, accessToken, userID string) (*threads.Profile, error) {
	args := m.Called(ctx, accessToken, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*threads.Profile), args.Error(1)
}

func (m *MockThreadsAPI) GetPosts(ctx context.Context, accessToken, userID string, limit int, after string) (*threads.PostsPage, error) {
	args := m.Called(ctx, accessToken, userID, limit, after)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*threads.PostsPage), args.Error(1)
}

func (m *MockThreadsAPI) GetPostInsights(ctx context.Context, accessToken, postID string, metrics []string) (threads.Insights, error) {
	args := m.Called(ctx, accessToken, postID, metrics)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(threads.Insights), args.Error(1)
}

type testEnv struct {
	srv *Server
	app *fiber.App
	api *MockThreadsAPI
	db  *gorm.DB
}

func testConfig() *config.Config {
	return &config.Config{
		Env:                        "test",
		Port:                       "0",
		JWTSecret:                  testJWTSecret,
		AllowedOrigins:             "http://localhost:5173",
		SyncPageSize:               25,
		SyncMaxPosts:               100,
		InsightsManualLimit:        50,
		InsightsBatchSize:          10,
		InsightsOpportunisticLimit: 5,
		InsightsStaleHours:         24,
		InsightsMaxAgeDays:         30,
		ThreadsWebhookVerifyToken:  "verify-me",
	}
}

// newTestEnv builds a full app over an in-memory sqlite database, no Redis
// and a mocked Threads API.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	return newTestEnvWithRedis(t, nil, mutate...)
}

// newTestEnvWithRedis is newTestEnv with rdb wired into the cache, rate
// limiter and notifier.
func newTestEnvWithRedis(t *testing.T, rdb *redis.Client, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))

	cfg := testConfig()
	for _, fn := range mutate {
		fn(cfg)
	}

	api := new(MockThreadsAPI)
	srv := newServer(cfg, db, rdb, api)
	return &testEnv{srv: srv, app: srv.App(), api: api, db: db}
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return "Bearer " + signed
}

// do sends a request as userID (anonymous when empty) and returns the status
// and raw body.
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", bearer(t, userID))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

// doJSON is do with the body decoded into a map.
func (e *testEnv) doJSON(t *testing.T, method, path, userID string, body any) (int, map[string]any) {
	t.Helper()
	status, raw := e.do(t, method, path, userID, body)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out), "body: %s", raw)
	return status, out
}

// connectUser stores a Threads credential for userID directly.
func (e *testEnv) connectUser(t *testing.T, userID, threadsUserID string) {
	t.Helper()
	ctx := context.Background()
	_, err := e.srv.userRepo.EnsureUser(ctx, userID)
	require.NoError(t, err)
	require.NoError(t, e.srv.userRepo.ConnectThreads(ctx, userID, "user-token", models.ThreadsProfile{
		ThreadsUserID: threadsUserID,
		Username:      "alice",
		AvatarURL:     "https://cdn.example.com/alice.png",
	}))
}

// storePost upserts a synced post for userID.
func (e *testEnv) storePost(t *testing.T, userID, threadsID string, published time.Time, likes int64) *models.Post {
	t.Helper()
	ctx := context.Background()
	_, err := e.srv.userRepo.EnsureUser(ctx, userID)
	require.NoError(t, err)

	id := threadsID
	post := &models.Post{
		UserID:        userID,
		ThreadsPostID: &id,
		Content:       "post " + threadsID,
		PostType:      models.PostTypeText,
		Status:        models.PostStatusPublished,
		PublishedAt:   &published,
		Likes:         likes,
	}
	require.NoError(t, e.srv.postRepo.UpsertByThreadsID(ctx, post))
	return post
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestEnv(t)

	status, body := e.doJSON(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "up", body["status"])

	status, body = e.doJSON(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "disabled", checks["redis"])
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/threads/connect"},
		{http.MethodPost, "/api/threads/disconnect"},
		{http.MethodGet, "/api/threads/status"},
		{http.MethodGet, "/api/threads/profile"},
		{http.MethodGet, "/api/threads/posts"},
		{http.MethodPost, "/api/threads/sync"},
		{http.MethodPost, "/api/threads/insights/refresh"},
		{http.MethodGet, "/api/analytics"},
		{http.MethodGet, "/api/profile"},
		{http.MethodGet, "/api/feature-flags"},
		{http.MethodGet, "/api/posts"},
		{http.MethodPost, "/api/posts"},
		{http.MethodGet, "/api/posts/abc"},
		{http.MethodDelete, "/api/posts/abc"},
		{http.MethodGet, "/api/ws/events"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			status, _ := e.do(t, rt.method, rt.path, "", nil)
			assert.Equal(t, fiber.StatusUnauthorized, status)
		})
	}

	t.Run("bad signature", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"})
		signed, err := token.SignedString([]byte("some-other-secret"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/threads/status", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		resp, err := e.app.Test(req, -1)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestEventsStreamRequiresUpgrade(t *testing.T) {
	e := newTestEnv(t)

	status, _ := e.do(t, http.MethodGet, "/api/ws/events", "user-1", nil)
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}

func TestProfileAndFeatureFlags(t *testing.T) {
	e := newTestEnv(t, func(c *config.Config) {
		c.FeatureFlags = "opportunistic_insights=on,beta_charts=off"
	})
	e.storePost(t, "user-1", "tp_1", time.Now().Add(-time.Hour), 3)
	e.storePost(t, "user-1", "tp_2", time.Now().Add(-2*time.Hour), 1)

	status, body := e.doJSON(t, http.MethodGet, "/api/profile", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, float64(2), body["post_count"])
	assert.Equal(t, "user-1", body["user"].(map[string]any)["id"])

	status, body = e.doJSON(t, http.MethodGet, "/api/feature-flags", "user-1", nil)
	require.Equal(t, fiber.StatusOK, status)
	flags := body["flags"].(map[string]any)
	assert.Equal(t, true, flags["opportunistic_insights"])
	assert.Equal(t, false, flags["beta_charts"])
}

func TestSetupMiddleware_LimitedResponseKeepsCORSHeaders(t *testing.T) {
	srv := &Server{config: &config.Config{AllowedOrigins: "http://localhost:5173"}}

	app := fiber.New()
	srv.SetupMiddleware(app)
	app.Post("/limited", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	send := func(method string) *http.Response {
		req := httptest.NewRequest(method, "/limited", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		if method == http.MethodOptions {
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		}
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp
	}

	for i := 0; i < 100; i++ {
		resp := send(http.MethodPost)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	limited := send(http.MethodPost)
	defer func() { _ = limited.Body.Close() }()
	assert.Equal(t, fiber.StatusTooManyRequests, limited.StatusCode)
	assert.Equal(t, "http://localhost:5173", limited.Header.Get("Access-Control-Allow-Origin"))

	preflight := send(http.MethodOptions)
	defer func() { _ = preflight.Body.Close() }()
	assert.Equal(t, fiber.StatusNoContent, preflight.StatusCode)
}
