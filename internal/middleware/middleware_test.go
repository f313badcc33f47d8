package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/groupchat/backend/internal/models"
	"github.com/groupchat/backend/pkg/logger"
	"github.com/groupchat/backend/pkg/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func setupMiddlewareTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	logger.SetOutput(io.Discard)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite: %v", err)
	}

	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}); err != nil {
		t.Fatalf("failed automigrating: %v", err)
	}
	return db
}

func newMiddlewareTokens(t *testing.T) *utils.TokenManager {
	t.Helper()
	tokens, err := utils.NewTokenManager(map[utils.TokenPurpose]utils.TokenSettings{
		utils.PurposeAccess:  {Secret: "middleware-access", TTL: time.Hour},
		utils.PurposeRefresh: {Secret: "middleware-refresh", TTL: time.Hour},
	})
	if err != nil {
		t.Fatalf("failed creating token manager: %v", err)
	}
	return tokens
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("failed decoding body: %v body=%q", err, string(raw))
	}
	return body
}

func TestRequireAuth(t *testing.T) {
	db := setupMiddlewareTestDB(t)
	tokens := newMiddlewareTokens(t)
	auth := NewAuthMiddleware(db, tokens)

	user := &models.User{Name: "Auth", Email: "auth-require@test.com", PasswordHash: "hash"}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user: %v", err)
	}
	access, _ := tokens.Generate(utils.PurposeAccess, user.ID, user.Email)
	refresh, _ := tokens.Generate(utils.PurposeRefresh, user.ID, user.Email)

	app := fiber.New()
	app.Get("/protected", auth.RequireAuth, func(c *fiber.Ctx) error {
		u := GetCurrentUser(c)
		return c.JSON(fiber.Map{"email": u.Email, "logged_user": *logger.GetUserIDFromContext(c)})
	})

	testCases := []struct {
		name        string
		header      string
		wantStatus  int
		wantMessage string
	}{
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantMessage: "Missing authorization header"},
		{name: "wrong scheme", header: "Basic somecreds", wantStatus: http.StatusUnauthorized, wantMessage: "Invalid authorization format"},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized, wantMessage: "Invalid or expired token"},
		{name: "refresh token rejected", header: "Bearer " + refresh, wantStatus: http.StatusUnauthorized, wantMessage: "Invalid or expired token"},
		{name: "valid access token", header: "Bearer " + access, wantStatus: http.StatusOK},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, _ := app.Test(req, 5000)
			body := decodeBody(t, resp)
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, resp.StatusCode)
			}
			if tc.wantMessage != "" && body["message"] != tc.wantMessage {
				t.Fatalf("expected message %q, got %v", tc.wantMessage, body["message"])
			}
			if tc.wantStatus == http.StatusOK {
				if body["email"] != "auth-require@test.com" || body["logged_user"] != user.ID.String() {
					t.Fatalf("unexpected body %v", body)
				}
			}
		})
	}

	t.Run("token for deleted user", func(t *testing.T) {
		gone := &models.User{Name: "Gone", Email: "gone@test.com", PasswordHash: "hash"}
		db.Create(gone)
		token, _ := tokens.Generate(utils.PurposeAccess, gone.ID, gone.Email)
		db.Delete(gone)

		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, _ := app.Test(req, 5000)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", resp.StatusCode)
		}
	})
}

func TestMemoryLimiter(t *testing.T) {
	limiter := NewMemoryLimiter(60, 2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }
	limiter.lastSweep = now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if ok, _ := limiter.Allow(ctx, "a"); !ok {
			t.Fatalf("expected request %d within burst", i+1)
		}
	}
	if ok, _ := limiter.Allow(ctx, "a"); ok {
		t.Fatal("expected third request to be limited")
	}
	if ok, _ := limiter.Allow(ctx, "b"); !ok {
		t.Fatal("expected other keys to be independent")
	}

	now = now.Add(time.Second)
	if ok, _ := limiter.Allow(ctx, "a"); !ok {
		t.Fatal("expected a token to refill after one second")
	}

	now = now.Add(2 * time.Minute)
	limiter.Allow(ctx, "c")
	if _, ok := limiter.visitors["b"]; ok {
		t.Fatal("expected idle visitor to be swept")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	logger.SetOutput(io.Discard)
	app := fiber.New()
	app.Post("/sign-in", RateLimit(NewMemoryLimiter(1, 1, time.Minute), "sign-in"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/sign-in", nil), 5000)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected first request through, got %d", resp.StatusCode)
	}

	resp, _ = app.Test(httptest.NewRequest(http.MethodPost, "/sign-in", nil), 5000)
	body := decodeBody(t, resp)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.StatusCode)
	}
	if resp.Header.Get(fiber.HeaderRetryAfter) == "" || body["message"] == nil {
		t.Fatal("expected Retry-After header and message")
	}
}

func TestRateLimitFailsOpenWhenRedisUnavailable(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	defer logger.SetOutput(io.Discard)

	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	app := fiber.New()
	app.Post("/join", RateLimit(NewRedisLimiter(client, 1, time.Minute), "join"), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, _ := app.Test(httptest.NewRequest(http.MethodPost, "/join", nil), 5000)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected request through, got %d", resp.StatusCode)
	}
	if !strings.Contains(logs.String(), "rate_limiter_failed") {
		t.Fatalf("expected limiter failure logged, got %q", logs.String())
	}
}

func TestMetricsRecordsRoutes(t *testing.T) {
	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())
	app.Get("/chatgroup/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for _, id := range []string{"a", "b"} {
		resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/chatgroup/"+id, nil), 5000)
		resp.Body.Close()
	}

	resp, _ := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), 5000)
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	out := string(raw)

	want := `groupchat_http_requests_total{method="GET",route="/chatgroup/:id",status="200"} 2`
	if !strings.Contains(out, want) {
		t.Fatalf("expected %q in metrics output, got:\n%s", want, out)
	}
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	var logs bytes.Buffer
	logger.SetOutput(&logs)
	defer logger.SetOutput(io.Discard)

	app := fiber.New()
	app.Use(RequestLogger())
	app.Use(SecurityLogger())
	app.Get("/missing", func(c *fiber.Ctx) error {
		return utils.Error(c, fiber.StatusNotFound, "Chat group not found")
	})

	req := httptest.NewRequest(http.MethodGet, "/missing", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	resp, _ := app.Test(req, 5000)
	resp.Body.Close()

	if resp.Header.Get(RequestIDHeader) != "req-123" {
		t.Fatalf("expected request id echoed, got %q", resp.Header.Get(RequestIDHeader))
	}
	out := logs.String()
	if !strings.Contains(out, `"action":"http_request"`) || !strings.Contains(out, `"action":"not_found_unauthenticated"`) {
		t.Fatalf("expected request and security lines, got %q", out)
	}
	if !strings.Contains(out, `"request_id":"req-123"`) {
		t.Fatalf("expected request id in log, got %q", out)
	}
}
