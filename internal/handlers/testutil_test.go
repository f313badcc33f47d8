package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/groupchat/backend/internal/middleware"
	"github.com/groupchat/backend/internal/models"
	"github.com/groupchat/backend/internal/services"
	"github.com/groupchat/backend/internal/storage"
	"github.com/groupchat/backend/pkg/logger"
	"github.com/groupchat/backend/pkg/utils"
	"gorm.io/gorm"
)

type testEnv struct {
	app    *fiber.App
	db     *gorm.DB
	media  *fakeMedia
	mailer *fakeMailer
	tokens *utils.TokenManager
	audit  *services.AuditService
}

type fakeMedia struct {
	mu        sync.Mutex
	uploads   []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeMedia) Upload(_ context.Context, folder string, file storage.Upload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	_, _ = io.Copy(io.Discard, file.Reader)
	url := fmt.Sprintf("http://media.test/groupchat/%s/%s.png", folder, uuid.NewString())
	f.uploads = append(f.uploads, url)
	return url, nil
}

func (f *fakeMedia) Delete(_ context.Context, _ string, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, url)
	return nil
}

type fakeMailer struct {
	mu    sync.Mutex
	links []string
}

func (m *fakeMailer) SendEmailVerification(_ context.Context, _, _ string, link string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.links = append(m.links, link)
	return nil
}

var errMediaDown = errors.New("media host unavailable")

type envOption func(*Limits)

func withLimits(l Limits) envOption {
	return func(target *Limits) { *target = l }
}

func setupTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	logger.SetOutput(io.Discard)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql.DB from gorm: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	if err := db.AutoMigrate(&models.User{}, &models.ChatGroup{}, &models.Member{}, &models.AuditLog{}); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}

	tokens, err := utils.NewTokenManager(map[utils.TokenPurpose]utils.TokenSettings{
		utils.PurposeAccess:            {Secret: "test-access", TTL: time.Hour},
		utils.PurposeRefresh:           {Secret: "test-refresh", TTL: 24 * time.Hour},
		utils.PurposeEmailVerification: {Secret: "test-verify", TTL: 5 * time.Minute},
	})
	if err != nil {
		t.Fatalf("failed creating token manager: %v", err)
	}

	media := &fakeMedia{}
	mailer := &fakeMailer{}
	audit := services.NewAuditService(db, nil, 100)
	// Registered after the database cleanup so it runs first.
	t.Cleanup(audit.Close)

	var limits Limits
	for _, opt := range opts {
		opt(&limits)
	}

	h := Handlers{
		Auth: NewAuthHandler(&services.AuthService{
			DB:            db,
			Tokens:        tokens,
			Mailer:        mailer,
			Media:         media,
			Audit:         audit,
			ClientURL:     "http://client.test",
			MaxImageBytes: 1 << 20,
		}),
		Users:      NewUsersHandler(services.NewUserService(db, media, audit, 1<<20)),
		ChatGroups: NewChatGroupsHandler(services.NewChatGroupService(db, media, audit, 1<<20)),
	}

	app := fiber.New()
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	RegisterRoutes(app, h, middleware.NewAuthMiddleware(db, tokens), limits)

	return &testEnv{app: app, db: db, media: media, mailer: mailer, tokens: tokens, audit: audit}
}

func createTestUser(t *testing.T, env *testEnv, email string) (*models.User, string) {
	t.Helper()

	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}
	user := &models.User{Name: "Test User", Email: email, PasswordHash: hash}
	if err := env.db.Create(user).Error; err != nil {
		t.Fatalf("failed creating test user: %v", err)
	}

	token, err := env.tokens.Generate(utils.PurposeAccess, user.ID, user.Email)
	if err != nil {
		t.Fatalf("failed generating auth token: %v", err)
	}
	return user, token
}

func createTestGroup(t *testing.T, env *testEnv, name string, isPublic bool) *models.ChatGroup {
	t.Helper()
	group := &models.ChatGroup{
		Name:       name,
		ImageURL:   "http://media.test/groupchat/chat-avatar/" + uuid.NewString() + ".png",
		IsPublic:   isPublic,
		InviteCode: uuid.NewString(),
	}
	if err := env.db.Create(group).Error; err != nil {
		t.Fatalf("failed creating test group: %v", err)
	}
	return group
}

func addTestMember(t *testing.T, env *testEnv, group *models.ChatGroup, user *models.User, role models.Role) *models.Member {
	t.Helper()
	member := &models.Member{UserID: user.ID, ChatGroupID: group.ID, Role: role}
	if err := env.db.Create(member).Error; err != nil {
		t.Fatalf("failed creating test member: %v", err)
	}
	return member
}

func authHeaders(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, path, body)
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := app.Test(req, int((10 * time.Second).Milliseconds()))
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func performJSONRequest(t *testing.T, app *fiber.App, method, path string, payload any, headers map[string]string) *http.Response {
	t.Helper()

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(encoded)
	}

	requestHeaders := map[string]string{}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	if payload != nil {
		requestHeaders["Content-Type"] = "application/json"
	}
	return performRequest(t, app, method, path, body, requestHeaders)
}

// performMultipartRequest sends fields plus an optional "image" part with
// the given content type.
func performMultipartRequest(t *testing.T, app *fiber.App, method, path string, fields map[string]string, image []byte, imageType string, headers map[string]string) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("failed writing field %s: %v", key, err)
		}
	}
	if image != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="image"; filename="image.png"`)
		header.Set("Content-Type", imageType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("failed creating image part: %v", err)
		}
		if _, err := part.Write(image); err != nil {
			t.Fatalf("failed writing image part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed closing multipart writer: %v", err)
	}

	requestHeaders := map[string]string{"Content-Type": writer.FormDataContentType()}
	for key, value := range headers {
		requestHeaders[key] = value
	}
	return performRequest(t, app, method, path, &buf, requestHeaders)
}

func decodeJSONMap(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed reading response body: %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed decoding JSON response: %v body=%q", err, string(raw))
	}
	return payload
}

func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Fatalf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

func assertMessage(t *testing.T, body map[string]any, expected string) {
	t.Helper()
	if got, _ := body["message"].(string); got != expected {
		t.Fatalf("expected message %q, got %q", expected, got)
	}
}

func dataMap(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %+v", body)
	}
	return data
}

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake")
