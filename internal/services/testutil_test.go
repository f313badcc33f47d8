package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/groupchat/backend/internal/models"
	"github.com/groupchat/backend/internal/storage"
	"github.com/groupchat/backend/pkg/utils"
	"gorm.io/gorm"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed opening in-memory sqlite database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed getting sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.User{}, &models.ChatGroup{}, &models.Member{}, &models.AuditLog{}); err != nil {
		t.Fatalf("failed automigrating models: %v", err)
	}
	return db
}

// fakeMedia records uploads and deletions. Set the error fields to make the
// next calls fail.
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
	if file.Reader != nil {
		_, _ = io.Copy(io.Discard, file.Reader)
	}
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

func (f *fakeMedia) deletedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func (f *fakeMedia) uploadedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.uploads...)
}

var errMediaDown = errors.New("media host unavailable")

func testImage() *storage.Upload {
	body := []byte("\x89PNG fake image")
	return &storage.Upload{
		Filename:    "group.png",
		ContentType: "image/png",
		Size:        int64(len(body)),
		Reader:      bytes.NewReader(body),
	}
}

func createServiceUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()
	hash, err := utils.HashPassword("password123")
	if err != nil {
		t.Fatalf("failed hashing password: %v", err)
	}
	user := &models.User{Name: strings.Split(email, "@")[0], Email: email, PasswordHash: hash}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed creating user %s: %v", email, err)
	}
	return user
}

func createServiceGroup(t *testing.T, db *gorm.DB, name string, isPublic bool) *models.ChatGroup {
	t.Helper()
	group := &models.ChatGroup{
		Name:       name,
		ImageURL:   "http://media.test/groupchat/chat-avatar/" + uuid.NewString() + ".png",
		IsPublic:   isPublic,
		InviteCode: uuid.NewString(),
	}
	if err := db.Create(group).Error; err != nil {
		t.Fatalf("failed creating group %s: %v", name, err)
	}
	return group
}

func addServiceMember(t *testing.T, db *gorm.DB, group *models.ChatGroup, user *models.User, role models.Role) *models.Member {
	t.Helper()
	member := &models.Member{UserID: user.ID, ChatGroupID: group.ID, Role: role}
	if err := db.Create(member).Error; err != nil {
		t.Fatalf("failed adding member: %v", err)
	}
	return member
}

func actorFor(user *models.User) Actor {
	return Actor{UserID: user.ID, IPAddress: "127.0.0.1", RequestID: uuid.NewString()}
}

func assertKind(t *testing.T, err error, want ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}

func newTestTokens(t *testing.T) *utils.TokenManager {
	t.Helper()
	tokens, err := utils.NewTokenManager(map[utils.TokenPurpose]utils.TokenSettings{
		utils.PurposeAccess:            {Secret: "access-secret", TTL: 15 * time.Minute},
		utils.PurposeRefresh:           {Secret: "refresh-secret", TTL: 24 * time.Hour},
		utils.PurposeEmailVerification: {Secret: "verify-secret", TTL: 5 * time.Minute},
	})
	if err != nil {
		t.Fatalf("failed creating token manager: %v", err)
	}
	return tokens
}
