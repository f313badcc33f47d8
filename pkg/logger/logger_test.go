package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(io.Discard) })

	InfoWithUser("user-1", "group_created", map[string]interface{}{"group_id": "g-1"})
	Error("media_upload_failed", errors.New("boom"), nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}

	var first Entry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("first line is not JSON: %v", err)
	}
	if first.Level != LevelInfo || first.Action != "group_created" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.UserID == nil || *first.UserID != "user-1" {
		t.Fatalf("expected user id user-1, got %v", first.UserID)
	}

	var second Entry
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("second line is not JSON: %v", err)
	}
	if second.Level != LevelError || second.Error != "boom" {
		t.Fatalf("unexpected second entry: %+v", second)
	}
}

func TestGetRequestBodySummaryRedactsSecrets(t *testing.T) {
	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		return c.SendString(GetRequestBodySummary(c))
	})

	testCases := []struct {
		name    string
		body    string
		want    string
		notWant string
	}{
		{name: "empty body", body: "", want: "empty"},
		{name: "password redacted", body: `{"email":"a@b.c","password":"hunter22"}`, want: "[REDACTED]", notWant: "hunter22"},
		{name: "refresh token redacted", body: `{"refreshToken":"abc.def"}`, want: "[REDACTED]", notWant: "abc.def"},
		{name: "non json body", body: "--boundary", want: "binary"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			resp, err := app.Test(req, -1)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close()
			raw, _ := io.ReadAll(resp.Body)
			got := string(raw)
			if !strings.Contains(got, tc.want) {
				t.Fatalf("expected %q in summary, got %q", tc.want, got)
			}
			if tc.notWant != "" && strings.Contains(got, tc.notWant) {
				t.Fatalf("summary leaked %q: %q", tc.notWant, got)
			}
		})
	}
}
