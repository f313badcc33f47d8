package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Entry is one JSON line written by the logger.
type Entry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     Level                  `json:"level"`
	UserID    *string                `json:"user_id,omitempty"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

type Logger struct {
	mu     sync.Mutex
	output io.Writer
	color  bool
}

var global *Logger

func New(output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{output: output, color: output == os.Stdout}
}

// Init installs a stdout logger as the package logger.
func Init() {
	global = New(os.Stdout)
}

// SetOutput replaces the package logger; tests use it to capture lines.
func SetOutput(w io.Writer) {
	global = New(w)
}

func (l *Logger) write(level Level, action string, userID *string, details map[string]interface{}, err error) {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		UserID:    userID,
		Action:    action,
		Details:   details,
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)
	if marshalErr != nil {
		data = []byte(fmt.Sprintf(`{"level":%q,"action":%q,"error":"unserializable details"}`, level, action))
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.color {
		fmt.Fprintf(l.output, "%s\n", data)
		return
	}

	code := "\033[36m"
	switch level {
	case LevelError:
		code = "\033[31m"
	case LevelWarn:
		code = "\033[33m"
	}
	fmt.Fprintf(l.output, "%s%s\033[0m\n", code, data)
}

func Info(action string, details map[string]interface{}) {
	if global != nil {
		global.write(LevelInfo, action, nil, details, nil)
	}
}

func InfoWithUser(userID string, action string, details map[string]interface{}) {
	if global != nil {
		global.write(LevelInfo, action, &userID, details, nil)
	}
}

func Warn(action string, details map[string]interface{}) {
	if global != nil {
		global.write(LevelWarn, action, nil, details, nil)
	}
}

func WarnWithUser(userID string, action string, details map[string]interface{}) {
	if global != nil {
		global.write(LevelWarn, action, &userID, details, nil)
	}
}

func Error(action string, err error, details map[string]interface{}) {
	if global != nil {
		global.write(LevelError, action, nil, details, err)
	}
}

func ErrorWithUser(userID string, action string, err error, details map[string]interface{}) {
	if global != nil {
		global.write(LevelError, action, &userID, details, err)
	}
}

const (
	userIDKey    = "userID"
	requestIDKey = "requestID"
)

// SetUserID records the authenticated user on the request so the request
// logger can attribute the line.
func SetUserID(c *fiber.Ctx, userID string) {
	c.Locals(userIDKey, userID)
}

func GetUserIDFromContext(c *fiber.Ctx) *string {
	if id, ok := c.Locals(userIDKey).(string); ok && id != "" {
		return &id
	}
	return nil
}

func SetRequestID(c *fiber.Ctx, requestID string) {
	c.Locals(requestIDKey, requestID)
}

func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDKey).(string)
	return id
}

func GenerateRequestID() string {
	return uuid.New().String()
}

var sensitiveFields = []string{"password", "accessToken", "refreshToken", "token", "secret"}

// GetRequestBodySummary renders a short, redacted description of the body.
// Multipart bodies are summarized by size only.
func GetRequestBodySummary(c *fiber.Ctx) string {
	body := c.Body()
	if len(body) == 0 {
		return "empty"
	}
	if len(body) > 1024 {
		return fmt.Sprintf("large (%d bytes)", len(body))
	}

	var fields map[string]interface{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return fmt.Sprintf("binary (%d bytes)", len(body))
	}
	for _, name := range sensitiveFields {
		if _, ok := fields[name]; ok {
			fields[name] = "[REDACTED]"
		}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Sprintf("binary (%d bytes)", len(body))
	}
	if len(encoded) > 200 {
		return string(encoded[:200]) + "..."
	}
	return string(encoded)
}

func GetResponseSizeSummary(c *fiber.Ctx) string {
	size := len(c.Response().Body())
	switch {
	case size == 0:
		return "empty"
	case size > 1024:
		return fmt.Sprintf("large (%d bytes)", size)
	default:
		return fmt.Sprintf("small (%d bytes)", size)
	}
}
