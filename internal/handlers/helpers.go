package handlers

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/groupchat/backend/internal/middleware"
	"github.com/groupchat/backend/internal/services"
	"github.com/groupchat/backend/internal/storage"
	"github.com/groupchat/backend/pkg/logger"
	"github.com/groupchat/backend/pkg/utils"
)

func parseUUID(value string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(value))
}

// requireID parses a required id taken from a path or query value.
func requireID(value, label string) (uuid.UUID, string) {
	if strings.TrimSpace(value) == "" {
		return uuid.Nil, label + " is required"
	}
	id, err := parseUUID(value)
	if err != nil {
		return uuid.Nil, label + " must be a valid id"
	}
	return id, ""
}

func queryBool(c *fiber.Ctx, key string) bool {
	value, err := strconv.ParseBool(strings.TrimSpace(c.Query(key)))
	return err == nil && value
}

// parseBody decodes JSON, urlencoded or multipart bodies. An empty body
// leaves out untouched.
func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return c.BodyParser(out)
}

func actorFrom(c *fiber.Ctx) services.Actor {
	actor := services.Actor{
		IPAddress: c.IP(),
		RequestID: logger.GetRequestID(c),
	}
	if user := middleware.GetCurrentUser(c); user != nil {
		actor.UserID = user.ID
	}
	return actor
}

// formImage returns the uploaded "image" part, or nil when none was sent.
// The caller closes the returned closer once the upload is consumed.
func formImage(c *fiber.Ctx) (*storage.Upload, io.Closer, error) {
	header, err := c.FormFile("image")
	if err != nil {
		return nil, nil, nil
	}
	file, err := header.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("opening uploaded image: %w", err)
	}
	return &storage.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Reader:      file,
	}, file, nil
}

func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// respondError maps service errors to statuses. Dependency failures are
// logged with their cause; the caller only sees the message.
func respondError(c *fiber.Ctx, err error) error {
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		logUnexpected(c, "unexpected_error", err)
		return utils.Error(c, fiber.StatusInternalServerError, "Internal server error")
	}

	switch svcErr.Kind {
	case services.KindValidation:
		return utils.Error(c, fiber.StatusBadRequest, svcErr.Message)
	case services.KindAuthorization:
		return utils.Error(c, fiber.StatusForbidden, svcErr.Message)
	case services.KindNotFound:
		return utils.Error(c, fiber.StatusNotFound, svcErr.Message)
	case services.KindUnauthenticated:
		return utils.Error(c, fiber.StatusUnauthorized, svcErr.Message)
	default:
		logUnexpected(c, "dependency_failed", err)
		return utils.Error(c, fiber.StatusInternalServerError, svcErr.Message)
	}
}

func logUnexpected(c *fiber.Ctx, action string, err error) {
	details := map[string]interface{}{
		"method":     c.Method(),
		"path":       c.Path(),
		"request_id": logger.GetRequestID(c),
	}
	if userID := logger.GetUserIDFromContext(c); userID != nil {
		logger.ErrorWithUser(*userID, action, err, details)
		return
	}
	logger.Error(action, err, details)
}
