package services

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/groupchat/backend/internal/storage"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID    uuid.UUID
	IPAddress string
	RequestID string
}

func (a Actor) audit(audit *AuditService, action, resourceType string, resourceID uuid.UUID, details map[string]interface{}) {
	if audit == nil {
		return
	}
	entry := AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   &resourceID,
		Details:      details,
		IPAddress:    a.IPAddress,
		RequestID:    a.RequestID,
	}
	if a.UserID != uuid.Nil {
		userID := a.UserID
		entry.UserID = &userID
	}
	audit.LogAsync(entry)
}

func checkImage(image *storage.Upload, maxBytes int64) error {
	if image == nil {
		return invalid("Image is required")
	}
	if !strings.HasPrefix(strings.ToLower(image.ContentType), "image/") {
		return invalid("Image must be an image file")
	}
	if maxBytes > 0 && image.Size > maxBytes {
		return invalid(fmt.Sprintf("Image must be at most %d bytes", maxBytes))
	}
	return nil
}
