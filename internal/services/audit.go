package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/groupchat/backend/internal/models"
	"github.com/groupchat/backend/pkg/logger"
	"github.com/groupchat/backend/pkg/utils"
	"gorm.io/gorm"
)

const (
	ActionChatGroupCreate     = "chatgroup.create"
	ActionChatGroupUpdate     = "chatgroup.update"
	ActionChatGroupDelete     = "chatgroup.delete"
	ActionChatGroupPrivacy    = "chatgroup.privacy_change"
	ActionChatGroupInviteCode = "chatgroup.invite_code_rotate"
	ActionMemberAdd           = "member.add"
	ActionMemberRemove        = "member.remove"
	ActionMemberRoleChange    = "member.role_change"
	ActionMemberJoin          = "member.join"
	ActionMemberLeave         = "member.leave"
	ActionUserRegister        = "user.register"
	ActionUserLogin           = "user.login"
	ActionUserVerifyEmail     = "user.verify_email"
	ActionUserUpdate          = "user.profile_update"
	ActionUserDelete          = "user.delete"

	ResourceChatGroup = "chatgroup"
	ResourceUser      = "user"
)

type AuditEntry struct {
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      map[string]interface{}
	IPAddress    string
	RequestID    string
}

// AuditSink receives every stored audit row, e.g. to stream it to a broker.
type AuditSink interface {
	Publish(ctx context.Context, log models.AuditLog) error
}

type AuditService struct {
	DB    *gorm.DB
	Sink  AuditSink
	queue chan models.AuditLog
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAuditService(db *gorm.DB, sink AuditSink, queueSize int) *AuditService {
	if queueSize < 1 {
		queueSize = 1
	}
	s := &AuditService{
		DB:    db,
		Sink:  sink,
		queue: make(chan models.AuditLog, queueSize),
		done:  make(chan struct{}),
	}
	go s.processQueue()
	return s
}

// LogAsync enqueues an entry without blocking. When the queue is full or the
// service is closed the entry is dropped and a warning is logged.
func (s *AuditService) LogAsync(entry AuditEntry) {
	if s == nil {
		return
	}
	row := models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		CreatedAt:    time.Now().UTC(),
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		logger.Warn("audit_log_after_close", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
		return
	}
	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

// Close stops accepting entries and waits until the queue is drained.
// Entries logged after Close are dropped.
func (s *AuditService) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *AuditService) processQueue() {
	defer close(s.done)
	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
			continue
		}
		if s.Sink == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.Sink.Publish(ctx, row); err != nil {
			logger.Error("audit_event_publish_failed", err, map[string]interface{}{
				"action": row.Action,
				"log_id": row.ID.String(),
			})
		}
		cancel()
	}
}

// ListForChatGroup returns the newest audit rows recorded against a chat group.
func (s *AuditService) ListForChatGroup(ctx context.Context, groupID uuid.UUID, p utils.PaginationParams) ([]models.AuditLog, int64, error) {
	query := s.DB.WithContext(ctx).Model(&models.AuditLog{}).
		Where("resource_type = ? AND resource_id = ?", ResourceChatGroup, groupID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	if err := utils.ApplyPagination(query.Order("created_at DESC"), p).Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
