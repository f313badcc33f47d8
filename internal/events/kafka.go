// Package events streams audit rows to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/groupchat/backend/internal/models"
	"github.com/segmentio/kafka-go"
)

// AuditEvent is the message value written for each audit row.
type AuditEvent struct {
	ID           string                 `json:"id"`
	Action       string                 `json:"action"`
	ResourceType string                 `json:"resourceType"`
	ResourceID   string                 `json:"resourceID,omitempty"`
	UserID       string                 `json:"userID,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	RequestID    string                 `json:"requestID,omitempty"`
	OccurredAt   time.Time              `json:"occurredAt"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Producer{writer: w}
}

// Publish writes one audit row. Messages are keyed by resource so every
// event for a group lands on the same partition in order.
func (p *Producer) Publish(ctx context.Context, log models.AuditLog) error {
	msg, err := encode(log)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func encode(log models.AuditLog) (kafka.Message, error) {
	event := AuditEvent{
		ID:           log.ID.String(),
		Action:       log.Action,
		ResourceType: log.ResourceType,
		Details:      log.Details,
		RequestID:    log.RequestID,
		OccurredAt:   log.CreatedAt,
	}
	if log.ResourceID != nil {
		event.ResourceID = log.ResourceID.String()
	}
	if log.UserID != nil {
		event.UserID = log.UserID.String()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, err
	}

	key := event.ResourceID
	if key == "" {
		key = event.ID
	}
	return kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  log.CreatedAt,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(log.Action)},
		},
	}, nil
}
