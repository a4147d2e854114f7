package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types published to a user's channel
const (
	EventTaskUpdated   = "task_updated"
	EventTaskDeleted   = "task_deleted"
	EventBlockExecuted = "block_executed"
)

// Publisher announces changes to a user's other sessions
type Publisher interface {
	Publish(ctx context.Context, userID, eventType string, payload any) error
}

// EventMessage is the JSON envelope sent over pub/sub
type EventMessage struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	InstanceID string    `json:"instanceId"`
	Payload    any       `json:"payload"`
	SentAt     time.Time `json:"sentAt"`
}

// UserChannel returns the pub/sub channel for a user's events
func UserChannel(userID string) string {
	return fmt.Sprintf("user:%s:events", userID)
}

// RedisPublisher publishes events to user:{id}:events
type RedisPublisher struct {
	client     *redis.Client
	instanceID string
}

// NewRedisPublisher creates a publisher over an established Redis connection
func NewRedisPublisher(redisService *RedisService, instanceID string) *RedisPublisher {
	return &RedisPublisher{client: redisService.Client(), instanceID: instanceID}
}

// Publish sends one event to the user's channel
func (p *RedisPublisher) Publish(ctx context.Context, userID, eventType string, payload any) error {
	data, err := json.Marshal(EventMessage{
		Type:       eventType,
		UserID:     userID,
		InstanceID: p.instanceID,
		Payload:    payload,
		SentAt:     time.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := p.client.Publish(ctx, UserChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// NopPublisher drops every event. Used when Redis is not configured.
type NopPublisher struct{}

// Publish does nothing
func (NopPublisher) Publish(ctx context.Context, userID, eventType string, payload any) error {
	return nil
}
