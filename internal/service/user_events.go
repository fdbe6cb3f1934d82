package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sandeepkv93/secure-session-auth-service/internal/domain"
)

const UserRegisteredEventType = "user.registered"

type UserRegisteredEvent struct {
	Type       string    `json:"type"`
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	OccurredAt time.Time `json:"occurred_at"`
}

func newUserRegisteredEvent(u *domain.User) UserRegisteredEvent {
	return UserRegisteredEvent{
		Type:       UserRegisteredEventType,
		UserID:     u.ID,
		Name:       u.Name,
		Email:      u.Email,
		OccurredAt: time.Now().UTC(),
	}
}

// UserEventPublisher announces user lifecycle events. Delivery to consumers
// is handled elsewhere.
type UserEventPublisher interface {
	PublishUserRegistered(ctx context.Context, event UserRegisteredEvent) error
}

type NoopUserEventPublisher struct{}

func (NoopUserEventPublisher) PublishUserRegistered(context.Context, UserRegisteredEvent) error {
	return nil
}

type RedisUserEventPublisher struct {
	client  redis.UniversalClient
	channel string
}

func NewRedisUserEventPublisher(client redis.UniversalClient, channel string) *RedisUserEventPublisher {
	if channel == "" {
		channel = "users.events"
	}
	return &RedisUserEventPublisher{client: client, channel: channel}
}

func (p *RedisUserEventPublisher) PublishUserRegistered(ctx context.Context, event UserRegisteredEvent) error {
	if p.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal user event: %w", err)
	}
	return p.client.Publish(ctx, p.channel, payload).Err()
}
