package orgcontext

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/mo"
)

const keyPrefix = "orgctx:"

// SelectionStore persists the current organization per user so every instance agrees.
type SelectionStore interface {
	Get(ctx context.Context, userID uuid.UUID) (mo.Option[uuid.UUID], error)
	Set(ctx context.Context, userID, orgID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

// RedisStore keeps selections under orgctx:<user>. Last write wins.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore creates a selection store. ttl of zero keeps keys forever.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(userID uuid.UUID) string { return keyPrefix + userID.String() }

func (s *RedisStore) Get(ctx context.Context, userID uuid.UUID) (mo.Option[uuid.UUID], error) {
	v, err := s.client.Get(ctx, key(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return mo.None[uuid.UUID](), nil
	}
	if err != nil {
		return mo.None[uuid.UUID](), fmt.Errorf("get selection: %w", err)
	}
	id, err := uuid.Parse(v)
	if err != nil {
		// unreadable value; treat as no selection
		return mo.None[uuid.UUID](), nil
	}
	return mo.Some(id), nil
}

func (s *RedisStore) Set(ctx context.Context, userID, orgID uuid.UUID) error {
	if err := s.client.Set(ctx, key(userID), orgID.String(), s.ttl).Err(); err != nil {
		return fmt.Errorf("set selection: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, key(userID)).Err()
}
