package alerts

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/mo"
)

// cooldownTTL outlives CooldownPeriod so a missed tick does not lose the start.
const cooldownTTL = 10 * time.Minute

// Cooldowns stores when a triggered alert first dropped below its threshold.
type Cooldowns interface {
	Start(ctx context.Context, alertID uuid.UUID) (mo.Option[time.Time], error)
	SetStart(ctx context.Context, alertID uuid.UUID, at time.Time) error
	Clear(ctx context.Context, alertID uuid.UUID) error
}

// RedisCooldowns keeps cooldown starts under alert:<id>:cooldown_start.
type RedisCooldowns struct {
	client redis.Cmdable
}

// NewRedisCooldowns creates a Redis cooldown store.
func NewRedisCooldowns(client redis.Cmdable) *RedisCooldowns {
	return &RedisCooldowns{client: client}
}

func cooldownKey(id uuid.UUID) string { return "alert:" + id.String() + ":cooldown_start" }

func (c *RedisCooldowns) Start(ctx context.Context, alertID uuid.UUID) (mo.Option[time.Time], error) {
	v, err := c.client.Get(ctx, cooldownKey(alertID)).Result()
	if errors.Is(err, redis.Nil) {
		return mo.None[time.Time](), nil
	}
	if err != nil {
		return mo.None[time.Time](), err
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return mo.None[time.Time](), nil
	}
	return mo.Some(time.UnixMilli(ms)), nil
}

func (c *RedisCooldowns) SetStart(ctx context.Context, alertID uuid.UUID, at time.Time) error {
	return c.client.Set(ctx, cooldownKey(alertID), strconv.FormatInt(at.UnixMilli(), 10), cooldownTTL).Err()
}

func (c *RedisCooldowns) Clear(ctx context.Context, alertID uuid.UUID) error {
	return c.client.Del(ctx, cooldownKey(alertID)).Err()
}
