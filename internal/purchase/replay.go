// AngelaMos | 2026
// replay.go

package purchase

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReplayGuard remembers provider event ids that were already handled.
type ReplayGuard interface {
	// Claim reports true the first time id is seen.
	Claim(ctx context.Context, eventID string) (bool, error)
	// Release forgets id so a failed delivery can be retried.
	Release(ctx context.Context, eventID string) error
}

const replayKeyPrefix = "purchase:event:"

type RedisReplayGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReplayGuard(client *redis.Client, ttl time.Duration) *RedisReplayGuard {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisReplayGuard{client: client, ttl: ttl}
}

func (g *RedisReplayGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := g.client.SetNX(ctx, replayKeyPrefix+eventID, time.Now().Unix(), g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	return ok, nil
}

func (g *RedisReplayGuard) Release(ctx context.Context, eventID string) error {
	if err := g.client.Del(ctx, replayKeyPrefix+eventID).Err(); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}
