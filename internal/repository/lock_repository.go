package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockRepository serializes scheduled jobs across service instances.
// The payout batch acquires a lease before running so duplicate cron
// triggers never produce double payouts.
type LockRepository interface {
	// Acquire takes the named lease for ttl. Returns false when another
	// instance already holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
}

type lockRepository struct {
	client *redis.Client
}

func NewLockRepository(client *redis.Client) LockRepository {
	return &lockRepository{client: client}
}

func (r *lockRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("referral:lock:%s", name)
	ok, err := r.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	return ok, nil
}

func (r *lockRepository) Release(ctx context.Context, name string) error {
	key := fmt.Sprintf("referral:lock:%s", name)
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", name, err)
	}
	return nil
}
