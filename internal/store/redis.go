package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis wraps the redis client plus the registration-counter cache.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis with short timeouts.
func NewRedis(addr string) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})
	return &Redis{Client: client}
}

// Healthy verifies redis connectivity.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

func counterKey(eventID string) string {
	return "campus:event:" + eventID + ":registrations"
}

// SetRegistrationCount overwrites the cached registration counter for an event.
func (r *Redis) SetRegistrationCount(ctx context.Context, eventID string, count int) error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Set(ctx, counterKey(eventID), count, 0).Err()
}

// IncrRegistrationCount bumps the cached counter after a successful registration.
func (r *Redis) IncrRegistrationCount(ctx context.Context, eventID string) error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Incr(ctx, counterKey(eventID)).Err()
}

// RegistrationCount returns the cached counter, or -1 when the cache has no answer.
// The counter is advisory; the store remains the source of truth.
func (r *Redis) RegistrationCount(ctx context.Context, eventID string) int {
	if r == nil || r.Client == nil {
		return -1
	}
	val, err := r.Client.Get(ctx, counterKey(eventID)).Result()
	if err != nil {
		return -1
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return -1
	}
	return n
}
