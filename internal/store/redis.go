package store

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// sessionTTL caps how long an orphaned session hash survives a crashed
// teardown.
const sessionTTL = 24 * time.Hour

// SessionRegistry keeps live-session variables in Redis hashes, one hash
// per session keyed by the session id.
type SessionRegistry struct {
	client *redis.Client
	prefix string
}

func NewSessionRegistry(client *redis.Client, prefix string) *SessionRegistry {
	if prefix == "" {
		prefix = "session:"
	}
	return &SessionRegistry{client: client, prefix: prefix}
}

func (r *SessionRegistry) key(sessionID string) string {
	return r.prefix + sessionID
}

// Register records a session as live with its identifying variables.
func (r *SessionRegistry) Register(ctx context.Context, sessionID string, fields map[string]string) error {
	key := r.key(sessionID)
	values := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		values[k] = v
	}
	values["started_at"] = time.Now().UTC().Format(time.RFC3339)

	if err := r.client.HSet(ctx, key, values).Err(); err != nil {
		return fmt.Errorf("redis HSET %s: %w", key, err)
	}
	if err := r.client.Expire(ctx, key, sessionTTL).Err(); err != nil {
		return fmt.Errorf("redis EXPIRE %s: %w", key, err)
	}
	return nil
}

// GetVar resolves one session variable; empty values are reported as errors
// so callers never act on a missing field.
func (r *SessionRegistry) GetVar(ctx context.Context, sessionID, field string) (string, error) {
	key := r.key(sessionID)
	val, err := r.client.HGet(ctx, key, field).Result()
	if err != nil {
		return "", fmt.Errorf("redis HGET %s %s: %w", key, field, err)
	}
	if val == "" {
		return "", fmt.Errorf("redis HGET %s %s: empty", key, field)
	}
	return val, nil
}

// Release drops the session hash on teardown.
func (r *SessionRegistry) Release(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis DEL %s: %w", r.key(sessionID), err)
	}
	return nil
}
