package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "session:"

// RedisStore keeps each session under its own key with a TTL matching
// the session expiry, so Redis evicts stale sessions on its own.
type RedisStore struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: DefaultPrefix,
		now:    time.Now,
	}
}

func (r *RedisStore) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisStore) Create(ctx context.Context, s Session) error {
	if s.SessionID == "" || s.UserID == "" {
		return ErrMissingID
	}

	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return ErrExpired
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}

	if err := r.client.Set(ctx, r.key(s.SessionID), data, ttl).Err(); err != nil {
		return fmt.Errorf("session: store: %w", err)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, nil
	}

	val, err := r.client.Get(ctx, r.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session: load: %w", err)
	}

	var s Session
	if err := json.Unmarshal(val, &s); err != nil {
		return nil, fmt.Errorf("session: unmarshal: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("session: delete: %w", err)
	}
	return nil
}
