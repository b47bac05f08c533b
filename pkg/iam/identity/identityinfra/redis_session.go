package identityinfra

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abraxas-365/relay/pkg/iam/identity"
	"github.com/redis/go-redis/v9"
)

// RedisSessionRepository keeps one key per session, expiring with it.
type RedisSessionRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisSessionRepository(client *redis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{
		client: client,
		prefix: "relay:session:",
	}
}

var _ identity.SessionRepository = (*RedisSessionRepository)(nil)

func (r *RedisSessionRepository) key(sessionID string) string {
	return r.prefix + sessionID
}

func (r *RedisSessionRepository) Save(ctx context.Context, s identity.Session) error {
	if s.ID == "" || s.SubjectID.IsEmpty() {
		return fmt.Errorf("session: missing id or subject")
	}

	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("session: failed to marshal: %w", err)
	}

	return r.client.Set(ctx, r.key(s.ID), data, ttl).Err()
}

func (r *RedisSessionRepository) Find(ctx context.Context, sessionID string) (*identity.Session, error) {
	val, err := r.client.Get(ctx, r.key(sessionID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var s identity.Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}
	return &s, nil
}

func (r *RedisSessionRepository) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.key(sessionID)).Err()
}
