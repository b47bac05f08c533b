package pendinginfra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Abraxas-365/relay/pkg/iam/pending"
	"github.com/Abraxas-365/relay/pkg/kernel"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps pending state under relay:pending:<device> and
// relay:redirect:<device>, both expiring after ttl.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

var _ pending.Store = (*RedisStore)(nil)

func intentKey(device kernel.DeviceID) string   { return "relay:pending:" + device.String() }
func redirectKey(device kernel.DeviceID) string { return "relay:redirect:" + device.String() }

func (s *RedisStore) Put(ctx context.Context, device kernel.DeviceID, intent pending.Intent) error {
	data, err := json.Marshal(intent)
	if err != nil {
		return pending.ErrDecodeFailed().WithCause(err)
	}
	if err := s.client.Set(ctx, intentKey(device), data, s.ttl).Err(); err != nil {
		return pending.ErrStoreFailed().WithCause(err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, device kernel.DeviceID) (*pending.Intent, error) {
	val, err := s.client.Get(ctx, intentKey(device)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, pending.ErrStoreFailed().WithCause(err)
	}

	var intent pending.Intent
	if err := json.Unmarshal(val, &intent); err != nil {
		return nil, pending.ErrDecodeFailed().WithCause(err)
	}
	return &intent, nil
}

func (s *RedisStore) Delete(ctx context.Context, device kernel.DeviceID) error {
	if err := s.client.Del(ctx, intentKey(device)).Err(); err != nil {
		return pending.ErrStoreFailed().WithCause(err)
	}
	return nil
}

func (s *RedisStore) PutRedirect(ctx context.Context, device kernel.DeviceID, target string) error {
	if err := s.client.Set(ctx, redirectKey(device), target, s.ttl).Err(); err != nil {
		return pending.ErrStoreFailed().WithCause(err)
	}
	return nil
}

func (s *RedisStore) GetRedirect(ctx context.Context, device kernel.DeviceID) (string, error) {
	val, err := s.client.Get(ctx, redirectKey(device)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", pending.ErrStoreFailed().WithCause(err)
	}
	return val, nil
}

func (s *RedisStore) DeleteRedirect(ctx context.Context, device kernel.DeviceID) error {
	if err := s.client.Del(ctx, redirectKey(device)).Err(); err != nil {
		return pending.ErrStoreFailed().WithCause(err)
	}
	return nil
}
