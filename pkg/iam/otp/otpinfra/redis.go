package otpinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/relay/pkg/iam/otp"
	"github.com/redis/go-redis/v9"
)

// RedisOTPRepository stores the latest code per contact and purpose under a
// single key that expires together with the code.
type RedisOTPRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisOTPRepository(client *redis.Client) *RedisOTPRepository {
	return &RedisOTPRepository{
		client: client,
		prefix: "relay:otp:",
	}
}

func (r *RedisOTPRepository) key(contact string, purpose otp.Purpose) string {
	return fmt.Sprintf("%s%s:%s", r.prefix, purpose, strings.ToLower(contact))
}

func (r *RedisOTPRepository) Save(ctx context.Context, o *otp.OTP) error {
	return r.write(ctx, o)
}

func (r *RedisOTPRepository) GetLatest(ctx context.Context, contact string, purpose otp.Purpose) (*otp.OTP, error) {
	val, err := r.client.Get(ctx, r.key(contact, purpose)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, otp.ErrStoreFailed().WithCause(err)
	}

	var o otp.OTP
	if err := json.Unmarshal([]byte(val), &o); err != nil {
		return nil, otp.ErrStoreFailed().WithCause(fmt.Errorf("unmarshal otp: %w", err))
	}
	return &o, nil
}

// claimScript spends one attempt on the stored code if its id still matches.
// Replies: attempts used, -1 when replaced or gone, -2 when exhausted.
var claimScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return -1 end
local o = cjson.decode(raw)
if o.id ~= ARGV[1] then return -1 end
if o.attempts >= o.max_attempts then return -2 end
o.attempts = o.attempts + 1
redis.call('SET', KEYS[1], cjson.encode(o), 'KEEPTTL')
return o.attempts
`)

// verifyScript stamps verified_at once on the stored code if its id still
// matches. Replies {stamped, record}, or {-1} when replaced or gone.
var verifyScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then return {-1} end
local o = cjson.decode(raw)
if o.id ~= ARGV[1] then return {-1} end
if o.verified_at then return {0, raw} end
o.verified_at = ARGV[2]
raw = cjson.encode(o)
redis.call('SET', KEYS[1], raw, 'KEEPTTL')
return {1, raw}
`)

func (r *RedisOTPRepository) ClaimAttempt(ctx context.Context, o *otp.OTP) (int, error) {
	n, err := claimScript.Run(ctx, r.client, []string{r.key(o.Contact, o.Purpose)}, o.ID).Int()
	if err != nil {
		return 0, otp.ErrStoreFailed().WithCause(err)
	}
	switch n {
	case -1:
		return 0, otp.ErrInvalidOTP()
	case -2:
		return o.MaxAttempts, otp.ErrTooManyAttempts()
	}
	return n, nil
}

func (r *RedisOTPRepository) MarkVerified(ctx context.Context, o *otp.OTP, at time.Time) (*otp.OTP, bool, error) {
	reply, err := verifyScript.Run(ctx, r.client, []string{r.key(o.Contact, o.Purpose)},
		o.ID, at.UTC().Format(time.RFC3339Nano)).Slice()
	if err != nil {
		return nil, false, otp.ErrStoreFailed().WithCause(err)
	}
	flag, _ := reply[0].(int64)
	if flag < 0 || len(reply) < 2 {
		return nil, false, otp.ErrInvalidOTP()
	}
	raw, _ := reply[1].(string)

	var stored otp.OTP
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, false, otp.ErrStoreFailed().WithCause(fmt.Errorf("unmarshal otp: %w", err))
	}
	return &stored, flag == 1, nil
}

func (r *RedisOTPRepository) Delete(ctx context.Context, contact string, purpose otp.Purpose) error {
	if err := r.client.Del(ctx, r.key(contact, purpose)).Err(); err != nil {
		return otp.ErrStoreFailed().WithCause(err)
	}
	return nil
}

func (r *RedisOTPRepository) write(ctx context.Context, o *otp.OTP) error {
	ttl := time.Until(o.ExpiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, o.Contact, o.Purpose)
	}

	data, err := json.Marshal(o)
	if err != nil {
		return otp.ErrStoreFailed().WithCause(fmt.Errorf("marshal otp: %w", err))
	}

	if err := r.client.Set(ctx, r.key(o.Contact, o.Purpose), data, ttl).Err(); err != nil {
		return otp.ErrStoreFailed().WithCause(err)
	}
	return nil
}
