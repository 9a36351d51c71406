package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "enroll:user-1", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)
	assert.Len(t, mock.expireCalls, 1, "first increment starts the window")

	allowed, count, err = client.FixedWindowAllow(ctx, "enroll:user-1", 2, time.Second)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(2), count)
	assert.Len(t, mock.expireCalls, 1, "window TTL is only set once")

	allowed, _, err = client.FixedWindowAllow(ctx, "enroll:user-1", 2, time.Second)
	require.NoError(t, err)
	assert.False(t, allowed, "third request exceeds the limit of 2")
}

func TestSetNXLifecycle(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	ok, err := client.SetNX(ctx, "lms:lock:payment-expiry", "owner-1", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "first claimant wins")

	ok, err = client.SetNX(ctx, "lms:lock:payment-expiry", "owner-2", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "second claimant loses while the key lives")

	require.NoError(t, client.Del(ctx, "lms:lock:payment-expiry"))
	_, err = client.Get(ctx, "lms:lock:payment-expiry")
	assert.ErrorIs(t, err, redis.Nil)
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	assert.Equal(t, "lms:idempotency:scope:id", client.IdempotencyKey("scope", "id"))
	assert.Equal(t, "lms:rate_limit:scope", client.RateLimitKey("scope"))
	assert.Equal(t, "lms:counter:hits", client.CounterKey("hits"))
	assert.Equal(t, "lms:lock:enrollment-cron", client.LockKey("enrollment-cron"))
}

func TestNotInitialized(t *testing.T) {
	client := &Client{}
	_, err := client.Get(context.Background(), "any")
	assert.ErrorIs(t, err, errNotInitialized)
}

type mockCmdable struct {
	data        map[string]string
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
