package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/hotelops/internal/config"
	"github.com/smallbiznis/hotelops/internal/ratelimit/ratelimittest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNilReportLimiterAllows(t *testing.T) {
	var limiter *ReportLimiter

	res, err := limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	token, ok, err := limiter.TryLockClient(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, token)
	assert.NoError(t, limiter.ReleaseClient(context.Background(), "10.0.0.1", token))
}

func TestNewReportLimiterDisabled(t *testing.T) {
	limiter, err := NewReportLimiter(Params{Config: config.Config{}, Log: zap.NewNop()})
	require.NoError(t, err)
	assert.Nil(t, limiter)
	assert.False(t, limiter.Enabled())
}

func TestNewReportLimiterValidation(t *testing.T) {
	base := config.Config{
		Redis: config.RedisConfig{Addr: "127.0.0.1:6379"},
		RateLimit: config.RateLimitConfig{
			Enabled:           true,
			RatePerSecond:     1,
			Burst:             5,
			InFlightTTLSecond: 30,
		},
	}

	cases := map[string]func(c *config.Config){
		"missing addr":  func(c *config.Config) { c.Redis.Addr = "  " },
		"zero rate":     func(c *config.Config) { c.RateLimit.RatePerSecond = 0 },
		"zero burst":    func(c *config.Config) { c.RateLimit.Burst = 0 },
		"zero lock ttl": func(c *config.Config) { c.RateLimit.InFlightTTLSecond = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := base
			mutate(&cfg)
			_, err := newReportLimiter(cfg)
			assert.Error(t, err)
		})
	}

	limiter, err := newReportLimiter(base)
	require.NoError(t, err)
	t.Cleanup(func() { _ = limiter.conn.Close() })
	assert.True(t, limiter.Enabled())
	assert.Equal(t, 30*time.Second, limiter.lockTTL)
}

func TestTokenBucketArgumentErrors(t *testing.T) {
	var nilBucket *TokenBucket
	_, err := nilBucket.Allow(context.Background(), "k", 1, 1)
	assert.ErrorIs(t, err, ErrNotConfigured)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	bucket := NewTokenBucket(client)

	_, err = bucket.Allow(context.Background(), "", 1, 1)
	assert.ErrorIs(t, err, ErrEmptyKey)
	_, err = bucket.Allow(context.Background(), "k", 0, 1)
	assert.ErrorIs(t, err, ErrInvalidRate)
	_, err = bucket.Allow(context.Background(), "k", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidBurst)
}

func TestTokenBucketUnreachableRedis(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })

	res, err := NewTokenBucket(client).Allow(context.Background(), "report:generate:x", 1, 1)
	require.Error(t, err)
	assert.False(t, res.Allowed)
}

func TestLockerArgumentErrors(t *testing.T) {
	var nilLocker *Locker
	_, _, err := nilLocker.TryLock(context.Background(), "k", time.Second)
	assert.True(t, errors.Is(err, ErrLockNotConfigured))
	assert.NoError(t, nilLocker.Release(context.Background(), "k", "t"))

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { _ = client.Close() })
	locker := NewLocker(client)

	_, _, err = locker.TryLock(context.Background(), "", time.Second)
	assert.ErrorIs(t, err, ErrEmptyLockKey)
	_, _, err = locker.TryLock(context.Background(), "k", 0)
	assert.ErrorIs(t, err, ErrInvalidLockTTL)
	assert.NoError(t, locker.Release(context.Background(), "k", ""))
}

func TestBucketResult(t *testing.T) {
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC).UnixMilli()

	allowed := bucketResult(true, 3.6, ts, 2, 5)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 5, allowed.Limit)
	assert.Equal(t, 3, allowed.Remaining)
	assert.Zero(t, allowed.RetryAfter)

	denied := bucketResult(false, 0.5, ts, 2, 5)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 0, denied.Remaining)
	assert.Equal(t, 250*time.Millisecond, denied.RetryAfter)
	assert.Equal(t, time.UnixMilli(ts).Add(250*time.Millisecond), denied.ResetTime)
}

func TestDefaultBucketTTL(t *testing.T) {
	assert.Equal(t, time.Second, defaultBucketTTL(0, 5))
	assert.Equal(t, 10*time.Second, defaultBucketTTL(1, 5))
	assert.Equal(t, time.Second, defaultBucketTTL(100, 1))
}

func TestCasts(t *testing.T) {
	assert.Equal(t, int64(1), castToInt(int64(1)))
	assert.Equal(t, int64(7), castToInt("7"))
	assert.Equal(t, int64(0), castToInt(nil))
	assert.Equal(t, 2.5, castToFloat("2.5"))
	assert.Equal(t, 4.0, castToFloat(int64(4)))
	assert.Equal(t, 0.0, castToFloat("nan-ish"))
}

func TestNormalizeClientKey(t *testing.T) {
	assert.Equal(t, "anonymous", normalizeClientKey("  "))
	assert.Equal(t, "10.0.0.1", normalizeClientKey(" 10.0.0.1 "))
}

func TestReportLimiterBucketDecisions(t *testing.T) {
	fake := ratelimittest.New()
	limiter := NewReportLimiterWithClient(fake, 2, 5, 30*time.Second)
	ctx := context.Background()

	fake.SetBucket(true, 3.6)
	res, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 3, res.Remaining)
	assert.Zero(t, res.RetryAfter)

	fake.SetBucket(false, 0.5)
	res, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 250*time.Millisecond, res.RetryAfter)
	assert.Equal(t, 2, fake.Evals())

	fake.Fail(errors.New("connection reset"))
	_, err = limiter.Allow(ctx, "10.0.0.1")
	assert.Error(t, err)
}

func TestReportLimiterOneReportInFlightPerClient(t *testing.T) {
	fake := ratelimittest.New()
	limiter := NewReportLimiterWithClient(fake, 1, 5, 30*time.Second)
	ctx := context.Background()

	token, ok, err := limiter.TryLockClient(ctx, " 10.0.0.1 ")
	require.NoError(t, err)
	require.True(t, ok)
	held, _ := fake.Held("report:inflight:10.0.0.1")
	assert.Equal(t, token, held)

	_, ok, err = limiter.TryLockClient(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	other, ok, err := limiter.TryLockClient(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, limiter.ReleaseClient(ctx, "10.0.0.2", other))

	require.NoError(t, limiter.ReleaseClient(ctx, "10.0.0.1", token))
	_, stillHeld := fake.Held("report:inflight:10.0.0.1")
	assert.False(t, stillHeld)
}

func TestLockerReleaseAfterExpiry(t *testing.T) {
	fake := ratelimittest.New()
	locker := NewLocker(fake)
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "report:inflight:a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	// ttl lapsed and another request took the slot
	fake.Hold("report:inflight:a", "someone-else")
	assert.ErrorIs(t, locker.Release(ctx, "report:inflight:a", token), ErrLockLost)
	held, _ := fake.Held("report:inflight:a")
	assert.Equal(t, "someone-else", held)

	fake.Fail(errors.New("timeout"))
	_, _, err = locker.TryLock(ctx, "report:inflight:b", time.Second)
	assert.Error(t, err)
}
