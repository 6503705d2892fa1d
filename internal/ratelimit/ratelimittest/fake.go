// Package ratelimittest provides an in-memory stand-in for the redis
// commands the report limiter issues.
package ratelimittest

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var errUnsupported = errors.New("ratelimittest: command not supported")

// Redis answers token bucket evaluations with a fixed decision and keeps
// SetNX locks in a map. The lock release script is recognised by its single
// argument, the token.
type Redis struct {
	mu sync.Mutex

	allowed bool
	tokens  float64
	err     error
	locks   map[string]string
	evals   int
}

// New returns a fake whose bucket admits every request with tokens left over.
func New() *Redis {
	return &Redis{allowed: true, tokens: 4, locks: map[string]string{}}
}

// SetBucket fixes the decision and the post-decision token count returned
// by every bucket evaluation.
func (r *Redis) SetBucket(allowed bool, tokens float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allowed, r.tokens = allowed, tokens
}

// Fail makes every command return err. A nil err restores service.
func (r *Redis) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Hold marks key as locked by token.
func (r *Redis) Hold(key, token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks[key] = token
}

// Held reports the token holding key, if any.
func (r *Redis) Held(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.locks[key]
	return token, ok
}

// Evals counts bucket evaluations.
func (r *Redis) Evals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evals
}

func (r *Redis) SetNX(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return redis.NewBoolResult(false, r.err)
	}
	if _, ok := r.locks[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	r.locks[key] = toString(value)
	return redis.NewBoolResult(true, nil)
}

func (r *Redis) Eval(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return r.eval(keys, args)
}

func (r *Redis) EvalSha(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return r.eval(keys, args)
}

func (r *Redis) EvalRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(nil, errUnsupported)
}

func (r *Redis) EvalShaRO(ctx context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return redis.NewCmdResult(nil, errUnsupported)
}

func (r *Redis) ScriptExists(ctx context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (r *Redis) ScriptLoad(ctx context.Context, script string) *redis.StringCmd {
	return redis.NewStringResult("", errUnsupported)
}

func (r *Redis) eval(keys []string, args []interface{}) *redis.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return redis.NewCmdResult(nil, r.err)
	}
	if len(keys) != 1 {
		return redis.NewCmdResult(nil, errUnsupported)
	}

	if len(args) == 1 {
		if token, ok := r.locks[keys[0]]; ok && token == toString(args[0]) {
			delete(r.locks, keys[0])
			return redis.NewCmdResult(int64(1), nil)
		}
		return redis.NewCmdResult(int64(0), nil)
	}

	r.evals++
	allowed := int64(0)
	if r.allowed {
		allowed = 1
	}
	return redis.NewCmdResult([]interface{}{
		allowed,
		strconv.FormatFloat(r.tokens, 'f', -1, 64),
		time.Now().UnixMilli(),
	}, nil)
}

func toString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

var _ redis.Scripter = (*Redis)(nil)
