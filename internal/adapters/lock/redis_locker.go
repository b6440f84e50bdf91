package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockLost is returned on release when the lock expired or was taken over.
var ErrLockLost = errors.New("lock lost before release")

// RedisLocker is a single-node SET NX PX lock. TTL bounds how long a crashed
// holder can block other instances.
type RedisLocker struct {
	client    redis.UniversalClient
	prefix    string
	ttl       time.Duration
	retryWait time.Duration
}

func NewRedisLocker(client redis.UniversalClient, prefix string, ttl time.Duration) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("new redis locker: client is nil")
	}
	if ttl <= 0 {
		return nil, errors.New("new redis locker: ttl must be > 0")
	}
	return &RedisLocker{
		client:    client,
		prefix:    prefix,
		ttl:       ttl,
		retryWait: 100 * time.Millisecond,
	}, nil
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("new redis client: parse url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("new redis client: ping: %w", err)
	}
	return client, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, name string) (func(context.Context) error, error) {
	key := l.prefix + name
	token, err := newToken()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %q: %w", key, err)
	}

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %q: %w", key, err)
		}
		if ok {
			break
		}

		timer := time.NewTimer(l.retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("acquire lock %q: %w", key, ctx.Err())
		case <-timer.C:
		}
	}

	release := func(ctx context.Context) error {
		n, err := releaseScript.Run(ctx, l.client, []string{key}, token).Int()
		if err != nil {
			return fmt.Errorf("release lock %q: %w", key, err)
		}
		if n == 0 {
			return fmt.Errorf("release lock %q: %w", key, ErrLockLost)
		}
		return nil
	}
	return release, nil
}

func newToken() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
