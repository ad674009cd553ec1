package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces every key written to Redis.
const KeyPrefix = "imbo-cli:"

const opTimeout = 2 * time.Second

// Backend is a cache slot holding one listing.
type Backend interface {
	Get(dst any) bool
	Put(items any)
	Clear()
}

var (
	_ Backend = (*Store)(nil)
	_ Backend = (*RedisStore)(nil)
)

// RedisStore keeps a listing in Redis so several machines share it. Expiry
// is left to Redis.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore on an existing client.
func NewRedisStore(client *redis.Client, key string, hosts []string, user string, ttl time.Duration) *RedisStore {
	hash := sha1.Sum([]byte(strings.Join(hosts, ",") + "\x00" + user))
	return &RedisStore{
		client: client,
		key:    KeyPrefix + sanitizeKey(key) + ":" + hex.EncodeToString(hash[:6]),
		ttl:    ttl,
	}
}

// Key returns the Redis key of the slot.
func (s *RedisStore) Key() string { return s.key }

func (s *RedisStore) Get(dst any) bool {
	if disabled() {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dst) == nil
}

func (s *RedisStore) Put(items any) {
	if disabled() {
		return
	}
	data, err := json.Marshal(items)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_ = s.client.Set(ctx, s.key, data, s.ttl).Err()
}

func (s *RedisStore) Clear() {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	_ = s.client.Del(ctx, s.key).Err()
}

// RedisURL returns $IMBO_CACHE_REDIS_URL, e.g. redis://localhost:6379/0.
func RedisURL() string {
	return strings.TrimSpace(os.Getenv("IMBO_CACHE_REDIS_URL"))
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(rawURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid IMBO_CACHE_REDIS_URL: %w", err)
	}
	return redis.NewClient(opts), nil
}

// Open returns the backend for key: Redis when IMBO_CACHE_REDIS_URL is set,
// otherwise a file in DefaultDir.
func Open(key string, hosts []string, user string) (Backend, error) {
	if rawURL := RedisURL(); rawURL != "" {
		client, err := NewRedisClient(rawURL)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, key, hosts, user, DefaultTTL), nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return nil, err
	}
	return NewStore(dir, key, hosts, user), nil
}

// ClearRedis deletes every key under KeyPrefix and returns how many were
// removed.
func ClearRedis(ctx context.Context, client *redis.Client) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := client.Scan(ctx, cursor, KeyPrefix+"*", 100).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := client.Del(ctx, keys...).Result()
			if err != nil && !errors.Is(err, redis.Nil) {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}
